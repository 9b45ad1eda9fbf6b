package zone

import (
	"sort"
	"strings"

	"sunquote/backend/services/quote-service/internal/models"
)

// Default zone used when a postcode is unparseable or outside every known state range.
const (
	DefaultZone       = 3
	DefaultZoneRating = 1.382
)

// DefaultYieldFactor is annual generation in kWh per installed kW.
const DefaultYieldFactor = 1400.0

// Table exposes the postcode range reference data.
type Table interface {
	ZoneRanges() []models.PostcodeZoneRange
}

type stateRange struct {
	start, end  int
	zone        int
	rating      float64
	state       string
	description string
}

// ACT is listed before NSW so that 2600-2629 resolves to the territory.
var stateDefaults = []stateRange{
	{6000, 6799, 2, 1.536, "WA", "Western Australia (default)"},
	{6800, 6999, 1, 1.622, "WA", "North WA (default)"},
	{4000, 4399, 2, 1.536, "QLD", "Brisbane area (default)"},
	{4400, 4999, 1, 1.622, "QLD", "North Queensland (default)"},
	{2600, 2629, 3, 1.382, "ACT", "Australian Capital Territory (default)"},
	{2000, 2999, 3, 1.382, "NSW", "New South Wales (default)"},
	{3000, 3999, 3, 1.382, "VIC", "Victoria (default)"},
	{5000, 5999, 3, 1.382, "SA", "South Australia (default)"},
	{7000, 7999, 4, 1.185, "TAS", "Tasmania (default)"},
	{800, 999, 1, 1.622, "NT", "Northern Territory (default)"},
}

// Lookup resolves postcodes against a range table. It is immutable after construction.
type Lookup struct {
	ranges []models.PostcodeZoneRange
}

// NewLookup indexes the table. When ranges overlap the narrowest one wins.
func NewLookup(table Table) *Lookup {
	var ranges []models.PostcodeZoneRange
	if table != nil {
		for _, r := range table.ZoneRanges() {
			if r.End < r.Start || r.ZoneRating <= 0 {
				continue
			}
			ranges = append(ranges, r)
		}
	}
	sort.SliceStable(ranges, func(i, j int) bool {
		wi, wj := ranges[i].End-ranges[i].Start, ranges[j].End-ranges[j].Start
		if wi != wj {
			return wi < wj
		}
		return ranges[i].Start < ranges[j].Start
	})
	return &Lookup{ranges: ranges}
}

// Find never fails: table match, then the state range default, then zone 3.
func (l *Lookup) Find(postcode string) models.ZoneInfo {
	return l.FindWithDefault(postcode, DefaultZoneRating)
}

// FindWithDefault is Find with a caller-supplied rating for unknown postcodes.
func (l *Lookup) FindWithDefault(postcode string, defaultRating float64) models.ZoneInfo {
	postcode = strings.TrimSpace(postcode)
	if defaultRating <= 0 {
		defaultRating = DefaultZoneRating
	}
	fallback := models.ZoneInfo{
		Postcode:    postcode,
		Zone:        DefaultZone,
		ZoneRating:  defaultRating,
		Description: "Unknown postcode (default Zone 3)",
		Source:      models.ZoneFromDefault,
	}

	n, err := models.ParsePostcode(postcode)
	if err != nil {
		return fallback
	}

	for _, r := range l.ranges {
		if r.Contains(n) {
			return models.ZoneInfo{
				Postcode:    postcode,
				Zone:        r.Zone,
				ZoneRating:  r.ZoneRating,
				State:       r.State,
				Description: r.Description,
				Source:      models.ZoneFromTable,
			}
		}
	}

	for _, d := range stateDefaults {
		if n >= d.start && n <= d.end {
			return models.ZoneInfo{
				Postcode:    postcode,
				Zone:        d.zone,
				ZoneRating:  d.rating,
				State:       d.state,
				Description: d.description,
				Source:      models.ZoneFromStateDefault,
			}
		}
	}
	return fallback
}

// Ranges returns a copy of the indexed table.
func (l *Lookup) Ranges() []models.PostcodeZoneRange {
	out := make([]models.PostcodeZoneRange, len(l.ranges))
	copy(out, l.ranges)
	return out
}

// YieldFactor returns the kWh/kW/year figure for a state, or def when the state is unknown.
func YieldFactor(factors map[string]float64, state string, def float64) float64 {
	if def <= 0 {
		def = DefaultYieldFactor
	}
	if v, ok := factors[strings.ToUpper(strings.TrimSpace(state))]; ok && v > 0 {
		return v
	}
	return def
}
