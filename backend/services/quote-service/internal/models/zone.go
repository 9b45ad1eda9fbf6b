package models

// PostcodeZoneRange maps an inclusive postcode range to a solar zone.
type PostcodeZoneRange struct {
	Start       int     `json:"start" yaml:"start"`
	End         int     `json:"end" yaml:"end"`
	Zone        int     `json:"zone" yaml:"zone"`
	ZoneRating  float64 `json:"zoneRating" yaml:"zoneRating"`
	State       string  `json:"state" yaml:"state"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// Contains reports whether the postcode falls inside the range.
func (r PostcodeZoneRange) Contains(postcode int) bool {
	return postcode >= r.Start && postcode <= r.End
}

// ZoneSource tells how a zone was resolved.
type ZoneSource string

const (
	ZoneFromTable        ZoneSource = "table"
	ZoneFromStateDefault ZoneSource = "state-default"
	ZoneFromDefault      ZoneSource = "default"
)

// ZoneInfo is the result of a postcode lookup.
type ZoneInfo struct {
	Postcode    string     `json:"postcode"`
	Zone        int        `json:"zone"`
	ZoneRating  float64    `json:"zoneRating"`
	State       string     `json:"state"`
	Description string     `json:"description,omitempty"`
	Source      ZoneSource `json:"source"`
}

// Fallback reports whether the lookup missed the range table.
func (z ZoneInfo) Fallback() bool {
	return z.Source != ZoneFromTable
}
