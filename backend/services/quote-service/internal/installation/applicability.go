package installation

import (
	"strings"

	"sunquote/backend/services/quote-service/internal/models"
)

// Predicate is one named applicability check. Match must return true when the constraint
// is absent on the item.
type Predicate struct {
	Name  string
	Match func(c models.InstallationConstraints, job models.InstallationJob) bool
}

// Predicates are combined with AND semantics.
var Predicates = []Predicate{
	{Name: "minSystemSize", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return c.MinSystemSize == nil || job.SystemSizeKw >= *c.MinSystemSize
	}},
	{Name: "maxSystemSize", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return c.MaxSystemSize == nil || job.SystemSizeKw <= *c.MaxSystemSize
	}},
	{Name: "roofType", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return sameLabel(c.RoofType, job.RoofType)
	}},
	{Name: "roofPitch", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return sameLabel(c.RoofPitch, job.RoofPitch)
	}},
	{Name: "orientation", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return sameLabel(c.Orientation, job.Orientation)
	}},
	{Name: "storeys", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return c.Storeys == nil || *c.Storeys == job.Storeys
	}},
	{Name: "phases", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return c.Phases == nil || *c.Phases == job.Phases
	}},
	{Name: "hasOptimisers", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return c.HasOptimisers == nil || *c.HasOptimisers == job.HasOptimisers
	}},
	{Name: "hasBattery", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return c.HasBattery == nil || *c.HasBattery == job.HasBattery
	}},
	{Name: "batteryType", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return sameLabel(c.BatteryType, job.BatteryType)
	}},
	{Name: "isRetrofit", Match: func(c models.InstallationConstraints, job models.InstallationJob) bool {
		return c.IsRetrofit == nil || *c.IsRetrofit == job.IsRetrofit
	}},
}

// Applies reports whether every constraint on the item matches the job.
func Applies(item models.InstallationCostItem, job models.InstallationJob) bool {
	for _, p := range Predicates {
		if !p.Match(item.Constraints, job) {
			return false
		}
	}
	return true
}

// Mismatches lists the predicates the job fails for the item.
func Mismatches(item models.InstallationCostItem, job models.InstallationJob) []string {
	var failed []string
	for _, p := range Predicates {
		if !p.Match(item.Constraints, job) {
			failed = append(failed, p.Name)
		}
	}
	return failed
}

func sameLabel(constraint, value string) bool {
	constraint = strings.TrimSpace(constraint)
	return constraint == "" || strings.EqualFold(constraint, strings.TrimSpace(value))
}

// WithDefaults fills unset site fields with the standard single-storey, single-phase,
// tiled-roof assumptions and derives HasBattery from the capacity.
func WithDefaults(job models.InstallationJob) models.InstallationJob {
	if job.Storeys <= 0 {
		job.Storeys = 1
	}
	if job.Phases <= 0 {
		job.Phases = 1
	}
	if job.RoofType == "" {
		job.RoofType = "tile"
	}
	if job.RoofPitch == "" {
		job.RoofPitch = "standard"
	}
	if job.Orientation == "" {
		job.Orientation = "portrait"
	}
	if job.BatteryCapacityKwh > 0 {
		job.HasBattery = true
	}
	switch {
	case !job.HasBattery:
		job.BatteryType = ""
	case job.BatteryType == "":
		job.BatteryType = "dc_coupled"
	}
	return job
}
