package models

// IncentiveType names a rebate scheme.
type IncentiveType string

const (
	IncentiveFederalCertificate IncentiveType = "federal-certificate"
	IncentiveFederalBattery     IncentiveType = "federal-battery"
	IncentiveRegionalBattery    IncentiveType = "regional-battery"
)

// Rebate variable names.
const (
	VarZoneRating           = "zoneRating"
	VarDeemingPeriod        = "deemingPeriod"
	VarCertificateValue     = "certificateValue"
	VarUsableFraction       = "usableCapacityFraction"
	VarRatePerKwh           = "ratePerKwh"
	VarMinCapacityKwh       = "minCapacityKwh"
	VarMaxCapacityKwh       = "maxCapacityKwh"
	VarCombinedCapThreshold = "combinedCapThreshold"
	VarCombinedCapValue     = "combinedCapValue"
)

// RebateConfig parameterises one incentive scheme.
type RebateConfig struct {
	ID        string             `json:"id" yaml:"id"`
	Type      IncentiveType      `json:"type" yaml:"type"`
	Name      string             `json:"name,omitempty" yaml:"name,omitempty"`
	Region    string             `json:"region,omitempty" yaml:"region,omitempty"`
	Variables map[string]float64 `json:"variables" yaml:"variables"`
	Active    bool               `json:"active" yaml:"active"`
}

// Var returns a positive variable value.
func (c RebateConfig) Var(name string) (float64, bool) {
	v, ok := c.Variables[name]
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// RebateDetail is one computed incentive with its audit trace.
type RebateDetail struct {
	Type    IncentiveType `json:"type"`
	Name    string        `json:"name"`
	Amount  float64       `json:"amount"`
	Formula string        `json:"formula"`
	Capped  bool          `json:"capped,omitempty"`
}

// RebateResult aggregates all incentives for a system.
type RebateResult struct {
	FederalSolar    float64        `json:"federalSolar"`
	FederalBattery  float64        `json:"federalBattery"`
	RegionalBattery float64        `json:"regionalBattery"`
	Total           float64        `json:"total"`
	Certificates    int            `json:"certificates"`
	Zone            ZoneInfo       `json:"zone"`
	Details         []RebateDetail `json:"details"`
	Fallbacks       []string       `json:"fallbacks,omitempty"`
}
