package models

// CommissionType selects percentage or flat commission.
type CommissionType string

const (
	CommissionPercentage CommissionType = "PERCENTAGE"
	CommissionFixed      CommissionType = "FIXED"
)

// CommissionSetting is the region-scoped commission rule.
type CommissionSetting struct {
	Region        string         `json:"region" yaml:"region"`
	Type          CommissionType `json:"type" yaml:"type"`
	RatePercent   float64        `json:"ratePercent,omitempty" yaml:"ratePercent,omitempty"`
	FixedAmount   float64        `json:"fixedAmount,omitempty" yaml:"fixedAmount,omitempty"`
	MinimumProfit float64        `json:"minimumProfit,omitempty" yaml:"minimumProfit,omitempty"`
}
