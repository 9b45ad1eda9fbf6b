package models

import "time"

// CostBreakdown itemises the pre-rebate subtotal at cost.
type CostBreakdown struct {
	PanelCost        float64 `json:"panelCost"`
	InverterCost     float64 `json:"inverterCost"`
	BatteryCost      float64 `json:"batteryCost"`
	InstallationCost float64 `json:"installationCost"`
	ExtrasCost       float64 `json:"extrasCost"`
	Subtotal         float64 `json:"subtotal"`
}

// CommissionSource tells where the commission rule came from.
type CommissionSource string

const (
	CommissionFromSetting  CommissionSource = "setting"
	CommissionFromOverride CommissionSource = "override"
	CommissionNone         CommissionSource = "none"
)

// CommissionBreakdown explains the commission applied to a quote.
type CommissionBreakdown struct {
	Amount       float64          `json:"amount"`
	Type         CommissionType   `json:"type,omitempty"`
	RatePercent  float64          `json:"ratePercent,omitempty"`
	Source       CommissionSource `json:"source"`
	FloorApplied bool             `json:"floorApplied,omitempty"`
}

// Profit is the internal margin view.
type Profit struct {
	WholesaleCost float64 `json:"wholesaleCost"`
	Revenue       float64 `json:"revenue"`
	GrossProfit   float64 `json:"grossProfit"`
	MarginPercent float64 `json:"marginPercent"`
}

// Production is the modelled generation of the system.
type Production struct {
	YieldFactor float64     `json:"yieldFactor"`
	AnnualKwh   float64     `json:"annualKwh"`
	MonthlyKwh  [12]float64 `json:"monthlyKwh"`
}

// Savings is the optional financial projection.
type Savings struct {
	AnnualConsumptionKwh float64 `json:"annualConsumptionKwh"`
	SelfConsumptionRate  float64 `json:"selfConsumptionRate"`
	SelfConsumedKwh      float64 `json:"selfConsumedKwh"`
	ExportedKwh          float64 `json:"exportedKwh"`
	AnnualSavings        float64 `json:"annualSavings"`
	MonthlySavings       float64 `json:"monthlySavings"`
	Year10Savings        float64 `json:"year10Savings"`
	Year25Savings        float64 `json:"year25Savings"`
	PaybackYears         float64 `json:"paybackYears"`
}

// Quote is the complete computed offer. It is rebuilt on every request.
type Quote struct {
	ID              string `json:"id"`
	Fingerprint     string `json:"fingerprint"`
	SnapshotVersion string `json:"snapshotVersion"`

	RequestedSystemSizeKw float64 `json:"requestedSystemSizeKw"`
	SystemSizeKw          float64 `json:"systemSizeKw"`
	PanelCount            int     `json:"panelCount"`
	BatterySizeKwh        float64 `json:"batterySizeKwh"`
	BatteryUnits          int     `json:"batteryUnits"`

	Panel    PricedProduct  `json:"panel"`
	Inverter PricedProduct  `json:"inverter"`
	Battery  *PricedProduct `json:"battery,omitempty"`

	InstallationProvider   ProviderType            `json:"installationProvider,omitempty"`
	Installation           *InstallationEstimate   `json:"installation,omitempty"`
	InstallationComparison *InstallationComparison `json:"installationComparison,omitempty"`

	Costs             CostBreakdown       `json:"costs"`
	Rebates           RebateResult        `json:"rebates"`
	TotalAfterRebates float64             `json:"totalAfterRebates"`
	Commission        CommissionBreakdown `json:"commission"`
	GST               float64             `json:"gst"`
	FinalPrice        float64             `json:"finalPrice"`
	Profit            Profit              `json:"profit"`
	Production        Production          `json:"production"`
	Savings           *Savings            `json:"savings,omitempty"`

	Degraded  bool      `json:"degraded"`
	Fallbacks []string  `json:"fallbacks,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
