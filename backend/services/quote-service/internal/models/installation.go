package models

// CostCategory groups installation line items for display.
type CostCategory string

const (
	CostBase       CostCategory = "BASE"
	CostComplexity CostCategory = "COMPLEXITY"
	CostLabor      CostCategory = "LABOR"
	CostEquipment  CostCategory = "EQUIPMENT"
	CostRental     CostCategory = "RENTAL"
	CostRegulatory CostCategory = "REGULATORY"
)

// CalculationType selects how an item's quantity is derived from the job.
type CalculationType string

const (
	CalcFixed    CalculationType = "FIXED"
	CalcPerWatt  CalculationType = "PER_WATT"
	CalcPerPanel CalculationType = "PER_PANEL"
	CalcPerKW    CalculationType = "PER_KW"
	CalcPerKWh   CalculationType = "PER_KWH"
	CalcPerUnit  CalculationType = "PER_UNIT"
	CalcHourly   CalculationType = "HOURLY"
	CalcFormula  CalculationType = "FORMULA"
)

// ProviderType identifies who performs or supplies an item.
type ProviderType string

const (
	ProviderInternal      ProviderType = "INTERNAL"
	ProviderSubcontractor ProviderType = "SUBCONTRACTOR"
	ProviderRental        ProviderType = "RENTAL"
)

// Counter names usable by PER_UNIT items.
const (
	CounterAdditionalInverters = "additionalInverters"
	CounterSplits              = "splits"
	CounterBackupCircuits      = "backupCircuits"
	CounterExistingPanels      = "existingPanels"
)

// InstallationConstraints restrict where an item applies. A nil pointer or empty string is a wildcard.
type InstallationConstraints struct {
	MinSystemSize *float64 `json:"minSystemSize,omitempty" yaml:"minSystemSize,omitempty"`
	MaxSystemSize *float64 `json:"maxSystemSize,omitempty" yaml:"maxSystemSize,omitempty"`
	RoofType      string   `json:"roofType,omitempty" yaml:"roofType,omitempty"`
	RoofPitch     string   `json:"roofPitch,omitempty" yaml:"roofPitch,omitempty"`
	Orientation   string   `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	Storeys       *int     `json:"storeys,omitempty" yaml:"storeys,omitempty"`
	Phases        *int     `json:"phases,omitempty" yaml:"phases,omitempty"`
	HasOptimisers *bool    `json:"hasOptimisers,omitempty" yaml:"hasOptimisers,omitempty"`
	HasBattery    *bool    `json:"hasBattery,omitempty" yaml:"hasBattery,omitempty"`
	BatteryType   string   `json:"batteryType,omitempty" yaml:"batteryType,omitempty"`
	IsRetrofit    *bool    `json:"isRetrofit,omitempty" yaml:"isRetrofit,omitempty"`
}

// InstallationCostItem is one rule in the installation rate table.
type InstallationCostItem struct {
	ID              string                  `json:"id" yaml:"id"`
	Code            string                  `json:"code" yaml:"code"`
	Name            string                  `json:"name" yaml:"name"`
	Category        CostCategory            `json:"category" yaml:"category"`
	CalculationType CalculationType         `json:"calculationType" yaml:"calculationType"`
	BaseRate        float64                 `json:"baseRate" yaml:"baseRate"`
	Multiplier      float64                 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	MinQuantity     float64                 `json:"minQuantity,omitempty" yaml:"minQuantity,omitempty"`
	MaxQuantity     *float64                `json:"maxQuantity,omitempty" yaml:"maxQuantity,omitempty"`
	EstimatedHours  float64                 `json:"estimatedHours,omitempty" yaml:"estimatedHours,omitempty"`
	Formula         string                  `json:"formula,omitempty" yaml:"formula,omitempty"`
	Counter         string                  `json:"counter,omitempty" yaml:"counter,omitempty"`
	Constraints     InstallationConstraints `json:"constraints" yaml:"constraints"`
	IsOptional      bool                    `json:"isOptional" yaml:"isOptional"`
	DefaultIncluded bool                    `json:"defaultIncluded" yaml:"defaultIncluded"`
	ProviderType    ProviderType            `json:"providerType,omitempty" yaml:"providerType,omitempty"`
	ProviderID      string                  `json:"providerId,omitempty" yaml:"providerId,omitempty"`
	Priority        int                     `json:"priority,omitempty" yaml:"priority,omitempty"`
	SortOrder       int                     `json:"sortOrder,omitempty" yaml:"sortOrder,omitempty"`
	Active          bool                    `json:"active" yaml:"active"`
}

// Provider returns the provider type, INTERNAL when unset.
func (i InstallationCostItem) Provider() ProviderType {
	if i.ProviderType == "" {
		return ProviderInternal
	}
	return i.ProviderType
}

// AutoExcluded reports items that only apply when the customer selects them.
func (i InstallationCostItem) AutoExcluded() bool {
	return i.IsOptional && !i.DefaultIncluded
}

// InstallationJob describes the site and system an installation is priced for.
type InstallationJob struct {
	SystemSizeKw        float64      `json:"systemSizeKw"`
	PanelCount          int          `json:"panelCount"`
	HasBattery          bool         `json:"hasBattery"`
	BatteryCapacityKwh  float64      `json:"batteryCapacityKwh"`
	BatteryType         string       `json:"batteryType,omitempty"`
	IsRetrofit          bool         `json:"isRetrofit"`
	Storeys             int          `json:"storeys"`
	RoofType            string       `json:"roofType,omitempty"`
	RoofPitch           string       `json:"roofPitch,omitempty"`
	Orientation         string       `json:"orientation,omitempty"`
	Phases              int          `json:"phases"`
	HasOptimisers       bool         `json:"hasOptimisers"`
	AdditionalInverters int          `json:"additionalInverters"`
	Splits              int          `json:"splits"`
	BackupCircuits      int          `json:"backupCircuits"`
	ExistingPanels      int          `json:"existingPanels"`
	DistanceFromHQKm    float64      `json:"distanceFromHQ"`
	Provider            ProviderType `json:"provider,omitempty"`
	ProviderID          string       `json:"providerId,omitempty"`
	SelectedExtras      []string     `json:"selectedExtras,omitempty"`
}

// InstallationLine is one priced item of an estimate.
type InstallationLine struct {
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Category     CostCategory `json:"category"`
	Quantity     float64      `json:"quantity"`
	Unit         string       `json:"unit"`
	UnitCost     float64      `json:"unitCost"`
	TotalCost    float64      `json:"totalCost"`
	Calculation  string       `json:"calculation"`
	Provider     string       `json:"provider"`
	ProviderType ProviderType `json:"providerType"`
	IsOptional   bool         `json:"isOptional"`
}

// FormulaFailure records an item whose quantity formula could not be evaluated.
type FormulaFailure struct {
	Code    string `json:"code"`
	Formula string `json:"formula"`
	Error   string `json:"error"`
}

// InstallationEstimate is the engine output. Subtotal, category and provider breakdowns cover
// automatically applied items; selected extras are reported separately.
type InstallationEstimate struct {
	Items          []InstallationLine       `json:"items"`
	Extras         []InstallationLine       `json:"extras,omitempty"`
	Failures       []FormulaFailure         `json:"failures,omitempty"`
	Subtotal       float64                  `json:"subtotal"`
	GST            float64                  `json:"gst"`
	Total          float64                  `json:"total"`
	ExtrasSubtotal float64                  `json:"extrasSubtotal"`
	ByCategory     map[CostCategory]float64 `json:"byCategory"`
	ByProvider     map[ProviderType]float64 `json:"byProvider"`
}

// InstallationComparison contrasts in-house and subcontracted pricing for one job.
type InstallationComparison struct {
	Internal      InstallationEstimate `json:"internal"`
	Subcontractor InstallationEstimate `json:"subcontractor"`
	Rental        InstallationEstimate `json:"rental"`
	Savings       float64              `json:"savings"`
	Recommended   ProviderType         `json:"recommended"`
}
