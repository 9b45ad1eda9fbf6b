package models

import (
	"math"
	"strconv"
	"strings"
)

// ProviderPreference chooses which installation provider prices the job.
type ProviderPreference string

const (
	PreferAny           ProviderPreference = "ANY"
	PreferInternal      ProviderPreference = "INTERNAL"
	PreferSubcontractor ProviderPreference = "SUBCONTRACTOR"
	PreferCheapest      ProviderPreference = "CHEAPEST"
)

// Installation methods accepted for compatibility with older clients.
const (
	MethodAllIn    = "allin"
	MethodDetailed = "detailed"
	MethodInHouse  = "inhouse"
)

// SiteDetails describes the property and wiring. Zero values take site defaults.
type SiteDetails struct {
	Storeys             int     `json:"storeys,omitempty"`
	RoofType            string  `json:"roofType,omitempty"`
	RoofPitch           string  `json:"roofPitch,omitempty"`
	Orientation         string  `json:"orientation,omitempty"`
	Phases              int     `json:"phases,omitempty"`
	HasOptimisers       bool    `json:"hasOptimisers,omitempty"`
	BatteryType         string  `json:"batteryType,omitempty"`
	IsRetrofit          bool    `json:"isRetrofit,omitempty"`
	AdditionalInverters int     `json:"additionalInverters,omitempty"`
	Splits              int     `json:"splits,omitempty"`
	BackupCircuits      int     `json:"backupCircuits,omitempty"`
	ExistingPanels      int     `json:"existingPanels,omitempty"`
	DistanceFromHQKm    float64 `json:"distanceFromHQ,omitempty"`
}

// QuoteRequest is the job specification for a full quote.
type QuoteRequest struct {
	SystemSizeKw             float64            `json:"systemSizeKw"`
	PanelProductID           string             `json:"panelProductId,omitempty"`
	InverterProductID        string             `json:"inverterProductId,omitempty"`
	BatteryProductID         string             `json:"batteryProductId,omitempty"`
	PanelCount               int                `json:"panelCount,omitempty"`
	BatterySizeKwh           float64            `json:"batterySizeKwh,omitempty"`
	Postcode                 string             `json:"postcode,omitempty"`
	Region                   string             `json:"region,omitempty"`
	IncludeInstallation      *bool              `json:"includeInstallation,omitempty"`
	InstallationMethod       string             `json:"installationMethod,omitempty"`
	ProviderPreference       ProviderPreference `json:"providerPreference,omitempty"`
	UseConservativePricing   bool               `json:"useConservativePricing,omitempty"`
	CommissionMarginOverride *float64           `json:"commissionMarginOverride,omitempty"`
	SelectedExtras           []string           `json:"selectedExtras,omitempty"`
	Site                     SiteDetails        `json:"site"`
	DailyConsumptionKwh      float64            `json:"dailyConsumptionKwh,omitempty"`
	PeriodicBillAmount       float64            `json:"periodicBillAmount,omitempty"`
	BillPeriodMonths         int                `json:"billPeriodMonths,omitempty"`
	AnnualConsumptionKwh     float64            `json:"annualConsumptionKwh,omitempty"`
}

// WantsInstallation defaults to true when the flag is omitted.
func (r QuoteRequest) WantsInstallation() bool {
	return r.IncludeInstallation == nil || *r.IncludeInstallation
}

// HasConsumption reports whether a savings projection was asked for.
func (r QuoteRequest) HasConsumption() bool {
	return r.DailyConsumptionKwh > 0 || r.PeriodicBillAmount > 0 || r.AnnualConsumptionKwh > 0
}

// EffectivePreference resolves the provider preference from the explicit field, the
// conservative-pricing flag and the legacy installation method, in that order.
func (r QuoteRequest) EffectivePreference() ProviderPreference {
	if r.ProviderPreference != "" {
		return ProviderPreference(strings.ToUpper(string(r.ProviderPreference)))
	}
	if r.UseConservativePricing {
		return PreferSubcontractor
	}
	if strings.EqualFold(r.InstallationMethod, MethodInHouse) {
		return PreferInternal
	}
	return PreferAny
}

// Validate rejects requests that cannot be quoted.
func (r QuoteRequest) Validate() error {
	verr := NewValidationError()

	if !finite(r.SystemSizeKw) || r.SystemSizeKw <= 0 {
		verr.Add("systemSizeKw", "must be greater than zero")
	}
	if !finite(r.BatterySizeKwh) || r.BatterySizeKwh < 0 {
		verr.Add("batterySizeKwh", "must not be negative")
	}
	if r.PanelCount < 0 {
		verr.Add("panelCount", "must not be negative")
	}
	if r.Postcode != "" {
		if _, err := ParsePostcode(r.Postcode); err != nil {
			verr.Add("postcode", "must be a 3 or 4 digit postcode")
		}
	}
	switch r.EffectivePreference() {
	case PreferAny, PreferInternal, PreferSubcontractor, PreferCheapest:
	default:
		verr.Add("providerPreference", "must be one of ANY, INTERNAL, SUBCONTRACTOR, CHEAPEST")
	}
	switch strings.ToLower(r.InstallationMethod) {
	case "", MethodAllIn, MethodDetailed, MethodInHouse:
	default:
		verr.Add("installationMethod", "must be one of allin, detailed, inhouse")
	}
	if o := r.CommissionMarginOverride; o != nil && (!finite(*o) || *o < 0 || *o > 100) {
		verr.Add("commissionMarginOverride", "must be between 0 and 100")
	}

	signals := 0
	for field, v := range map[string]float64{
		"dailyConsumptionKwh":  r.DailyConsumptionKwh,
		"periodicBillAmount":   r.PeriodicBillAmount,
		"annualConsumptionKwh": r.AnnualConsumptionKwh,
	} {
		if !finite(v) || v < 0 {
			verr.Add(field, "must not be negative")
			continue
		}
		if v > 0 {
			signals++
		}
	}
	if signals > 1 {
		verr.Add("consumption", "provide at most one of dailyConsumptionKwh, periodicBillAmount, annualConsumptionKwh")
	}
	if r.BillPeriodMonths < 0 || r.BillPeriodMonths > 12 {
		verr.Add("billPeriodMonths", "must be between 1 and 12")
	}

	s := r.Site
	if s.Storeys < 0 {
		verr.Add("site.storeys", "must not be negative")
	}
	if s.Phases != 0 && s.Phases != 1 && s.Phases != 3 {
		verr.Add("site.phases", "must be 1 or 3")
	}
	if s.AdditionalInverters < 0 || s.Splits < 0 || s.BackupCircuits < 0 || s.ExistingPanels < 0 {
		verr.Add("site", "unit counters must not be negative")
	}
	if !finite(s.DistanceFromHQKm) || s.DistanceFromHQKm < 0 {
		verr.Add("site.distanceFromHQ", "must not be negative")
	}

	return verr.OrNil()
}

// ParsePostcode accepts 3 or 4 digit Australian postcodes.
func ParsePostcode(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 3 || len(raw) > 4 {
		return 0, ErrValidation
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ErrValidation
	}
	return n, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
