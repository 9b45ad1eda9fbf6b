package quote

import (
	"fmt"
	"strings"

	"sunquote/backend/libs/money"
	"sunquote/backend/services/quote-service/internal/installation"
	"sunquote/backend/services/quote-service/internal/models"
	"sunquote/backend/services/quote-service/internal/rebate"
	"sunquote/backend/services/quote-service/internal/selector"
	"sunquote/backend/services/quote-service/internal/zone"
)

// Pricing holds the tax, tariff and projection constants.
type Pricing struct {
	GSTRate                 float64            `yaml:"gst_rate" env:"PRICING_GST_RATE"`
	RetailTariff            float64            `yaml:"retail_tariff" env:"PRICING_RETAIL_TARIFF"`
	FeedInTariff            float64            `yaml:"feed_in_tariff" env:"PRICING_FEED_IN_TARIFF"`
	DefaultYieldFactor      float64            `yaml:"default_yield_factor" env:"PRICING_DEFAULT_YIELD_FACTOR"`
	YieldFactors            map[string]float64 `yaml:"yield_factors" env:"-"`
	Year10Escalator         float64            `yaml:"year10_escalator" env:"PRICING_YEAR10_ESCALATOR"`
	Year25Escalator         float64            `yaml:"year25_escalator" env:"PRICING_YEAR25_ESCALATOR"`
	DefaultBillPeriodMonths int                `yaml:"default_bill_period_months" env:"PRICING_BILL_PERIOD_MONTHS"`
}

// DefaultPricing returns the standard residential constants.
func DefaultPricing() Pricing {
	return Pricing{
		GSTRate:                 installation.DefaultGSTRate,
		RetailTariff:            0.28,
		FeedInTariff:            0.03,
		DefaultYieldFactor:      zone.DefaultYieldFactor,
		Year10Escalator:         1.03,
		Year25Escalator:         1.025,
		DefaultBillPeriodMonths: 3,
	}
}

// WithDefaults fills zero fields from DefaultPricing.
func (p Pricing) WithDefaults() Pricing {
	d := DefaultPricing()
	if p.GSTRate <= 0 {
		p.GSTRate = d.GSTRate
	}
	if p.RetailTariff <= 0 {
		p.RetailTariff = d.RetailTariff
	}
	if p.FeedInTariff < 0 {
		p.FeedInTariff = d.FeedInTariff
	}
	if p.DefaultYieldFactor <= 0 {
		p.DefaultYieldFactor = d.DefaultYieldFactor
	}
	if p.Year10Escalator <= 0 {
		p.Year10Escalator = d.Year10Escalator
	}
	if p.Year25Escalator <= 0 {
		p.Year25Escalator = d.Year25Escalator
	}
	if p.DefaultBillPeriodMonths <= 0 {
		p.DefaultBillPeriodMonths = d.DefaultBillPeriodMonths
	}
	return p
}

// Assembler turns a request into a priced quote. It holds no mutable state; one is built
// per reference-data snapshot.
type Assembler struct {
	selector     *selector.Selector
	installation *installation.Engine
	rebates      *rebate.Calculator
	commissions  CommissionTable
	pricing      Pricing
}

// NewAssembler wires the pricing components together.
func NewAssembler(sel *selector.Selector, engine *installation.Engine, rebates *rebate.Calculator, commissions CommissionTable, pricing Pricing) *Assembler {
	return &Assembler{
		selector:     sel,
		installation: engine,
		rebates:      rebates,
		commissions:  commissions,
		pricing:      pricing.WithDefaults(),
	}
}

// Assemble prices the request. Identity fields (id, fingerprint, snapshot, timestamp)
// are left for the caller.
func (a *Assembler) Assemble(req models.QuoteRequest) (models.Quote, error) {
	if err := req.Validate(); err != nil {
		return models.Quote{}, err
	}

	panel, err := a.selector.SelectPanel(req.SystemSizeKw, req.PanelProductID, req.PanelCount)
	if err != nil {
		return models.Quote{}, err
	}
	inverter, err := a.selector.SelectInverter(panel.ActualSizeKw, req.InverterProductID)
	if err != nil {
		return models.Quote{}, err
	}
	battery, err := a.selector.SelectBattery(req.BatterySizeKwh, req.BatteryProductID)
	if err != nil {
		return models.Quote{}, err
	}

	q := models.Quote{
		RequestedSystemSizeKw: req.SystemSizeKw,
		SystemSizeKw:          panel.ActualSizeKw,
		PanelCount:            panel.Count,
		Panel:                 selector.Priced(panel.Product, panel.Offer, panel.Count, panel.Wattage, "W"),
		Inverter:              selector.Priced(inverter.Product, inverter.Offer, 1, inverter.CapacityKw, "kW"),
	}
	if battery != nil {
		priced := selector.Priced(battery.Product, battery.Offer, battery.Units, battery.UnitCapacityKwh, "kWh")
		q.Battery = &priced
		q.BatterySizeKwh = battery.ActualCapacityKwh
		q.BatteryUnits = battery.Units
	}

	var fallbacks []string

	if req.WantsInstallation() {
		est, cmp, provider, err := a.priceInstallation(req, q)
		if err != nil {
			return models.Quote{}, err
		}
		q.Installation = &est
		q.InstallationComparison = cmp
		q.InstallationProvider = provider
		for _, f := range est.Failures {
			fallbacks = append(fallbacks, "installation:formula:"+f.Code)
		}
	}

	q.Costs = models.CostBreakdown{
		PanelCost:    q.Panel.LineCost,
		InverterCost: q.Inverter.LineCost,
	}
	if q.Battery != nil {
		q.Costs.BatteryCost = q.Battery.LineCost
	}
	if q.Installation != nil {
		q.Costs.InstallationCost = q.Installation.Subtotal
		q.Costs.ExtrasCost = q.Installation.ExtrasSubtotal
	}
	q.Costs.Subtotal = money.Sum(q.Costs.PanelCost, q.Costs.InverterCost, q.Costs.BatteryCost, q.Costs.InstallationCost, q.Costs.ExtrasCost)

	rebates, err := a.rebates.Calculate(q.SystemSizeKw, q.BatterySizeKwh, req.Postcode, req.Region)
	if err != nil {
		return models.Quote{}, fmt.Errorf("quote: rebates: %w", err)
	}
	q.Rebates = rebates
	fallbacks = append(fallbacks, rebates.Fallbacks...)

	q.TotalAfterRebates = money.Sum(q.Costs.Subtotal, -rebates.Total)

	region := strings.ToUpper(strings.TrimSpace(req.Region))
	if region == "" {
		region = rebates.Zone.State
	}
	var setting *models.CommissionSetting
	if a.commissions != nil {
		if s, ok := a.commissions.CommissionSetting(region); ok {
			setting = &s
		}
	}
	q.Commission = Commission(setting, req.CommissionMarginOverride, q.TotalAfterRebates)
	if q.Commission.Source == models.CommissionNone {
		fallbacks = append(fallbacks, "commission:none")
	}

	taxable := money.Sum(q.TotalAfterRebates, q.Commission.Amount)
	q.GST = money.Round2(taxable * a.pricing.GSTRate)
	q.FinalPrice = money.Sum(taxable, q.GST)

	revenue := money.Sum(q.TotalAfterRebates, q.Commission.Amount, rebates.Total)
	q.Profit = models.Profit{
		WholesaleCost: q.Costs.Subtotal,
		Revenue:       revenue,
		GrossProfit:   money.Sum(revenue, -q.Costs.Subtotal),
	}
	if revenue != 0 {
		q.Profit.MarginPercent = money.Round1(q.Profit.GrossProfit / revenue * 100)
	}

	yield := zone.YieldFactor(a.pricing.YieldFactors, rebates.Zone.State, a.pricing.DefaultYieldFactor)
	q.Production = ProductionFor(q.SystemSizeKw, yield)
	if req.HasConsumption() {
		s := Project(q.Production, q.BatterySizeKwh, AnnualConsumption(req, a.pricing), q.FinalPrice, a.pricing)
		q.Savings = &s
	}

	q.Fallbacks = fallbacks
	q.Degraded = len(fallbacks) > 0
	return q, nil
}

func (a *Assembler) priceInstallation(req models.QuoteRequest, q models.Quote) (models.InstallationEstimate, *models.InstallationComparison, models.ProviderType, error) {
	job := JobFor(req, q.SystemSizeKw, q.PanelCount, q.BatterySizeKwh)

	switch req.EffectivePreference() {
	case models.PreferCheapest:
		cmp, err := a.installation.Compare(job)
		if err != nil {
			return models.InstallationEstimate{}, nil, "", err
		}
		job.Provider = cmp.Recommended
		est, err := a.installation.Price(job)
		if err != nil {
			return models.InstallationEstimate{}, nil, "", err
		}
		return est, &cmp, job.Provider, nil
	case models.PreferSubcontractor:
		job.Provider = models.ProviderSubcontractor
	default:
		job.Provider = models.ProviderInternal
	}

	est, err := a.installation.Price(job)
	if err != nil {
		return models.InstallationEstimate{}, nil, "", err
	}
	return est, nil, job.Provider, nil
}

// JobFor builds the installation job from the request and the selected hardware.
func JobFor(req models.QuoteRequest, systemSizeKw float64, panelCount int, batteryKwh float64) models.InstallationJob {
	s := req.Site
	job := models.InstallationJob{
		SystemSizeKw:        systemSizeKw,
		PanelCount:          panelCount,
		HasBattery:          batteryKwh > 0,
		BatteryCapacityKwh:  batteryKwh,
		IsRetrofit:          s.IsRetrofit,
		Storeys:             s.Storeys,
		RoofType:            s.RoofType,
		RoofPitch:           s.RoofPitch,
		Orientation:         s.Orientation,
		Phases:              s.Phases,
		HasOptimisers:       s.HasOptimisers,
		AdditionalInverters: s.AdditionalInverters,
		Splits:              s.Splits,
		BackupCircuits:      s.BackupCircuits,
		ExistingPanels:      s.ExistingPanels,
		DistanceFromHQKm:    s.DistanceFromHQKm,
		SelectedExtras:      req.SelectedExtras,
	}
	if batteryKwh > 0 {
		job.BatteryType = s.BatteryType
	}
	return job
}

// UnknownExtras lists selected extra codes with no matching active rule.
func (a *Assembler) UnknownExtras(req models.QuoteRequest) []string {
	var unknown []string
	for _, code := range req.SelectedExtras {
		if _, ok := a.installation.Item(strings.TrimSpace(code)); !ok {
			unknown = append(unknown, code)
		}
	}
	return unknown
}
