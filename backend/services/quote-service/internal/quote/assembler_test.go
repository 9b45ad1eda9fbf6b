package quote

import (
	"errors"
	"math"
	"strings"
	"testing"

	"sunquote/backend/services/quote-service/internal/installation"
	"sunquote/backend/services/quote-service/internal/models"
	"sunquote/backend/services/quote-service/internal/rebate"
	"sunquote/backend/services/quote-service/internal/selector"
	"sunquote/backend/services/quote-service/internal/zone"
)

type fixture struct {
	products    []models.Product
	offers      map[string][]models.SupplierOffer
	items       []models.InstallationCostItem
	rebates     []models.RebateConfig
	ranges      []models.PostcodeZoneRange
	commissions map[string]models.CommissionSetting
}

func (f *fixture) Product(id string) (models.Product, bool) {
	for _, p := range f.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func (f *fixture) ProductsByCategory(c models.ProductCategory) []models.Product {
	var out []models.Product
	for _, p := range f.products {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out
}

func (f *fixture) Offers(id string) []models.SupplierOffer { return f.offers[id] }

func (f *fixture) InstallationItems() []models.InstallationCostItem { return f.items }

func (f *fixture) RebateConfigs() []models.RebateConfig { return f.rebates }

func (f *fixture) ZoneRanges() []models.PostcodeZoneRange { return f.ranges }

func (f *fixture) CommissionSetting(region string) (models.CommissionSetting, bool) {
	s, ok := f.commissions[region]
	return s, ok
}

func bptr(v bool) *bool { return &v }

func newFixture() *fixture {
	return &fixture{
		products: []models.Product{
			{ID: "pan-440", Name: "440W Mono", Category: models.CategoryPanel, Specifications: map[string]interface{}{"wattage": 440.0}, Available: true},
			{ID: "inv-8", Name: "8kW Hybrid", Category: models.CategoryInverter, Specifications: map[string]interface{}{"capacity": 8.0}, Available: true},
			{ID: "bat-10", Name: "10kWh LFP", Category: models.CategoryBattery, Specifications: map[string]interface{}{"capacity": 10.0}, Available: true},
		},
		offers: map[string][]models.SupplierOffer{
			"pan-440": {{ID: "o-pan", ProductID: "pan-440", SupplierName: "Panels Co", UnitCost: 150, Active: true}},
			"inv-8":   {{ID: "o-inv", ProductID: "inv-8", SupplierName: "Inverters Co", UnitCost: 1200, Active: true}},
			"bat-10":  {{ID: "o-bat", ProductID: "bat-10", SupplierName: "Storage Co", UnitCost: 6000, Active: true}},
		},
		items: []models.InstallationCostItem{
			{Code: "BASE", Category: models.CostBase, CalculationType: models.CalcFixed, BaseRate: 1000, Active: true},
			{Code: "PANEL_LABOUR", Category: models.CostLabor, CalculationType: models.CalcPerPanel, BaseRate: 40, Active: true},
			{Code: "BATTERY_INSTALL", Category: models.CostLabor, CalculationType: models.CalcFixed, BaseRate: 800, Constraints: models.InstallationConstraints{HasBattery: bptr(true)}, Active: true},
			{Code: "SUB_PACKAGE", Category: models.CostLabor, CalculationType: models.CalcPerWatt, BaseRate: 0.2, ProviderType: models.ProviderSubcontractor, Active: true},
			{Code: "SMART_METER", Category: models.CostEquipment, CalculationType: models.CalcFixed, BaseRate: 350, IsOptional: true, Active: true},
		},
		rebates: []models.RebateConfig{
			{ID: "stc", Type: models.IncentiveFederalCertificate, Active: true, Variables: map[string]float64{
				models.VarZoneRating: 1.382, models.VarDeemingPeriod: 6, models.VarCertificateValue: 38.90,
			}},
			{ID: "fed-bat", Type: models.IncentiveFederalBattery, Active: true, Variables: map[string]float64{
				models.VarUsableFraction: 0.9, models.VarRatePerKwh: 372, models.VarMaxCapacityKwh: 50,
			}},
			{ID: "wa-bat", Type: models.IncentiveRegionalBattery, Region: "WA", Active: true, Variables: map[string]float64{
				models.VarUsableFraction: 1, models.VarRatePerKwh: 130, models.VarMinCapacityKwh: 5,
				models.VarCombinedCapThreshold: 5000, models.VarCombinedCapValue: 1300,
			}},
		},
		ranges: []models.PostcodeZoneRange{
			{Start: 6000, End: 6199, Zone: 2, ZoneRating: 1.536, State: "WA", Description: "Perth Metro"},
		},
		commissions: map[string]models.CommissionSetting{
			"WA": {Region: "WA", Type: models.CommissionPercentage, RatePercent: 10, MinimumProfit: 1500},
		},
	}
}

func assemblerFor(f *fixture) *Assembler {
	return NewAssembler(
		selector.New(f),
		installation.NewEngine(f, 0),
		rebate.NewCalculator(f, zone.NewLookup(f)),
		f,
		DefaultPricing(),
	)
}

func near(a, b float64) bool { return math.Abs(a-b) < 0.005 }

func TestAssembleSolarOnly(t *testing.T) {
	q, err := assemblerFor(newFixture()).Assemble(models.QuoteRequest{SystemSizeKw: 6.6, Postcode: "6000"})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if q.PanelCount != 15 || q.SystemSizeKw != 6.6 || q.Inverter.ProductID != "inv-8" {
		t.Fatalf("hardware: %d panels, %v kW, inverter %s", q.PanelCount, q.SystemSizeKw, q.Inverter.ProductID)
	}
	if q.Battery != nil || q.BatterySizeKwh != 0 || q.Costs.BatteryCost != 0 {
		t.Fatal("battery priced without a battery request")
	}
	if q.InstallationProvider != models.ProviderInternal || q.Installation == nil {
		t.Fatalf("installation provider = %s", q.InstallationProvider)
	}
	for _, l := range q.Installation.Items {
		if l.Code == "BATTERY_INSTALL" || l.Code == "SUB_PACKAGE" || l.Code == "SMART_METER" {
			t.Fatalf("unexpected line %s", l.Code)
		}
	}

	checks := []struct {
		name      string
		got, want float64
	}{
		{"panel cost", q.Costs.PanelCost, 2250},
		{"inverter cost", q.Costs.InverterCost, 1200},
		{"installation", q.Costs.InstallationCost, 1600},
		{"subtotal", q.Costs.Subtotal, 5050},
		{"rebates", q.Rebates.Total, 2334},
		{"after rebates", q.TotalAfterRebates, 2716},
		{"commission floor", q.Commission.Amount, 1500},
		{"gst", q.GST, 421.6},
		{"final", q.FinalPrice, 4637.6},
		{"revenue", q.Profit.Revenue, 6550},
		{"gross profit", q.Profit.GrossProfit, 1500},
		{"margin", q.Profit.MarginPercent, 22.9},
		{"annual production", q.Production.AnnualKwh, 9240},
		{"january", q.Production.MonthlyKwh[0], 878},
	}
	for _, c := range checks {
		if !near(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if !q.Commission.FloorApplied {
		t.Error("expected minimum-profit floor")
	}
	if q.Savings != nil {
		t.Error("savings without a consumption signal")
	}
	if q.Degraded || len(q.Fallbacks) != 0 {
		t.Errorf("unexpected fallbacks %v", q.Fallbacks)
	}
}

func TestAssembleBatteryCheapestWithSavings(t *testing.T) {
	req := models.QuoteRequest{
		SystemSizeKw:        6.6,
		BatterySizeKwh:      10,
		Postcode:            "6000",
		ProviderPreference:  models.PreferCheapest,
		DailyConsumptionKwh: 20,
		SelectedExtras:      []string{"SMART_METER"},
	}
	q, err := assemblerFor(newFixture()).Assemble(req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if q.Battery == nil || q.BatteryUnits != 1 || q.BatterySizeKwh != 10 {
		t.Fatalf("battery = %+v", q.Battery)
	}
	if q.InstallationComparison == nil || q.InstallationProvider != models.ProviderSubcontractor {
		t.Fatalf("cheapest should pick the subcontractor: %s", q.InstallationProvider)
	}
	if !near(q.InstallationComparison.Savings, 1188) {
		t.Errorf("comparison savings = %v", q.InstallationComparison.Savings)
	}

	checks := []struct {
		name      string
		got, want float64
	}{
		{"installation", q.Costs.InstallationCost, 1320},
		{"extras", q.Costs.ExtrasCost, 0},
		{"subtotal", q.Costs.Subtotal, 10770},
		{"federal solar", q.Rebates.FederalSolar, 2334},
		{"federal battery", q.Rebates.FederalBattery, 3348},
		{"regional battery", q.Rebates.RegionalBattery, 1300},
		{"after rebates", q.TotalAfterRebates, 3788},
		{"final", q.FinalPrice, 5816.8},
		{"consumption", q.Savings.AnnualConsumptionKwh, 7300},
		{"self consumption", q.Savings.SelfConsumptionRate, 0.75},
		{"annual savings", q.Savings.AnnualSavings, 2009.7},
		{"year 10", q.Savings.Year10Savings, 20699.91},
		{"payback", q.Savings.PaybackYears, 2.9},
	}
	for _, c := range checks {
		if !near(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestAssembleExtrasAddToSubtotal(t *testing.T) {
	q, err := assemblerFor(newFixture()).Assemble(models.QuoteRequest{
		SystemSizeKw:   6.6,
		Postcode:       "6000",
		SelectedExtras: []string{"smart_meter"},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if q.Costs.ExtrasCost != 350 || !near(q.Costs.Subtotal, 5400) {
		t.Fatalf("extras = %v subtotal = %v", q.Costs.ExtrasCost, q.Costs.Subtotal)
	}
	if !near(q.Profit.WholesaleCost, 5400) {
		t.Fatalf("wholesale should include extras: %v", q.Profit.WholesaleCost)
	}
}

func TestAssembleWithoutInstallationFlagsFallbacks(t *testing.T) {
	req := models.QuoteRequest{SystemSizeKw: 5, IncludeInstallation: bptr(false)}
	q, err := assemblerFor(newFixture()).Assemble(req)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if q.Installation != nil || q.Costs.InstallationCost != 0 {
		t.Fatal("installation priced when excluded")
	}
	if q.Commission.Amount != 0 || q.Commission.Source != models.CommissionNone {
		t.Fatalf("commission = %+v", q.Commission)
	}
	if !q.Degraded {
		t.Fatal("expected degraded quote")
	}
	joined := strings.Join(q.Fallbacks, ",")
	for _, want := range []string{"zone:default", "commission:none"} {
		if !strings.Contains(joined, want) {
			t.Errorf("fallbacks %v missing %s", q.Fallbacks, want)
		}
	}
}

func TestGSTIdentity(t *testing.T) {
	a := assemblerFor(newFixture())
	override := 7.5
	requests := []models.QuoteRequest{
		{SystemSizeKw: 3.3, Postcode: "6100"},
		{SystemSizeKw: 6.6, BatterySizeKwh: 13, Postcode: "6000", Region: "WA"},
		{SystemSizeKw: 9.9, Postcode: "6000", CommissionMarginOverride: &override, UseConservativePricing: true},
		{SystemSizeKw: 13.2, BatterySizeKwh: 25, Postcode: "2000", InstallationMethod: "inhouse"},
	}
	for _, req := range requests {
		q, err := a.Assemble(req)
		if err != nil {
			t.Fatalf("Assemble(%+v): %v", req, err)
		}
		wantGST := math.Round((q.TotalAfterRebates+q.Commission.Amount)*0.10*100) / 100
		if !near(q.GST, wantGST) {
			t.Errorf("gst = %v, want %v", q.GST, wantGST)
		}
		if !near(q.FinalPrice, q.TotalAfterRebates+q.Commission.Amount+q.GST) {
			t.Errorf("final price %v breaks the identity", q.FinalPrice)
		}
		if !near(q.TotalAfterRebates, q.Costs.Subtotal-q.Rebates.Total) {
			t.Errorf("after rebates %v", q.TotalAfterRebates)
		}
	}
}

func TestAssembleErrors(t *testing.T) {
	f := newFixture()
	f.products = f.products[1:]
	if _, err := assemblerFor(f).Assemble(models.QuoteRequest{SystemSizeKw: 6.6}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("missing panel err = %v", err)
	}
	if _, err := assemblerFor(newFixture()).Assemble(models.QuoteRequest{SystemSizeKw: 0}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("validation err = %v", err)
	}
}

func TestUnknownExtras(t *testing.T) {
	got := assemblerFor(newFixture()).UnknownExtras(models.QuoteRequest{SelectedExtras: []string{"smart_meter", "GOLD_PLATING"}})
	if len(got) != 1 || got[0] != "GOLD_PLATING" {
		t.Fatalf("unknown = %v", got)
	}
}

func TestAssembleSiteBatteryTypeWithoutBattery(t *testing.T) {
	f := newFixture()
	f.items = append(f.items, models.InstallationCostItem{
		Code: "DC_COUPLING_KIT", Category: models.CostEquipment, CalculationType: models.CalcFixed, BaseRate: 400,
		Constraints: models.InstallationConstraints{BatteryType: "dc_coupled"}, Active: true,
	})
	a := assemblerFor(f)

	q, err := a.Assemble(models.QuoteRequest{SystemSizeKw: 6.6, Postcode: "6000", Site: models.SiteDetails{BatteryType: "dc_coupled"}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, l := range q.Installation.Items {
		if l.Code == "DC_COUPLING_KIT" {
			t.Fatalf("battery-type line priced at %v without a battery", l.TotalCost)
		}
	}
	if !near(q.Costs.InstallationCost, 1600) {
		t.Fatalf("installation = %v, want 1600", q.Costs.InstallationCost)
	}

	q, err = a.Assemble(models.QuoteRequest{SystemSizeKw: 6.6, BatterySizeKwh: 10, Postcode: "6000", Site: models.SiteDetails{BatteryType: "dc_coupled"}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	found := false
	for _, l := range q.Installation.Items {
		found = found || l.Code == "DC_COUPLING_KIT"
	}
	if !found {
		t.Fatal("battery-type line missing with a battery")
	}
}

func TestJobForBatteryType(t *testing.T) {
	req := models.QuoteRequest{Site: models.SiteDetails{BatteryType: "ac_coupled"}}
	if job := JobFor(req, 6.6, 15, 0); job.BatteryType != "" || job.HasBattery {
		t.Fatalf("job without battery = %+v", job)
	}
	if job := JobFor(req, 6.6, 15, 10); job.BatteryType != "ac_coupled" || !job.HasBattery {
		t.Fatalf("job with battery = %+v", job)
	}
}

func TestAssembleRentalPricedWithChosenProvider(t *testing.T) {
	f := newFixture()
	f.items = append(f.items, models.InstallationCostItem{
		Code: "SCAFFOLD", Category: models.CostRental, CalculationType: models.CalcFixed, BaseRate: 480,
		ProviderType: models.ProviderRental, Active: true,
	})
	q, err := assemblerFor(f).Assemble(models.QuoteRequest{SystemSizeKw: 6.6, Postcode: "6000", ProviderPreference: models.PreferCheapest})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if q.InstallationComparison == nil || q.InstallationComparison.Rental.Subtotal != 480 {
		t.Fatalf("comparison = %+v", q.InstallationComparison)
	}
	if q.Installation.ByProvider[models.ProviderRental] != 480 {
		t.Fatalf("rental missing from the priced installation: %+v", q.Installation.Items)
	}
}
