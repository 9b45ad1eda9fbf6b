package installation

import (
	"strings"
	"testing"

	"sunquote/backend/services/quote-service/internal/models"
)

type fakeRules []models.InstallationCostItem

func (f fakeRules) InstallationItems() []models.InstallationCostItem { return f }

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func bptr(v bool) *bool       { return &v }

func baseJob() models.InstallationJob {
	return models.InstallationJob{
		SystemSizeKw: 6.6,
		PanelCount:   15,
		Storeys:      1,
		RoofType:     "tile",
		Phases:       1,
	}
}

func find(lines []models.InstallationLine, code string) (models.InstallationLine, bool) {
	for _, l := range lines {
		if l.Code == code {
			return l, true
		}
	}
	return models.InstallationLine{}, false
}

func TestEvaluateQuantitiesByType(t *testing.T) {
	rules := fakeRules{
		{Code: "BASE", Category: models.CostBase, CalculationType: models.CalcFixed, BaseRate: 500, Active: true},
		{Code: "WATT", Category: models.CostLabor, CalculationType: models.CalcPerWatt, BaseRate: 0.1, Active: true},
		{Code: "PANEL", Category: models.CostLabor, CalculationType: models.CalcPerPanel, BaseRate: 20, Active: true},
		{Code: "KW", Category: models.CostEquipment, CalculationType: models.CalcPerKW, BaseRate: 30, Active: true},
		{Code: "KWH", Category: models.CostEquipment, CalculationType: models.CalcPerKWh, BaseRate: 50, Active: true},
		{Code: "EXTRA_INVERTER", Category: models.CostLabor, CalculationType: models.CalcPerUnit, BaseRate: 250, Active: true},
		{Code: "CIRCUITS", Category: models.CostLabor, CalculationType: models.CalcPerUnit, Counter: models.CounterBackupCircuits, BaseRate: 80, Active: true},
		{Code: "METER", Category: models.CostRegulatory, CalculationType: models.CalcPerUnit, BaseRate: 120, Active: true},
		{Code: "HOURS", Category: models.CostLabor, CalculationType: models.CalcHourly, EstimatedHours: 2.5, BaseRate: 90, Active: true},
		{Code: "TRAVEL", Category: models.CostComplexity, CalculationType: models.CalcFormula, Formula: "MAX(0, distanceFromHQ - 50)", BaseRate: 1.5, Active: true},
	}
	job := baseJob()
	job.AdditionalInverters = 2
	job.BackupCircuits = 3
	job.DistanceFromHQKm = 80

	est, err := NewEngine(rules, 0.1).Evaluate(job)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	want := map[string]struct {
		qty  float64
		cost float64
		unit string
	}{
		"BASE":           {1, 500, "each"},
		"WATT":           {6600, 660, "watts"},
		"PANEL":          {15, 300, "panels"},
		"KW":             {6.6, 198, "kW"},
		"EXTRA_INVERTER": {2, 500, "units"},
		"CIRCUITS":       {3, 240, "units"},
		"METER":          {1, 120, "units"},
		"HOURS":          {2.5, 225, "hours"},
		"TRAVEL":         {30, 45, "each"},
	}
	if len(est.Items) != len(want) {
		t.Fatalf("got %d items, want %d: %+v", len(est.Items), len(want), est.Items)
	}
	for code, w := range want {
		line, ok := find(est.Items, code)
		if !ok {
			t.Fatalf("missing %s", code)
		}
		if line.Quantity != w.qty || line.TotalCost != w.cost || line.Unit != w.unit {
			t.Errorf("%s = qty %v cost %v unit %s, want %v %v %s", code, line.Quantity, line.TotalCost, line.Unit, w.qty, w.cost, w.unit)
		}
	}
	if _, ok := find(est.Items, "KWH"); ok {
		t.Error("zero-quantity PER_KWH line should be dropped")
	}

	if est.Subtotal != 2788 {
		t.Errorf("subtotal = %v, want 2788", est.Subtotal)
	}
	if est.GST != 278.8 || est.Total != 3066.8 {
		t.Errorf("gst = %v total = %v", est.GST, est.Total)
	}
	if est.ByCategory[models.CostLabor] != 1925 {
		t.Errorf("labor = %v, want 1925", est.ByCategory[models.CostLabor])
	}
	if est.ByProvider[models.ProviderInternal] != est.Subtotal {
		t.Errorf("internal provider = %v", est.ByProvider[models.ProviderInternal])
	}

	wattLine, _ := find(est.Items, "WATT")
	if wattLine.Calculation != "6.6kW × 1000 × $0.1" {
		t.Errorf("trace = %q", wattLine.Calculation)
	}
	travel, _ := find(est.Items, "TRAVEL")
	if travel.Calculation != "Formula: MAX(0, distanceFromHQ - 50) = 30" {
		t.Errorf("formula trace = %q", travel.Calculation)
	}
}

func TestQuantityClampAndMultiplier(t *testing.T) {
	job := baseJob()
	cases := []struct {
		name string
		item models.InstallationCostItem
		want float64
	}{
		{name: "multiplier", item: models.InstallationCostItem{CalculationType: models.CalcPerPanel, Multiplier: 1.5}, want: 22.5},
		{name: "zero multiplier means one", item: models.InstallationCostItem{CalculationType: models.CalcPerPanel}, want: 15},
		{name: "min lifts", item: models.InstallationCostItem{CalculationType: models.CalcPerPanel, MinQuantity: 20}, want: 20},
		{name: "max caps", item: models.InstallationCostItem{CalculationType: models.CalcPerPanel, MaxQuantity: fptr(10)}, want: 10},
		{name: "min lifts zero", item: models.InstallationCostItem{CalculationType: models.CalcPerKWh, MinQuantity: 5}, want: 5},
		{name: "min lifts zero counter", item: models.InstallationCostItem{CalculationType: models.CalcPerUnit, Counter: models.CounterSplits, MinQuantity: 1}, want: 1},
		{name: "rounded", item: models.InstallationCostItem{CalculationType: models.CalcPerKW, Multiplier: 1.111}, want: 7.33},
		{name: "negative floors at zero", item: models.InstallationCostItem{CalculationType: models.CalcPerKW, Multiplier: -1}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Quantity(tc.item, job, nil)
			if err != nil {
				t.Fatalf("Quantity: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Quantity = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRoofTypeExclusion(t *testing.T) {
	rules := fakeRules{
		{Code: "TILE", CalculationType: models.CalcFixed, BaseRate: 100, Constraints: models.InstallationConstraints{RoofType: "tile"}, Active: true},
		{Code: "ANY", CalculationType: models.CalcFixed, BaseRate: 50, Active: true},
	}
	job := baseJob()
	job.RoofType = "metal"

	est, err := NewEngine(rules, 0).Evaluate(job)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, ok := find(est.Items, "TILE"); ok {
		t.Fatal("tile-only item applied to metal roof")
	}
	if _, ok := find(est.Items, "ANY"); !ok {
		t.Fatal("unconstrained item missing")
	}
}

func TestApplicabilityPredicates(t *testing.T) {
	job := WithDefaults(baseJob())
	job.Storeys = 2
	job.HasOptimisers = true

	cases := []struct {
		name  string
		c     models.InstallationConstraints
		match bool
	}{
		{name: "wildcard", c: models.InstallationConstraints{}, match: true},
		{name: "size in range", c: models.InstallationConstraints{MinSystemSize: fptr(5), MaxSystemSize: fptr(10)}, match: true},
		{name: "size too small", c: models.InstallationConstraints{MinSystemSize: fptr(10)}, match: false},
		{name: "size too large", c: models.InstallationConstraints{MaxSystemSize: fptr(6)}, match: false},
		{name: "roof case insensitive", c: models.InstallationConstraints{RoofType: "TILE"}, match: true},
		{name: "pitch mismatch", c: models.InstallationConstraints{RoofPitch: "steep_30_40"}, match: false},
		{name: "storeys", c: models.InstallationConstraints{Storeys: iptr(2)}, match: true},
		{name: "phases mismatch", c: models.InstallationConstraints{Phases: iptr(3)}, match: false},
		{name: "optimisers", c: models.InstallationConstraints{HasOptimisers: bptr(true)}, match: true},
		{name: "needs battery", c: models.InstallationConstraints{HasBattery: bptr(true)}, match: false},
		{name: "no battery required", c: models.InstallationConstraints{HasBattery: bptr(false)}, match: true},
		{name: "retrofit mismatch", c: models.InstallationConstraints{IsRetrofit: bptr(true)}, match: false},
		{name: "all of several", c: models.InstallationConstraints{Storeys: iptr(2), Phases: iptr(3)}, match: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := models.InstallationCostItem{Constraints: tc.c}
			if got := Applies(item, job); got != tc.match {
				t.Fatalf("Applies = %v, want %v (mismatches %v)", got, tc.match, Mismatches(item, job))
			}
		})
	}
}

func TestNoBatteryMeansNoBatteryLines(t *testing.T) {
	rules := fakeRules{
		{Code: "BATTERY_INSTALL", CalculationType: models.CalcFixed, BaseRate: 800, Constraints: models.InstallationConstraints{HasBattery: bptr(true)}, Active: true},
		{Code: "BATTERY_KWH", CalculationType: models.CalcPerKWh, BaseRate: 40, Active: true},
		{Code: "DC_COUPLED", CalculationType: models.CalcFixed, BaseRate: 300, Constraints: models.InstallationConstraints{BatteryType: "dc_coupled"}, Active: true},
		{Code: "BASE", CalculationType: models.CalcFixed, BaseRate: 100, Active: true},
	}
	engine := NewEngine(rules, 0)

	est, err := engine.Evaluate(baseJob())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(est.Items) != 1 || est.Items[0].Code != "BASE" {
		t.Fatalf("expected only BASE, got %+v", est.Items)
	}

	job := baseJob()
	job.BatteryCapacityKwh = 10
	est, err = engine.Evaluate(job)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(est.Items) != 4 {
		t.Fatalf("expected all battery lines with a battery, got %+v", est.Items)
	}
}

func TestOptionalExtras(t *testing.T) {
	rules := fakeRules{
		{Code: "BASE", CalculationType: models.CalcFixed, BaseRate: 100, Active: true},
		{Code: "SMART_METER", CalculationType: models.CalcFixed, BaseRate: 350, IsOptional: true, Active: true},
		{Code: "BIRD_PROOFING", CalculationType: models.CalcPerPanel, BaseRate: 10, IsOptional: true, Active: true},
		{Code: "SURGE", CalculationType: models.CalcFixed, BaseRate: 90, IsOptional: true, DefaultIncluded: true, Active: true},
		{Code: "TILE_EXTRA", CalculationType: models.CalcFixed, BaseRate: 75, IsOptional: true, Constraints: models.InstallationConstraints{RoofType: "slate"}, Active: true},
	}
	engine := NewEngine(rules, 0)

	est, err := engine.Evaluate(baseJob())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(est.Extras) != 0 || est.ExtrasSubtotal != 0 {
		t.Fatalf("extras applied without selection: %+v", est.Extras)
	}
	if est.Subtotal != 190 {
		t.Fatalf("subtotal = %v, want BASE + default-included SURGE", est.Subtotal)
	}

	job := baseJob()
	job.SelectedExtras = []string{"smart_meter", "BIRD_PROOFING", "TILE_EXTRA", "UNKNOWN"}
	est, err = engine.Evaluate(job)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(est.Extras) != 2 {
		t.Fatalf("extras = %+v", est.Extras)
	}
	if est.ExtrasSubtotal != 500 {
		t.Fatalf("extras subtotal = %v, want 500", est.ExtrasSubtotal)
	}
	if est.Subtotal != 190 {
		t.Fatalf("extras leaked into subtotal: %v", est.Subtotal)
	}
}

func TestFormulaFailureIsolated(t *testing.T) {
	rules := fakeRules{
		{Code: "BAD_SYNTAX", CalculationType: models.CalcFormula, Formula: "panelCount *", BaseRate: 10, Active: true},
		{Code: "BAD_IDENT", CalculationType: models.CalcFormula, Formula: "require('fs')", BaseRate: 10, Active: true},
		{Code: "DIV_ZERO", CalculationType: models.CalcFormula, Formula: "panelCount / splits", BaseRate: 10, MinQuantity: 1, Active: true},
		{Code: "GOOD", CalculationType: models.CalcFormula, Formula: "CEIL(panelCount / 4)", BaseRate: 10, Active: true},
	}
	est, err := NewEngine(rules, 0).Evaluate(baseJob())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(est.Failures) != 3 {
		t.Fatalf("failures = %+v", est.Failures)
	}
	for _, f := range est.Failures {
		if f.Error == "" || f.Formula == "" {
			t.Errorf("incomplete failure record %+v", f)
		}
	}
	if len(est.Items) != 1 || est.Items[0].Code != "GOOD" || est.Subtotal != 40 {
		t.Fatalf("items = %+v subtotal = %v", est.Items, est.Subtotal)
	}
}

func TestOrderingAndInactive(t *testing.T) {
	rules := fakeRules{
		{Code: "C", CalculationType: models.CalcFixed, BaseRate: 1, Priority: 1, SortOrder: 2, Active: true},
		{Code: "B", CalculationType: models.CalcFixed, BaseRate: 1, Priority: 1, SortOrder: 1, Active: true},
		{Code: "A", CalculationType: models.CalcFixed, BaseRate: 1, Priority: 5, SortOrder: 9, Active: true},
		{Code: "D", CalculationType: models.CalcFixed, BaseRate: 1, Priority: 1, SortOrder: 1, Active: true},
		{Code: "OFF", CalculationType: models.CalcFixed, BaseRate: 1, Priority: 9, Active: false},
	}
	est, err := NewEngine(rules, 0).Evaluate(baseJob())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	var codes []string
	for _, l := range est.Items {
		codes = append(codes, l.Code)
	}
	if got := strings.Join(codes, ","); got != "A,B,D,C" {
		t.Fatalf("order = %s, want A,B,D,C", got)
	}
}

func TestCompare(t *testing.T) {
	rules := fakeRules{
		{Code: "IN_LABOUR", CalculationType: models.CalcPerPanel, BaseRate: 60, ProviderType: models.ProviderInternal, Active: true},
		{Code: "SUB_LABOUR", CalculationType: models.CalcPerPanel, BaseRate: 50, ProviderType: models.ProviderSubcontractor, ProviderID: "sparky-co", Active: true},
		{Code: "SCAFFOLD", CalculationType: models.CalcFixed, BaseRate: 400, ProviderType: models.ProviderRental, Active: true},
	}
	engine := NewEngine(rules, 0)

	cmp, err := engine.Compare(baseJob())
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp.Internal.Subtotal != 900 || cmp.Subcontractor.Subtotal != 750 {
		t.Fatalf("subtotals %v / %v", cmp.Internal.Subtotal, cmp.Subcontractor.Subtotal)
	}
	if cmp.Recommended != models.ProviderSubcontractor {
		t.Fatalf("recommended %s", cmp.Recommended)
	}
	if cmp.Savings != 165 {
		t.Fatalf("savings = %v, want 165 (incl. GST)", cmp.Savings)
	}
	sub, ok := find(cmp.Subcontractor.Items, "SUB_LABOUR")
	if !ok || sub.Provider != "sparky-co" {
		t.Fatalf("provider label = %+v", sub)
	}
	if _, ok := find(cmp.Internal.Items, "SUB_LABOUR"); ok {
		t.Fatal("subcontractor item in internal estimate")
	}
	if cmp.Rental.Subtotal != 400 || len(cmp.Rental.Items) != 1 {
		t.Fatalf("rental = %+v", cmp.Rental)
	}
	if _, ok := find(cmp.Internal.Items, "SCAFFOLD"); ok {
		t.Fatal("rental item in internal estimate")
	}
	if _, ok := find(cmp.Subcontractor.Items, "SCAFFOLD"); ok {
		t.Fatal("rental item in subcontractor estimate")
	}

	tie := fakeRules{
		{Code: "IN", CalculationType: models.CalcFixed, BaseRate: 100, Active: true},
		{Code: "SUB", CalculationType: models.CalcFixed, BaseRate: 100, ProviderType: models.ProviderSubcontractor, Active: true},
	}
	cmp, err = NewEngine(tie, 0).Compare(baseJob())
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp.Recommended != models.ProviderInternal || cmp.Savings != 0 {
		t.Fatalf("tie should recommend INTERNAL with zero savings, got %s %v", cmp.Recommended, cmp.Savings)
	}
}

func TestEvaluateRejectsBadJob(t *testing.T) {
	job := baseJob()
	job.SystemSizeKw = -1
	job.Provider = "FRIEND"
	if _, err := NewEngine(fakeRules{}, 0).Evaluate(job); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestProviderFilterAndPrice(t *testing.T) {
	rules := fakeRules{
		{Code: "IN_LABOUR", CalculationType: models.CalcFixed, BaseRate: 600, Active: true},
		{Code: "SUB_LABOUR", CalculationType: models.CalcFixed, BaseRate: 500, ProviderType: models.ProviderSubcontractor, Active: true},
		{Code: "SCAFFOLD", CalculationType: models.CalcFixed, BaseRate: 400, ProviderType: models.ProviderRental, Active: true},
	}
	engine := NewEngine(rules, 0)

	cases := []struct {
		name     string
		provider models.ProviderType
		price    bool
		want     float64
	}{
		{name: "all providers", want: 1500},
		{name: "internal only", provider: models.ProviderInternal, want: 600},
		{name: "subcontractor only", provider: models.ProviderSubcontractor, want: 500},
		{name: "rental only", provider: models.ProviderRental, want: 400},
		{name: "internal priced with rental", provider: models.ProviderInternal, price: true, want: 1000},
		{name: "subcontractor priced with rental", provider: models.ProviderSubcontractor, price: true, want: 900},
		{name: "priced without filter", price: true, want: 1500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := baseJob()
			job.Provider = tc.provider
			evaluate := engine.Evaluate
			if tc.price {
				evaluate = engine.Price
			}
			est, err := evaluate(job)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if est.Subtotal != tc.want {
				t.Fatalf("subtotal = %v, want %v (%+v)", est.Subtotal, tc.want, est.Items)
			}
		})
	}
}

func TestMinQuantityChargesZeroCounter(t *testing.T) {
	rules := fakeRules{
		{Code: "SPLIT_ARRAY", Category: models.CostComplexity, CalculationType: models.CalcPerUnit, Counter: models.CounterSplits, MinQuantity: 1, BaseRate: 100, Active: true},
		{Code: "TRAVEL", Category: models.CostComplexity, CalculationType: models.CalcFormula, Formula: "MAX(0, distanceFromHQ - 50)", MinQuantity: 10, BaseRate: 2, Active: true},
	}
	est, err := NewEngine(rules, 0).Evaluate(baseJob())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	split, ok := find(est.Items, "SPLIT_ARRAY")
	if !ok || split.Quantity != 1 || split.TotalCost != 100 {
		t.Fatalf("split line = %+v", split)
	}
	travel, ok := find(est.Items, "TRAVEL")
	if !ok || travel.Quantity != 10 || travel.TotalCost != 20 {
		t.Fatalf("travel line = %+v", travel)
	}
	if est.Subtotal != 120 {
		t.Fatalf("subtotal = %v, want 120", est.Subtotal)
	}
}

func TestBatteryTypeIgnoredWithoutBattery(t *testing.T) {
	rules := fakeRules{
		{Code: "DC_COUPLING_KIT", CalculationType: models.CalcFixed, BaseRate: 400, Constraints: models.InstallationConstraints{BatteryType: "dc_coupled"}, Active: true},
		{Code: "BASE", CalculationType: models.CalcFixed, BaseRate: 100, Active: true},
	}
	engine := NewEngine(rules, 0)

	job := baseJob()
	job.BatteryType = "dc_coupled"
	est, err := engine.Evaluate(job)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, ok := find(est.Items, "DC_COUPLING_KIT"); ok || est.Subtotal != 100 {
		t.Fatalf("battery-type line priced without a battery: %+v", est.Items)
	}
	if got := WithDefaults(job).BatteryType; got != "" {
		t.Fatalf("battery type = %q, want cleared", got)
	}

	job.BatteryCapacityKwh = 10
	est, err = engine.Evaluate(job)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, ok := find(est.Items, "DC_COUPLING_KIT"); !ok {
		t.Fatalf("battery-type line missing with a battery: %+v", est.Items)
	}
}
