package quote

import (
	"math"
	"testing"

	"sunquote/backend/services/quote-service/internal/models"
)

func TestSeasonalWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, w := range SeasonalWeights {
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("weights sum to %v", sum)
	}
}

func TestSelfConsumptionRate(t *testing.T) {
	cases := []struct {
		battery, daily, want float64
	}{
		{0, 25, 0.35},
		{5, 25, 0.65},
		{7.5, 25, 0.75},
		{12.5, 25, 0.80},
		{40, 25, 0.80},
		{10, 0, 0.35},
	}
	for _, tc := range cases {
		if got := SelfConsumptionRate(tc.battery, tc.daily); got != tc.want {
			t.Errorf("SelfConsumptionRate(%v, %v) = %v, want %v", tc.battery, tc.daily, got, tc.want)
		}
	}
}

func TestAnnualConsumption(t *testing.T) {
	p := DefaultPricing()
	cases := []struct {
		name string
		req  models.QuoteRequest
		want float64
	}{
		{name: "annual", req: models.QuoteRequest{AnnualConsumptionKwh: 6000}, want: 6000},
		{name: "daily", req: models.QuoteRequest{DailyConsumptionKwh: 20}, want: 7300},
		{name: "quarterly bill", req: models.QuoteRequest{PeriodicBillAmount: 560}, want: 8000},
		{name: "monthly bill", req: models.QuoteRequest{PeriodicBillAmount: 140, BillPeriodMonths: 1}, want: 6000},
		{name: "none", req: models.QuoteRequest{}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AnnualConsumption(tc.req, p); math.Abs(got-tc.want) > 1e-6 {
				t.Fatalf("AnnualConsumption = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProductionCurve(t *testing.T) {
	prod := ProductionFor(10, 1400)
	if prod.AnnualKwh != 14000 || prod.YieldFactor != 1400 {
		t.Fatalf("production = %+v", prod)
	}
	if prod.MonthlyKwh[11] != 1428 || prod.MonthlyKwh[5] != 910 {
		t.Fatalf("monthly = %v", prod.MonthlyKwh)
	}
	var total float64
	for _, m := range prod.MonthlyKwh {
		total += m
	}
	if math.Abs(total-prod.AnnualKwh) > 12 {
		t.Fatalf("monthly total %v drifts from annual %v", total, prod.AnnualKwh)
	}
}

func TestProjectPaybackZeroWithoutSavings(t *testing.T) {
	p := DefaultPricing()

	s := Project(ProductionFor(0, 1400), 0, 5000, 8000, p)
	if s.AnnualSavings != 0 || s.PaybackYears != 0 {
		t.Fatalf("zero production: %+v", s)
	}

	p.RetailTariff = -0.1
	p.FeedInTariff = 0
	s = Project(ProductionFor(6.6, 1400), 0, 5000, 8000, p)
	if s.AnnualSavings >= 0 || s.PaybackYears != 0 {
		t.Fatalf("negative savings should not pay back: %+v", s)
	}
}

func TestProjectSolarOnly(t *testing.T) {
	s := Project(ProductionFor(6.6, 1400), 0, 7300, 5000, DefaultPricing())
	// 9240 × 0.35 × 0.28 + 9240 × 0.65 × 0.03
	if !near(s.AnnualSavings, 1085.7) || math.Abs(s.MonthlySavings-90.475) > 0.006 {
		t.Fatalf("savings = %+v", s)
	}
	if s.SelfConsumedKwh != 3234 || s.ExportedKwh != 6006 {
		t.Fatalf("split = %v / %v", s.SelfConsumedKwh, s.ExportedKwh)
	}
	if s.PaybackYears != 4.6 {
		t.Fatalf("payback = %v", s.PaybackYears)
	}
}
