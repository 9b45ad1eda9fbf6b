package quote

import (
	"math"

	"sunquote/backend/libs/money"
	"sunquote/backend/services/quote-service/internal/models"
)

// SeasonalWeights spreads annual generation across Jan..Dec. They sum to 1.
var SeasonalWeights = [12]float64{
	0.095, 0.090, 0.088, 0.080, 0.070, 0.065,
	0.068, 0.075, 0.082, 0.090, 0.095, 0.102,
}

// Self-consumption bands keyed by battery capacity relative to daily production.
const (
	selfConsumptionSolarOnly = 0.35
	selfConsumptionSmall     = 0.65
	selfConsumptionMedium    = 0.75
	selfConsumptionLarge     = 0.80
)

// ProductionFor models annual and monthly generation in kWh.
func ProductionFor(systemSizeKw, yieldFactor float64) models.Production {
	annual := systemSizeKw * yieldFactor
	p := models.Production{
		YieldFactor: yieldFactor,
		AnnualKwh:   math.Round(annual),
	}
	for i, w := range SeasonalWeights {
		p.MonthlyKwh[i] = math.Round(annual * w)
	}
	return p
}

// SelfConsumptionRate picks the band for the battery-to-daily-production ratio.
func SelfConsumptionRate(batteryKwh, dailyProductionKwh float64) float64 {
	if batteryKwh <= 0 || dailyProductionKwh <= 0 {
		return selfConsumptionSolarOnly
	}
	ratio := batteryKwh / dailyProductionKwh
	switch {
	case ratio >= 0.5:
		return selfConsumptionLarge
	case ratio >= 0.3:
		return selfConsumptionMedium
	default:
		return selfConsumptionSmall
	}
}

// AnnualConsumption converts the request's consumption signal to kWh per year.
// It returns 0 when no signal is present.
func AnnualConsumption(req models.QuoteRequest, p Pricing) float64 {
	switch {
	case req.AnnualConsumptionKwh > 0:
		return req.AnnualConsumptionKwh
	case req.DailyConsumptionKwh > 0:
		return req.DailyConsumptionKwh * 365
	case req.PeriodicBillAmount > 0 && p.RetailTariff > 0:
		months := req.BillPeriodMonths
		if months <= 0 {
			months = p.DefaultBillPeriodMonths
		}
		if months <= 0 {
			months = 3
		}
		return req.PeriodicBillAmount * (12 / float64(months)) / p.RetailTariff
	default:
		return 0
	}
}

// Project estimates bill savings and payback for the system.
func Project(production models.Production, batteryKwh, annualConsumptionKwh, finalPrice float64, p Pricing) models.Savings {
	annual := production.AnnualKwh
	rate := SelfConsumptionRate(batteryKwh, annual/365)

	self := annual * rate
	exported := annual * (1 - rate)
	yearly := self*p.RetailTariff + exported*p.FeedInTariff

	s := models.Savings{
		AnnualConsumptionKwh: math.Round(annualConsumptionKwh),
		SelfConsumptionRate:  rate,
		SelfConsumedKwh:      math.Round(self),
		ExportedKwh:          math.Round(exported),
		AnnualSavings:        money.Round2(yearly),
		MonthlySavings:       money.Round2(yearly / 12),
		Year10Savings:        money.Round2(yearly * 10 * p.Year10Escalator),
		Year25Savings:        money.Round2(yearly * 25 * p.Year25Escalator),
	}
	if yearly > 0 && finalPrice > 0 {
		s.PaybackYears = money.Round1(finalPrice / yearly)
	}
	return s
}
