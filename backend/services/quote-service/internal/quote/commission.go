package quote

import (
	"strings"

	"sunquote/backend/libs/money"
	"sunquote/backend/services/quote-service/internal/models"
)

// CommissionTable resolves the commission rule for a region.
type CommissionTable interface {
	CommissionSetting(region string) (models.CommissionSetting, bool)
}

// Commission applies the region's rule to the post-rebate total. An override replaces the
// configured rate as a percentage; the minimum-profit floor still applies. Without a
// setting or override the commission is zero.
func Commission(setting *models.CommissionSetting, override *float64, totalAfterRebates float64) models.CommissionBreakdown {
	base := totalAfterRebates
	if base < 0 {
		base = 0
	}

	var out models.CommissionBreakdown
	switch {
	case override != nil:
		out = models.CommissionBreakdown{
			Amount:      money.Round2(base * *override / 100),
			Type:        models.CommissionPercentage,
			RatePercent: *override,
			Source:      models.CommissionFromOverride,
		}
	case setting == nil:
		return models.CommissionBreakdown{Source: models.CommissionNone}
	case strings.EqualFold(string(setting.Type), string(models.CommissionFixed)):
		out = models.CommissionBreakdown{
			Amount: money.Round2(setting.FixedAmount),
			Type:   models.CommissionFixed,
			Source: models.CommissionFromSetting,
		}
	default:
		out = models.CommissionBreakdown{
			Amount:      money.Round2(base * setting.RatePercent / 100),
			Type:        models.CommissionPercentage,
			RatePercent: setting.RatePercent,
			Source:      models.CommissionFromSetting,
		}
	}

	if setting != nil && setting.MinimumProfit > 0 && out.Amount < setting.MinimumProfit {
		out.Amount = money.Round2(setting.MinimumProfit)
		out.FloorApplied = true
	}
	return out
}
