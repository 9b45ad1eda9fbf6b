package installation

import (
	"fmt"
	"strconv"
	"strings"

	"sunquote/backend/libs/money"
	"sunquote/backend/services/quote-service/internal/formula"
	"sunquote/backend/services/quote-service/internal/models"
)

// rawQuantity derives the unscaled quantity for the item's calculation type.
func rawQuantity(item models.InstallationCostItem, job models.InstallationJob, expr formula.Expr) (float64, error) {
	switch item.CalculationType {
	case models.CalcFixed:
		return 1, nil
	case models.CalcPerWatt:
		return job.SystemSizeKw * 1000, nil
	case models.CalcPerPanel:
		return float64(job.PanelCount), nil
	case models.CalcPerKW:
		return job.SystemSizeKw, nil
	case models.CalcPerKWh:
		return job.BatteryCapacityKwh, nil
	case models.CalcPerUnit:
		return unitCounter(item, job), nil
	case models.CalcHourly:
		return item.EstimatedHours, nil
	case models.CalcFormula:
		if expr == nil {
			return 0, formula.ErrEmpty
		}
		return formula.Run(expr, formulaVars(job))
	default:
		return 1, nil
	}
}

// Quantity applies multiplier, clamping into [MinQuantity, MaxQuantity] and rounding to the
// raw quantity.
func Quantity(item models.InstallationCostItem, job models.InstallationJob, expr formula.Expr) (float64, error) {
	q, err := rawQuantity(item, job, expr)
	if err != nil {
		return 0, err
	}

	multiplier := item.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}
	q *= multiplier
	if q < 0 {
		q = 0
	}
	if q < item.MinQuantity {
		q = item.MinQuantity
	}
	if item.MaxQuantity != nil && q > *item.MaxQuantity {
		q = *item.MaxQuantity
	}
	return money.Round2(q), nil
}

func unitCounter(item models.InstallationCostItem, job models.InstallationJob) float64 {
	counter := item.Counter
	if counter == "" {
		code := strings.ToUpper(item.Code)
		switch {
		case strings.Contains(code, "INVERTER"):
			counter = models.CounterAdditionalInverters
		case strings.Contains(code, "SPLIT"):
			counter = models.CounterSplits
		default:
			return 1
		}
	}
	switch counter {
	case models.CounterAdditionalInverters:
		return float64(job.AdditionalInverters)
	case models.CounterSplits:
		return float64(job.Splits)
	case models.CounterBackupCircuits:
		return float64(job.BackupCircuits)
	case models.CounterExistingPanels:
		return float64(job.ExistingPanels)
	default:
		return 1
	}
}

func formulaVars(job models.InstallationJob) formula.Vars {
	return formula.Vars{
		formula.VarSystemSize:          job.SystemSizeKw,
		formula.VarPanelCount:          float64(job.PanelCount),
		formula.VarBatteryCapacity:     job.BatteryCapacityKwh,
		formula.VarStoreys:             float64(job.Storeys),
		formula.VarDistanceFromHQ:      job.DistanceFromHQKm,
		formula.VarAdditionalInverters: float64(job.AdditionalInverters),
		formula.VarSplits:              float64(job.Splits),
	}
}

// UnitLabel names the unit a calculation type is measured in.
func UnitLabel(t models.CalculationType) string {
	switch t {
	case models.CalcPerWatt:
		return "watts"
	case models.CalcPerPanel:
		return "panels"
	case models.CalcPerKW:
		return "kW"
	case models.CalcPerKWh:
		return "kWh"
	case models.CalcPerUnit:
		return "units"
	case models.CalcHourly:
		return "hours"
	default:
		return "each"
	}
}

// Trace renders how a line's cost was derived.
func Trace(item models.InstallationCostItem, job models.InstallationJob, quantity float64) string {
	rate := "$" + num(item.BaseRate)
	switch item.CalculationType {
	case models.CalcFixed:
		return "Fixed rate"
	case models.CalcPerWatt:
		return fmt.Sprintf("%skW × 1000 × %s", num(job.SystemSizeKw), rate)
	case models.CalcPerPanel:
		return fmt.Sprintf("%d panels × %s", job.PanelCount, rate)
	case models.CalcPerKW:
		return fmt.Sprintf("%skW × %s", num(job.SystemSizeKw), rate)
	case models.CalcPerKWh:
		return fmt.Sprintf("%skWh × %s", num(job.BatteryCapacityKwh), rate)
	case models.CalcPerUnit:
		return fmt.Sprintf("%s units × %s", num(quantity), rate)
	case models.CalcHourly:
		return fmt.Sprintf("%shrs × %s", num(item.EstimatedHours), rate)
	case models.CalcFormula:
		return fmt.Sprintf("Formula: %s = %s", item.Formula, num(quantity))
	default:
		return "Standard rate"
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
