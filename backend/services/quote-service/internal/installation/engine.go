package installation

import (
	"math"
	"sort"
	"strings"

	"sunquote/backend/libs/money"
	"sunquote/backend/services/quote-service/internal/formula"
	"sunquote/backend/services/quote-service/internal/models"
)

// DefaultGSTRate is the goods and services tax applied to installation totals.
const DefaultGSTRate = 0.10

// RuleSet is the installation rate table.
type RuleSet interface {
	InstallationItems() []models.InstallationCostItem
}

type rule struct {
	item       models.InstallationCostItem
	expr       formula.Expr
	compileErr error
}

// Engine evaluates the rate table against a job. Formulas are compiled once at construction.
type Engine struct {
	rules   []rule
	gstRate float64
}

// NewEngine orders active rules by priority desc, sort order asc, code asc.
func NewEngine(rules RuleSet, gstRate float64) *Engine {
	if gstRate <= 0 {
		gstRate = DefaultGSTRate
	}
	var items []models.InstallationCostItem
	if rules != nil {
		for _, it := range rules.InstallationItems() {
			if it.Active {
				items = append(items, it)
			}
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.Code < b.Code
	})

	compiled := make([]rule, 0, len(items))
	for _, it := range items {
		r := rule{item: it}
		if it.CalculationType == models.CalcFormula {
			r.expr, r.compileErr = formula.Parse(it.Formula)
		}
		compiled = append(compiled, r)
	}
	return &Engine{rules: compiled, gstRate: gstRate}
}

// Item returns the active rule with the given code.
func (e *Engine) Item(code string) (models.InstallationCostItem, bool) {
	for _, r := range e.rules {
		if strings.EqualFold(r.item.Code, code) {
			return r.item, true
		}
	}
	return models.InstallationCostItem{}, false
}

// Evaluate prices the job with the items of job.Provider, or every item when it is empty.
// Optional items that are not included by default are only priced when selected and are
// reported as extras. A formula failure drops its item and is recorded.
func (e *Engine) Evaluate(job models.InstallationJob) (models.InstallationEstimate, error) {
	return e.evaluate(job, job.Provider)
}

// Price evaluates job.Provider's items together with rental equipment, which any provider
// needs on site. Quotes are priced this way.
func (e *Engine) Price(job models.InstallationJob) (models.InstallationEstimate, error) {
	if job.Provider == "" || job.Provider == models.ProviderRental {
		return e.evaluate(job, job.Provider)
	}
	return e.evaluate(job, job.Provider, models.ProviderRental)
}

func (e *Engine) evaluate(job models.InstallationJob, providers ...models.ProviderType) (models.InstallationEstimate, error) {
	if err := validateJob(job); err != nil {
		return models.InstallationEstimate{}, err
	}
	job = WithDefaults(job)

	selected := make(map[string]bool, len(job.SelectedExtras))
	for _, code := range job.SelectedExtras {
		selected[strings.ToUpper(strings.TrimSpace(code))] = true
	}

	est := models.InstallationEstimate{
		Items:      []models.InstallationLine{},
		ByCategory: emptyCategories(),
		ByProvider: emptyProviders(),
	}

	for _, r := range e.rules {
		it := r.item
		if !providerMatches(it.Provider(), providers) {
			continue
		}
		if job.ProviderID != "" && it.ProviderID != job.ProviderID {
			continue
		}
		if !Applies(it, job) {
			continue
		}
		extra := it.AutoExcluded()
		if extra && !selected[strings.ToUpper(it.Code)] {
			continue
		}

		if r.compileErr != nil {
			est.Failures = append(est.Failures, failure(it, r.compileErr))
			continue
		}
		qty, err := Quantity(it, job, r.expr)
		if err != nil {
			est.Failures = append(est.Failures, failure(it, err))
			continue
		}
		if qty == 0 {
			continue
		}

		line := models.InstallationLine{
			Code:         it.Code,
			Name:         it.Name,
			Category:     it.Category,
			Quantity:     qty,
			Unit:         UnitLabel(it.CalculationType),
			UnitCost:     it.BaseRate,
			TotalCost:    money.Mul(qty, it.BaseRate),
			Calculation:  Trace(it, job, qty),
			Provider:     providerLabel(it),
			ProviderType: it.Provider(),
			IsOptional:   it.IsOptional,
		}
		if extra {
			est.Extras = append(est.Extras, line)
			est.ExtrasSubtotal = money.Sum(est.ExtrasSubtotal, line.TotalCost)
			continue
		}
		est.Items = append(est.Items, line)
		est.Subtotal = money.Sum(est.Subtotal, line.TotalCost)
		est.ByCategory[line.Category] = money.Sum(est.ByCategory[line.Category], line.TotalCost)
		est.ByProvider[line.ProviderType] = money.Sum(est.ByProvider[line.ProviderType], line.TotalCost)
	}

	est.GST = money.Round2(est.Subtotal * e.gstRate)
	est.Total = money.Sum(est.Subtotal, est.GST)
	return est, nil
}

// Compare prices the job with in-house and subcontracted items. Rental equipment is the same
// for both and is reported once. The subcontractor is only recommended when strictly cheaper.
func (e *Engine) Compare(job models.InstallationJob) (models.InstallationComparison, error) {
	job.ProviderID = ""

	internal, err := e.evaluate(job, models.ProviderInternal)
	if err != nil {
		return models.InstallationComparison{}, err
	}
	sub, err := e.evaluate(job, models.ProviderSubcontractor)
	if err != nil {
		return models.InstallationComparison{}, err
	}
	rental, err := e.evaluate(job, models.ProviderRental)
	if err != nil {
		return models.InstallationComparison{}, err
	}

	diff := internal.Total - sub.Total
	recommended := models.ProviderInternal
	if diff > 0 {
		recommended = models.ProviderSubcontractor
	}
	return models.InstallationComparison{
		Internal:      internal,
		Subcontractor: sub,
		Rental:        rental,
		Savings:       money.Round2(math.Abs(diff)),
		Recommended:   recommended,
	}, nil
}

func validateJob(job models.InstallationJob) error {
	verr := models.NewValidationError()
	if math.IsNaN(job.SystemSizeKw) || job.SystemSizeKw < 0 {
		verr.Add("systemSizeKw", "must not be negative")
	}
	if job.PanelCount < 0 {
		verr.Add("panelCount", "must not be negative")
	}
	if math.IsNaN(job.BatteryCapacityKwh) || job.BatteryCapacityKwh < 0 {
		verr.Add("batteryCapacityKwh", "must not be negative")
	}
	switch job.Provider {
	case "", models.ProviderInternal, models.ProviderSubcontractor, models.ProviderRental:
	default:
		verr.Add("provider", "must be INTERNAL, SUBCONTRACTOR or RENTAL")
	}
	return verr.OrNil()
}

// providerMatches reports whether item belongs to one of want. An empty filter matches all.
func providerMatches(item models.ProviderType, want []models.ProviderType) bool {
	for _, p := range want {
		if p == "" || p == item {
			return true
		}
	}
	return len(want) == 0
}

func failure(it models.InstallationCostItem, err error) models.FormulaFailure {
	return models.FormulaFailure{Code: it.Code, Formula: it.Formula, Error: err.Error()}
}

func providerLabel(it models.InstallationCostItem) string {
	if it.ProviderID != "" {
		return it.ProviderID
	}
	return string(it.Provider())
}

func emptyCategories() map[models.CostCategory]float64 {
	return map[models.CostCategory]float64{
		models.CostBase:       0,
		models.CostComplexity: 0,
		models.CostLabor:      0,
		models.CostEquipment:  0,
		models.CostRental:     0,
		models.CostRegulatory: 0,
	}
}

func emptyProviders() map[models.ProviderType]float64 {
	return map[models.ProviderType]float64{
		models.ProviderInternal:      0,
		models.ProviderSubcontractor: 0,
		models.ProviderRental:        0,
	}
}
