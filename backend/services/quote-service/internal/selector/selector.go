package selector

import (
	"fmt"
	"math"
	"sort"

	"sunquote/backend/libs/money"
	"sunquote/backend/services/quote-service/internal/models"
)

const (
	// DefaultPanelWattage applies to panels whose specification omits wattage.
	DefaultPanelWattage = 450.0

	inverterHeadroom  = 1.3
	batteryTolerance  = 0.2
	batteryStackRatio = 1.3
	epsilon           = 1e-9
)

// Catalog is the read-only product and offer source.
type Catalog interface {
	Product(id string) (models.Product, bool)
	ProductsByCategory(category models.ProductCategory) []models.Product
	Offers(productID string) []models.SupplierOffer
}

// Selector picks hardware and prices it from the cheapest active offer.
type Selector struct {
	catalog Catalog
}

// New returns a selector over the catalog.
func New(catalog Catalog) *Selector {
	return &Selector{catalog: catalog}
}

// PanelSelection is the chosen panel and how many of it.
type PanelSelection struct {
	Product      models.Product
	Offer        models.SupplierOffer
	Wattage      float64
	Count        int
	ActualSizeKw float64
}

// InverterSelection is the chosen inverter.
type InverterSelection struct {
	Product    models.Product
	Offer      models.SupplierOffer
	CapacityKw float64
}

// BatterySelection is the chosen battery, possibly stacked.
type BatterySelection struct {
	Product           models.Product
	Offer             models.SupplierOffer
	UnitCapacityKwh   float64
	Units             int
	ActualCapacityKwh float64
}

// SelectPanel picks the explicit panel or the cheapest available one and sizes the array so
// that the installed capacity is never below systemSizeKw.
func (s *Selector) SelectPanel(systemSizeKw float64, explicitID string, requestedCount int) (PanelSelection, error) {
	if systemSizeKw <= 0 {
		return PanelSelection{}, fmt.Errorf("selector: system size must be positive: %w", models.ErrValidation)
	}

	product, err := s.pick(models.CategoryPanel, explicitID, func(c []candidate) []candidate { return c })
	if err != nil {
		return PanelSelection{}, err
	}

	wattage := product.product.Wattage()
	if wattage <= 0 {
		wattage = DefaultPanelWattage
	}

	minCount := PanelCount(systemSizeKw, wattage)
	count := requestedCount
	if count < minCount {
		count = minCount
	}

	return PanelSelection{
		Product:      product.product,
		Offer:        product.offer,
		Wattage:      wattage,
		Count:        count,
		ActualSizeKw: float64(count) * wattage / 1000,
	}, nil
}

// PanelCount returns the smallest count whose capacity covers systemSizeKw.
func PanelCount(systemSizeKw, wattage float64) int {
	if systemSizeKw <= 0 || wattage <= 0 {
		return 0
	}
	count := int(math.Ceil(systemSizeKw*1000/wattage - epsilon))
	if count < 1 {
		count = 1
	}
	for float64(count)*wattage/1000 < systemSizeKw {
		count++
	}
	return count
}

// SelectInverter prefers inverters rated within [size, size*1.3] and falls back to all of them.
func (s *Selector) SelectInverter(actualSystemSizeKw float64, explicitID string) (InverterSelection, error) {
	product, err := s.pick(models.CategoryInverter, explicitID, func(all []candidate) []candidate {
		var matching []candidate
		for _, c := range all {
			capacity := c.product.CapacityKw()
			if capacity >= actualSystemSizeKw-epsilon && capacity <= actualSystemSizeKw*inverterHeadroom+epsilon {
				matching = append(matching, c)
			}
		}
		if len(matching) == 0 {
			return all
		}
		return matching
	})
	if err != nil {
		return InverterSelection{}, err
	}
	return InverterSelection{
		Product:    product.product,
		Offer:      product.offer,
		CapacityKw: product.product.CapacityKw(),
	}, nil
}

// SelectBattery returns nil when no battery was requested.
func (s *Selector) SelectBattery(requestedKwh float64, explicitID string) (*BatterySelection, error) {
	if requestedKwh <= 0 {
		return nil, nil
	}

	product, err := s.pick(models.CategoryBattery, explicitID, func(all []candidate) []candidate {
		return closestBatteries(all, requestedKwh)
	})
	if err != nil {
		return nil, err
	}

	unit := product.product.CapacityKwh()
	if unit <= 0 {
		unit = requestedKwh
	}
	units := 1
	if requestedKwh > unit*batteryStackRatio {
		units = int(math.Ceil(requestedKwh/unit - epsilon))
	}

	return &BatterySelection{
		Product:           product.product,
		Offer:             product.offer,
		UnitCapacityKwh:   unit,
		Units:             units,
		ActualCapacityKwh: float64(units) * unit,
	}, nil
}

// closestBatteries keeps candidates within 20% of the request, or else those with the
// smallest capacity difference.
func closestBatteries(all []candidate, requestedKwh float64) []candidate {
	var within, rated []candidate
	best := math.Inf(1)
	for _, c := range all {
		capacity := c.product.CapacityKwh()
		if capacity <= 0 {
			continue
		}
		rated = append(rated, c)
		diff := math.Abs(capacity - requestedKwh)
		if diff <= requestedKwh*batteryTolerance+epsilon {
			within = append(within, c)
		}
		if diff < best {
			best = diff
		}
	}
	if len(within) > 0 {
		return within
	}
	var nearest []candidate
	for _, c := range rated {
		if math.Abs(c.product.CapacityKwh()-requestedKwh) <= best+epsilon {
			nearest = append(nearest, c)
		}
	}
	return nearest
}

type candidate struct {
	product  models.Product
	offer    models.SupplierOffer
	hasOffer bool
}

func (c candidate) cost() float64 {
	if !c.hasOffer {
		return math.Inf(1)
	}
	return c.offer.UnitCost
}

// pick resolves the explicit product or narrows the available candidates and takes the
// cheapest. The chosen product must have an active offer.
func (s *Selector) pick(category models.ProductCategory, explicitID string, narrow func([]candidate) []candidate) (candidate, error) {
	if explicitID != "" {
		p, ok := s.catalog.Product(explicitID)
		if !ok || p.Category != category {
			return candidate{}, fmt.Errorf("selector: %s %q: %w", lower(category), explicitID, models.ErrNotFound)
		}
		c := s.candidate(p)
		if !c.hasOffer {
			return candidate{}, fmt.Errorf("selector: no active offer for %s %q: %w", lower(category), explicitID, models.ErrNotFound)
		}
		return c, nil
	}

	var all []candidate
	for _, p := range s.catalog.ProductsByCategory(category) {
		if p.Available {
			all = append(all, s.candidate(p))
		}
	}
	if len(all) == 0 {
		return candidate{}, fmt.Errorf("selector: no available %s products: %w", lower(category), models.ErrNotFound)
	}

	pool := narrow(all)
	if len(pool) == 0 {
		return candidate{}, fmt.Errorf("selector: no suitable %s products: %w", lower(category), models.ErrNotFound)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		ci, cj := pool[i].cost(), pool[j].cost()
		if ci != cj {
			return ci < cj
		}
		return pool[i].product.ID < pool[j].product.ID
	})

	chosen := pool[0]
	if !chosen.hasOffer {
		return candidate{}, fmt.Errorf("selector: no active offer for any %s product: %w", lower(category), models.ErrNotFound)
	}
	return chosen, nil
}

func (s *Selector) candidate(p models.Product) candidate {
	offer, ok := BestOffer(s.catalog.Offers(p.ID))
	return candidate{product: p, offer: offer, hasOffer: ok}
}

// BestOffer returns the active offer with the lowest unit cost. Ties go to the lower offer id.
func BestOffer(offers []models.SupplierOffer) (models.SupplierOffer, bool) {
	var best models.SupplierOffer
	found := false
	for _, o := range offers {
		if !o.Active {
			continue
		}
		if !found || o.UnitCost < best.UnitCost || (o.UnitCost == best.UnitCost && o.ID < best.ID) {
			best = o
			found = true
		}
	}
	return best, found
}

// Priced flattens a product and its offer into quote output.
func Priced(p models.Product, o models.SupplierOffer, quantity int, rating float64, ratingUnit string) models.PricedProduct {
	return models.PricedProduct{
		ProductID:     p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		Manufacturer:  p.Manufacturer,
		Category:      p.Category,
		Tier:          p.Tier,
		WarrantyYears: p.WarrantyYears,
		Rating:        rating,
		RatingUnit:    ratingUnit,
		Quantity:      quantity,
		UnitCost:      o.UnitCost,
		RetailPrice:   o.EffectiveRetail(),
		MarkupPercent: o.EffectiveMarkup(),
		SupplierName:  o.SupplierName,
		LeadTimeDays:  o.LeadTimeDays,
		StockStatus:   o.StockStatus,
		LineCost:      money.Mul(o.UnitCost, float64(quantity)),
	}
}

func lower(c models.ProductCategory) string {
	switch c {
	case models.CategoryPanel:
		return "panel"
	case models.CategoryInverter:
		return "inverter"
	case models.CategoryBattery:
		return "battery"
	default:
		return string(c)
	}
}
