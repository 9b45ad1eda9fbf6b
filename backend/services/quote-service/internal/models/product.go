package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ProductCategory classifies catalog hardware.
type ProductCategory string

const (
	CategoryPanel    ProductCategory = "PANEL"
	CategoryInverter ProductCategory = "INVERTER"
	CategoryBattery  ProductCategory = "BATTERY"
)

// Product is a catalog entry. Specifications is free-form; panels expose "wattage",
// inverters "capacity" (kW) and batteries "capacity" or "capacityKwh".
type Product struct {
	ID             string                 `json:"id" yaml:"id"`
	SKU            string                 `json:"sku" yaml:"sku"`
	Name           string                 `json:"name" yaml:"name"`
	Manufacturer   string                 `json:"manufacturer" yaml:"manufacturer"`
	Category       ProductCategory        `json:"category" yaml:"category"`
	Specifications map[string]interface{} `json:"specifications,omitempty" yaml:"specifications,omitempty"`
	Tier           string                 `json:"tier,omitempty" yaml:"tier,omitempty"`
	WarrantyYears  int                    `json:"warrantyYears,omitempty" yaml:"warrantyYears,omitempty"`
	Available      bool                   `json:"available" yaml:"available"`
}

// SpecFloat reads a numeric specification value, accepting numbers and numeric strings.
func (p Product) SpecFloat(key string) (float64, bool) {
	raw, ok := p.Specifications[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Wattage returns the panel rating in watts, 0 when unknown.
func (p Product) Wattage() float64 {
	w, _ := p.SpecFloat("wattage")
	return w
}

// CapacityKw returns the inverter rating.
func (p Product) CapacityKw() float64 {
	c, _ := p.SpecFloat("capacity")
	return c
}

// CapacityKwh returns the battery unit capacity.
func (p Product) CapacityKwh() float64 {
	if c, ok := p.SpecFloat("capacity"); ok && c > 0 {
		return c
	}
	c, _ := p.SpecFloat("capacityKwh")
	return c
}

const retailFallbackFactor = 1.15

// SupplierOffer prices one product from one supplier.
type SupplierOffer struct {
	ID            string  `json:"id" yaml:"id"`
	ProductID     string  `json:"productId" yaml:"productId"`
	SupplierName  string  `json:"supplierName" yaml:"supplierName"`
	SupplierSKU   string  `json:"supplierSku,omitempty" yaml:"supplierSku,omitempty"`
	UnitCost      float64 `json:"unitCost" yaml:"unitCost"`
	RetailPrice   float64 `json:"retailPrice,omitempty" yaml:"retailPrice,omitempty"`
	MarkupPercent float64 `json:"markupPercent,omitempty" yaml:"markupPercent,omitempty"`
	LeadTimeDays  int     `json:"leadTimeDays,omitempty" yaml:"leadTimeDays,omitempty"`
	StockStatus   string  `json:"stockStatus,omitempty" yaml:"stockStatus,omitempty"`
	Active        bool    `json:"active" yaml:"active"`
}

// EffectiveRetail returns the retail price, falling back to unit cost plus 15%.
func (o SupplierOffer) EffectiveRetail() float64 {
	if o.RetailPrice > 0 {
		return o.RetailPrice
	}
	return o.UnitCost * retailFallbackFactor
}

// EffectiveMarkup returns the markup percent, derived from retail and unit cost when unset.
func (o SupplierOffer) EffectiveMarkup() float64 {
	if o.MarkupPercent != 0 {
		return o.MarkupPercent
	}
	if o.UnitCost <= 0 {
		return 0
	}
	return (o.EffectiveRetail() - o.UnitCost) / o.UnitCost * 100
}

// PricedProduct is a selected product together with the offer it was priced from.
type PricedProduct struct {
	ProductID     string          `json:"productId"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Manufacturer  string          `json:"manufacturer"`
	Category      ProductCategory `json:"category"`
	Tier          string          `json:"tier,omitempty"`
	WarrantyYears int             `json:"warrantyYears,omitempty"`
	Rating        float64         `json:"rating"`
	RatingUnit    string          `json:"ratingUnit"`
	Quantity      int             `json:"quantity"`
	UnitCost      float64         `json:"unitCost"`
	RetailPrice   float64         `json:"retailPrice"`
	MarkupPercent float64         `json:"markupPercent"`
	SupplierName  string          `json:"supplierName"`
	LeadTimeDays  int             `json:"leadTimeDays"`
	StockStatus   string          `json:"stockStatus,omitempty"`
	LineCost      float64         `json:"lineCost"`
}
