package rebate

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"sunquote/backend/libs/money"
	"sunquote/backend/services/quote-service/internal/models"
	"sunquote/backend/services/quote-service/internal/zone"
)

// ConfigSet exposes the incentive configuration table.
type ConfigSet interface {
	RebateConfigs() []models.RebateConfig
}

// Constants used when a scheme has no active configuration or lacks a variable.
var fallbackVariables = map[models.IncentiveType]map[string]float64{
	models.IncentiveFederalCertificate: {
		models.VarZoneRating:       zone.DefaultZoneRating,
		models.VarDeemingPeriod:    6,
		models.VarCertificateValue: 38.90,
	},
	models.IncentiveFederalBattery: {
		models.VarUsableFraction: 0.9,
		models.VarRatePerKwh:     372,
		models.VarMaxCapacityKwh: 50,
	},
	models.IncentiveRegionalBattery: {
		models.VarUsableFraction:       1.0,
		models.VarRatePerKwh:           130,
		models.VarMinCapacityKwh:       5,
		models.VarCombinedCapThreshold: 5000,
		models.VarCombinedCapValue:     1300,
	},
}

// FallbackRegion is the region the built-in regional battery scheme applies to.
const FallbackRegion = "WA"

var fallbackNames = map[models.IncentiveType]string{
	models.IncentiveFederalCertificate: "Small-scale Technology Certificates",
	models.IncentiveFederalBattery:     "Cheaper Home Batteries Program",
	models.IncentiveRegionalBattery:    "WA Residential Battery Scheme",
}

// Calculator computes incentives from an immutable configuration set.
type Calculator struct {
	certificate *models.RebateConfig
	battery     *models.RebateConfig
	regional    []models.RebateConfig
	zones       *zone.Lookup
}

// NewCalculator keeps the first active config per federal scheme (by id) and every
// active regional config.
func NewCalculator(configs ConfigSet, zones *zone.Lookup) *Calculator {
	if zones == nil {
		zones = zone.NewLookup(nil)
	}
	c := &Calculator{zones: zones}
	if configs == nil {
		return c
	}

	active := make([]models.RebateConfig, 0)
	for _, cfg := range configs.RebateConfigs() {
		if cfg.Active {
			active = append(active, cfg)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	for i := range active {
		cfg := active[i]
		switch cfg.Type {
		case models.IncentiveFederalCertificate:
			if c.certificate == nil {
				c.certificate = &cfg
			}
		case models.IncentiveFederalBattery:
			if c.battery == nil {
				c.battery = &cfg
			}
		case models.IncentiveRegionalBattery:
			c.regional = append(c.regional, cfg)
		}
	}
	return c
}

// scheme resolves variables against a config with per-variable fallbacks.
type scheme struct {
	kind      models.IncentiveType
	name      string
	cfg       *models.RebateConfig
	fallbacks *[]string
}

func (s scheme) get(name string) float64 {
	if s.cfg != nil {
		if v, ok := s.cfg.Var(name); ok {
			return v
		}
	}
	v := fallbackVariables[s.kind][name]
	if s.cfg != nil && v > 0 {
		*s.fallbacks = append(*s.fallbacks, fmt.Sprintf("rebate:%s:%s", s.kind, name))
	}
	return v
}

func (c *Calculator) scheme(kind models.IncentiveType, cfg *models.RebateConfig, fallbacks *[]string) scheme {
	name := fallbackNames[kind]
	if cfg == nil {
		*fallbacks = append(*fallbacks, fmt.Sprintf("rebate:%s:default", kind))
	} else if cfg.Name != "" {
		name = cfg.Name
	}
	return scheme{kind: kind, name: name, cfg: cfg, fallbacks: fallbacks}
}

// regionalFor picks the regional config for the region. Without any active regional
// config the built-in scheme is used; otherwise a region with no config gets nothing.
func (c *Calculator) regionalFor(region string) (*models.RebateConfig, bool) {
	if len(c.regional) == 0 {
		return nil, strings.EqualFold(region, FallbackRegion)
	}
	for i := range c.regional {
		if strings.EqualFold(strings.TrimSpace(c.regional[i].Region), region) {
			return &c.regional[i], true
		}
	}
	return nil, false
}

// Zone resolves the postcode with the certificate config's zoneRating as the default.
func (c *Calculator) Zone(postcode string) models.ZoneInfo {
	var fallbacks []string
	cert := c.scheme(models.IncentiveFederalCertificate, c.certificate, &fallbacks)
	return c.zones.FindWithDefault(postcode, cert.get(models.VarZoneRating))
}

// Calculate computes every incentive for the system. An empty region resolves to the
// postcode's state. The combined cap only ever lowers the regional figure.
func (c *Calculator) Calculate(systemSizeKw, batteryKwh float64, postcode, region string) (models.RebateResult, error) {
	verr := models.NewValidationError()
	if math.IsNaN(systemSizeKw) || math.IsInf(systemSizeKw, 0) || systemSizeKw < 0 {
		verr.Add("systemSizeKw", "must be a non-negative number")
	}
	if math.IsNaN(batteryKwh) || math.IsInf(batteryKwh, 0) || batteryKwh < 0 {
		verr.Add("batteryKwh", "must be a non-negative number")
	}
	if err := verr.OrNil(); err != nil {
		return models.RebateResult{}, err
	}

	var fallbacks []string
	res := models.RebateResult{Details: []models.RebateDetail{}}

	cert := c.scheme(models.IncentiveFederalCertificate, c.certificate, &fallbacks)
	res.Zone = c.zones.FindWithDefault(postcode, cert.get(models.VarZoneRating))
	if res.Zone.Fallback() {
		fallbacks = append(fallbacks, "zone:"+string(res.Zone.Source))
	}

	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = res.Zone.State
	}

	if systemSizeKw > 0 {
		deeming := cert.get(models.VarDeemingPeriod)
		value := cert.get(models.VarCertificateValue)
		res.Certificates = int(math.Floor(systemSizeKw*res.Zone.ZoneRating*deeming + 1e-9))
		res.FederalSolar = money.Mul(float64(res.Certificates), value)
		res.Details = append(res.Details, models.RebateDetail{
			Type:   models.IncentiveFederalCertificate,
			Name:   cert.name,
			Amount: res.FederalSolar,
			Formula: fmt.Sprintf("floor(%skW × %s zone rating × %s years) = %d certificates × %s = %s",
				num(systemSizeKw), num(res.Zone.ZoneRating), num(deeming), res.Certificates, money.Format(value), money.Format(res.FederalSolar)),
		})
	}

	if batteryKwh > 0 {
		bat := c.scheme(models.IncentiveFederalBattery, c.battery, &fallbacks)
		if minKwh := bat.get(models.VarMinCapacityKwh); batteryKwh >= minKwh {
			effective := batteryKwh
			capped := false
			if maxKwh := bat.get(models.VarMaxCapacityKwh); maxKwh > 0 && effective > maxKwh {
				effective = maxKwh
				capped = true
			}
			usable := bat.get(models.VarUsableFraction)
			rate := bat.get(models.VarRatePerKwh)
			res.FederalBattery = money.Round2(effective * usable * rate)
			res.Details = append(res.Details, models.RebateDetail{
				Type:   models.IncentiveFederalBattery,
				Name:   bat.name,
				Amount: res.FederalBattery,
				Formula: fmt.Sprintf("%skWh × %s usable × %s/kWh = %s",
					num(effective), num(usable), money.Format(rate), money.Format(res.FederalBattery)),
				Capped: capped,
			})
		}

		if cfg, ok := c.regionalFor(region); ok {
			reg := c.scheme(models.IncentiveRegionalBattery, cfg, &fallbacks)
			if batteryKwh >= reg.get(models.VarMinCapacityKwh) {
				usable := reg.get(models.VarUsableFraction)
				rate := reg.get(models.VarRatePerKwh)
				amount := money.Round2(batteryKwh * usable * rate)
				formula := fmt.Sprintf("%skWh × %s usable × %s/kWh = %s",
					num(batteryKwh), num(usable), money.Format(rate), money.Format(amount))

				threshold := reg.get(models.VarCombinedCapThreshold)
				ceiling := reg.get(models.VarCombinedCapValue)
				capped := false
				if threshold > 0 && res.FederalBattery+amount > threshold && amount > ceiling {
					formula += fmt.Sprintf("; combined %s > %s, capped at %s",
						money.Format(money.Sum(res.FederalBattery, amount)), money.Format(threshold), money.Format(ceiling))
					amount = money.Round2(ceiling)
					capped = true
				}
				res.RegionalBattery = amount
				res.Details = append(res.Details, models.RebateDetail{
					Type:    models.IncentiveRegionalBattery,
					Name:    reg.name,
					Amount:  amount,
					Formula: formula,
					Capped:  capped,
				})
			}
		}
	}

	res.Total = money.Sum(res.FederalSolar, res.FederalBattery, res.RegionalBattery)
	res.Fallbacks = dedupe(fallbacks)
	return res, nil
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
