package refdata

import (
	"sort"
	"strings"
	"time"

	"sunquote/backend/services/quote-service/internal/fingerprint"
	"sunquote/backend/services/quote-service/internal/models"
)

// Snapshot is an immutable, indexed view of a Document. It satisfies the catalog,
// rule set, rebate config, zone table and commission interfaces of the pricing packages.
type Snapshot struct {
	doc         Document
	products    map[string]models.Product
	byCategory  map[models.ProductCategory][]models.Product
	offers      map[string][]models.SupplierOffer
	commissions map[string]models.CommissionSetting
	version     string
	loadedAt    time.Time
}

// NewSnapshot indexes the document and derives its content version.
func NewSnapshot(doc Document, loadedAt time.Time) (*Snapshot, error) {
	version, err := fingerprint.NewBlake2bHasher(8).Sum(doc)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		doc:         doc,
		products:    make(map[string]models.Product, len(doc.Products)),
		byCategory:  make(map[models.ProductCategory][]models.Product),
		offers:      make(map[string][]models.SupplierOffer),
		commissions: make(map[string]models.CommissionSetting, len(doc.Commissions)),
		version:     version,
		loadedAt:    loadedAt,
	}
	for _, p := range doc.Products {
		p.Category = models.ProductCategory(strings.ToUpper(string(p.Category)))
		s.products[p.ID] = p
		s.byCategory[p.Category] = append(s.byCategory[p.Category], p)
	}
	for cat := range s.byCategory {
		list := s.byCategory[cat]
		sort.SliceStable(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	for _, o := range doc.Offers {
		s.offers[o.ProductID] = append(s.offers[o.ProductID], o)
	}
	for _, c := range doc.Commissions {
		region := strings.ToUpper(strings.TrimSpace(c.Region))
		if _, exists := s.commissions[region]; !exists {
			s.commissions[region] = c
		}
	}
	return s, nil
}

// Version identifies the snapshot content.
func (s *Snapshot) Version() string { return s.version }

// LoadedAt is when the snapshot was built from its source.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Document returns the underlying tables.
func (s *Snapshot) Document() Document { return s.doc }

func (s *Snapshot) Product(id string) (models.Product, bool) {
	p, ok := s.products[id]
	return p, ok
}

func (s *Snapshot) ProductsByCategory(category models.ProductCategory) []models.Product {
	return s.byCategory[category]
}

func (s *Snapshot) Offers(productID string) []models.SupplierOffer {
	return s.offers[productID]
}

func (s *Snapshot) InstallationItems() []models.InstallationCostItem {
	return s.doc.InstallationItems
}

func (s *Snapshot) RebateConfigs() []models.RebateConfig {
	return s.doc.RebateConfigs
}

func (s *Snapshot) ZoneRanges() []models.PostcodeZoneRange {
	return s.doc.ZoneRanges
}

// CommissionSetting returns the first setting declared for the region.
func (s *Snapshot) CommissionSetting(region string) (models.CommissionSetting, bool) {
	c, ok := s.commissions[strings.ToUpper(strings.TrimSpace(region))]
	return c, ok
}
