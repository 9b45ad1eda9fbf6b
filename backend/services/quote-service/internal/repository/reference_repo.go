package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sunquote/backend/services/quote-service/internal/models"
	"sunquote/backend/services/quote-service/internal/refdata"
)

// ReferenceRepository reads and replaces the reference tables.
type ReferenceRepository struct {
	db *sql.DB
}

// NewReferenceRepository returns repository.
func NewReferenceRepository(db *sql.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Name identifies the repository as a reference source.
func (r *ReferenceRepository) Name() string { return "postgres" }

// Load reads every reference table into a document inside one read-only repeatable-read
// transaction, so a concurrent Replace is never seen half applied.
func (r *ReferenceRepository) Load(ctx context.Context) (refdata.Document, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return refdata.Document{}, fmt.Errorf("repository: begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var doc refdata.Document
	if doc.Products, err = loadProducts(ctx, tx); err != nil {
		return refdata.Document{}, err
	}
	if doc.Offers, err = loadOffers(ctx, tx); err != nil {
		return refdata.Document{}, err
	}
	if doc.InstallationItems, err = loadInstallationItems(ctx, tx); err != nil {
		return refdata.Document{}, err
	}
	if doc.RebateConfigs, err = loadRebateConfigs(ctx, tx); err != nil {
		return refdata.Document{}, err
	}
	if doc.ZoneRanges, err = loadZoneRanges(ctx, tx); err != nil {
		return refdata.Document{}, err
	}
	if doc.Commissions, err = loadCommissions(ctx, tx); err != nil {
		return refdata.Document{}, err
	}
	if err := tx.Commit(); err != nil {
		return refdata.Document{}, fmt.Errorf("repository: end snapshot: %w", err)
	}
	return doc, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// loadProducts returns the catalog ordered by id.
func loadProducts(ctx context.Context, q queryer) ([]models.Product, error) {
	const query = `
		SELECT id, sku, name, manufacturer, category, specifications, tier, warranty_years, available
		FROM products
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: products: %w", err)
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var (
			p     models.Product
			specs []byte
		)
		if err := rows.Scan(
			&p.ID,
			&p.SKU,
			&p.Name,
			&p.Manufacturer,
			&p.Category,
			&specs,
			&p.Tier,
			&p.WarrantyYears,
			&p.Available,
		); err != nil {
			return nil, fmt.Errorf("repository: scan product: %w", err)
		}
		if len(specs) > 0 {
			if err := json.Unmarshal(specs, &p.Specifications); err != nil {
				return nil, fmt.Errorf("repository: product %s specifications: %w", p.ID, err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// loadOffers returns supplier offers, active or not.
func loadOffers(ctx context.Context, q queryer) ([]models.SupplierOffer, error) {
	const query = `
		SELECT id, product_id, supplier_name, supplier_sku, unit_cost, retail_price,
		       markup_percent, lead_time_days, stock_status, active
		FROM supplier_offers
		ORDER BY product_id, id
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: offers: %w", err)
	}
	defer rows.Close()

	var out []models.SupplierOffer
	for rows.Next() {
		var (
			o      models.SupplierOffer
			retail sql.NullFloat64
			markup sql.NullFloat64
		)
		if err := rows.Scan(
			&o.ID,
			&o.ProductID,
			&o.SupplierName,
			&o.SupplierSKU,
			&o.UnitCost,
			&retail,
			&markup,
			&o.LeadTimeDays,
			&o.StockStatus,
			&o.Active,
		); err != nil {
			return nil, fmt.Errorf("repository: scan offer: %w", err)
		}
		o.RetailPrice = retail.Float64
		o.MarkupPercent = markup.Float64
		out = append(out, o)
	}
	return out, rows.Err()
}

// loadInstallationItems returns the installation rate table.
func loadInstallationItems(ctx context.Context, q queryer) ([]models.InstallationCostItem, error) {
	const query = `
		SELECT id, code, name, category, calculation_type, base_rate, multiplier, min_quantity,
		       max_quantity, estimated_hours, formula, counter, constraints, is_optional,
		       default_included, provider_type, provider_id, priority, sort_order, active
		FROM installation_cost_items
		ORDER BY priority DESC, sort_order, code
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: installation items: %w", err)
	}
	defer rows.Close()

	var out []models.InstallationCostItem
	for rows.Next() {
		var (
			it          models.InstallationCostItem
			maxQuantity sql.NullFloat64
			constraints []byte
		)
		if err := rows.Scan(
			&it.ID,
			&it.Code,
			&it.Name,
			&it.Category,
			&it.CalculationType,
			&it.BaseRate,
			&it.Multiplier,
			&it.MinQuantity,
			&maxQuantity,
			&it.EstimatedHours,
			&it.Formula,
			&it.Counter,
			&constraints,
			&it.IsOptional,
			&it.DefaultIncluded,
			&it.ProviderType,
			&it.ProviderID,
			&it.Priority,
			&it.SortOrder,
			&it.Active,
		); err != nil {
			return nil, fmt.Errorf("repository: scan installation item: %w", err)
		}
		if maxQuantity.Valid {
			v := maxQuantity.Float64
			it.MaxQuantity = &v
		}
		if len(constraints) > 0 {
			if err := json.Unmarshal(constraints, &it.Constraints); err != nil {
				return nil, fmt.Errorf("repository: item %s constraints: %w", it.Code, err)
			}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// loadRebateConfigs returns every incentive configuration.
func loadRebateConfigs(ctx context.Context, q queryer) ([]models.RebateConfig, error) {
	const query = `
		SELECT id, type, name, region, variables, active
		FROM rebate_configs
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: rebate configs: %w", err)
	}
	defer rows.Close()

	var out []models.RebateConfig
	for rows.Next() {
		var (
			c    models.RebateConfig
			vars []byte
		)
		if err := rows.Scan(&c.ID, &c.Type, &c.Name, &c.Region, &vars, &c.Active); err != nil {
			return nil, fmt.Errorf("repository: scan rebate config: %w", err)
		}
		if len(vars) > 0 {
			if err := json.Unmarshal(vars, &c.Variables); err != nil {
				return nil, fmt.Errorf("repository: rebate %s variables: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// loadZoneRanges returns the postcode zone table.
func loadZoneRanges(ctx context.Context, q queryer) ([]models.PostcodeZoneRange, error) {
	const query = `
		SELECT start_postcode, end_postcode, zone, zone_rating, state, description
		FROM postcode_zones
		ORDER BY start_postcode, end_postcode
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: postcode zones: %w", err)
	}
	defer rows.Close()

	var out []models.PostcodeZoneRange
	for rows.Next() {
		var z models.PostcodeZoneRange
		if err := rows.Scan(&z.Start, &z.End, &z.Zone, &z.ZoneRating, &z.State, &z.Description); err != nil {
			return nil, fmt.Errorf("repository: scan postcode zone: %w", err)
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// loadCommissions returns the commission settings.
func loadCommissions(ctx context.Context, q queryer) ([]models.CommissionSetting, error) {
	const query = `
		SELECT region, type, rate_percent, fixed_amount, minimum_profit
		FROM commission_settings
		ORDER BY region
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: commission settings: %w", err)
	}
	defer rows.Close()

	var out []models.CommissionSetting
	for rows.Next() {
		var c models.CommissionSetting
		if err := rows.Scan(&c.Region, &c.Type, &c.RatePercent, &c.FixedAmount, &c.MinimumProfit); err != nil {
			return nil, fmt.Errorf("repository: scan commission setting: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// IsEmpty reports whether the catalog has no products yet.
func (r *ReferenceRepository) IsEmpty(ctx context.Context) (bool, error) {
	const query = `SELECT NOT EXISTS (SELECT 1 FROM products)`
	var empty bool
	if err := r.db.QueryRowContext(ctx, query).Scan(&empty); err != nil {
		return false, fmt.Errorf("repository: check products: %w", err)
	}
	return empty, nil
}

// Replace swaps every reference table for the document contents in one transaction.
func (r *ReferenceRepository) Replace(ctx context.Context, doc refdata.Document) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{
		"supplier_offers",
		"products",
		"installation_cost_items",
		"rebate_configs",
		"postcode_zones",
		"commission_settings",
	} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("repository: clear %s: %w", table, err)
		}
	}

	if err = insertProducts(ctx, tx, doc.Products); err != nil {
		return err
	}
	if err = insertOffers(ctx, tx, doc.Offers); err != nil {
		return err
	}
	if err = insertInstallationItems(ctx, tx, doc.InstallationItems); err != nil {
		return err
	}
	if err = insertRebateConfigs(ctx, tx, doc.RebateConfigs); err != nil {
		return err
	}
	if err = insertZoneRanges(ctx, tx, doc.ZoneRanges); err != nil {
		return err
	}
	if err = insertCommissions(ctx, tx, doc.Commissions); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("repository: commit: %w", err)
	}
	return nil
}

func insertProducts(ctx context.Context, tx *sql.Tx, products []models.Product) error {
	const query = `
		INSERT INTO products (id, sku, name, manufacturer, category, specifications, tier, warranty_years, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, p := range products {
		specs, err := jsonColumn(p.Specifications)
		if err != nil {
			return fmt.Errorf("repository: product %s specifications: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query,
			p.ID, p.SKU, p.Name, p.Manufacturer, p.Category, specs, p.Tier, p.WarrantyYears, p.Available,
		); err != nil {
			return fmt.Errorf("repository: insert product %s: %w", p.ID, err)
		}
	}
	return nil
}

func insertOffers(ctx context.Context, tx *sql.Tx, offers []models.SupplierOffer) error {
	const query = `
		INSERT INTO supplier_offers (id, product_id, supplier_name, supplier_sku, unit_cost, retail_price,
		                             markup_percent, lead_time_days, stock_status, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, o := range offers {
		if _, err := tx.ExecContext(ctx, query,
			o.ID, o.ProductID, o.SupplierName, o.SupplierSKU, o.UnitCost,
			nullPositive(o.RetailPrice), nullNonZero(o.MarkupPercent),
			o.LeadTimeDays, o.StockStatus, o.Active,
		); err != nil {
			return fmt.Errorf("repository: insert offer %s: %w", o.ID, err)
		}
	}
	return nil
}

func insertInstallationItems(ctx context.Context, tx *sql.Tx, items []models.InstallationCostItem) error {
	const query = `
		INSERT INTO installation_cost_items (id, code, name, category, calculation_type, base_rate, multiplier,
		                                     min_quantity, max_quantity, estimated_hours, formula, counter,
		                                     constraints, is_optional, default_included, provider_type,
		                                     provider_id, priority, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	for _, it := range items {
		constraints, err := jsonColumn(it.Constraints)
		if err != nil {
			return fmt.Errorf("repository: item %s constraints: %w", it.Code, err)
		}
		id := it.ID
		if id == "" {
			id = it.Code
		}
		var maxQuantity sql.NullFloat64
		if it.MaxQuantity != nil {
			maxQuantity = sql.NullFloat64{Float64: *it.MaxQuantity, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, query,
			id, it.Code, it.Name, it.Category, it.CalculationType, it.BaseRate, it.Multiplier,
			it.MinQuantity, maxQuantity, it.EstimatedHours, it.Formula, it.Counter,
			constraints, it.IsOptional, it.DefaultIncluded, it.Provider(),
			it.ProviderID, it.Priority, it.SortOrder, it.Active,
		); err != nil {
			return fmt.Errorf("repository: insert item %s: %w", it.Code, err)
		}
	}
	return nil
}

func insertRebateConfigs(ctx context.Context, tx *sql.Tx, configs []models.RebateConfig) error {
	const query = `
		INSERT INTO rebate_configs (id, type, name, region, variables, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, c := range configs {
		vars, err := jsonColumn(c.Variables)
		if err != nil {
			return fmt.Errorf("repository: rebate %s variables: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, c.ID, c.Type, c.Name, c.Region, vars, c.Active); err != nil {
			return fmt.Errorf("repository: insert rebate %s: %w", c.ID, err)
		}
	}
	return nil
}

func insertZoneRanges(ctx context.Context, tx *sql.Tx, ranges []models.PostcodeZoneRange) error {
	const query = `
		INSERT INTO postcode_zones (start_postcode, end_postcode, zone, zone_rating, state, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, z := range ranges {
		if _, err := tx.ExecContext(ctx, query, z.Start, z.End, z.Zone, z.ZoneRating, z.State, z.Description); err != nil {
			return fmt.Errorf("repository: insert zone %d-%d: %w", z.Start, z.End, err)
		}
	}
	return nil
}

func insertCommissions(ctx context.Context, tx *sql.Tx, settings []models.CommissionSetting) error {
	const query = `
		INSERT INTO commission_settings (region, type, rate_percent, fixed_amount, minimum_profit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (region) DO NOTHING
	`
	for _, c := range settings {
		if _, err := tx.ExecContext(ctx, query, c.Region, c.Type, c.RatePercent, c.FixedAmount, c.MinimumProfit); err != nil {
			return fmt.Errorf("repository: insert commission %s: %w", c.Region, err)
		}
	}
	return nil
}

func jsonColumn(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "{}", nil
	}
	return string(data), nil
}

func nullPositive(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v > 0}
}

func nullNonZero(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}
