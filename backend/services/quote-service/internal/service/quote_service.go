package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sunquote/backend/services/quote-service/internal/fingerprint"
	"sunquote/backend/services/quote-service/internal/installation"
	"sunquote/backend/services/quote-service/internal/models"
	"sunquote/backend/services/quote-service/internal/quote"
	"sunquote/backend/services/quote-service/internal/rebate"
	"sunquote/backend/services/quote-service/internal/refdata"
	"sunquote/backend/services/quote-service/internal/selector"
	"sunquote/backend/services/quote-service/internal/zone"
)

// SnapshotProvider hands out the current reference snapshot.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*refdata.Snapshot, error)
}

// RebateRequest is the input of a standalone rebate calculation.
type RebateRequest struct {
	SystemSizeKw float64 `json:"systemSizeKw"`
	BatteryKwh   float64 `json:"batteryKwh"`
	Postcode     string  `json:"postcode"`
	Region       string  `json:"region,omitempty"`
}

// components are the pricing parts built from one snapshot.
type components struct {
	version   string
	zones     *zone.Lookup
	engine    *installation.Engine
	rebates   *rebate.Calculator
	assembler *quote.Assembler
}

// QuoteService prices quotes against the current reference data.
type QuoteService struct {
	provider SnapshotProvider
	pricing  quote.Pricing
	hasher   fingerprint.Hasher
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string

	mu      sync.Mutex
	current *components
}

// NewQuoteService builds service.
func NewQuoteService(provider SnapshotProvider, pricing quote.Pricing, hasher fingerprint.Hasher, logger *zap.Logger) *QuoteService {
	if hasher == nil {
		hasher = fingerprint.NewBlake2bHasher(16)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteService{
		provider: provider,
		pricing:  pricing.WithDefaults(),
		hasher:   hasher,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// load returns the pricing parts for the current snapshot, rebuilding them when the
// snapshot version changes.
func (s *QuoteService) load(ctx context.Context) (*components, error) {
	snap, err := s.provider.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.version == snap.Version() {
		return s.current, nil
	}

	zones := zone.NewLookup(snap)
	engine := installation.NewEngine(snap, s.pricing.GSTRate)
	rebates := rebate.NewCalculator(snap, zones)
	c := &components{
		version:   snap.Version(),
		zones:     zones,
		engine:    engine,
		rebates:   rebates,
		assembler: quote.NewAssembler(selector.New(snap), engine, rebates, snap, s.pricing),
	}
	s.current = c
	return c, nil
}

// CreateQuote prices the request and stamps the result with an id, fingerprint and snapshot version.
func (s *QuoteService) CreateQuote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	q, err := c.assembler.Assemble(req)
	if err != nil {
		return nil, err
	}

	fp, err := s.hasher.Sum(struct {
		Request  models.QuoteRequest `json:"request"`
		Snapshot string              `json:"snapshot"`
	}{req, c.version})
	if err != nil {
		return nil, fmt.Errorf("quote: fingerprint: %w", err)
	}
	q.ID = s.newID()
	q.Fingerprint = fp
	q.SnapshotVersion = c.version
	q.CreatedAt = s.now().UTC()

	if unknown := c.assembler.UnknownExtras(req); len(unknown) > 0 {
		s.logger.Warn("unknown extras ignored",
			zap.String("quote_id", q.ID),
			zap.Strings("codes", unknown),
		)
	}
	if q.Degraded {
		s.logger.Warn("quote priced with fallbacks",
			zap.String("quote_id", q.ID),
			zap.Strings("fallbacks", q.Fallbacks),
		)
	}
	s.logger.Info("quote created",
		zap.String("quote_id", q.ID),
		zap.String("snapshot", q.SnapshotVersion),
		zap.Float64("system_kw", q.SystemSizeKw),
		zap.Float64("battery_kwh", q.BatterySizeKwh),
		zap.Float64("final_price", q.FinalPrice),
		zap.Bool("degraded", q.Degraded),
	)
	return &q, nil
}

// EstimateInstallation prices a job against the installation rate table.
func (s *QuoteService) EstimateInstallation(ctx context.Context, job models.InstallationJob) (*models.InstallationEstimate, error) {
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	est, err := c.engine.Evaluate(job)
	if err != nil {
		return nil, err
	}
	if len(est.Failures) > 0 {
		s.logger.Warn("installation formulas failed", zap.Int("count", len(est.Failures)))
	}
	return &est, nil
}

// CompareInstallation prices a job for both in-house and subcontracted installation.
func (s *QuoteService) CompareInstallation(ctx context.Context, job models.InstallationJob) (*models.InstallationComparison, error) {
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	cmp, err := c.engine.Compare(job)
	if err != nil {
		return nil, err
	}
	return &cmp, nil
}

// CalculateRebates computes incentives for a system on its own.
func (s *QuoteService) CalculateRebates(ctx context.Context, req RebateRequest) (*models.RebateResult, error) {
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.rebates.Calculate(req.SystemSizeKw, req.BatteryKwh, req.Postcode, req.Region)
	if err != nil {
		return nil, err
	}
	if len(res.Fallbacks) > 0 {
		s.logger.Warn("rebates computed with fallbacks", zap.Strings("fallbacks", res.Fallbacks))
	}
	return &res, nil
}

// LookupZone resolves a postcode to its solar zone.
func (s *QuoteService) LookupZone(ctx context.Context, postcode string) (*models.ZoneInfo, error) {
	if _, err := models.ParsePostcode(postcode); err != nil {
		verr := models.NewValidationError()
		verr.Add("postcode", "must be a 3 or 4 digit postcode")
		return nil, verr
	}
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	info := c.zones.Find(postcode)
	return &info, nil
}

// SnapshotVersion reports the version of the reference data currently served.
func (s *QuoteService) SnapshotVersion(ctx context.Context) (string, error) {
	c, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return c.version, nil
}
