package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sunquote/backend/services/quote-service/internal/models"
)

// DefaultMemoTTL bounds how long a snapshot is reused in-process.
const DefaultMemoTTL = time.Minute

// Cache is a shared store for the encoded document, e.g. Redis.
type Cache interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Save(ctx context.Context, data []byte) error
}

// Provider hands out snapshots: in-process memo, then the shared cache, then the source.
type Provider struct {
	source Source
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *Snapshot
	expires time.Time
}

// NewProvider builds a provider. cache may be nil.
func NewProvider(source Source, cache Cache, ttl time.Duration, logger *zap.Logger) *Provider {
	if ttl <= 0 {
		ttl = DefaultMemoTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot returns the current snapshot, reloading it when the memo has expired.
// Retrieval failures are reported as models.ErrUnavailable.
func (p *Provider) Snapshot(ctx context.Context) (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.current != nil && now.Before(p.expires) {
		return p.current, nil
	}

	doc, err := p.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("refdata: %w: %w", models.ErrUnavailable, err)
	}
	snap, err := NewSnapshot(doc, now)
	if err != nil {
		return nil, fmt.Errorf("refdata: %w: %w", models.ErrUnavailable, err)
	}

	if p.current == nil || p.current.Version() != snap.Version() {
		p.logger.Info("reference data loaded",
			zap.String("version", snap.Version()),
			zap.Int("products", len(doc.Products)),
			zap.Int("installation_items", len(doc.InstallationItems)),
			zap.Int("zone_ranges", len(doc.ZoneRanges)),
		)
	}
	p.current = snap
	p.expires = now.Add(p.ttl)
	return snap, nil
}

// Invalidate drops the memoised snapshot so the next call reloads.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}

func (p *Provider) load(ctx context.Context) (Document, error) {
	if p.cache != nil {
		data, ok, err := p.cache.Get(ctx)
		switch {
		case err != nil:
			p.logger.Warn("reference cache read failed", zap.Error(err))
		case ok:
			var doc Document
			decodeErr := json.Unmarshal(data, &doc)
			if decodeErr == nil {
				return doc, nil
			}
			p.logger.Warn("reference cache entry unreadable", zap.Error(decodeErr))
		}
	}

	if p.source == nil {
		return Document{}, errors.New("no reference source configured")
	}
	doc, err := p.source.Load(ctx)
	if err != nil {
		return Document{}, err
	}

	if p.cache != nil {
		data, err := json.Marshal(doc)
		if err == nil {
			err = p.cache.Save(ctx, data)
		}
		if err != nil {
			p.logger.Warn("reference cache write failed", zap.String("source", p.source.Name()), zap.Error(err))
		}
	}
	return doc, nil
}
