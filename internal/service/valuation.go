package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pumpcap/internal/domain"
	"pumpcap/internal/infra"
	"pumpcap/internal/infra/pumpportal"

	"github.com/shopspring/decimal"
)

const (
	defaultCacheWindow   = 5 * time.Second
	defaultCheckInterval = 10 * time.Second
	defaultStaleAfter    = 30 * time.Second
)

// FallbackClient is the REST market-data source consulted when the
// trade stream has gone silent.
type FallbackClient interface {
	FetchTokenData(ctx context.Context, mint string) (*pumpportal.TokenData, error)
}

// ValuationService reconciles the trade stream, the REST fallback and
// the persisted last-known-good value into one coherent market cap.
// All mutable state lives behind one mutex: there is exactly one
// record, so serializing the read-modify-write operations is enough.
type ValuationService struct {
	mu   sync.Mutex
	mint string

	store    domain.ValuationStore
	fallback FallbackClient
	metrics  *infra.Metrics

	solPrice         decimal.Decimal
	lastValidMcap    decimal.Decimal
	lastStreamUpdate time.Time

	cache       domain.Snapshot
	cacheWindow time.Duration

	checkInterval time.Duration
	staleAfter    time.Duration

	tokenMeta  domain.TokenMetadata
	onMetadata func(domain.TokenMetadata)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewValuationService creates a service with the default windows
// (5s cache, 10s fallback check, 30s stream staleness).
func NewValuationService(mint string, store domain.ValuationStore, fallback FallbackClient) *ValuationService {
	return &ValuationService{
		mint:             mint,
		store:            store,
		fallback:         fallback,
		metrics:          infra.GlobalMetrics,
		solPrice:         infra.DefaultSolPrice,
		lastValidMcap:    decimal.Zero,
		lastStreamUpdate: time.Now(),
		cache: domain.Snapshot{
			Mcap:      0,
			SolPrice:  infra.DefaultSolPrice.InexactFloat64(),
			Timestamp: time.Now().UnixMilli(),
			Error:     domain.ErrMsgNoData,
		},
		cacheWindow:   defaultCacheWindow,
		checkInterval: defaultCheckInterval,
		staleAfter:    defaultStaleAfter,
	}
}

// NewValuationServiceWithConfig creates a service with custom windows.
func NewValuationServiceWithConfig(mint string, store domain.ValuationStore, fallback FallbackClient,
	cacheWindow, checkInterval, staleAfter time.Duration) *ValuationService {
	s := NewValuationService(mint, store, fallback)
	if cacheWindow > 0 {
		s.cacheWindow = cacheWindow
	}
	if checkInterval > 0 {
		s.checkInterval = checkInterval
	}
	if staleAfter > 0 {
		s.staleAfter = staleAfter
	}
	return s
}

// SetMetadataHook registers a callback invoked whenever fresh token
// metadata arrives (e.g. to fetch the icon). Called before Start.
func (s *ValuationService) SetMetadataHook(fn func(domain.TokenMetadata)) {
	s.onMetadata = fn
}

// SetSolPrice updates the current settlement-asset quote. Non-positive
// values are ignored: a stale price beats no price.
func (s *ValuationService) SetSolPrice(p decimal.Decimal) {
	if !p.IsPositive() {
		return
	}
	s.mu.Lock()
	s.solPrice = p
	s.mu.Unlock()
}

// SolPrice returns the current settlement-asset quote.
func (s *ValuationService) SolPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solPrice
}

// ProcessTrade derives a market-cap estimate from one stream event and
// writes it through to the store. Invalid events fall back to the
// last-known-good value; the write happens either way so the row's
// timestamp tracks stream liveness.
func (s *ValuationService) ProcessTrade(t *domain.TradeEvent) {
	s.mu.Lock()

	mcap, ok := domain.DeriveMarketCap(t, s.solPrice)
	if ok {
		s.lastValidMcap = mcap
		s.lastStreamUpdate = time.Now()
	}

	value := s.lastValidMcap
	if ok {
		value = mcap
	}

	rec := &domain.ValuationRecord{
		Mint:      s.mint,
		MarketCap: value.InexactFloat64(),
		SolPrice:  s.solPrice.InexactFloat64(),
		Timestamp: time.Now().UnixMilli(),
	}

	s.metrics.RecordTrade(ok)

	if err := s.store.UpsertValuation(rec); err != nil {
		// Cache stays stale; readers keep serving the previous value.
		s.metrics.RecordStoreError()
		s.mu.Unlock()
		slog.Error("Valuation write failed", slog.Any("error", err))
		return
	}

	s.refreshCacheLocked(rec.MarketCap, rec.SolPrice, rec.Timestamp, rec.Annotation())
	s.mu.Unlock()
}

// Start launches the fallback supervisor loop.
func (s *ValuationService) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Fallback supervisor stopped")
				return
			case <-ticker.C:
				s.checkFallback(ctx)
			}
		}
	}()
	return nil
}

// Stop stops the fallback supervisor.
func (s *ValuationService) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
}

// checkFallback fires a REST fetch when the stream has been silent for
// longer than the staleness window. Pure best-effort: failures and
// non-positive results leave all state untouched.
func (s *ValuationService) checkFallback(ctx context.Context) {
	s.mu.Lock()
	stale := time.Since(s.lastStreamUpdate) > s.staleAfter
	s.mu.Unlock()
	if !stale {
		return
	}

	slog.Info("No stream updates within staleness window, fetching from REST fallback")
	s.metrics.RecordFallbackFetch()

	data, err := s.fallback.FetchTokenData(ctx, s.mint)
	if err != nil {
		slog.Warn("REST fallback fetch failed", slog.Any("error", err))
		return
	}

	if meta := data.Metadata(); meta.Name != "" {
		s.UpdateMetadata(meta)
	}

	mcap, ok := data.MarketCapValue()
	if !ok {
		return
	}

	s.ApplyFallbackValue(mcap)
}

// ApplyFallbackValue records a positive REST-derived market cap as the
// new last-known-good value and writes it through to the store.
func (s *ValuationService) ApplyFallbackValue(mcap decimal.Decimal) {
	if !mcap.IsPositive() {
		return
	}

	s.mu.Lock()
	s.lastValidMcap = mcap

	rec := &domain.ValuationRecord{
		Mint:      s.mint,
		MarketCap: mcap.InexactFloat64(),
		SolPrice:  s.solPrice.InexactFloat64(),
		Timestamp: time.Now().UnixMilli(),
	}

	if err := s.store.UpsertValuation(rec); err != nil {
		s.metrics.RecordStoreError()
		s.mu.Unlock()
		slog.Error("Fallback valuation write failed", slog.Any("error", err))
		return
	}

	s.refreshCacheLocked(rec.MarketCap, rec.SolPrice, rec.Timestamp, "")
	s.mu.Unlock()
	slog.Info("Stored market cap from REST fallback", slog.Float64("mcap", rec.MarketCap))
}

// Current returns the latest valuation, serving from the snapshot
// cache when it is fresher than the cache window.
func (s *ValuationService) Current() (domain.Snapshot, error) {
	s.mu.Lock()

	if time.Now().UnixMilli()-s.cache.Timestamp < s.cacheWindow.Milliseconds() {
		snap := s.cache
		s.mu.Unlock()
		s.metrics.RecordCacheHit()
		return snap, nil
	}
	s.metrics.RecordCacheMiss()

	rec, err := s.store.GetValuation(s.mint)
	if err != nil {
		s.metrics.RecordStoreError()
		s.mu.Unlock()
		return domain.Snapshot{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var snap domain.Snapshot
	if rec == nil {
		snap = domain.Snapshot{
			Mcap:      s.lastValidMcap.InexactFloat64(),
			SolPrice:  s.solPrice.InexactFloat64(),
			Timestamp: time.Now().UnixMilli(),
			Error:     domain.ErrMsgNoData,
		}
	} else {
		snap = domain.Snapshot{
			Mcap:      rec.MarketCap,
			SolPrice:  rec.SolPrice,
			Timestamp: rec.Timestamp,
			Error:     rec.Annotation(),
		}
	}

	s.cache = snap
	s.mu.Unlock()
	return snap, nil
}

// UpdateMetadata stores fresh token metadata and notifies the hook.
func (s *ValuationService) UpdateMetadata(meta domain.TokenMetadata) {
	s.mu.Lock()
	if meta.IconPath == "" {
		meta.IconPath = s.tokenMeta.IconPath
	}
	s.tokenMeta = meta
	hook := s.onMetadata
	s.mu.Unlock()

	if hook != nil {
		hook(meta)
	}
}

// SetIconPath records the locally cached icon location.
func (s *ValuationService) SetIconPath(path string) {
	s.mu.Lock()
	s.tokenMeta.IconPath = path
	s.mu.Unlock()
}

// TokenMetadata returns the last-fetched token metadata.
func (s *ValuationService) TokenMetadata() domain.TokenMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenMeta
}

// LastStreamUpdate returns the time of the last valid stream estimate.
func (s *ValuationService) LastStreamUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStreamUpdate
}

// refreshCacheLocked mirrors a successful store write into the
// snapshot cache. Caller must hold s.mu.
func (s *ValuationService) refreshCacheLocked(mcap, solPrice float64, ts int64, errMsg string) {
	s.cache = domain.Snapshot{
		Mcap:      mcap,
		SolPrice:  solPrice,
		Timestamp: ts,
		Error:     errMsg,
	}
}
