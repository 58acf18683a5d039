package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iixiiartist/founderhq-enrichment/internal/entity"
	"github.com/iixiiartist/founderhq-enrichment/internal/observability"
	"github.com/iixiiartist/founderhq-enrichment/internal/repository"
	"github.com/iixiiartist/founderhq-enrichment/internal/service/limiter"
	"github.com/iixiiartist/founderhq-enrichment/internal/service/provider"
	"github.com/iixiiartist/founderhq-enrichment/internal/service/sanitize"
	"github.com/iixiiartist/founderhq-enrichment/internal/service/urlcheck"
)

// Provider tags accepted on the request.
const (
	ProviderTagPrimary  = "primary"
	ProviderTagFallback = "fallback"
)

// SourceFallback tags payloads synthesized locally after every provider
// failed. Never presented as ground truth.
const SourceFallback = "fallback"

// RateLimitError carries the window state so the transport layer can set
// Retry-After and the X-RateLimit headers.
type RateLimitError struct {
	Result limiter.RateResult
}

func (e *RateLimitError) Error() string { return "rate limit exceeded for workspace" }

// EnrichCommand is one pipeline invocation.
type EnrichCommand struct {
	Principal *entity.Principal
	RequestID string
	URLs      []string
	UseCache  bool
	Provider  string
}

// EnrichOutcome is what the handler renders on success.
type EnrichOutcome struct {
	Data       sanitize.EnrichedCompanyData
	Provider   string
	Cached     bool
	Degraded   bool
	DurationMs int64
	Rate       limiter.RateResult
}

// EnrichService runs the full pipeline: validate, limit, cache, call,
// sanitize, persist, measure.
type EnrichService struct {
	rate     *limiter.RateLimiter
	balance  *limiter.BalanceManager
	cache    *CacheService
	primary  provider.Adapter
	fallback provider.Adapter
	cleaner  *sanitize.Cleaner
	metrics  repository.MetricsRepository
	scrubber *observability.Scrubber
	logger   *zap.Logger
}

// NewEnrichService wires the pipeline orchestrator.
func NewEnrichService(
	rate *limiter.RateLimiter,
	balance *limiter.BalanceManager,
	cache *CacheService,
	primary, fallback provider.Adapter,
	cleaner *sanitize.Cleaner,
	metrics repository.MetricsRepository,
	scrubber *observability.Scrubber,
	logger *zap.Logger,
) *EnrichService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scrubber == nil {
		scrubber = observability.NewScrubber(false)
	}
	return &EnrichService{
		rate:     rate,
		balance:  balance,
		cache:    cache,
		primary:  primary,
		fallback: fallback,
		cleaner:  cleaner,
		metrics:  metrics,
		scrubber: scrubber,
		logger:   logger,
	}
}

// Enrich executes the pipeline for one request. Validation, auth and limits
// short-circuit before any network egress; provider exhaustion degrades to a
// flagged placeholder rather than failing the request.
func (s *EnrichService) Enrich(ctx context.Context, cmd EnrichCommand) (*EnrichOutcome, error) {
	start := time.Now()
	log := s.logger.With(
		zap.String("request_id", cmd.RequestID),
		zap.String("workspace_id", s.scrubber.ScrubID(cmd.Principal.WorkspaceID.String())))

	target, extras, err := s.validateTargets(cmd.URLs)
	if err != nil {
		s.emit(cmd, "", metricOutcome{err: err, duration: time.Since(start)})
		return nil, err
	}
	log = log.With(zap.Any("domain", s.scrubber.ScrubField("domain", target.Domain)))

	rate := s.rate.Check(ctx, cmd.Principal.WorkspaceID.String())
	if !rate.Allowed {
		err := &RateLimitError{Result: rate}
		s.emit(cmd, target.Domain, metricOutcome{err: err, duration: time.Since(start)})
		return nil, err
	}

	bal := s.balance.Check(ctx, cmd.Principal.WorkspaceID)
	if !bal.Sufficient {
		err := fmt.Errorf("insufficient balance: %d cents available, %d required", bal.BalanceCents, bal.CostCents)
		s.emit(cmd, target.Domain, metricOutcome{err: err, duration: time.Since(start)})
		return nil, err
	}

	if cmd.UseCache {
		if outcome, ok := s.fromCache(ctx, cmd, target.Domain, rate, start); ok {
			return outcome, nil
		}
	}

	chain, err := s.adapterChain(cmd.Provider)
	if err != nil {
		s.emit(cmd, target.Domain, metricOutcome{err: err, duration: time.Since(start)})
		return nil, err
	}

	query := provider.Query{
		CompanyName: target.CompanyName,
		Domain:      target.Domain,
		Origin:      target.Origin,
		ExtraURLs:   extras,
	}

	raw, used, retries, callErr := s.callProviders(ctx, log, chain, query)
	if raw == nil {
		// Every provider is down. Partial enrichment beats none, so hand
		// back a flagged placeholder instead of the error.
		outcome := &EnrichOutcome{
			Data:       placeholderData(target),
			Provider:   SourceFallback,
			Degraded:   true,
			DurationMs: time.Since(start).Milliseconds(),
			Rate:       rate,
		}
		s.emit(cmd, target.Domain, metricOutcome{
			provider: SourceFallback,
			degraded: true,
			success:  true,
			retries:  retries,
			err:      callErr,
			data:     &outcome.Data,
			duration: time.Since(start),
		})
		log.Warn("enrichment degraded to placeholder", zap.Error(callErr))
		return outcome, nil
	}

	cleaned := s.cleaner.Clean(raw.Fields, used.Name())
	data := cleaned.Data
	if sanitize.IsPlaceholder(data.Description) {
		data.Degraded = true
	}
	for _, dropped := range cleaned.Dropped {
		log.Debug("field dropped during sanitization", zap.String("field", dropped))
	}

	if !data.Degraded {
		s.writeThrough(ctx, log, cmd, target.Domain, used.Name(), data)
		s.deductAsync(cmd, target.Domain)
	}

	outcome := &EnrichOutcome{
		Data:       data,
		Provider:   used.Name(),
		Degraded:   data.Degraded,
		DurationMs: time.Since(start).Milliseconds(),
		Rate:       rate,
	}
	s.emit(cmd, target.Domain, metricOutcome{
		provider: used.Name(),
		degraded: data.Degraded,
		success:  true,
		retries:  retries,
		data:     &data,
		duration: time.Since(start),
	})
	log.Info("enrichment completed",
		zap.String("provider", used.Name()),
		zap.Int64("duration_ms", outcome.DurationMs),
		zap.Float64("confidence", data.Confidence),
		zap.Bool("degraded", data.Degraded))
	return outcome, nil
}

// InvalidateCache removes stored enrichments for the workspace, optionally
// narrowed to one domain.
func (s *EnrichService) InvalidateCache(ctx context.Context, principal *entity.Principal, rawDomain string) (int64, error) {
	domain := ""
	if rawDomain != "" {
		target, err := urlcheck.Validate(rawDomain)
		if err != nil {
			return 0, err
		}
		domain = target.Domain
	}
	return s.cache.Invalidate(ctx, principal.WorkspaceID, domain)
}

func (s *EnrichService) validateTargets(urls []string) (*urlcheck.Target, []string, error) {
	if len(urls) == 0 {
		return nil, nil, errors.New("urls must be a non-empty array")
	}

	target, err := urlcheck.Validate(urls[0])
	if err != nil {
		return nil, nil, err
	}

	extras := make([]string, 0, len(urls)-1)
	for _, raw := range urls[1:] {
		extra, err := urlcheck.Validate(raw)
		if err != nil {
			return nil, nil, err
		}
		extras = append(extras, extra.Origin)
	}
	return target, extras, nil
}

func (s *EnrichService) adapterChain(tag string) ([]provider.Adapter, error) {
	switch tag {
	case "", ProviderTagPrimary:
		return []provider.Adapter{s.primary, s.fallback}, nil
	case ProviderTagFallback:
		return []provider.Adapter{s.fallback}, nil
	default:
		return nil, fmt.Errorf("provider must be %q or %q", ProviderTagPrimary, ProviderTagFallback)
	}
}

func (s *EnrichService) callProviders(ctx context.Context, log *zap.Logger, chain []provider.Adapter, query provider.Query) (*provider.RawResult, provider.Adapter, int, error) {
	retries := 0
	var lastErr error
	for _, adapter := range chain {
		raw, err := adapter.Call(ctx, query)
		if raw != nil {
			retries += raw.Retries
		}
		if err != nil {
			lastErr = err
			event := log.Warn
			if errors.Is(err, provider.ErrCircuitOpen) {
				event = log.Info
			}
			event("provider call failed",
				zap.String("provider", adapter.Name()),
				zap.Error(err))
			continue
		}
		return raw, adapter, retries, nil
	}
	return nil, nil, retries, lastErr
}

func (s *EnrichService) fromCache(ctx context.Context, cmd EnrichCommand, domain string, rate limiter.RateResult, start time.Time) (*EnrichOutcome, bool) {
	entry, ok := s.cache.Lookup(ctx, cmd.Principal.WorkspaceID, domain)
	if !ok {
		return nil, false
	}

	var data sanitize.EnrichedCompanyData
	if err := json.Unmarshal(entry.Data, &data); err != nil {
		s.logger.Warn("stored cache entry is not decodable, treating as miss",
			zap.String("request_id", cmd.RequestID),
			zap.Error(err))
		return nil, false
	}

	outcome := &EnrichOutcome{
		Data:       data,
		Provider:   entry.Provider,
		Cached:     true,
		DurationMs: time.Since(start).Milliseconds(),
		Rate:       rate,
	}
	s.emit(cmd, domain, metricOutcome{
		provider: entry.Provider,
		cached:   true,
		success:  true,
		data:     &data,
		duration: time.Since(start),
	})
	return outcome, true
}

func (s *EnrichService) writeThrough(ctx context.Context, log *zap.Logger, cmd EnrichCommand, domain, providerName string, data sanitize.EnrichedCompanyData) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Warn("marshal enrichment for cache failed", zap.Error(err))
		return
	}
	if err := s.cache.Store(ctx, cmd.Principal.WorkspaceID, domain, providerName, payload); err != nil {
		log.Warn("cache write-through failed", zap.Error(err))
	}
}

// deductAsync charges the workspace off the request path. The enrichment has
// already succeeded; a failed deduction is logged, never propagated.
func (s *EnrichService) deductAsync(cmd EnrichCommand, domain string) {
	workspaceID := cmd.Principal.WorkspaceID
	userID := cmd.Principal.UserID
	observability.Go(s.logger, "balance.deduct", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		description := "enrichment: " + domain
		if err := s.balance.Deduct(ctx, workspaceID, userID, description); err != nil {
			s.logger.Warn("post-enrichment deduction failed",
				zap.String("request_id", cmd.RequestID),
				zap.Error(err))
		}
	})
}

type metricOutcome struct {
	provider string
	cached   bool
	degraded bool
	success  bool
	retries  int
	data     *sanitize.EnrichedCompanyData
	err      error
	duration time.Duration
}

// emit records the per-request metric without ever blocking or failing the
// response.
func (s *EnrichService) emit(cmd EnrichCommand, domain string, out metricOutcome) {
	if s.metrics == nil {
		return
	}

	metric := &entity.EnrichmentMetric{
		RequestID:   cmd.RequestID,
		WorkspaceID: cmd.Principal.WorkspaceID,
		UserID:      cmd.Principal.UserID,
		Domain:      domain,
		Provider:    out.provider,
		Success:     out.success,
		Cached:      out.cached,
		Degraded:    out.degraded,
		DurationMs:  out.duration.Milliseconds(),
		Retries:     out.retries,
	}
	if out.data != nil {
		confidence := out.data.Confidence
		metric.Confidence = &confidence
		metric.Fields = out.data.FieldNames()
	}
	if out.err != nil {
		code := string(observability.Classify(out.err).Category)
		metric.ErrorCode = &code
	}

	observability.Go(s.logger, "metrics.emit", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.metrics.Insert(ctx, metric); err != nil {
			s.logger.Warn("metric insert failed",
				zap.String("request_id", cmd.RequestID),
				zap.Error(err))
		}
	})
}

func placeholderData(target *urlcheck.Target) sanitize.EnrichedCompanyData {
	return sanitize.EnrichedCompanyData{
		Description: fmt.Sprintf("No information found for %s at this time. The enrichment providers were unreachable; try again later.", target.CompanyName),
		Source:      SourceFallback,
		Degraded:    true,
	}
}
