// Package evolution builds daily metric series for a bar, preferring the
// database's own aggregation and falling back to paging raw rows.
package evolution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"barmetrics-service/internal/cache"
	"barmetrics-service/internal/reconcile"
	"barmetrics-service/internal/sources"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const cachePrefix = "evolucao"

type Path string

const (
	PathServer Path = "servidor"
	PathClient Path = "cliente"
)

// Aggregator is the server-side aggregation. Either method may fail when the
// function is not deployed in the environment.
type Aggregator interface {
	DailyTicketTotals(ctx context.Context, barID int64, window reconcile.Window) (reconcile.DailyTotals, reconcile.DailyTotals, error)
	DailyDurations(ctx context.Context, barID int64, window reconcile.Window, station reconcile.Station) ([]reconcile.Point, error)
}

type GoalStore interface {
	Load(ctx context.Context, barID int64) (reconcile.GoalConfig, error)
}

type Sources struct {
	Payments       Source
	PosAttendance  Source
	TicketedEvents Source
	Reservations   Source
	Durations      DurationSource
}

type Options struct {
	Policy          reconcile.Policy
	CacheTTL        time.Duration
	Verify          bool
	VerifyTolerance float64
	BreakerTimeout  time.Duration
}

type Request struct {
	BarID  int64
	Metric reconcile.Metric
	Start  reconcile.CalendarDay
	End    reconcile.CalendarDay
}

type Result struct {
	Series         reconcile.Series       `json:"series"`
	Period         reconcile.Period       `json:"period"`
	Path           Path                   `json:"path"`
	SourceFailures []reconcile.SourceKind `json:"sourceFailures"`
	Cached         bool                   `json:"-"`
}

type Service struct {
	sources    Sources
	aggregates Aggregator
	goals      GoalStore
	cache      cache.Cache
	fetcher    *Fetcher
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
	opts       Options
}

func NewService(src Sources, aggregates Aggregator, goals GoalStore, store cache.Cache, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = cache.NewMemory()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = time.Minute
	}
	if opts.VerifyTolerance <= 0 {
		opts.VerifyTolerance = 0.005
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rpc-aggregation",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// an abandoned request says nothing about the function's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Service{
		sources:    src,
		aggregates: aggregates,
		goals:      goals,
		cache:      store,
		fetcher:    NewFetcher(logger),
		breaker:    breaker,
		logger:     logger,
		opts:       opts,
	}
}

func cacheKey(barID int64, metric reconcile.Metric, window reconcile.Window) string {
	return cache.Key(cachePrefix, barID, string(metric), string(window.Start), string(window.End))
}

// Evolution returns the daily series of one metric for a bar.
func (s *Service) Evolution(ctx context.Context, req Request) (Result, error) {
	if _, ok := req.Metric.Floor(); !ok {
		return Result{}, reconcile.ErrUnknownMetric
	}
	period := reconcile.ResolvePeriod(req.Metric, req.Start, req.End)
	window := period.Effective

	key := cacheKey(req.BarID, req.Metric, window)
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("series cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var cached Result
		if err := json.Unmarshal(raw, &cached); err == nil {
			cached.Period = period
			cached.Cached = true
			return cached, nil
		}
	}

	started := time.Now()
	points, path, failures, err := s.reconcile(ctx, req.BarID, req.Metric, window)
	if err != nil {
		return Result{}, err
	}
	reconcileLatency.WithLabelValues(string(req.Metric)).Observe(time.Since(started).Seconds())
	reconcilePaths.WithLabelValues(string(req.Metric), string(path)).Inc()

	series := reconcile.Series{Metric: req.Metric, Window: window, Points: points}
	if s.goals != nil {
		goals, err := s.goals.Load(ctx, req.BarID)
		if err != nil {
			s.logger.Warn("goal load failed; series without target", zap.Int64("barId", req.BarID), zap.Error(err))
		} else {
			series = series.WithTarget(goals)
		}
	}

	result := Result{Series: series, Period: period, Path: path, SourceFailures: failures}
	// incomplete series are not cached so the next request retries the
	// failed sources
	if len(failures) == 0 {
		if raw, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.opts.CacheTTL); err != nil {
				s.logger.Warn("series cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return result, nil
}

// Invalidate drops every cached series of the bar.
func (s *Service) Invalidate(ctx context.Context, barID int64) error {
	return s.cache.DeletePrefix(ctx, cache.BarPrefix(cachePrefix, barID))
}

// Warm rebuilds every metric for the window after an invalidation.
func (s *Service) Warm(ctx context.Context, barID int64, start, end reconcile.CalendarDay) error {
	var errs []error
	for _, metric := range reconcile.AllMetrics {
		if _, err := s.Evolution(ctx, Request{BarID: barID, Metric: metric, Start: start, End: end}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", metric, err))
		}
	}
	return errors.Join(errs...)
}

func hasServerAggregation(metric reconcile.Metric) bool {
	return metric != reconcile.MetricReservations
}

// reconcile runs the fallback state machine: server aggregation first, then
// client-side paging and reduction when the server path is unavailable.
func (s *Service) reconcile(ctx context.Context, barID int64, metric reconcile.Metric, window reconcile.Window) ([]reconcile.Point, Path, []reconcile.SourceKind, error) {
	// the whole request predates the metric's first day
	if !window.Valid() {
		return []reconcile.Point{}, PathClient, nil, nil
	}
	if s.aggregates != nil && hasServerAggregation(metric) {
		points, err := s.tryServer(ctx, barID, metric, window)
		if err == nil {
			if s.opts.Verify {
				s.verify(ctx, barID, metric, window, points)
			}
			return points, PathServer, nil, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", nil, ctxErr
		}
		s.logger.Info("server aggregation unavailable; reducing on client",
			zap.String("metric", string(metric)),
			zap.Int64("barId", barID),
			zap.Error(err),
		)
	}

	points, failures, err := s.clientSide(ctx, barID, metric, window)
	if err != nil {
		return nil, "", nil, err
	}
	return points, PathClient, failures, nil
}

type serverOutcome struct {
	points []reconcile.Point
	err    error
}

func (s *Service) tryServer(ctx context.Context, barID int64, metric reconcile.Metric, window reconcile.Window) ([]reconcile.Point, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		points, err := s.serverSide(ctx, barID, metric, window)
		if errors.Is(err, sources.ErrEmptyAggregate) {
			// an empty window is not a sign the function is missing
			return serverOutcome{err: err}, nil
		}
		if err != nil {
			return nil, err
		}
		return serverOutcome{points: points}, nil
	})
	if err != nil {
		return nil, err
	}
	outcome := out.(serverOutcome)
	if outcome.err != nil {
		return nil, outcome.err
	}
	return outcome.points, nil
}

func (s *Service) serverSide(ctx context.Context, barID int64, metric reconcile.Metric, window reconcile.Window) ([]reconcile.Point, error) {
	if metric.IsDuration() {
		return s.aggregates.DailyDurations(ctx, barID, window, metric.Station())
	}

	revenue, attendance, err := s.aggregates.DailyTicketTotals(ctx, barID, window)
	if err != nil {
		return nil, err
	}
	switch metric {
	case reconcile.MetricRevenue:
		return revenue.Series(), nil
	case reconcile.MetricAttendance:
		return attendance.Series(), nil
	case reconcile.MetricTicket:
		return reconcile.AverageTicket(revenue, attendance), nil
	default:
		return nil, reconcile.ErrUnknownMetric
	}
}

func (s *Service) clientSide(ctx context.Context, barID int64, metric reconcile.Metric, window reconcile.Window) ([]reconcile.Point, []reconcile.SourceKind, error) {
	if metric.IsDuration() {
		if s.sources.Durations == nil {
			return []reconcile.Point{}, nil, nil
		}
		samples, err := s.sources.Durations.FetchDurations(ctx, barID, window, metric.Station())
		var failures []reconcile.SourceKind
		if err != nil {
			sourceFailures.WithLabelValues("tempo").Inc()
			s.logger.Warn("duration fetch failed",
				zap.Int64("barId", barID),
				zap.String("station", string(metric.Station())),
				zap.Int("partialRows", len(samples)),
				zap.Error(err),
			)
			failures = []reconcile.SourceKind{"tempo"}
		}
		return reconcile.DailyDurationAverages(samples, metric.Station()), failures, nil
	}

	fetched := s.fetcher.FetchAll(ctx, barID, window, s.sourcesFor(metric)...)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	switch metric {
	case reconcile.MetricTicket:
		revenue := reconcile.Aggregate(reconcile.MetricRevenue, s.opts.Policy, fetched.Records...)
		attendance := reconcile.Aggregate(reconcile.MetricAttendance, s.opts.Policy, fetched.Records...)
		return reconcile.AverageTicket(revenue, attendance), mergeFailures(fetched.Failures), nil
	default:
		totals := reconcile.Aggregate(metric, s.opts.Policy, fetched.Records...)
		return totals.Series(), mergeFailures(fetched.Failures), nil
	}
}

func (s *Service) sourcesFor(metric reconcile.Metric) []Source {
	var out []Source
	add := func(src Source) {
		if src != nil {
			out = append(out, src)
		}
	}
	switch metric {
	case reconcile.MetricRevenue:
		add(s.sources.Payments)
		add(s.sources.TicketedEvents)
	case reconcile.MetricAttendance:
		add(s.sources.PosAttendance)
		add(s.sources.TicketedEvents)
		add(s.sources.Reservations)
	case reconcile.MetricTicket:
		add(s.sources.Payments)
		add(s.sources.PosAttendance)
		add(s.sources.TicketedEvents)
		add(s.sources.Reservations)
	case reconcile.MetricReservations:
		add(s.sources.Reservations)
	}
	return out
}

// verify recomputes the series on the client and reports disagreement with
// the server result. The server result is still the one returned.
func (s *Service) verify(ctx context.Context, barID int64, metric reconcile.Metric, window reconcile.Window, server []reconcile.Point) {
	client, failures, err := s.clientSide(ctx, barID, metric, window)
	if err != nil || len(failures) > 0 {
		s.logger.Warn("consistency check skipped",
			zap.String("metric", string(metric)),
			zap.Int64("barId", barID),
			zap.Any("failures", failures),
			zap.Error(err),
		)
		return
	}
	mismatches := reconcile.CompareSeries(server, client, s.opts.VerifyTolerance)
	if len(mismatches) == 0 {
		return
	}
	consistencyMismatches.WithLabelValues(string(metric)).Add(float64(len(mismatches)))
	days := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		days = append(days, string(m.Date))
	}
	s.logger.Warn("server and client series disagree",
		zap.String("metric", string(metric)),
		zap.Int64("barId", barID),
		zap.String("start", string(window.Start)),
		zap.String("end", string(window.End)),
		zap.Strings("days", days),
	)
}
