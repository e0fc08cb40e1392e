package evolution

import (
	"context"

	"barmetrics-service/internal/reconcile"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source yields raw records of one origin for a bar and window.
type Source interface {
	Name() reconcile.SourceKind
	Fetch(ctx context.Context, barID int64, window reconcile.Window) ([]reconcile.Record, error)
}

type DurationSource interface {
	FetchDurations(ctx context.Context, barID int64, window reconcile.Window, station reconcile.Station) ([]reconcile.DurationSample, error)
}

// Fetched holds the records of every source and the names of those that
// reported an error.
type Fetched struct {
	Records  [][]reconcile.Record
	Failures []reconcile.SourceKind
}

type Fetcher struct {
	logger *zap.Logger
}

func NewFetcher(logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{logger: logger}
}

// FetchAll queries every source at once. A failing source is logged and
// never aborts the others. It contributes nothing, except for pages it had
// already collected before a later page failed.
func (f *Fetcher) FetchAll(ctx context.Context, barID int64, window reconcile.Window, sources ...Source) Fetched {
	results := make([][]reconcile.Record, len(sources))
	failed := make([]bool, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			records, err := src.Fetch(ctx, barID, window)
			if err != nil {
				failed[i] = true
				results[i] = records
				sourceFailures.WithLabelValues(string(src.Name())).Inc()
				f.logger.Warn("source fetch failed",
					zap.String("source", string(src.Name())),
					zap.Int64("barId", barID),
					zap.String("start", string(window.Start)),
					zap.String("end", string(window.End)),
					zap.Int("partialRows", len(records)),
					zap.Error(err),
				)
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	out := Fetched{Records: make([][]reconcile.Record, 0, len(sources))}
	for i, src := range sources {
		if failed[i] {
			out.Failures = append(out.Failures, src.Name())
		}
		if len(results[i]) > 0 {
			out.Records = append(out.Records, results[i])
		}
	}
	return out
}

// Failures from several fetches, deduplicated in first-seen order.
func mergeFailures(groups ...[]reconcile.SourceKind) []reconcile.SourceKind {
	seen := map[reconcile.SourceKind]struct{}{}
	var out []reconcile.SourceKind
	for _, group := range groups {
		for _, kind := range group {
			if _, ok := seen[kind]; ok {
				continue
			}
			seen[kind] = struct{}{}
			out = append(out, kind)
		}
	}
	return out
}
