package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"barmetrics-service/internal/reconcile"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	EventsExchange   = "barmetrics.events"
	RecomputeQueue   = "barmetrics.recompute"
	RecomputeDLQ     = "barmetrics.recompute.dlq"
	RecomputeRK      = "metricas.recalcular"
	DeadExchange     = "barmetrics.dead"
	RecomputeDeadRK  = "recompute.dead"
	RecomputeRetries = 5
	RecomputeDelay   = 5 * time.Second
)

var ErrInvalidJob = errors.New("invalid recompute job")

// RecomputeJob asks for a bar's cached series to be dropped and rebuilt
// for a window.
type RecomputeJob struct {
	BarID       int64                 `json:"bar_id"`
	Start       reconcile.CalendarDay `json:"data_inicio"`
	End         reconcile.CalendarDay `json:"data_fim"`
	RequestedAt time.Time             `json:"requested_at"`
}

func (j RecomputeJob) Validate() error {
	if j.BarID <= 0 {
		return fmt.Errorf("%w: bar_id must be positive", ErrInvalidJob)
	}
	window := reconcile.Window{Start: j.Start, End: j.End}
	if !window.Valid() {
		return fmt.Errorf("%w: window %s..%s", ErrInvalidJob, j.Start, j.End)
	}
	return nil
}

func DecodeRecomputeJob(body []byte) (RecomputeJob, error) {
	var job RecomputeJob
	if err := json.Unmarshal(body, &job); err != nil {
		return RecomputeJob{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return job, job.Validate()
}

// EnsureRecomputeTopology declares the events exchange, the work queue
// bound to it and a dead-letter queue for jobs that exhausted retries.
func EnsureRecomputeTopology(qc *Client) error {
	if qc == nil {
		return nil
	}
	if err := qc.EnsureExchange(EventsExchange, amqp.ExchangeTopic); err != nil {
		return err
	}
	if err := qc.EnsureExchange(DeadExchange, amqp.ExchangeDirect); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(RecomputeDLQ, nil); err != nil {
		return err
	}
	if err := qc.BindQueue(RecomputeDLQ, DeadExchange, RecomputeDeadRK); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(RecomputeQueue, amqp.Table{
		"x-dead-letter-exchange":    DeadExchange,
		"x-dead-letter-routing-key": RecomputeDeadRK,
	}); err != nil {
		return err
	}
	return qc.BindQueue(RecomputeQueue, EventsExchange, RecomputeRK)
}

// Recomputer is the part of the evolution service a job drives.
type Recomputer interface {
	Invalidate(ctx context.Context, barID int64) error
	Warm(ctx context.Context, barID int64, start, end reconcile.CalendarDay) error
}

// Dispatcher publishes recompute jobs, or runs them inline when no broker
// is configured.
type Dispatcher struct {
	client *Client
	target Recomputer
	log    *zap.Logger
}

func NewDispatcher(client *Client, target Recomputer, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{client: client, target: target, log: log}
}

// Dispatch reports whether the job was queued (true) or already executed.
func (d *Dispatcher) Dispatch(ctx context.Context, job RecomputeJob) (bool, error) {
	if err := job.Validate(); err != nil {
		return false, err
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = time.Now().UTC()
	}
	if d.client != nil {
		if err := d.client.PublishJSON(ctx, EventsExchange, RecomputeRK, job); err != nil {
			return false, fmt.Errorf("publish recompute job: %w", err)
		}
		return true, nil
	}
	return false, RunRecompute(ctx, d.target, job, d.log)
}

func RunRecompute(ctx context.Context, target Recomputer, job RecomputeJob, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if err := target.Invalidate(ctx, job.BarID); err != nil {
		return fmt.Errorf("invalidate bar %d: %w", job.BarID, err)
	}
	started := time.Now()
	if err := target.Warm(ctx, job.BarID, job.Start, job.End); err != nil {
		return fmt.Errorf("warm bar %d: %w", job.BarID, err)
	}
	log.Info("series recomputed",
		zap.Int64("barId", job.BarID),
		zap.String("start", string(job.Start)),
		zap.String("end", string(job.End)),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

// RecomputeHandler adapts RunRecompute to the consumer. Undecodable jobs
// are acknowledged and logged since retrying cannot fix them.
func RecomputeHandler(target Recomputer, log *zap.Logger) HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, body []byte) error {
		job, err := DecodeRecomputeJob(body)
		if err != nil {
			log.Error("discarding recompute job", zap.ByteString("body", body), zap.Error(err))
			return nil
		}
		return RunRecompute(ctx, target, job, log)
	}
}
