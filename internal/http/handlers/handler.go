package handlers

import (
	"context"

	"barmetrics-service/internal/config"
	"barmetrics-service/internal/evolution"
	"barmetrics-service/internal/paymentqueue"
	"barmetrics-service/internal/queue"
	"barmetrics-service/internal/reconcile"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EvolutionService interface {
	Evolution(ctx context.Context, req evolution.Request) (evolution.Result, error)
}

type GoalLoader interface {
	Load(ctx context.Context, barID int64) (reconcile.GoalConfig, error)
}

type RecomputeDispatcher interface {
	Dispatch(ctx context.Context, job queue.RecomputeJob) (bool, error)
}

type PaymentQueue interface {
	List(ctx context.Context, barID int64) (paymentqueue.Snapshot, error)
	Add(ctx context.Context, barID int64, in paymentqueue.NewItem) (paymentqueue.Item, error)
	Remove(ctx context.Context, barID int64, id uuid.UUID) error
	Clear(ctx context.Context, barID int64) error
}

type Handler struct {
	Evolution EvolutionService
	Goals     GoalLoader
	Recompute RecomputeDispatcher
	Payments  PaymentQueue
	Logger    *zap.Logger
	Config    config.Config

	validate *validator.Validate
}

func New(cfg config.Config, logger *zap.Logger, evo EvolutionService, goals GoalLoader, recompute RecomputeDispatcher, payments PaymentQueue) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Evolution: evo,
		Goals:     goals,
		Recompute: recompute,
		Payments:  payments,
		Logger:    logger,
		Config:    cfg,
		validate:  newValidator(),
	}
}
