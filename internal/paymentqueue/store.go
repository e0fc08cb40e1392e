// Package paymentqueue keeps each bar's list of scheduled supplier payments
// in a blob store. The list is always read and written whole.
package paymentqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"

	"barmetrics-service/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EnvelopeVersion = "1.0"

	currentKey = "pagamentos_agendados.json"
	backupKey  = "pagamentos_agendados_backup.json"
	savedAtKey = "pagamentos_agendados_saved_at"
	legacyKey  = "lista_pagamentos.json"
)

var (
	ErrQueueCorrupt = errors.New("payment queue is corrupt and no usable backup exists")
	ErrItemNotFound = errors.New("payment item not found")
)

type envelope struct {
	Version string    `json:"version"`
	Items   []Item    `json:"items"`
	SavedAt time.Time `json:"saved_at"`
}

type Snapshot struct {
	Items   []Item     `json:"items"`
	SavedAt *time.Time `json:"saved_at,omitempty"`
}

// Store serializes every mutation through one mutex, so a single process
// is the only writer of a bar's queue.
type Store struct {
	blobs    storage.BlobStore
	prefix   string
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time
	mu       sync.Mutex
}

func NewStore(blobs storage.BlobStore, prefix string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if prefix == "" {
		prefix = "payment-queue"
	}
	return &Store{
		blobs:    blobs,
		prefix:   prefix,
		validate: NewValidator(),
		log:      log,
		now:      time.Now,
	}
}

func (s *Store) key(barID int64, name string) string {
	return path.Join(s.prefix, strconv.FormatInt(barID, 10), name)
}

func (s *Store) List(ctx context.Context, barID int64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, _, err := s.load(ctx, barID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Items: env.Items}
	if !env.SavedAt.IsZero() {
		savedAt := env.SavedAt
		snap.SavedAt = &savedAt
	}
	return snap, nil
}

func (s *Store) Add(ctx context.Context, barID int64, in NewItem) (Item, error) {
	item, err := in.build(s.validate, s.now())
	if err != nil {
		return Item{}, err
	}
	err = s.mutate(ctx, barID, func(items []Item) ([]Item, error) {
		return append(items, item), nil
	})
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *Store) Remove(ctx context.Context, barID int64, id uuid.UUID) error {
	return s.mutate(ctx, barID, func(items []Item) ([]Item, error) {
		for i, item := range items {
			if item.ID == id {
				return append(items[:i:i], items[i+1:]...), nil
			}
		}
		return nil, ErrItemNotFound
	})
}

func (s *Store) Clear(ctx context.Context, barID int64) error {
	return s.mutate(ctx, barID, func([]Item) ([]Item, error) {
		return []Item{}, nil
	})
}

func (s *Store) mutate(ctx context.Context, barID int64, fn func([]Item) ([]Item, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, previous, err := s.load(ctx, barID)
	if err != nil {
		return err
	}
	items, err := fn(env.Items)
	if err != nil {
		return err
	}
	return s.save(ctx, barID, items, previous)
}

// load reads the current envelope. previous holds the raw bytes of a valid
// current envelope, nil when the queue was empty or restored from backup.
func (s *Store) load(ctx context.Context, barID int64) (envelope, []byte, error) {
	raw, err := s.blobs.Get(ctx, s.key(barID, currentKey))
	if errors.Is(err, storage.ErrNotFound) {
		env, err := s.migrateLegacy(ctx, barID)
		return env, nil, err
	}
	if err != nil {
		return envelope{}, nil, fmt.Errorf("read payment queue: %w", err)
	}

	env, err := decodeEnvelope(raw)
	if err == nil {
		return env, raw, nil
	}
	s.log.Warn("payment queue unreadable; restoring backup", zap.Int64("barId", barID), zap.Error(err))

	backup, berr := s.blobs.Get(ctx, s.key(barID, backupKey))
	if berr != nil {
		return envelope{}, nil, ErrQueueCorrupt
	}
	env, berr = decodeEnvelope(backup)
	if berr != nil {
		return envelope{}, nil, ErrQueueCorrupt
	}
	return env, nil, nil
}

// migrateLegacy moves a bare item list stored under the old key to the
// current envelope format, once.
func (s *Store) migrateLegacy(ctx context.Context, barID int64) (envelope, error) {
	legacy := s.key(barID, legacyKey)
	raw, err := s.blobs.Get(ctx, legacy)
	if errors.Is(err, storage.ErrNotFound) {
		return envelope{Version: EnvelopeVersion, Items: []Item{}}, nil
	}
	if err != nil {
		return envelope{}, fmt.Errorf("read legacy payment queue: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.Warn("legacy payment queue unreadable; starting empty", zap.Int64("barId", barID), zap.Error(err))
		items = []Item{}
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	if err := s.save(ctx, barID, items, nil); err != nil {
		return envelope{}, err
	}
	if err := s.blobs.Delete(ctx, legacy); err != nil {
		s.log.Warn("legacy payment queue not deleted", zap.Int64("barId", barID), zap.Error(err))
	}
	s.log.Info("payment queue migrated", zap.Int64("barId", barID), zap.Int("items", len(items)))
	return envelope{Version: EnvelopeVersion, Items: items}, nil
}

func (s *Store) save(ctx context.Context, barID int64, items []Item, previous []byte) error {
	if previous != nil {
		if err := s.blobs.Put(ctx, s.key(barID, backupKey), previous, "application/json"); err != nil {
			return fmt.Errorf("write payment queue backup: %w", err)
		}
	}
	if items == nil {
		items = []Item{}
	}
	savedAt := s.now().UTC()
	raw, err := json.Marshal(envelope{Version: EnvelopeVersion, Items: items, SavedAt: savedAt})
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, s.key(barID, currentKey), raw, "application/json"); err != nil {
		return fmt.Errorf("write payment queue: %w", err)
	}
	stamp := []byte(savedAt.Format(time.RFC3339Nano))
	if err := s.blobs.Put(ctx, s.key(barID, savedAtKey), stamp, "text/plain"); err != nil {
		s.log.Warn("payment queue timestamp not written", zap.Int64("barId", barID), zap.Error(err))
	}
	return nil
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, err
	}
	if env.Version != EnvelopeVersion {
		return envelope{}, fmt.Errorf("unsupported version %q", env.Version)
	}
	if env.Items == nil {
		env.Items = []Item{}
	}
	return env, nil
}
