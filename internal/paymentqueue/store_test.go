package paymentqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"barmetrics-service/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *storage.Memory) {
	blobs := storage.NewMemory()
	s := NewStore(blobs, "pq", nil)
	s.now = func() time.Time { return time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC) }
	return s, blobs
}

func sample(supplier string) NewItem {
	return NewItem{
		Supplier: supplier,
		Amount:   decimal.RequireFromString("1250.90"),
		DueDate:  "2025-02-15",
		Category: "bebidas",
	}
}

func TestAddListRemove(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestStore()

	first, err := s.Add(ctx, 1, sample("Ambev"))
	require.NoError(t, err)
	_, err = s.Add(ctx, 1, sample("Heineken"))
	require.NoError(t, err)

	snap, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)
	require.NotNil(t, snap.SavedAt)
	assert.Equal(t, "Ambev", snap.Items[0].Supplier)

	raw, err := blobs.Get(ctx, "pq/1/pagamentos_agendados.json")
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "1.0", env.Version)

	stamp, err := blobs.Get(ctx, "pq/1/pagamentos_agendados_saved_at")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-10T12:00:00Z", string(stamp))

	require.NoError(t, s.Remove(ctx, 1, first.ID))
	assert.ErrorIs(t, s.Remove(ctx, 1, first.ID), ErrItemNotFound)

	snap, err = s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Heineken", snap.Items[0].Supplier)

	// bars are isolated
	other, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}

func TestBackupHoldsPreviousVersion(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestStore()

	_, err := s.Add(ctx, 1, sample("Ambev"))
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx, 1))

	raw, err := blobs.Get(ctx, "pq/1/pagamentos_agendados_backup.json")
	require.NoError(t, err)
	env, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.Len(t, env.Items, 1)
}

func TestCorruptQueueFallsBackToBackup(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestStore()

	_, err := s.Add(ctx, 1, sample("Ambev"))
	require.NoError(t, err)
	_, err = s.Add(ctx, 1, sample("Heineken"))
	require.NoError(t, err)
	require.NoError(t, blobs.Put(ctx, "pq/1/pagamentos_agendados.json", []byte("{broken"), ""))

	snap, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Ambev", snap.Items[0].Supplier)

	// a write after recovery must not overwrite the good backup with garbage
	_, err = s.Add(ctx, 1, sample("Brahma"))
	require.NoError(t, err)
	raw, err := blobs.Get(ctx, "pq/1/pagamentos_agendados_backup.json")
	require.NoError(t, err)
	_, err = decodeEnvelope(raw)
	assert.NoError(t, err)
}

func TestCorruptQueueWithoutBackup(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestStore()
	require.NoError(t, blobs.Put(ctx, "pq/1/pagamentos_agendados.json", []byte(`{"version":"0.1","items":[]}`), ""))

	_, err := s.List(ctx, 1)
	assert.ErrorIs(t, err, ErrQueueCorrupt)
	_, err = s.Add(ctx, 1, sample("Ambev"))
	assert.ErrorIs(t, err, ErrQueueCorrupt)
}

func TestLegacyMigrationRunsOnce(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestStore()
	legacy := `[{"fornecedor":"Ambev","valor":"300","vencimento":"2025-02-20","categoria":"bebidas"}]`
	require.NoError(t, blobs.Put(ctx, "pq/1/lista_pagamentos.json", []byte(legacy), ""))

	snap, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.NotEqual(t, uuid.Nil, snap.Items[0].ID)
	assert.Equal(t, "300", snap.Items[0].Amount.String())

	_, err = blobs.Get(ctx, "pq/1/lista_pagamentos.json")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	again, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, snap.Items[0].ID, again.Items[0].ID)
}

func TestAddValidation(t *testing.T) {
	s, _ := newTestStore()
	cases := map[string]NewItem{
		"zero amount":      {Supplier: "A", Amount: decimal.Zero, DueDate: "2025-02-01", Category: "x"},
		"negative amount":  {Supplier: "A", Amount: decimal.NewFromInt(-5), DueDate: "2025-02-01", Category: "x"},
		"missing supplier": {Supplier: "  ", Amount: decimal.NewFromInt(5), DueDate: "2025-02-01", Category: "x"},
		"bad due date":     {Supplier: "A", Amount: decimal.NewFromInt(5), DueDate: "amanha", Category: "x"},
		"missing category": {Supplier: "A", Amount: decimal.NewFromInt(5), DueDate: "2025-02-01"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Add(context.Background(), 1, in)
			assert.ErrorIs(t, err, ErrInvalidItem)
		})
	}
}
