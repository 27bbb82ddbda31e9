// ABOUTME: Shared fixtures for engine tests
// ABOUTME: Temp SQLite stores and a store wrapper that injects persistence failures
package engine_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/db"
	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *db.Store {
	t.Helper()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	return db.NewStore(database)
}

func seedDeal(t *testing.T, store engine.Store, mutate func(*models.Deal)) *models.Deal {
	t.Helper()

	now := time.Now().UTC()
	name := "Sam"
	deal := &models.Deal{
		ID:                uuid.New(),
		LinkID:            uuid.New(),
		AgentID:           uuid.New(),
		Title:             "Riverside condos",
		Status:            models.StatusActive,
		Stage:             models.StageCreated,
		ClientName:        &name,
		ClientTemperature: models.TemperatureCold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if mutate != nil {
		mutate(deal)
	}

	require.NoError(t, store.UpsertDeal(context.Background(), deal))
	return deal
}

// failingStore fails the named operation, optionally only for one deal.
type failingStore struct {
	engine.Store
	failOn string
	dealID uuid.UUID
	err    error
}

func (f *failingStore) fails(op string, dealID uuid.UUID) bool {
	if f.failOn != op {
		return false
	}
	return f.dealID == uuid.Nil || f.dealID == dealID
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(tx engine.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx engine.Store) error {
		return fn(&failingStore{Store: tx, failOn: f.failOn, dealID: f.dealID, err: f.err})
	})
}

func (f *failingStore) ListDeals(ctx context.Context, filter models.DealFilter) ([]models.Deal, error) {
	if f.fails("ListDeals", uuid.Nil) {
		return nil, f.err
	}
	return f.Store.ListDeals(ctx, filter)
}

func (f *failingStore) UpsertDeal(ctx context.Context, deal *models.Deal) error {
	if f.fails("UpsertDeal", deal.ID) {
		return f.err
	}
	return f.Store.UpsertDeal(ctx, deal)
}

func (f *failingStore) RecordActivity(ctx context.Context, record *models.ActivityRecord) error {
	if f.fails("RecordActivity", record.DealID) {
		return f.err
	}
	return f.Store.RecordActivity(ctx, record)
}

func (f *failingStore) CreateTask(ctx context.Context, req models.TaskRequest) (*models.Task, error) {
	if f.fails("CreateTask", req.DealID) {
		return nil, f.err
	}
	return f.Store.CreateTask(ctx, req)
}
