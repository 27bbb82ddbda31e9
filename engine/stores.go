// ABOUTME: Storage contracts consumed by the deal lifecycle engine
// ABOUTME: Deal, activity/session and task stores plus a unit-of-work boundary
package engine

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
)

// DealStore persists deals. GetDeal returns (nil, nil) when the deal does not exist.
type DealStore interface {
	GetDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	UpsertDeal(ctx context.Context, deal *models.Deal) error
	ListDeals(ctx context.Context, filter models.DealFilter) ([]models.Deal, error)
}

// ActivityStore persists a deal's interaction history and browsing sessions.
type ActivityStore interface {
	GetActivities(ctx context.Context, dealID uuid.UUID) ([]models.ActivityRecord, error)
	GetSessionAggregate(ctx context.Context, dealID uuid.UUID) (models.SessionAggregate, error)
	RecordActivity(ctx context.Context, record *models.ActivityRecord) error

	// DeleteActivity reports false when no matching activity exists.
	DeleteActivity(ctx context.Context, dealID, activityID uuid.UUID) (bool, error)

	RecordSession(ctx context.Context, session *models.SessionRecord) error
}

// TaskStore persists follow-up tasks. CreateTask assigns the id and defaults.
type TaskStore interface {
	CreateTask(ctx context.Context, req models.TaskRequest) (*models.Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
}

// Store is the full persistence surface of the engine.
type Store interface {
	DealStore
	ActivityStore
	TaskStore

	// WithinTx runs fn against a store whose writes commit together. If fn
	// returns an error none of its writes are applied.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

func componentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return logger.With(slog.String("component", component))
}

// visibleTo reports whether an agent may see a record owned by ownerID.
// The system context sees everything.
func visibleTo(agent models.AgentContext, ownerID uuid.UUID) bool {
	return agent.IsSystem() || agent.AgentID == ownerID
}
