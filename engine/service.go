// ABOUTME: Service surface of the deal lifecycle engine
// ABOUTME: Agent-scoped library calls for deals, engagement, sessions, tasks and follow-up runs
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
	"github.com/harperreed/dealpulse/pipeline"
	"github.com/harperreed/dealpulse/scoring"
)

// CommissionRate is the share of summed property prices booked as deal value.
const CommissionRate = 0.03

// Service is the entry point callers use. Every call carries the agent it
// acts for; the system context acts for all agents.
type Service struct {
	store        Store
	orchestrator *Orchestrator
	scheduler    *Scheduler
	log          *slog.Logger
	now          func() time.Time
}

// NewService wires the orchestrator and scheduler over one store. They all
// read the scheduler clock, so WithClock moves every timestamp together.
func NewService(store Store, logger *slog.Logger, opts ...SchedulerOption) *Service {
	scheduler := NewScheduler(store, logger, opts...)
	orchestrator := NewOrchestrator(store, logger)
	orchestrator.now = scheduler.Now

	return &Service{
		store:        store,
		orchestrator: orchestrator,
		scheduler:    scheduler,
		log:          componentLogger(logger, "service"),
		now:          scheduler.Now,
	}
}

// Reconciliation compares a deal's stage with the one its engagement
// snapshot implies.
type Reconciliation struct {
	DealID         uuid.UUID          `json:"deal_id"`
	CurrentStage   models.DealStage   `json:"current_stage"`
	SnapshotStage  models.DealStage   `json:"snapshot_stage"`
	SnapshotStatus *models.DealStatus `json:"snapshot_status,omitempty"`
	Diverges       bool               `json:"diverges"`
}

// DealValue returns the rounded commission on the summed property prices.
func DealValue(properties []models.Property) int64 {
	var total float64
	for _, p := range properties {
		total += p.Price
	}
	return int64(math.Round(total * CommissionRate))
}

// CreateDealFromLink opens a deal for a shared collection. The deal belongs
// to the link's agent, falling back to the calling agent.
func (s *Service) CreateDealFromLink(ctx context.Context, agent models.AgentContext, link models.Link, properties []models.Property, client *models.ClientInfo) (*models.Deal, error) {
	agentID := link.AgentID
	if agentID == uuid.Nil {
		agentID = agent.AgentID
	}
	if agentID == uuid.Nil {
		return nil, &models.ValidationError{Field: "agent_id", Message: "is required"}
	}
	if !visibleTo(agent, agentID) {
		return nil, &models.ValidationError{Field: "agent_id", Message: "link belongs to another agent"}
	}

	linkID := link.ID
	if linkID == uuid.Nil {
		linkID = uuid.New()
	}
	title := strings.TrimSpace(link.Name)
	if title == "" {
		title = "Shared collection"
	}

	now := s.now()
	deal := &models.Deal{
		ID:                uuid.New(),
		LinkID:            linkID,
		AgentID:           agentID,
		Title:             title,
		Status:            models.StatusActive,
		Stage:             models.StageCreated,
		Value:             DealValue(properties),
		PropertyCount:     len(properties),
		EngagementScore:   0,
		ClientTemperature: models.TemperatureCold,
		Tags:              append([]string(nil), link.Tags...),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if client != nil {
		deal.ClientID = optional(client.ID)
		deal.ClientName = optional(client.Name)
		deal.ClientEmail = optional(client.Email)
		deal.ClientPhone = optional(client.Phone)
	}

	if err := s.store.UpsertDeal(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to create deal for link %s: %w", linkID, err)
	}

	s.log.Info("deal created",
		slog.String("deal_id", deal.ID.String()),
		slog.String("agent_id", agentID.String()),
		slog.Int64("value", deal.Value),
		slog.Int("properties", deal.PropertyCount))
	return deal, nil
}

// GetDeal returns the deal, or nil when it is absent or not visible to agent.
func (s *Service) GetDeal(ctx context.Context, agent models.AgentContext, id uuid.UUID) (*models.Deal, error) {
	deal, err := s.store.GetDeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get deal %s: %w", id, err)
	}
	if deal == nil || !visibleTo(agent, deal.AgentID) {
		return nil, nil
	}
	return deal, nil
}

// ListDeals lists the agent's deals. Non-system agents only see their own.
func (s *Service) ListDeals(ctx context.Context, agent models.AgentContext, filter models.DealFilter) ([]models.Deal, error) {
	if !agent.IsSystem() {
		filter.AgentID = agent.AgentID
	}
	deals, err := s.store.ListDeals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	return deals, nil
}

// ProgressDealStage moves a deal forward in the pipeline.
func (s *Service) ProgressDealStage(ctx context.Context, agent models.AgentContext, id uuid.UUID, stage models.DealStage) (*models.Deal, error) {
	return s.mutateDeal(ctx, agent, id, func(deal *models.Deal) error {
		return pipeline.ProgressStage(deal, stage)
	})
}

// UpdateDealStatus applies a status change from the allow-list.
func (s *Service) UpdateDealStatus(ctx context.Context, agent models.AgentContext, id uuid.UUID, status models.DealStatus) (*models.Deal, error) {
	return s.mutateDeal(ctx, agent, id, func(deal *models.Deal) error {
		return pipeline.UpdateStatus(deal, status)
	})
}

// ProcessEngagementEvent feeds one client interaction through the orchestrator.
func (s *Service) ProcessEngagementEvent(ctx context.Context, agent models.AgentContext, id uuid.UUID, event models.EngagementEvent) (*ProcessResult, error) {
	return s.orchestrator.ProcessEvent(ctx, agent, id, event)
}

// ScheduleEngagementFollowUps runs the follow-up scheduler for the agent.
func (s *Service) ScheduleEngagementFollowUps(ctx context.Context, agent models.AgentContext) (*ScheduleResult, error) {
	return s.scheduler.Schedule(ctx, agent)
}

// PreviewFollowUps returns the plans the next scheduler run would act on,
// most urgent first, without creating tasks.
func (s *Service) PreviewFollowUps(ctx context.Context, agent models.AgentContext) ([]FollowUpPlan, error) {
	deals, err := s.ListDeals(ctx, agent, models.DealFilter{})
	if err != nil {
		return nil, err
	}

	now := s.scheduler.Now()
	var plans []FollowUpPlan
	for i := range deals {
		if plan, ok := s.scheduler.Plan(&deals[i], now); ok {
			plans = append(plans, plan)
		}
	}
	sortPlans(plans)
	return plans, nil
}

// ReconcileDeal previews the snapshot stage for a deal without saving it.
// Returns nil when the deal is absent.
func (s *Service) ReconcileDeal(ctx context.Context, agent models.AgentContext, id uuid.UUID) (*Reconciliation, error) {
	deal, err := s.GetDeal(ctx, agent, id)
	if err != nil || deal == nil {
		return nil, err
	}

	stage, status := pipeline.DeriveSnapshot(deal)
	return &Reconciliation{
		DealID:         deal.ID,
		CurrentStage:   deal.Stage,
		SnapshotStage:  stage,
		SnapshotStatus: status,
		Diverges:       stage != deal.Stage || (status != nil && *status != deal.Status),
	}, nil
}

// RecordSession stores a browsing session and re-scores the deal with the
// new session total.
func (s *Service) RecordSession(ctx context.Context, agent models.AgentContext, id uuid.UUID, durationSeconds float64) (*models.Deal, error) {
	if durationSeconds < 0 || math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) {
		return nil, &models.ValidationError{Field: "duration_seconds", Message: "must be a non-negative number"}
	}

	return s.rescoreDeal(ctx, agent, id, func(tx Store, deal *models.Deal, now time.Time) error {
		session := &models.SessionRecord{
			ID:              uuid.New(),
			DealID:          deal.ID,
			DurationSeconds: durationSeconds,
			StartedAt:       now,
		}
		if err := tx.RecordSession(ctx, session); err != nil {
			return fmt.Errorf("failed to record session for deal %s: %w", deal.ID, err)
		}
		deal.LastActivityAt = &now
		return nil
	})
}

// UndoActivity removes one recorded activity and re-scores the deal from
// the remaining history. The stage is left where it is.
func (s *Service) UndoActivity(ctx context.Context, agent models.AgentContext, dealID, activityID uuid.UUID) (*models.Deal, error) {
	return s.rescoreDeal(ctx, agent, dealID, func(tx Store, deal *models.Deal, _ time.Time) error {
		deleted, err := tx.DeleteActivity(ctx, dealID, activityID)
		if err != nil {
			return fmt.Errorf("failed to delete activity %s: %w", activityID, err)
		}
		if !deleted {
			return fmt.Errorf("activity %s on deal %s: %w", activityID, dealID, models.ErrNotFound)
		}
		return nil
	})
}

// CreateManualTask adds an agent-authored task to a deal.
func (s *Service) CreateManualTask(ctx context.Context, agent models.AgentContext, dealID uuid.UUID, spec models.TaskSpec) (*models.Task, error) {
	req := models.TaskRequest{DealID: dealID, AgentID: agent.AgentID, Spec: spec, CreatedAt: s.now()}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	deal, err := s.GetDeal(ctx, agent, dealID)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, fmt.Errorf("deal %s: %w", dealID, models.ErrNotFound)
	}
	if req.AgentID == uuid.Nil {
		req.AgentID = deal.AgentID
	}

	task, err := s.store.CreateTask(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create task for deal %s: %w", dealID, err)
	}
	return task, nil
}

// ListTasks lists tasks visible to the agent.
func (s *Service) ListTasks(ctx context.Context, agent models.AgentContext, filter models.TaskFilter) ([]models.Task, error) {
	if !agent.IsSystem() {
		filter.AgentID = agent.AgentID
	}
	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTaskStatus moves a task through its workflow.
func (s *Service) UpdateTaskStatus(ctx context.Context, agent models.AgentContext, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	if task == nil || !visibleTo(agent, task.AgentID) {
		return nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}

	if err := task.TransitionStatus(status, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", id, err)
	}
	return task, nil
}

// mutateDeal loads a deal, applies fn and saves it in one unit of work.
func (s *Service) mutateDeal(ctx context.Context, agent models.AgentContext, id uuid.UUID, fn func(*models.Deal) error) (*models.Deal, error) {
	var updated *models.Deal
	err := s.store.WithinTx(ctx, func(tx Store) error {
		deal, err := tx.GetDeal(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get deal %s: %w", id, err)
		}
		if deal == nil || !visibleTo(agent, deal.AgentID) {
			return fmt.Errorf("deal %s: %w", id, models.ErrNotFound)
		}

		if err := fn(deal); err != nil {
			return err
		}

		deal.UpdatedAt = s.now()
		if err := tx.UpsertDeal(ctx, deal); err != nil {
			return fmt.Errorf("failed to save deal %s: %w", id, err)
		}
		updated = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// rescoreDeal runs fn then recomputes score and temperature from the stored
// history and session totals.
func (s *Service) rescoreDeal(ctx context.Context, agent models.AgentContext, id uuid.UUID, fn func(tx Store, deal *models.Deal, now time.Time) error) (*models.Deal, error) {
	var updated *models.Deal
	err := s.store.WithinTx(ctx, func(tx Store) error {
		deal, err := tx.GetDeal(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get deal %s: %w", id, err)
		}
		if deal == nil || !visibleTo(agent, deal.AgentID) {
			return fmt.Errorf("deal %s: %w", id, models.ErrNotFound)
		}

		now := s.now()
		if err := fn(tx, deal, now); err != nil {
			return err
		}

		history, err := tx.GetActivities(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load activities for deal %s: %w", id, err)
		}
		sessions, err := tx.GetSessionAggregate(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load sessions for deal %s: %w", id, err)
		}

		scoring.Apply(deal, scoring.Score(history, sessions.TotalTimeSpent))
		deal.SessionCount = sessions.SessionCount
		deal.TotalTimeSpent = sessions.TotalTimeSpent
		deal.UpdatedAt = now

		if err := tx.UpsertDeal(ctx, deal); err != nil {
			return fmt.Errorf("failed to save deal %s: %w", id, err)
		}
		updated = deal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
