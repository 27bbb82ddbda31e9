// ABOUTME: Event orchestrator applying one client interaction to a deal
// ABOUTME: Scores, nudges the stage, generates tasks and persists everything in one unit of work
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
	"github.com/harperreed/dealpulse/pipeline"
	"github.com/harperreed/dealpulse/rules"
	"github.com/harperreed/dealpulse/scoring"
)

// TaskGenerationThreshold is the score increase above which an event
// generates tasks even when the stage does not move.
const TaskGenerationThreshold = 10

// ProcessResult reports what a single event did to a deal. A nil Deal means
// the deal was not found and nothing was changed.
type ProcessResult struct {
	Deal          *models.Deal   `json:"deal"`
	ScoreUpdated  bool           `json:"score_updated"`
	NewTasksCount int            `json:"new_tasks_count"`
	StageChanged  bool           `json:"stage_changed"`
	Trigger       models.Trigger `json:"trigger,omitempty"`
	Tasks         []models.Task  `json:"tasks,omitempty"`
}

// Orchestrator coordinates the scorer, pipeline and rule engine for
// engagement events.
type Orchestrator struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

// NewOrchestrator wires an orchestrator over store. A nil logger discards output.
func NewOrchestrator(store Store, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store: store,
		log:   componentLogger(logger, "orchestrator"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeAction maps swipe-session actions onto the activity vocabulary
// used for scoring. Activity actions pass through unchanged.
func NormalizeAction(action string) models.ActivityAction {
	switch action {
	case models.EventView, models.EventDetail, models.EventConsider:
		return models.ActionPropertyViewed
	case models.EventLike:
		return models.ActionPropertyLiked
	case models.EventShare:
		return models.ActionPropertyShared
	default:
		return models.ActivityAction(action)
	}
}

// ProcessEvent applies event to the deal. A missing deal, or one the agent
// cannot see, yields a neutral result and no error. Any persistence failure
// rolls back every write for the event.
func (o *Orchestrator) ProcessEvent(ctx context.Context, agent models.AgentContext, dealID uuid.UUID, event models.EngagementEvent) (*ProcessResult, error) {
	if event.Action == "" {
		return nil, &models.ValidationError{Field: "action", Message: "is required"}
	}

	var result *ProcessResult
	err := o.store.WithinTx(ctx, func(tx Store) error {
		var err error
		result, err = o.apply(ctx, tx, agent, dealID, event)
		return err
	})
	if err != nil {
		o.log.Error("event not applied",
			slog.String("deal_id", dealID.String()),
			slog.String("action", event.Action),
			slog.Any("error", err))
		return nil, err
	}

	if result.Deal != nil {
		o.log.Info("event applied",
			slog.String("deal_id", dealID.String()),
			slog.String("action", event.Action),
			slog.Int("score", result.Deal.EngagementScore),
			slog.String("stage", string(result.Deal.Stage)),
			slog.Int("new_tasks", result.NewTasksCount))
	}
	return result, nil
}

func (o *Orchestrator) apply(ctx context.Context, tx Store, agent models.AgentContext, dealID uuid.UUID, event models.EngagementEvent) (*ProcessResult, error) {
	deal, err := tx.GetDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deal %s: %w", dealID, err)
	}
	if deal == nil || !visibleTo(agent, deal.AgentID) {
		o.log.Debug("event for unknown deal ignored", slog.String("deal_id", dealID.String()))
		return &ProcessResult{}, nil
	}

	history, err := tx.GetActivities(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load activities for deal %s: %w", dealID, err)
	}
	sessions, err := tx.GetSessionAggregate(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions for deal %s: %w", dealID, err)
	}

	now := o.now()
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	record := models.ActivityRecord{
		ID:         uuid.New(),
		DealID:     dealID,
		Action:     NormalizeAction(event.Action),
		Metadata:   event.Metadata,
		OccurredAt: occurredAt,
	}
	history = append(history, record)

	previousScore := deal.EngagementScore
	previousStage := deal.Stage

	if target, ok := pipeline.EventStage(deal.Stage, event.Action); ok {
		if err := pipeline.ProgressStage(deal, target); err != nil {
			return nil, err
		}
	}

	score := scoring.Score(history, sessions.TotalTimeSpent)
	scoring.Apply(deal, score)
	deal.SessionCount = sessions.SessionCount
	deal.TotalTimeSpent = sessions.TotalTimeSpent
	deal.LastActivityAt = &occurredAt
	if event.ClientID != nil && deal.ClientID == nil {
		deal.ClientID = event.ClientID
	}

	result := &ProcessResult{
		Deal:         deal,
		ScoreUpdated: score != previousScore,
		StageChanged: deal.Stage != previousStage,
	}

	if err := tx.RecordActivity(ctx, &record); err != nil {
		return nil, fmt.Errorf("failed to record activity for deal %s: %w", dealID, err)
	}

	// Closed deals still record engagement but get no new work.
	if !deal.Status.IsClosed() && (score-previousScore > TaskGenerationThreshold || result.StageChanged) {
		trigger, ok := rules.ResolveEventTrigger(event.Action, deal, countLikes(history))
		if ok {
			tasks, err := createTasks(ctx, tx, deal, rules.GenerateTasks(string(trigger), deal), now)
			if err != nil {
				return nil, err
			}
			result.Trigger = trigger
			result.Tasks = tasks
			result.NewTasksCount = len(tasks)
		}
	}

	deal.UpdatedAt = now
	if err := tx.UpsertDeal(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to save deal %s: %w", dealID, err)
	}

	return result, nil
}

func countLikes(history []models.ActivityRecord) int {
	likes := 0
	for _, activity := range history {
		if activity.Action == models.ActionPropertyLiked {
			likes++
		}
	}
	return likes
}

// createTasks persists rule engine output as automated tasks owned by the
// deal's agent, with due dates counted from now.
func createTasks(ctx context.Context, tx TaskStore, deal *models.Deal, specs []models.TaskSpec, now time.Time) ([]models.Task, error) {
	tasks := make([]models.Task, 0, len(specs))
	for _, spec := range specs {
		req := models.TaskRequest{
			DealID:    deal.ID,
			AgentID:   deal.AgentID,
			Spec:      spec,
			Automated: true,
			CreatedAt: now,
		}
		if err := req.Validate(); err != nil {
			return nil, err
		}
		task, err := tx.CreateTask(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s task for deal %s: %w", spec.Type, deal.ID, err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

// earliestDue returns the soonest due date among tasks, or nil if none has one.
func earliestDue(tasks []models.Task) *time.Time {
	var earliest *time.Time
	for i := range tasks {
		due := tasks[i].DueDate
		if due == nil {
			continue
		}
		if earliest == nil || due.Before(*earliest) {
			d := *due
			earliest = &d
		}
	}
	return earliest
}
