// ABOUTME: Tests for the event orchestrator
// ABOUTME: Covers scoring, stage nudges, task generation thresholds and rollback on persistence failure
package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func process(t *testing.T, orch *engine.Orchestrator, deal *models.Deal, action string) *engine.ProcessResult {
	t.Helper()
	result, err := orch.ProcessEvent(context.Background(), models.SystemAgent(), deal.ID, models.EngagementEvent{Action: action})
	require.NoError(t, err)
	return result
}

func TestProcessEventMissingDealIsNeutral(t *testing.T) {
	store := setupStore(t)
	orch := engine.NewOrchestrator(store, nil)

	result, err := orch.ProcessEvent(context.Background(), models.SystemAgent(), uuid.New(), models.EngagementEvent{Action: models.EventLike})
	require.NoError(t, err)
	assert.Nil(t, result.Deal)
	assert.False(t, result.ScoreUpdated)
	assert.False(t, result.StageChanged)
	assert.Zero(t, result.NewTasksCount)
}

func TestProcessEventOtherAgentIsNeutral(t *testing.T) {
	store := setupStore(t)
	orch := engine.NewOrchestrator(store, nil)
	deal := seedDeal(t, store, nil)

	stranger := models.AgentContext{AgentID: uuid.New()}
	result, err := orch.ProcessEvent(context.Background(), stranger, deal.ID, models.EngagementEvent{Action: models.EventLike})
	require.NoError(t, err)
	assert.Nil(t, result.Deal)

	history, err := store.GetActivities(context.Background(), deal.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestProcessEventRequiresAction(t *testing.T) {
	orch := engine.NewOrchestrator(setupStore(t), nil)

	_, err := orch.ProcessEvent(context.Background(), models.SystemAgent(), uuid.New(), models.EngagementEvent{})
	assert.True(t, models.IsValidation(err))
}

func TestLinkAccessedCreatesCheckInCall(t *testing.T) {
	store := setupStore(t)
	orch := engine.NewOrchestrator(store, nil)
	deal := seedDeal(t, store, nil)

	result := process(t, orch, deal, string(models.ActionLinkAccessed))

	assert.True(t, result.StageChanged)
	assert.True(t, result.ScoreUpdated)
	assert.Equal(t, models.StageAccessed, result.Deal.Stage)
	assert.Equal(t, 10, result.Deal.EngagementScore)
	assert.Equal(t, models.TriggerLinkAccessed, result.Trigger)
	require.Equal(t, 1, result.NewTasksCount)

	task := result.Tasks[0]
	assert.Equal(t, models.TaskTypeCall, task.Type)
	assert.True(t, task.IsAutomated)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, deal.AgentID, task.AgentID)
	require.NotNil(t, task.DueDate)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *task.DueDate, time.Hour)

	stored, err := store.GetDeal(context.Background(), deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageAccessed, stored.Stage)
	assert.Equal(t, 10, stored.EngagementScore)
	assert.NotNil(t, stored.LastActivityAt)

	tasks, err := store.ListTasks(context.Background(), models.TaskFilter{DealID: deal.ID})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	history, err := store.GetActivities(context.Background(), deal.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ActionLinkAccessed, history[0].Action)
}

func TestLikeMovesToEngagedWithoutTasks(t *testing.T) {
	store := setupStore(t)
	orch := engine.NewOrchestrator(store, nil)
	deal := seedDeal(t, store, nil)

	result := process(t, orch, deal, models.EventLike)

	assert.True(t, result.StageChanged)
	assert.Equal(t, models.StageEngaged, result.Deal.Stage)
	assert.Equal(t, 15, result.Deal.EngagementScore)
	assert.Equal(t, models.TemperatureCold, result.Deal.ClientTemperature)
	assert.Zero(t, result.NewTasksCount)

	history, err := store.GetActivities(context.Background(), deal.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ActionPropertyLiked, history[0].Action, "like is stored as property_liked")
}

func TestSecondLikeSchedulesShowing(t *testing.T) {
	store := setupStore(t)
	orch := engine.NewOrchestrator(store, nil)
	deal := seedDeal(t, store, nil)

	process(t, orch, deal, models.EventLike)
	result := process(t, orch, deal, models.EventLike)

	assert.False(t, result.StageChanged)
	assert.Equal(t, 30, result.Deal.EngagementScore)
	assert.Equal(t, models.TemperatureWarm, result.Deal.ClientTemperature)
	assert.Equal(t, models.TriggerMultipleLikes, result.Trigger)

	var types []models.TaskType
	for _, task := range result.Tasks {
		types = append(types, task.Type)
	}
	assert.Contains(t, types, models.TaskTypeShowing)
}

func TestHotLeadGetsUrgentCall(t *testing.T) {
	store := setupStore(t)
	orch := engine.NewOrchestrator(store, nil)
	deal := seedDeal(t, store, func(d *models.Deal) { d.Stage = models.StageEngaged })

	first := process(t, orch, deal, string(models.ActionContactFormSubmitted))
	assert.Zero(t, first.NewTasksCount, "a cold contact form has no rule")

	process(t, orch, deal, string(models.ActionContactFormSubmitted))
	result := process(t, orch, deal, string(models.ActionContactFormSubmitted))

	assert.Equal(t, 75, result.Deal.EngagementScore)
	assert.Equal(t, models.TemperatureHot, result.Deal.ClientTemperature)
	assert.Equal(t, models.TriggerHighEngagement, result.Trigger)

	var flagged bool
	for _, task := range result.Tasks {
		if strings.Contains(task.Title, "Hot Lead") {
			flagged = true
			assert.Equal(t, models.PriorityUrgent, task.Priority)
			assert.Equal(t, models.TaskTypeUrgentCall, task.Type)
		}
	}
	assert.True(t, flagged)
}

func TestClosedDealRecordsEngagementWithoutTasks(t *testing.T) {
	store := setupStore(t)
	orch := engine.NewOrchestrator(store, nil)
	deal := seedDeal(t, store, func(d *models.Deal) {
		d.Status = models.StatusClosedWon
		d.Stage = models.StageClosed
	})

	var result *engine.ProcessResult
	for i := 0; i < 3; i++ {
		result = process(t, orch, deal, string(models.ActionContactFormSubmitted))
		assert.Zero(t, result.NewTasksCount)
	}

	assert.Equal(t, 75, result.Deal.EngagementScore)
	assert.Equal(t, models.TemperatureHot, result.Deal.ClientTemperature)
	assert.Equal(t, models.StageClosed, result.Deal.Stage)
	assert.Empty(t, result.Trigger)

	tasks, err := store.ListTasks(context.Background(), models.TaskFilter{DealID: deal.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSmallScoreChangeCreatesNoTasks(t *testing.T) {
	store := setupStore(t)
	orch := engine.NewOrchestrator(store, nil)
	deal := seedDeal(t, store, func(d *models.Deal) { d.Stage = models.StageEngaged })

	result := process(t, orch, deal, models.EventView)

	assert.True(t, result.ScoreUpdated)
	assert.False(t, result.StageChanged)
	assert.Equal(t, 5, result.Deal.EngagementScore)
	assert.Zero(t, result.NewTasksCount)
}

func TestDetailQualifiesEngagedDeal(t *testing.T) {
	store := setupStore(t)
	orch := engine.NewOrchestrator(store, nil)
	deal := seedDeal(t, store, func(d *models.Deal) { d.Stage = models.StageEngaged })

	result := process(t, orch, deal, models.EventDetail)

	assert.True(t, result.StageChanged)
	assert.Equal(t, models.StageQualified, result.Deal.Stage)
}

func TestEventTimestampBecomesLastActivity(t *testing.T) {
	store := setupStore(t)
	orch := engine.NewOrchestrator(store, nil)
	deal := seedDeal(t, store, nil)

	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	result, err := orch.ProcessEvent(context.Background(), models.SystemAgent(), deal.ID, models.EngagementEvent{
		Action:     models.EventShare,
		OccurredAt: at,
		Metadata:   map[string]interface{}{"channel": "sms"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Deal.LastActivityAt)
	assert.True(t, at.Equal(*result.Deal.LastActivityAt))
	assert.Equal(t, 20, result.Deal.EngagementScore)
}

func TestProcessEventRollsBackOnTaskFailure(t *testing.T) {
	base := setupStore(t)
	deal := seedDeal(t, base, nil)
	injected := errors.New("disk full")

	orch := engine.NewOrchestrator(&failingStore{Store: base, failOn: "CreateTask", err: injected}, nil)
	_, err := orch.ProcessEvent(context.Background(), models.SystemAgent(), deal.ID, models.EngagementEvent{Action: string(models.ActionLinkAccessed)})
	assert.ErrorIs(t, err, injected)

	stored, err := base.GetDeal(context.Background(), deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageCreated, stored.Stage)
	assert.Zero(t, stored.EngagementScore)

	history, err := base.GetActivities(context.Background(), deal.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "activity write must be rolled back")
}

func TestProcessEventRollsBackOnDealSaveFailure(t *testing.T) {
	base := setupStore(t)
	deal := seedDeal(t, base, nil)
	injected := errors.New("database is locked")

	orch := engine.NewOrchestrator(&failingStore{Store: base, failOn: "UpsertDeal", err: injected}, nil)
	_, err := orch.ProcessEvent(context.Background(), models.SystemAgent(), deal.ID, models.EngagementEvent{Action: string(models.ActionLinkAccessed)})
	assert.ErrorIs(t, err, injected)

	tasks, err := base.ListTasks(context.Background(), models.TaskFilter{DealID: deal.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks, "task writes must be rolled back")
}

func TestNormalizeAction(t *testing.T) {
	assert.Equal(t, models.ActionPropertyViewed, engine.NormalizeAction(models.EventView))
	assert.Equal(t, models.ActionPropertyViewed, engine.NormalizeAction(models.EventDetail))
	assert.Equal(t, models.ActionPropertyViewed, engine.NormalizeAction(models.EventConsider))
	assert.Equal(t, models.ActionPropertyLiked, engine.NormalizeAction(models.EventLike))
	assert.Equal(t, models.ActionPropertyShared, engine.NormalizeAction(models.EventShare))
	assert.Equal(t, models.ActionPhoneClicked, engine.NormalizeAction("phone_clicked"))
	assert.Equal(t, models.ActivityAction("dislike"), engine.NormalizeAction(models.EventDislike))
}
