// ABOUTME: Tests for the Task model
// ABOUTME: Validates task creation, status transitions, completion tracking and due dates
package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	now := time.Now().UTC()
	req := TaskRequest{
		DealID:  uuid.New(),
		AgentID: uuid.New(),
		Spec: TaskSpec{
			Title:    "Check in with Sarah",
			Type:     TaskTypeCall,
			Priority: PriorityHigh,
			DueIn:    24 * time.Hour,
			Trigger:  TriggerLinkAccessed,
		},
		Automated: true,
	}

	task := NewTask(req, now)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, req.DealID, task.DealID)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.True(t, task.IsAutomated)
	assert.Equal(t, TriggerLinkAccessed, task.TriggerType)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, now.Add(24*time.Hour), *task.DueDate)
	assert.Nil(t, task.CompletedAt)
}

func TestTaskRequestTimestamp(t *testing.T) {
	fallback := time.Now().UTC()
	assert.Equal(t, fallback, TaskRequest{}.Timestamp(fallback))

	at := fallback.Add(-72 * time.Hour)
	assert.Equal(t, at, TaskRequest{CreatedAt: at}.Timestamp(fallback))
}

func TestNewTaskDefaults(t *testing.T) {
	task := NewTask(TaskRequest{DealID: uuid.New(), Spec: TaskSpec{Title: "Call back"}}, time.Now())

	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, TaskTypeFollowUp, task.Type)
	assert.Equal(t, TriggerManual, task.TriggerType)
	assert.False(t, task.IsAutomated)
	assert.Nil(t, task.DueDate)
}

func TestTaskRequestValidate(t *testing.T) {
	tests := []struct {
		name  string
		req   TaskRequest
		field string
	}{
		{"missing deal", TaskRequest{Spec: TaskSpec{Title: "x"}}, "deal_id"},
		{"missing title", TaskRequest{DealID: uuid.New()}, "title"},
		{"blank title", TaskRequest{DealID: uuid.New(), Spec: TaskSpec{Title: "   "}}, "title"},
		{"bad priority", TaskRequest{DealID: uuid.New(), Spec: TaskSpec{Title: "x", Priority: "asap"}}, "priority"},
		{"bad type", TaskRequest{DealID: uuid.New(), Spec: TaskSpec{Title: "x", Type: "fax"}}, "type"},
		{"ok", TaskRequest{DealID: uuid.New(), Spec: TaskSpec{Title: "x"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestTask_StatusTransitions(t *testing.T) {
	tests := []struct {
		name        string
		fromStatus  TaskStatus
		toStatus    TaskStatus
		shouldError bool
	}{
		{"pending to in_progress", TaskStatusPending, TaskStatusInProgress, false},
		{"pending to completed", TaskStatusPending, TaskStatusCompleted, false},
		{"pending to dismissed", TaskStatusPending, TaskStatusDismissed, false},
		{"in_progress to completed", TaskStatusInProgress, TaskStatusCompleted, false},
		{"completed to pending", TaskStatusCompleted, TaskStatusPending, false},
		{"dismissed to pending", TaskStatusDismissed, TaskStatusPending, false},
		{"invalid status", TaskStatusPending, "done", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask(TaskRequest{DealID: uuid.New(), Spec: TaskSpec{Title: "Test"}}, time.Now())
			task.Status = tt.fromStatus

			err := task.TransitionStatus(tt.toStatus, time.Now())
			if tt.shouldError {
				assert.Error(t, err)
				assert.Equal(t, tt.fromStatus, task.Status)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.toStatus, task.Status)
			assert.Equal(t, tt.toStatus == TaskStatusCompleted, task.CompletedAt != nil)
		})
	}
}

func TestTask_CompletionTracking(t *testing.T) {
	start := time.Now().UTC()
	task := NewTask(TaskRequest{DealID: uuid.New(), Spec: TaskSpec{Title: "Test"}}, start)
	assert.Nil(t, task.CompletedAt)

	require.NoError(t, task.TransitionStatus(TaskStatusCompleted, start.Add(time.Minute)))
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, start.Add(time.Minute), *task.CompletedAt)

	// Completing twice keeps the original timestamp
	require.NoError(t, task.TransitionStatus(TaskStatusCompleted, start.Add(time.Hour)))
	assert.Equal(t, start.Add(time.Minute), *task.CompletedAt)

	require.NoError(t, task.TransitionStatus(TaskStatusDismissed, start.Add(2*time.Hour)))
	assert.Nil(t, task.CompletedAt)
}

func TestTask_OverdueAndDueSoon(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-24 * time.Hour)
	soon := now.Add(3 * 24 * time.Hour)
	later := now.Add(10 * 24 * time.Hour)

	overdue := &Task{Status: TaskStatusPending, DueDate: &past}
	assert.True(t, overdue.IsOverdue(now))

	done := &Task{Status: TaskStatusCompleted, DueDate: &past}
	assert.False(t, done.IsOverdue(now))

	noDue := &Task{Status: TaskStatusPending}
	assert.False(t, noDue.IsOverdue(now))
	assert.False(t, noDue.IsDueSoon(now, 7*24*time.Hour))

	dueSoon := &Task{Status: TaskStatusInProgress, DueDate: &soon}
	assert.True(t, dueSoon.IsDueSoon(now, 7*24*time.Hour))

	dueLater := &Task{Status: TaskStatusPending, DueDate: &later}
	assert.False(t, dueLater.IsDueSoon(now, 7*24*time.Hour))
}
