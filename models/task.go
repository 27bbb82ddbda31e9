// ABOUTME: Task model for deal follow-up work
// ABOUTME: Provides task specs, creation requests, status transitions and due date tracking
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskPriority ranks how soon a task should be handled.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusDismissed  TaskStatus = "dismissed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusDismissed:
		return true
	}
	return false
}

// TaskType classifies the kind of work a task asks for.
type TaskType string

const (
	TaskTypeCall           TaskType = "call"
	TaskTypeUrgentCall     TaskType = "urgent_call"
	TaskTypeUrgentFollowUp TaskType = "urgent_follow_up"
	TaskTypeEmail          TaskType = "email"
	TaskTypeShowing        TaskType = "showing"
	TaskTypeFollowUp       TaskType = "follow_up"
	TaskTypeFeedback       TaskType = "feedback"
	TaskTypePlanning       TaskType = "planning"
	TaskTypeNurture        TaskType = "nurture"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeCall, TaskTypeUrgentCall, TaskTypeUrgentFollowUp, TaskTypeEmail,
		TaskTypeShowing, TaskTypeFollowUp, TaskTypeFeedback, TaskTypePlanning, TaskTypeNurture:
		return true
	}
	return false
}

// Trigger names the event that caused the rule engine to emit tasks.
type Trigger string

const (
	TriggerHighEngagement       Trigger = "high_engagement"
	TriggerLinkAccessed         Trigger = "link_accessed"
	TriggerMultipleLikes        Trigger = "multiple_likes"
	TriggerColdLead             Trigger = "cold_lead"
	TriggerFirstShowingAttended Trigger = "first_showing_attended"
	TriggerUrgentFollowUp       Trigger = "urgent_follow_up"
	TriggerRegularFollowUp      Trigger = "regular_follow_up"
	TriggerNurtureSequence      Trigger = "nurture_sequence"
	TriggerInitialFollowUp      Trigger = "initial_follow_up"
	TriggerManual               Trigger = "manual"
)

// TaskSpec is an unpersisted task description produced by the rule engine.
type TaskSpec struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Type        TaskType      `json:"type"`
	Priority    TaskPriority  `json:"priority"`
	DueIn       time.Duration `json:"due_in,omitempty"`
	Trigger     Trigger       `json:"trigger,omitempty"`
}

// DueDate resolves the spec's offset against now. A zero offset means no due date.
func (s TaskSpec) DueDate(now time.Time) *time.Time {
	if s.DueIn <= 0 {
		return nil
	}
	due := now.Add(s.DueIn)
	return &due
}

// TaskRequest is what a task store needs to persist a new task.
type TaskRequest struct {
	DealID    uuid.UUID
	AgentID   uuid.UUID
	Spec      TaskSpec
	Automated bool

	// CreatedAt anchors the task's timestamps and due date. Zero lets the
	// store stamp it.
	CreatedAt time.Time
}

// Timestamp returns CreatedAt, or fallback when it is unset.
func (r TaskRequest) Timestamp(fallback time.Time) time.Time {
	if r.CreatedAt.IsZero() {
		return fallback
	}
	return r.CreatedAt
}

// Validate checks required fields before anything touches storage.
func (r TaskRequest) Validate() error {
	if r.DealID == uuid.Nil {
		return &ValidationError{Field: "deal_id", Message: "is required"}
	}
	if strings.TrimSpace(r.Spec.Title) == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	if r.Spec.Priority != "" && !r.Spec.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "unknown priority " + string(r.Spec.Priority)}
	}
	if r.Spec.Type != "" && !r.Spec.Type.Valid() {
		return &ValidationError{Field: "type", Message: "unknown type " + string(r.Spec.Type)}
	}
	return nil
}

// NewTask builds a pending task from a request. Stores assign the ID.
func NewTask(req TaskRequest, now time.Time) *Task {
	priority := req.Spec.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	taskType := req.Spec.Type
	if taskType == "" {
		taskType = TaskTypeFollowUp
	}
	trigger := req.Spec.Trigger
	if trigger == "" && !req.Automated {
		trigger = TriggerManual
	}

	return &Task{
		ID:          uuid.New(),
		DealID:      req.DealID,
		AgentID:     req.AgentID,
		Title:       req.Spec.Title,
		Description: req.Spec.Description,
		Type:        taskType,
		Priority:    priority,
		Status:      TaskStatusPending,
		IsAutomated: req.Automated,
		TriggerType: trigger,
		DueDate:     req.Spec.DueDate(now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type Task struct {
	ID          uuid.UUID    `json:"id"`
	DealID      uuid.UUID    `json:"deal_id"`
	AgentID     uuid.UUID    `json:"agent_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Type        TaskType     `json:"type"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
	IsAutomated bool         `json:"is_automated"`
	TriggerType Trigger      `json:"trigger_type,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// TaskFilter narrows ListTasks results. Zero values match everything.
type TaskFilter struct {
	DealID  uuid.UUID
	AgentID uuid.UUID
	Status  TaskStatus
	Limit   int
}

// TransitionStatus validates and applies a status change, keeping
// CompletedAt set exactly while the task is completed.
func (t *Task) TransitionStatus(newStatus TaskStatus, now time.Time) error {
	if !newStatus.Valid() {
		return &ValidationError{Field: "status", Message: "unknown task status " + string(newStatus)}
	}

	oldStatus := t.Status
	t.Status = newStatus
	t.UpdatedAt = now

	if newStatus == TaskStatusCompleted {
		if oldStatus != TaskStatusCompleted || t.CompletedAt == nil {
			completed := now
			t.CompletedAt = &completed
		}
	} else {
		t.CompletedAt = nil
	}

	return nil
}

// IsOpen reports whether the task still needs work.
func (t *Task) IsOpen() bool {
	return t.Status == TaskStatusPending || t.Status == TaskStatusInProgress
}

// IsOverdue returns true if the task is past its due date and still open.
func (t *Task) IsOverdue(now time.Time) bool {
	if !t.IsOpen() || t.DueDate == nil {
		return false
	}
	return now.After(*t.DueDate)
}

// IsDueSoon returns true if the task is open and due within the window.
func (t *Task) IsDueSoon(now time.Time, window time.Duration) bool {
	if !t.IsOpen() || t.DueDate == nil {
		return false
	}
	return t.DueDate.After(now) && t.DueDate.Before(now.Add(window))
}
