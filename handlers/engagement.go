// ABOUTME: Engagement MCP tool handlers
// ABOUTME: Implements process_engagement_event, record_session, undo_activity and schedule_follow_ups
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type EngagementHandlers struct {
	service *engine.Service
	agent   models.AgentContext
}

func NewEngagementHandlers(service *engine.Service, agent models.AgentContext) *EngagementHandlers {
	return &EngagementHandlers{service: service, agent: agent}
}

type EngagementEventInput struct {
	DealID     string                 `json:"deal_id" jsonschema:"Deal ID (required)"`
	Action     string                 `json:"action" jsonschema:"Interaction: view, like, dislike, consider, detail, share, link_accessed, contact_form_submitted, phone_clicked, email_clicked, showing_attended, first_showing_attended"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" jsonschema:"Free-form event details"`
	ClientID   string                 `json:"client_id,omitempty" jsonschema:"Client that produced the event"`
	OccurredAt string                 `json:"occurred_at,omitempty" jsonschema:"Event time in RFC3339 (defaults to now)"`
}

type EngagementEventOutput struct {
	Deal          *DealOutput  `json:"deal,omitempty"`
	ScoreUpdated  bool         `json:"score_updated"`
	StageChanged  bool         `json:"stage_changed"`
	NewTasksCount int          `json:"new_tasks_count"`
	Trigger       string       `json:"trigger,omitempty"`
	Tasks         []TaskOutput `json:"tasks,omitempty"`
}

func (h *EngagementHandlers) ProcessEngagementEvent(ctx context.Context, _ *mcp.CallToolRequest, input EngagementEventInput) (*mcp.CallToolResult, EngagementEventOutput, error) {
	id, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, EngagementEventOutput{}, err
	}

	event := models.EngagementEvent{Action: input.Action, Metadata: input.Metadata}
	if input.ClientID != "" {
		clientID := input.ClientID
		event.ClientID = &clientID
	}
	if input.OccurredAt != "" {
		at, err := time.Parse(time.RFC3339, input.OccurredAt)
		if err != nil {
			return nil, EngagementEventOutput{}, fmt.Errorf("invalid occurred_at format (use RFC3339): %w", err)
		}
		event.OccurredAt = at
	}

	result, err := h.service.ProcessEngagementEvent(ctx, h.agent, id, event)
	if err != nil {
		return nil, EngagementEventOutput{}, err
	}

	out := EngagementEventOutput{
		ScoreUpdated:  result.ScoreUpdated,
		StageChanged:  result.StageChanged,
		NewTasksCount: result.NewTasksCount,
		Trigger:       string(result.Trigger),
		Tasks:         tasksToOutput(result.Tasks),
	}
	if result.Deal != nil {
		deal := dealToOutput(result.Deal)
		out.Deal = &deal
	}
	return nil, out, nil
}

type RecordSessionInput struct {
	DealID          string  `json:"deal_id" jsonschema:"Deal ID (required)"`
	DurationSeconds float64 `json:"duration_seconds" jsonschema:"Session length in seconds"`
}

func (h *EngagementHandlers) RecordSession(ctx context.Context, _ *mcp.CallToolRequest, input RecordSessionInput) (*mcp.CallToolResult, DealOutput, error) {
	id, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, DealOutput{}, err
	}

	deal, err := h.service.RecordSession(ctx, h.agent, id, input.DurationSeconds)
	if err != nil {
		return nil, DealOutput{}, err
	}
	return nil, dealToOutput(deal), nil
}

type UndoActivityInput struct {
	DealID     string `json:"deal_id" jsonschema:"Deal ID (required)"`
	ActivityID string `json:"activity_id" jsonschema:"Activity to remove (required)"`
}

func (h *EngagementHandlers) UndoActivity(ctx context.Context, _ *mcp.CallToolRequest, input UndoActivityInput) (*mcp.CallToolResult, DealOutput, error) {
	dealID, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, DealOutput{}, err
	}
	activityID, err := parseID("activity_id", input.ActivityID)
	if err != nil {
		return nil, DealOutput{}, err
	}

	deal, err := h.service.UndoActivity(ctx, h.agent, dealID, activityID)
	if err != nil {
		return nil, DealOutput{}, err
	}
	return nil, dealToOutput(deal), nil
}

type ScheduleFollowUpsInput struct{}

type FollowUpPlanOutput struct {
	DealID       string  `json:"deal_id"`
	Trigger      string  `json:"trigger"`
	Risk         string  `json:"risk"`
	Urgency      int     `json:"urgency"`
	DaysStale    float64 `json:"days_stale"`
	TasksCreated int     `json:"tasks_created"`
}

type ScheduleFollowUpsOutput struct {
	RunID     string               `json:"run_id"`
	Scheduled int                  `json:"scheduled"`
	Skipped   int                  `json:"skipped"`
	Errors    int                  `json:"errors"`
	Plans     []FollowUpPlanOutput `json:"plans,omitempty"`
}

func (h *EngagementHandlers) ScheduleFollowUps(ctx context.Context, _ *mcp.CallToolRequest, _ ScheduleFollowUpsInput) (*mcp.CallToolResult, ScheduleFollowUpsOutput, error) {
	result, err := h.service.ScheduleEngagementFollowUps(ctx, h.agent)
	if err != nil {
		return nil, ScheduleFollowUpsOutput{}, err
	}
	return nil, scheduleToOutput(result), nil
}

func scheduleToOutput(result *engine.ScheduleResult) ScheduleFollowUpsOutput {
	out := ScheduleFollowUpsOutput{
		RunID:     result.RunID,
		Scheduled: result.Scheduled,
		Skipped:   result.Skipped,
		Errors:    result.Errors,
	}
	for _, plan := range result.Plans {
		out.Plans = append(out.Plans, FollowUpPlanOutput{
			DealID:       plan.DealID.String(),
			Trigger:      string(plan.Trigger),
			Risk:         plan.Risk,
			Urgency:      plan.Urgency,
			DaysStale:    plan.DaysStale,
			TasksCreated: plan.TasksCreated,
		})
	}
	return out
}
