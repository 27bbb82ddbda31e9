// ABOUTME: Wire shapes returned by the MCP tools
// ABOUTME: Flattens deals and tasks into string-typed fields for schema inference
package handlers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
)

type DealOutput struct {
	ID                string   `json:"id"`
	LinkID            string   `json:"link_id"`
	AgentID           string   `json:"agent_id"`
	Title             string   `json:"title"`
	Status            string   `json:"status"`
	Stage             string   `json:"stage"`
	Value             int64    `json:"value"`
	PropertyCount     int      `json:"property_count"`
	EngagementScore   int      `json:"engagement_score"`
	ClientTemperature string   `json:"client_temperature"`
	ClientID          *string  `json:"client_id,omitempty"`
	ClientName        *string  `json:"client_name,omitempty"`
	ClientEmail       *string  `json:"client_email,omitempty"`
	ClientPhone       *string  `json:"client_phone,omitempty"`
	SessionCount      int      `json:"session_count"`
	TotalTimeSpent    float64  `json:"total_time_spent"`
	Tags              []string `json:"tags,omitempty"`
	LastActivityAt    *string  `json:"last_activity_at,omitempty"`
	NextFollowUp      *string  `json:"next_follow_up,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

type TaskOutput struct {
	ID          string  `json:"id"`
	DealID      string  `json:"deal_id"`
	AgentID     string  `json:"agent_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	IsAutomated bool    `json:"is_automated"`
	TriggerType string  `json:"trigger_type,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func dealToOutput(deal *models.Deal) DealOutput {
	return DealOutput{
		ID:                deal.ID.String(),
		LinkID:            deal.LinkID.String(),
		AgentID:           deal.AgentID.String(),
		Title:             deal.Title,
		Status:            string(deal.Status),
		Stage:             string(deal.Stage),
		Value:             deal.Value,
		PropertyCount:     deal.PropertyCount,
		EngagementScore:   deal.EngagementScore,
		ClientTemperature: string(deal.ClientTemperature),
		ClientID:          deal.ClientID,
		ClientName:        deal.ClientName,
		ClientEmail:       deal.ClientEmail,
		ClientPhone:       deal.ClientPhone,
		SessionCount:      deal.SessionCount,
		TotalTimeSpent:    deal.TotalTimeSpent,
		Tags:              deal.Tags,
		LastActivityAt:    formatTime(deal.LastActivityAt),
		NextFollowUp:      formatTime(deal.NextFollowUp),
		CreatedAt:         deal.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         deal.UpdatedAt.Format(time.RFC3339),
	}
}

func taskToOutput(task *models.Task) TaskOutput {
	return TaskOutput{
		ID:          task.ID.String(),
		DealID:      task.DealID.String(),
		AgentID:     task.AgentID.String(),
		Title:       task.Title,
		Description: task.Description,
		Type:        string(task.Type),
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		IsAutomated: task.IsAutomated,
		TriggerType: string(task.TriggerType),
		DueDate:     formatTime(task.DueDate),
		CompletedAt: formatTime(task.CompletedAt),
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
	}
}

func tasksToOutput(tasks []models.Task) []TaskOutput {
	out := make([]TaskOutput, 0, len(tasks))
	for i := range tasks {
		out = append(out, taskToOutput(&tasks[i]))
	}
	return out
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseID(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("%s is required", field)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return id, nil
}
