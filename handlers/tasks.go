// ABOUTME: Task MCP tool handlers
// ABOUTME: Implements create_task, list_tasks and update_task_status tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type TaskHandlers struct {
	service *engine.Service
	agent   models.AgentContext
}

func NewTaskHandlers(service *engine.Service, agent models.AgentContext) *TaskHandlers {
	return &TaskHandlers{service: service, agent: agent}
}

type CreateTaskInput struct {
	DealID      string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Title       string `json:"title" jsonschema:"Task title (required)"`
	Description string `json:"description,omitempty" jsonschema:"Task details"`
	Type        string `json:"type,omitempty" jsonschema:"call, urgent_call, urgent_follow_up, email, showing, follow_up, feedback, planning, nurture (default follow_up)"`
	Priority    string `json:"priority,omitempty" jsonschema:"low, medium, high, urgent (default medium)"`
	DueIn       string `json:"due_in,omitempty" jsonschema:"Offset until due, e.g. 24h or 90m"`
}

func (h *TaskHandlers) CreateTask(ctx context.Context, _ *mcp.CallToolRequest, input CreateTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	dealID, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, TaskOutput{}, err
	}

	spec := models.TaskSpec{
		Title:       input.Title,
		Description: input.Description,
		Type:        models.TaskType(input.Type),
		Priority:    models.TaskPriority(input.Priority),
	}
	if input.DueIn != "" {
		due, err := time.ParseDuration(input.DueIn)
		if err != nil {
			return nil, TaskOutput{}, fmt.Errorf("invalid due_in: %w", err)
		}
		spec.DueIn = due
	}

	task, err := h.service.CreateManualTask(ctx, h.agent, dealID, spec)
	if err != nil {
		return nil, TaskOutput{}, err
	}
	return nil, taskToOutput(task), nil
}

type ListTasksInput struct {
	DealID string `json:"deal_id,omitempty" jsonschema:"Filter by deal"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status: pending, in_progress, completed, dismissed"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results (default 50)"`
}

type ListTasksOutput struct {
	Tasks []TaskOutput `json:"tasks"`
	Count int          `json:"count"`
}

func (h *TaskHandlers) ListTasks(ctx context.Context, _ *mcp.CallToolRequest, input ListTasksInput) (*mcp.CallToolResult, ListTasksOutput, error) {
	filter := models.TaskFilter{Status: models.TaskStatus(input.Status), Limit: input.Limit}
	if input.DealID != "" {
		id, err := parseID("deal_id", input.DealID)
		if err != nil {
			return nil, ListTasksOutput{}, err
		}
		filter.DealID = id
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ListTasksOutput{}, fmt.Errorf("invalid status: %s", input.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}

	tasks, err := h.service.ListTasks(ctx, h.agent, filter)
	if err != nil {
		return nil, ListTasksOutput{}, err
	}
	return nil, ListTasksOutput{Tasks: tasksToOutput(tasks), Count: len(tasks)}, nil
}

type UpdateTaskStatusInput struct {
	TaskID string `json:"task_id" jsonschema:"Task ID (required)"`
	Status string `json:"status" jsonschema:"pending, in_progress, completed, dismissed"`
}

func (h *TaskHandlers) UpdateTaskStatus(ctx context.Context, _ *mcp.CallToolRequest, input UpdateTaskStatusInput) (*mcp.CallToolResult, TaskOutput, error) {
	id, err := parseID("task_id", input.TaskID)
	if err != nil {
		return nil, TaskOutput{}, err
	}

	task, err := h.service.UpdateTaskStatus(ctx, h.agent, id, models.TaskStatus(input.Status))
	if err != nil {
		return nil, TaskOutput{}, err
	}
	return nil, taskToOutput(task), nil
}
