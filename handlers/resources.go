// ABOUTME: MCP resource handlers for exposing deal pipeline data
// ABOUTME: Provides read-only access to deals, tasks and the pipeline summary via dealpulse:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const resourceScheme = "dealpulse://"

// resourceLimit bounds list resources.
const resourceLimit = 1000

type ResourceHandlers struct {
	service *engine.Service
	agent   models.AgentContext
}

func NewResourceHandlers(service *engine.Service, agent models.AgentContext) *ResourceHandlers {
	return &ResourceHandlers{service: service, agent: agent}
}

// PipelineSummary counts the agent's deals per stage and temperature.
type PipelineSummary struct {
	TotalDeals    int            `json:"total_deals"`
	TotalValue    int64          `json:"total_value"`
	ByStage       map[string]int `json:"by_stage"`
	ByTemperature map[string]int `json:"by_temperature"`
	OpenTasks     int            `json:"open_tasks"`
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")

	switch parts[0] {
	case "deals":
		if len(parts) == 1 || parts[1] == "" {
			return h.readAllDeals(ctx, uri)
		}
		return h.readDeal(ctx, uri, parts[1])

	case "tasks":
		return h.readOpenTasks(ctx, uri)

	case "pipeline":
		return h.readPipeline(ctx, uri)

	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

func (h *ResourceHandlers) readAllDeals(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	deals, err := h.service.ListDeals(ctx, h.agent, models.DealFilter{Limit: resourceLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	out := make([]DealOutput, 0, len(deals))
	for i := range deals {
		out = append(out, dealToOutput(&deals[i]))
	}
	return jsonResource(uri, out)
}

func (h *ResourceHandlers) readDeal(ctx context.Context, uri, idStr string) (*mcp.ReadResourceResult, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid deal ID: %w", err)
	}

	deal, err := h.service.GetDeal(ctx, h.agent, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deal: %w", err)
	}
	if deal == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	// Include tasks and the snapshot preview
	tasks, err := h.service.ListTasks(ctx, h.agent, models.TaskFilter{DealID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deal tasks: %w", err)
	}
	rec, err := h.service.ReconcileDeal(ctx, h.agent, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile deal: %w", err)
	}

	dealData := struct {
		DealOutput
		Tasks    []TaskOutput     `json:"tasks"`
		Snapshot *ReconcileOutput `json:"snapshot,omitempty"`
	}{
		DealOutput: dealToOutput(deal),
		Tasks:      tasksToOutput(tasks),
	}
	if rec != nil {
		snapshot := reconcileToOutput(rec)
		dealData.Snapshot = &snapshot
	}
	return jsonResource(uri, dealData)
}

func (h *ResourceHandlers) readOpenTasks(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	tasks, err := h.service.ListTasks(ctx, h.agent, models.TaskFilter{Limit: resourceLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	open := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.IsOpen() {
			open = append(open, task)
		}
	}
	return jsonResource(uri, tasksToOutput(open))
}

func (h *ResourceHandlers) readPipeline(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	summary, err := h.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(uri, summary)
}

// Summary aggregates the agent's pipeline.
func (h *ResourceHandlers) Summary(ctx context.Context) (*PipelineSummary, error) {
	deals, err := h.service.ListDeals(ctx, h.agent, models.DealFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	tasks, err := h.service.ListTasks(ctx, h.agent, models.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	summary := &PipelineSummary{
		ByStage:       make(map[string]int, len(models.Stages)),
		ByTemperature: make(map[string]int, 3),
	}
	for _, stage := range models.Stages {
		summary.ByStage[string(stage)] = 0
	}
	for _, deal := range deals {
		summary.TotalDeals++
		summary.TotalValue += deal.Value
		summary.ByStage[string(deal.Stage)]++
		summary.ByTemperature[string(deal.ClientTemperature)]++
	}
	for _, task := range tasks {
		if task.IsOpen() {
			summary.OpenTasks++
		}
	}
	return summary, nil
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
