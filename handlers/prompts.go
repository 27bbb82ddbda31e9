// ABOUTME: MCP prompt handlers for reusable deal workflow templates
// ABOUTME: Provides deal-analysis and follow-up-suggestions prompts built from live pipeline data
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/harperreed/dealpulse/rules"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	service *engine.Service
	agent   models.AgentContext
}

func NewPromptHandlers(service *engine.Service, agent models.AgentContext) *PromptHandlers {
	return &PromptHandlers{service: service, agent: agent}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "deal-analysis":
		return h.getDealAnalysisPrompt(ctx, request.Params.Arguments)
	case "follow-up-suggestions":
		return h.getFollowUpSuggestionsPrompt(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) getDealAnalysisPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, err := parseID("deal_id", args["deal_id"])
	if err != nil {
		return nil, err
	}

	deal, err := h.service.GetDeal(ctx, h.agent, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deal: %w", err)
	}
	if deal == nil {
		return nil, fmt.Errorf("deal not found: %s", id)
	}

	tasks, err := h.service.ListTasks(ctx, h.agent, models.TaskFilter{DealID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("Deal: %s\n", deal.Title))
	promptText.WriteString(fmt.Sprintf("Client: %s\n", deal.ClientLabel()))
	promptText.WriteString(fmt.Sprintf("Stage: %s, status: %s\n", deal.Stage, deal.Status))
	promptText.WriteString(fmt.Sprintf("Engagement: %d (%s), %s risk\n", deal.EngagementScore, deal.ClientTemperature, rules.RiskLevel(deal.EngagementScore)))
	promptText.WriteString(fmt.Sprintf("Value: $%d across %d properties\n", deal.Value, deal.PropertyCount))
	promptText.WriteString(fmt.Sprintf("Sessions: %d, %.0f minutes browsing\n", deal.SessionCount, deal.TotalTimeSpent/60))
	if deal.LastActivityAt != nil {
		promptText.WriteString(fmt.Sprintf("Last activity: %s\n", deal.LastActivityAt.Format(time.RFC1123)))
	} else {
		promptText.WriteString("Last activity: never\n")
	}

	promptText.WriteString(fmt.Sprintf("\nTasks: %d\n", len(tasks)))
	for _, task := range tasks {
		promptText.WriteString(fmt.Sprintf("  - [%s] %s (%s, %s)\n", task.Status, task.Title, task.Type, task.Priority))
	}

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. An assessment of how likely this client is to move forward")
	promptText.WriteString("\n2. Which open tasks matter most right now")
	promptText.WriteString("\n3. A suggested next message to the client")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Analysis of deal: %s", deal.Title),
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}

func (h *PromptHandlers) getFollowUpSuggestionsPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	plans, err := h.service.PreviewFollowUps(ctx, h.agent)
	if err != nil {
		return nil, fmt.Errorf("failed to plan follow-ups: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString("Deals that have gone quiet:\n\n")
	for _, plan := range plans {
		deal, err := h.service.GetDeal(ctx, h.agent, plan.DealID)
		if err != nil || deal == nil {
			continue
		}
		promptText.WriteString(fmt.Sprintf("- %s with %s: %.1f days quiet, urgency %d, %s risk, suggested %s\n",
			deal.Title, deal.ClientLabel(), plan.DaysStale, plan.Urgency, plan.Risk, plan.Trigger))
	}
	if len(plans) == 0 {
		promptText.WriteString("No deals need a follow-up right now.\n")
	}

	promptText.WriteString("\nPlease:")
	promptText.WriteString("\n1. Prioritize which clients to reach out to first")
	promptText.WriteString("\n2. Suggest a personalized opener for each")

	return &mcp.GetPromptResult{
		Description: "Follow-up suggestions for quiet deals",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}
