// ABOUTME: MCP server assembly
// ABOUTME: Registers every deal, engagement and task tool plus resources and prompts on one server
package handlers

import (
	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server acting for agent.
func NewServer(service *engine.Service, agent models.AgentContext, version string) *mcp.Server {
	dealHandlers := NewDealHandlers(service, agent)
	engagementHandlers := NewEngagementHandlers(service, agent)
	taskHandlers := NewTaskHandlers(service, agent)
	resourceHandlers := NewResourceHandlers(service, agent)
	promptHandlers := NewPromptHandlers(service, agent)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "dealpulse",
		Version: version,
	}, nil)

	// Deals
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal_from_link",
		Description: "Open a deal for a shared property collection; value is 3% of the summed prices",
	}, dealHandlers.CreateDealFromLink)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_deal",
		Description: "Fetch one deal by ID",
	}, dealHandlers.GetDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_deals",
		Description: "List deals, most recently active first, optionally filtered by stage or status",
	}, dealHandlers.ListDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "progress_deal_stage",
		Description: "Move a deal forward in the pipeline (backward moves are rejected)",
	}, dealHandlers.ProgressDealStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal_status",
		Description: "Change a deal's status; closing a deal also moves it to the closed stage",
	}, dealHandlers.UpdateDealStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reconcile_deal",
		Description: "Compare a deal's stage with the one its engagement snapshot implies, without saving",
	}, dealHandlers.ReconcileDeal)

	// Engagement
	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_engagement_event",
		Description: "Record a client interaction, re-score the deal and create follow-up tasks when warranted",
	}, engagementHandlers.ProcessEngagementEvent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_session",
		Description: "Record a browsing session and re-score the deal",
	}, engagementHandlers.RecordSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "undo_activity",
		Description: "Remove a recorded activity and re-score the deal from the remaining history",
	}, engagementHandlers.UndoActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "schedule_follow_ups",
		Description: "Create follow-up tasks for deals that have gone quiet",
	}, engagementHandlers.ScheduleFollowUps)

	// Tasks
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_task",
		Description: "Add a manual task to a deal",
	}, taskHandlers.CreateTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks ordered by due date, optionally filtered by deal or status",
	}, taskHandlers.ListTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_task_status",
		Description: "Move a task to pending, in_progress, completed or dismissed",
	}, taskHandlers.UpdateTaskStatus)

	// Resources
	server.AddResource(&mcp.Resource{
		URI:         resourceScheme + "deals",
		Name:        "deals",
		Description: "All deals visible to the agent",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         resourceScheme + "tasks",
		Name:        "open-tasks",
		Description: "Pending and in-progress tasks",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         resourceScheme + "pipeline",
		Name:        "pipeline",
		Description: "Deal counts per stage and temperature",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: resourceScheme + "deals/{id}",
		Name:        "deal",
		Description: "One deal with its tasks and snapshot preview",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	// Prompts
	server.AddPrompt(&mcp.Prompt{
		Name:        "deal-analysis",
		Description: "Assess a deal's momentum and next steps",
		Arguments: []*mcp.PromptArgument{
			{Name: "deal_id", Description: "Deal to analyze", Required: true},
		},
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "follow-up-suggestions",
		Description: "Prioritize quiet deals for outreach",
	}, promptHandlers.GetPrompt)

	return server
}
