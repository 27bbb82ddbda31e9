// ABOUTME: Tests for the MCP tool, resource and prompt handlers
// ABOUTME: Drives the handlers against a temp SQLite-backed engine service
package handlers

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/db"
	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*engine.Service, *db.Store) {
	t.Helper()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	store := db.NewStore(database)
	return engine.NewService(store, nil), store
}

func createDeal(t *testing.T, h *DealHandlers) DealOutput {
	t.Helper()
	_, deal, err := h.CreateDealFromLink(context.Background(), nil, CreateDealFromLinkInput{
		LinkName:   "Lakeside lofts",
		Properties: []PropertyInput{{Price: 500000}, {Price: 750000, Address: "12 Shore Rd"}},
		ClientName: "Avery",
	})
	require.NoError(t, err)
	return deal
}

// seedQuietDeal inserts a deal that has sat untouched since createdAt. The
// store keeps created_at on later upserts, so it must be set on first insert.
func seedQuietDeal(t *testing.T, store *db.Store, agent models.AgentContext, createdAt time.Time) *models.Deal {
	t.Helper()

	name := "Robin"
	deal := &models.Deal{
		ID:                uuid.New(),
		LinkID:            uuid.New(),
		AgentID:           agent.AgentID,
		Title:             "Harbour flats",
		Status:            models.StatusActive,
		Stage:             models.StageShared,
		ClientName:        &name,
		ClientTemperature: models.TemperatureCold,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	require.NoError(t, store.UpsertDeal(context.Background(), deal))
	return deal
}

func TestDealTools(t *testing.T) {
	service, _ := setupService(t)
	agent := models.AgentContext{AgentID: uuid.New()}
	h := NewDealHandlers(service, agent)
	ctx := context.Background()

	deal := createDeal(t, h)
	assert.Equal(t, int64(37500), deal.Value)
	assert.Equal(t, 2, deal.PropertyCount)
	assert.Equal(t, "created", deal.Stage)
	assert.Equal(t, agent.AgentID.String(), deal.AgentID)
	require.NotNil(t, deal.ClientName)
	assert.Equal(t, "Avery", *deal.ClientName)

	_, got, err := h.GetDeal(ctx, nil, DealIDInput{DealID: deal.ID})
	require.NoError(t, err)
	assert.Equal(t, deal.Title, got.Title)

	_, moved, err := h.ProgressDealStage(ctx, nil, ProgressDealStageInput{DealID: deal.ID, Stage: "engaged"})
	require.NoError(t, err)
	assert.Equal(t, "engaged", moved.Stage)

	_, _, err = h.ProgressDealStage(ctx, nil, ProgressDealStageInput{DealID: deal.ID, Stage: "shared"})
	assert.True(t, models.IsInvalidTransition(err))

	_, lost, err := h.UpdateDealStatus(ctx, nil, UpdateDealStatusInput{DealID: deal.ID, Status: "closed-lost"})
	require.NoError(t, err)
	assert.Equal(t, "closed", lost.Stage)

	_, list, err := h.ListDeals(ctx, nil, ListDealsInput{Status: "closed-lost"})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)

	_, rec, err := h.ReconcileDeal(ctx, nil, DealIDInput{DealID: deal.ID})
	require.NoError(t, err)
	assert.Equal(t, "shared", rec.SnapshotStage)
	assert.True(t, rec.Diverges)
}

func TestDealToolsRejectBadInput(t *testing.T) {
	service, _ := setupService(t)
	h := NewDealHandlers(service, models.SystemAgent())
	ctx := context.Background()

	_, _, err := h.GetDeal(ctx, nil, DealIDInput{})
	assert.ErrorContains(t, err, "deal_id is required")

	_, _, err = h.GetDeal(ctx, nil, DealIDInput{DealID: "not-a-uuid"})
	assert.ErrorContains(t, err, "invalid deal_id")

	_, _, err = h.GetDeal(ctx, nil, DealIDInput{DealID: uuid.NewString()})
	assert.ErrorContains(t, err, "deal not found")

	_, _, err = h.ListDeals(ctx, nil, ListDealsInput{Stage: "negotiation"})
	assert.ErrorContains(t, err, "invalid stage")

	_, _, err = h.CreateDealFromLink(ctx, nil, CreateDealFromLinkInput{LinkName: "Orphan"})
	assert.True(t, models.IsValidation(err), "system context needs an owning agent")
}

func TestEngagementTools(t *testing.T) {
	service, store := setupService(t)
	agent := models.AgentContext{AgentID: uuid.New()}
	deals := NewDealHandlers(service, agent)
	h := NewEngagementHandlers(service, agent)
	ctx := context.Background()

	deal := createDeal(t, deals)

	_, result, err := h.ProcessEngagementEvent(ctx, nil, EngagementEventInput{
		DealID:     deal.ID,
		Action:     "link_accessed",
		OccurredAt: "2026-05-01T10:00:00Z",
		Metadata:   map[string]interface{}{"source": "sms"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Deal)
	assert.Equal(t, "accessed", result.Deal.Stage)
	assert.Equal(t, "link_accessed", result.Trigger)
	assert.Equal(t, 1, result.NewTasksCount)
	require.Len(t, result.Tasks, 1)
	assert.True(t, result.Tasks[0].IsAutomated)

	_, _, err = h.ProcessEngagementEvent(ctx, nil, EngagementEventInput{DealID: deal.ID, Action: "like", OccurredAt: "yesterday"})
	assert.ErrorContains(t, err, "occurred_at")

	_, missing, err := h.ProcessEngagementEvent(ctx, nil, EngagementEventInput{DealID: uuid.NewString(), Action: "like"})
	require.NoError(t, err)
	assert.Nil(t, missing.Deal)

	_, session, err := h.RecordSession(ctx, nil, RecordSessionInput{DealID: deal.ID, DurationSeconds: 600})
	require.NoError(t, err)
	assert.Equal(t, 12, session.EngagementScore)
	assert.Equal(t, 1, session.SessionCount)

	id, err := uuid.Parse(deal.ID)
	require.NoError(t, err)
	history, err := store.GetActivities(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)

	_, undone, err := h.UndoActivity(ctx, nil, UndoActivityInput{DealID: deal.ID, ActivityID: history[0].ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 2, undone.EngagementScore)
	assert.Equal(t, "accessed", undone.Stage)
}

func TestScheduleFollowUpsTool(t *testing.T) {
	service, store := setupService(t)
	ctx := context.Background()

	quiet := time.Now().UTC().Add(-5 * 24 * time.Hour)
	deal := &models.Deal{
		ID:                uuid.New(),
		LinkID:            uuid.New(),
		AgentID:           uuid.New(),
		Title:             "Hillside duplex",
		Status:            models.StatusActive,
		Stage:             models.StageAccessed,
		ClientTemperature: models.TemperatureCold,
		LastActivityAt:    &quiet,
		CreatedAt:         quiet,
		UpdatedAt:         quiet,
	}
	require.NoError(t, store.UpsertDeal(ctx, deal))

	h := NewEngagementHandlers(service, models.SystemAgent())
	_, out, err := h.ScheduleFollowUps(ctx, nil, ScheduleFollowUpsInput{})
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 1, out.Scheduled)
	require.Len(t, out.Plans, 1)
	assert.Equal(t, deal.ID.String(), out.Plans[0].DealID)
	assert.Equal(t, "regular_follow_up", out.Plans[0].Trigger)
	assert.Equal(t, "high", out.Plans[0].Risk)
}

func TestTaskTools(t *testing.T) {
	service, _ := setupService(t)
	agent := models.AgentContext{AgentID: uuid.New()}
	deal := createDeal(t, NewDealHandlers(service, agent))
	h := NewTaskHandlers(service, agent)
	ctx := context.Background()

	_, task, err := h.CreateTask(ctx, nil, CreateTaskInput{
		DealID:   deal.ID,
		Title:    "Book second showing",
		Type:     "showing",
		Priority: "high",
		DueIn:    "48h",
	})
	require.NoError(t, err)
	assert.False(t, task.IsAutomated)
	assert.Equal(t, "manual", task.TriggerType)
	require.NotNil(t, task.DueDate)

	_, _, err = h.CreateTask(ctx, nil, CreateTaskInput{DealID: deal.ID, Title: "x", DueIn: "soon"})
	assert.ErrorContains(t, err, "invalid due_in")

	_, _, err = h.CreateTask(ctx, nil, CreateTaskInput{DealID: deal.ID, Title: "x", Priority: "whenever"})
	assert.True(t, models.IsValidation(err))

	_, done, err := h.UpdateTaskStatus(ctx, nil, UpdateTaskStatusInput{TaskID: task.ID, Status: "completed"})
	require.NoError(t, err)
	assert.NotNil(t, done.CompletedAt)

	_, list, err := h.ListTasks(ctx, nil, ListTasksInput{DealID: deal.ID, Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)

	_, _, err = h.ListTasks(ctx, nil, ListTasksInput{Status: "archived"})
	assert.ErrorContains(t, err, "invalid status")
}

func readResource(t *testing.T, h *ResourceHandlers, uri string) string {
	t.Helper()
	result, err := h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	return result.Contents[0].Text
}

func TestResources(t *testing.T) {
	service, _ := setupService(t)
	agent := models.AgentContext{AgentID: uuid.New()}
	deal := createDeal(t, NewDealHandlers(service, agent))
	_, _, err := NewEngagementHandlers(service, agent).ProcessEngagementEvent(context.Background(), nil, EngagementEventInput{DealID: deal.ID, Action: "link_accessed"})
	require.NoError(t, err)

	h := NewResourceHandlers(service, agent)

	var deals []DealOutput
	require.NoError(t, json.Unmarshal([]byte(readResource(t, h, "dealpulse://deals")), &deals))
	assert.Len(t, deals, 1)

	var detail struct {
		ID       string           `json:"id"`
		Tasks    []TaskOutput     `json:"tasks"`
		Snapshot *ReconcileOutput `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal([]byte(readResource(t, h, "dealpulse://deals/"+deal.ID)), &detail))
	assert.Equal(t, deal.ID, detail.ID)
	assert.Len(t, detail.Tasks, 1)
	require.NotNil(t, detail.Snapshot)

	var open []TaskOutput
	require.NoError(t, json.Unmarshal([]byte(readResource(t, h, "dealpulse://tasks")), &open))
	assert.Len(t, open, 1)

	var summary PipelineSummary
	require.NoError(t, json.Unmarshal([]byte(readResource(t, h, "dealpulse://pipeline")), &summary))
	assert.Equal(t, 1, summary.TotalDeals)
	assert.Equal(t, int64(37500), summary.TotalValue)
	assert.Equal(t, 1, summary.ByStage["accessed"])
	assert.Equal(t, 0, summary.ByStage["closed"])
	assert.Equal(t, 1, summary.OpenTasks)

	_, err = h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "crm://contacts"}})
	assert.Error(t, err)

	_, err = h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "dealpulse://companies"}})
	assert.Error(t, err)
}

func promptText(t *testing.T, result *mcp.GetPromptResult) string {
	t.Helper()
	require.Len(t, result.Messages, 1)
	text, ok := result.Messages[0].Content.(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestPrompts(t *testing.T) {
	service, store := setupService(t)
	agent := models.AgentContext{AgentID: uuid.New()}
	deal := createDeal(t, NewDealHandlers(service, agent))
	h := NewPromptHandlers(service, agent)
	ctx := context.Background()

	analysis, err := h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{
		Name:      "deal-analysis",
		Arguments: map[string]string{"deal_id": deal.ID},
	}})
	require.NoError(t, err)
	text := promptText(t, analysis)
	assert.Contains(t, text, "Lakeside lofts")
	assert.Contains(t, text, "Client: Avery")
	assert.Contains(t, text, "high risk")

	_, err = h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "deal-analysis"}})
	assert.ErrorContains(t, err, "deal_id is required")

	fresh, err := h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "follow-up-suggestions"}})
	require.NoError(t, err)
	assert.Contains(t, promptText(t, fresh), "No deals need a follow-up")

	seedQuietDeal(t, store, agent, time.Now().UTC().Add(-60*time.Hour))

	quiet, err := h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "follow-up-suggestions"}})
	require.NoError(t, err)
	text = promptText(t, quiet)
	assert.Contains(t, text, "Harbour flats with Robin")
	assert.Contains(t, text, "suggested initial_follow_up")
	assert.NotContains(t, text, "Lakeside lofts", "a deal created just now is not quiet")

	_, err = h.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "company-overview"}})
	assert.ErrorContains(t, err, "unknown prompt")
}

func TestNewServer(t *testing.T) {
	service, _ := setupService(t)
	assert.NotNil(t, NewServer(service, models.SystemAgent(), "test"))
}
