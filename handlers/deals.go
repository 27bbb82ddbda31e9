// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal_from_link, get_deal, list_deals, progress_deal_stage, update_deal_status and reconcile_deal
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultListLimit caps list tools when the caller gives no limit.
const DefaultListLimit = 50

type DealHandlers struct {
	service *engine.Service
	agent   models.AgentContext
}

func NewDealHandlers(service *engine.Service, agent models.AgentContext) *DealHandlers {
	return &DealHandlers{service: service, agent: agent}
}

type PropertyInput struct {
	ID      string  `json:"id,omitempty" jsonschema:"Property ID (optional)"`
	Address string  `json:"address,omitempty" jsonschema:"Street address"`
	Price   float64 `json:"price" jsonschema:"Listing price"`
}

type CreateDealFromLinkInput struct {
	LinkID      string          `json:"link_id,omitempty" jsonschema:"Shared link ID (generated when omitted)"`
	LinkName    string          `json:"link_name,omitempty" jsonschema:"Collection name, used as the deal title"`
	AgentID     string          `json:"agent_id,omitempty" jsonschema:"Owning agent (defaults to the server's agent)"`
	Tags        []string        `json:"tags,omitempty" jsonschema:"Collection tags"`
	Properties  []PropertyInput `json:"properties,omitempty" jsonschema:"Properties in the collection"`
	ClientID    string          `json:"client_id,omitempty" jsonschema:"Client ID"`
	ClientName  string          `json:"client_name,omitempty" jsonschema:"Client name"`
	ClientEmail string          `json:"client_email,omitempty" jsonschema:"Client email"`
	ClientPhone string          `json:"client_phone,omitempty" jsonschema:"Client phone"`
}

func (h *DealHandlers) CreateDealFromLink(ctx context.Context, _ *mcp.CallToolRequest, input CreateDealFromLinkInput) (*mcp.CallToolResult, DealOutput, error) {
	link := models.Link{Name: input.LinkName, Tags: input.Tags}

	if input.LinkID != "" {
		id, err := parseID("link_id", input.LinkID)
		if err != nil {
			return nil, DealOutput{}, err
		}
		link.ID = id
	}
	if input.AgentID != "" {
		id, err := parseID("agent_id", input.AgentID)
		if err != nil {
			return nil, DealOutput{}, err
		}
		link.AgentID = id
	}

	properties := make([]models.Property, 0, len(input.Properties))
	for _, p := range input.Properties {
		property := models.Property{Address: p.Address, Price: p.Price}
		if p.ID != "" {
			id, err := parseID("property id", p.ID)
			if err != nil {
				return nil, DealOutput{}, err
			}
			property.ID = id
		}
		properties = append(properties, property)
	}

	var client *models.ClientInfo
	if input.ClientID != "" || input.ClientName != "" || input.ClientEmail != "" || input.ClientPhone != "" {
		client = &models.ClientInfo{
			ID:    input.ClientID,
			Name:  input.ClientName,
			Email: input.ClientEmail,
			Phone: input.ClientPhone,
		}
	}

	deal, err := h.service.CreateDealFromLink(ctx, h.agent, link, properties, client)
	if err != nil {
		return nil, DealOutput{}, err
	}
	return nil, dealToOutput(deal), nil
}

type DealIDInput struct {
	DealID string `json:"deal_id" jsonschema:"Deal ID (required)"`
}

func (h *DealHandlers) GetDeal(ctx context.Context, _ *mcp.CallToolRequest, input DealIDInput) (*mcp.CallToolResult, DealOutput, error) {
	id, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, DealOutput{}, err
	}

	deal, err := h.service.GetDeal(ctx, h.agent, id)
	if err != nil {
		return nil, DealOutput{}, err
	}
	if deal == nil {
		return nil, DealOutput{}, fmt.Errorf("deal not found: %s", id)
	}
	return nil, dealToOutput(deal), nil
}

type ListDealsInput struct {
	Stage  string `json:"stage,omitempty" jsonschema:"Filter by stage: created, shared, accessed, engaged, qualified, advanced, closed"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status: active, qualified, nurturing, closed-won, closed-lost"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results (default 50)"`
}

type ListDealsOutput struct {
	Deals []DealOutput `json:"deals"`
	Count int          `json:"count"`
}

func (h *DealHandlers) ListDeals(ctx context.Context, _ *mcp.CallToolRequest, input ListDealsInput) (*mcp.CallToolResult, ListDealsOutput, error) {
	filter := models.DealFilter{
		Stage:  models.DealStage(input.Stage),
		Status: models.DealStatus(input.Status),
		Limit:  input.Limit,
	}
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, ListDealsOutput{}, fmt.Errorf("invalid stage: %s", input.Stage)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ListDealsOutput{}, fmt.Errorf("invalid status: %s", input.Status)
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}

	deals, err := h.service.ListDeals(ctx, h.agent, filter)
	if err != nil {
		return nil, ListDealsOutput{}, err
	}

	out := ListDealsOutput{Deals: make([]DealOutput, 0, len(deals)), Count: len(deals)}
	for i := range deals {
		out.Deals = append(out.Deals, dealToOutput(&deals[i]))
	}
	return nil, out, nil
}

type ProgressDealStageInput struct {
	DealID string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Stage  string `json:"stage" jsonschema:"Target stage; must not move backwards"`
}

func (h *DealHandlers) ProgressDealStage(ctx context.Context, _ *mcp.CallToolRequest, input ProgressDealStageInput) (*mcp.CallToolResult, DealOutput, error) {
	id, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, DealOutput{}, err
	}

	deal, err := h.service.ProgressDealStage(ctx, h.agent, id, models.DealStage(input.Stage))
	if err != nil {
		return nil, DealOutput{}, err
	}
	return nil, dealToOutput(deal), nil
}

type UpdateDealStatusInput struct {
	DealID string `json:"deal_id" jsonschema:"Deal ID (required)"`
	Status string `json:"status" jsonschema:"Target status: active, qualified, nurturing, closed-won, closed-lost"`
}

func (h *DealHandlers) UpdateDealStatus(ctx context.Context, _ *mcp.CallToolRequest, input UpdateDealStatusInput) (*mcp.CallToolResult, DealOutput, error) {
	id, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, DealOutput{}, err
	}

	deal, err := h.service.UpdateDealStatus(ctx, h.agent, id, models.DealStatus(input.Status))
	if err != nil {
		return nil, DealOutput{}, err
	}
	return nil, dealToOutput(deal), nil
}

type ReconcileOutput struct {
	DealID         string  `json:"deal_id"`
	CurrentStage   string  `json:"current_stage"`
	SnapshotStage  string  `json:"snapshot_stage"`
	SnapshotStatus *string `json:"snapshot_status,omitempty"`
	Diverges       bool    `json:"diverges"`
}

func (h *DealHandlers) ReconcileDeal(ctx context.Context, _ *mcp.CallToolRequest, input DealIDInput) (*mcp.CallToolResult, ReconcileOutput, error) {
	id, err := parseID("deal_id", input.DealID)
	if err != nil {
		return nil, ReconcileOutput{}, err
	}

	rec, err := h.service.ReconcileDeal(ctx, h.agent, id)
	if err != nil {
		return nil, ReconcileOutput{}, err
	}
	if rec == nil {
		return nil, ReconcileOutput{}, fmt.Errorf("deal not found: %s", id)
	}
	return nil, reconcileToOutput(rec), nil
}

func reconcileToOutput(rec *engine.Reconciliation) ReconcileOutput {
	out := ReconcileOutput{
		DealID:        rec.DealID.String(),
		CurrentStage:  string(rec.CurrentStage),
		SnapshotStage: string(rec.SnapshotStage),
		Diverges:      rec.Diverges,
	}
	if rec.SnapshotStatus != nil {
		status := string(*rec.SnapshotStatus)
		out.SnapshotStatus = &status
	}
	return out
}
