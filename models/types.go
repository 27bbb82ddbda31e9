// ABOUTME: Data models for deal lifecycle entities
// ABOUTME: Defines Deal, activity, session, link and agent context types plus their closed enums
package models

import (
	"time"

	"github.com/google/uuid"
)

// DealStage is the ordered pipeline position of a deal.
type DealStage string

const (
	StageCreated   DealStage = "created"
	StageShared    DealStage = "shared"
	StageAccessed  DealStage = "accessed"
	StageEngaged   DealStage = "engaged"
	StageQualified DealStage = "qualified"
	StageAdvanced  DealStage = "advanced"
	StageClosed    DealStage = "closed"
)

// Stages lists every stage in pipeline order.
var Stages = []DealStage{
	StageCreated,
	StageShared,
	StageAccessed,
	StageEngaged,
	StageQualified,
	StageAdvanced,
	StageClosed,
}

// Index returns the position of the stage in the pipeline, or -1 if unknown.
func (s DealStage) Index() int {
	for i, stage := range Stages {
		if stage == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known stage.
func (s DealStage) Valid() bool {
	return s.Index() >= 0
}

// DealStatus is the business-outcome classification of a deal.
type DealStatus string

const (
	StatusActive     DealStatus = "active"
	StatusQualified  DealStatus = "qualified"
	StatusNurturing  DealStatus = "nurturing"
	StatusClosedWon  DealStatus = "closed-won"
	StatusClosedLost DealStatus = "closed-lost"
)

// Statuses lists every deal status.
var Statuses = []DealStatus{
	StatusActive,
	StatusQualified,
	StatusNurturing,
	StatusClosedWon,
	StatusClosedLost,
}

// Valid reports whether s is a known status.
func (s DealStatus) Valid() bool {
	for _, status := range Statuses {
		if status == s {
			return true
		}
	}
	return false
}

// IsClosed reports whether the status ends the pipeline.
func (s DealStatus) IsClosed() bool {
	return s == StatusClosedWon || s == StatusClosedLost
}

// Temperature is the categorical bucket derived from an engagement score.
type Temperature string

const (
	TemperatureCold Temperature = "cold"
	TemperatureWarm Temperature = "warm"
	TemperatureHot  Temperature = "hot"
)

// ActivityAction names a recorded client interaction.
type ActivityAction string

const (
	ActionLinkAccessed         ActivityAction = "link_accessed"
	ActionPropertyViewed       ActivityAction = "property_viewed"
	ActionPropertyLiked        ActivityAction = "property_liked"
	ActionPropertyShared       ActivityAction = "property_shared"
	ActionContactFormSubmitted ActivityAction = "contact_form_submitted"
	ActionPhoneClicked         ActivityAction = "phone_clicked"
	ActionEmailClicked         ActivityAction = "email_clicked"
)

// Swipe-session actions carried by engagement events.
const (
	EventView                 = "view"
	EventLike                 = "like"
	EventConsider             = "consider"
	EventDetail               = "detail"
	EventDislike              = "dislike"
	EventShare                = "share"
	EventShowingAttended      = "showing_attended"
	EventFirstShowingAttended = "first_showing_attended"
)

type Deal struct {
	ID                uuid.UUID   `json:"id"`
	LinkID            uuid.UUID   `json:"link_id"`
	AgentID           uuid.UUID   `json:"agent_id"`
	Title             string      `json:"title"`
	Status            DealStatus  `json:"deal_status"`
	Stage             DealStage   `json:"deal_stage"`
	Value             int64       `json:"deal_value"`
	PropertyCount     int         `json:"property_count"`
	ClientID          *string     `json:"client_id,omitempty"`
	ClientName        *string     `json:"client_name,omitempty"`
	ClientEmail       *string     `json:"client_email,omitempty"`
	ClientPhone       *string     `json:"client_phone,omitempty"`
	EngagementScore   int         `json:"engagement_score"`
	ClientTemperature Temperature `json:"client_temperature"`
	SessionCount      int         `json:"session_count"`
	TotalTimeSpent    float64     `json:"total_time_spent"` // seconds
	LastActivityAt    *time.Time  `json:"last_activity_at,omitempty"`
	NextFollowUp      *time.Time  `json:"next_follow_up,omitempty"`
	Tags              []string    `json:"tags,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// ClientLabel returns the client's display name, falling back to "client".
func (d *Deal) ClientLabel() string {
	if d.ClientName != nil && *d.ClientName != "" {
		return *d.ClientName
	}
	return "client"
}

// DealFilter narrows ListDeals results. Zero values match everything.
type DealFilter struct {
	AgentID uuid.UUID
	Stage   DealStage
	Status  DealStatus
	Limit   int
}

type ActivityRecord struct {
	ID         uuid.UUID              `json:"id"`
	DealID     uuid.UUID              `json:"deal_id"`
	Action     ActivityAction         `json:"action"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type SessionRecord struct {
	ID              uuid.UUID `json:"id"`
	DealID          uuid.UUID `json:"deal_id"`
	DurationSeconds float64   `json:"duration_seconds"`
	StartedAt       time.Time `json:"started_at"`
}

// SessionAggregate summarises all sessions recorded for a deal.
type SessionAggregate struct {
	SessionCount   int     `json:"session_count"`
	TotalTimeSpent float64 `json:"total_time_spent"`
}

// EngagementEvent is a single client interaction fed to the orchestrator.
type EngagementEvent struct {
	Action     string                 `json:"action"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	ClientID   *string                `json:"client_id,omitempty"`
	DealID     *uuid.UUID             `json:"deal_id,omitempty"`
	OccurredAt time.Time              `json:"occurred_at,omitempty"`
}

// Link is the shared property collection a deal is created from.
type Link struct {
	ID      uuid.UUID `json:"id"`
	AgentID uuid.UUID `json:"agent_id"`
	Name    string    `json:"name"`
	Tags    []string  `json:"tags,omitempty"`
}

type Property struct {
	ID      uuid.UUID `json:"id"`
	Address string    `json:"address,omitempty"`
	Price   float64   `json:"price"`
}

// ClientInfo carries the optional client identity captured with a link.
type ClientInfo struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// AgentContext identifies the agent on whose behalf an engine call runs.
// The zero value is the system context.
type AgentContext struct {
	AgentID uuid.UUID `json:"agent_id"`
}

// SystemAgent returns the context used by batch jobs acting for every agent.
func SystemAgent() AgentContext {
	return AgentContext{}
}

// IsSystem reports whether the context is not tied to a single agent.
func (a AgentContext) IsSystem() bool {
	return a.AgentID == uuid.Nil
}
