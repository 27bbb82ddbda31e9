// ABOUTME: Task rule engine mapping triggers to follow-up task specs
// ABOUTME: Declarative template table keyed by trigger, plus event-to-trigger resolution
package rules

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/dealpulse/models"
)

// Template is one task a trigger emits. An empty Priority is derived from
// the deal's temperature when the spec is generated.
type Template struct {
	Title       string
	Description string
	Type        models.TaskType
	Priority    models.TaskPriority
	DueIn       time.Duration
}

// Rule describes the tasks produced for a trigger.
type Rule struct {
	Trigger models.Trigger

	// SchedulerOnly rules are never resolved from client events.
	SchedulerOnly bool

	Templates []Template
}

var table = map[models.Trigger]Rule{
	models.TriggerHighEngagement: {
		Templates: []Template{
			{
				Title:       "Hot Lead: call {client} today",
				Description: "{client} is highly engaged with {deal} (score {score}). Call while interest is peaking.",
				Type:        models.TaskTypeUrgentCall,
				Priority:    models.PriorityUrgent,
				DueIn:       2 * time.Hour,
			},
			{
				Title:       "Send {client} listings similar to their favorites",
				Description: "Follow the call with a short list of comparable properties.",
				Type:        models.TaskTypeEmail,
				Priority:    models.PriorityHigh,
				DueIn:       24 * time.Hour,
			},
		},
	},
	models.TriggerLinkAccessed: {
		Templates: []Template{
			{
				Title:       "Check in with {client} about {deal}",
				Description: "{client} opened the shared collection. Ask what stood out.",
				Type:        models.TaskTypeCall,
				DueIn:       24 * time.Hour,
			},
		},
	},
	models.TriggerMultipleLikes: {
		Templates: []Template{
			{
				Title:       "Schedule a showing for {client}'s liked properties",
				Description: "{client} liked several properties in {deal}. Offer showing times.",
				Type:        models.TaskTypeShowing,
				Priority:    models.PriorityHigh,
				DueIn:       48 * time.Hour,
			},
			{
				Title:       "Follow up on {client}'s favorites",
				Description: "Confirm which liked properties {client} wants to prioritise.",
				Type:        models.TaskTypeFollowUp,
				DueIn:       24 * time.Hour,
			},
		},
	},
	models.TriggerColdLead: {
		Templates: []Template{
			{
				Title:       "Send {client} a re-engagement email",
				Description: "Engagement with {deal} has cooled. Share fresh listings or a market update.",
				Type:        models.TaskTypeEmail,
				Priority:    models.PriorityLow,
				DueIn:       72 * time.Hour,
			},
		},
	},
	models.TriggerFirstShowingAttended: {
		Templates: []Template{
			{
				Title:       "Request showing feedback from {client}",
				Description: "Ask {client} what they liked and disliked about the first showing.",
				Type:        models.TaskTypeFeedback,
				Priority:    models.PriorityHigh,
				DueIn:       24 * time.Hour,
			},
			{
				Title:       "Plan next steps with {client}",
				Description: "Agree on second showings, financing or an offer strategy for {deal}.",
				Type:        models.TaskTypePlanning,
				DueIn:       48 * time.Hour,
			},
		},
	},
	models.TriggerUrgentFollowUp: {
		SchedulerOnly: true,
		Templates: []Template{
			{
				Title:       "Urgent: reconnect with hot lead {client}",
				Description: "{client} was highly engaged with {deal} but has gone quiet ({risk} risk).",
				Type:        models.TaskTypeUrgentFollowUp,
				Priority:    models.PriorityUrgent,
				DueIn:       4 * time.Hour,
			},
		},
	},
	models.TriggerRegularFollowUp: {
		SchedulerOnly: true,
		Templates: []Template{
			{
				Title:       "Follow up with {client}",
				Description: "No activity on {deal} for a few days ({risk} risk).",
				Type:        models.TaskTypeFollowUp,
				DueIn:       24 * time.Hour,
			},
		},
	},
	models.TriggerNurtureSequence: {
		SchedulerOnly: true,
		Templates: []Template{
			{
				Title:       "Start a nurture sequence for {client}",
				Description: "{deal} has been inactive for over a week ({risk} risk). Move {client} to periodic updates.",
				Type:        models.TaskTypeNurture,
				Priority:    models.PriorityLow,
				DueIn:       72 * time.Hour,
			},
		},
	},
	models.TriggerInitialFollowUp: {
		SchedulerOnly: true,
		Templates: []Template{
			{
				Title:       "Confirm {client} received {deal}",
				Description: "The shared collection has not been opened yet.",
				Type:        models.TaskTypeFollowUp,
				Priority:    models.PriorityMedium,
				DueIn:       24 * time.Hour,
			},
		},
	},
}

// Lookup returns the rule registered for a trigger.
func Lookup(trigger models.Trigger) (Rule, bool) {
	rule, ok := table[trigger]
	if !ok {
		return Rule{}, false
	}
	rule.Trigger = trigger
	return rule, true
}

// Triggers lists every trigger with a rule, sorted by name.
func Triggers() []models.Trigger {
	triggers := make([]models.Trigger, 0, len(table))
	for trigger := range table {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}

// DefaultPriority maps a temperature to the priority used when a template
// does not fix one.
func DefaultPriority(temperature models.Temperature) models.TaskPriority {
	switch temperature {
	case models.TemperatureHot:
		return models.PriorityHigh
	case models.TemperatureWarm:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// RiskLevel classifies how likely a deal is to go cold.
func RiskLevel(score int) string {
	switch {
	case score < 30:
		return "high"
	case score < 60:
		return "medium"
	default:
		return "low"
	}
}

// GenerateTasks returns the task specs for a trigger on a deal. It is pure:
// identical inputs always produce identical output. Unknown triggers yield nil.
func GenerateTasks(trigger string, deal *models.Deal) []models.TaskSpec {
	rule, ok := Lookup(models.Trigger(trigger))
	if !ok || deal == nil {
		return nil
	}

	replacer := strings.NewReplacer(
		"{client}", deal.ClientLabel(),
		"{deal}", dealLabel(deal),
		"{score}", strconv.Itoa(deal.EngagementScore),
		"{risk}", RiskLevel(deal.EngagementScore),
	)

	specs := make([]models.TaskSpec, 0, len(rule.Templates))
	for _, tmpl := range rule.Templates {
		priority := tmpl.Priority
		if priority == "" {
			priority = DefaultPriority(deal.ClientTemperature)
		}
		specs = append(specs, models.TaskSpec{
			Title:       replacer.Replace(tmpl.Title),
			Description: replacer.Replace(tmpl.Description),
			Type:        tmpl.Type,
			Priority:    priority,
			DueIn:       tmpl.DueIn,
			Trigger:     rule.Trigger,
		})
	}
	return specs
}

// ResolveEventTrigger picks the rule trigger for a client event on a deal
// whose score and temperature already reflect the event. likeCount is the
// number of likes in the deal's history including this event. The second
// return is false when the event should not generate tasks.
func ResolveEventTrigger(action string, deal *models.Deal, likeCount int) (models.Trigger, bool) {
	switch {
	case action == models.EventFirstShowingAttended || action == models.EventShowingAttended:
		return models.TriggerFirstShowingAttended, true
	case isHotLead(deal):
		return models.TriggerHighEngagement, true
	case isLike(action) && likeCount >= 2:
		return models.TriggerMultipleLikes, true
	case action == string(models.ActionLinkAccessed):
		return models.TriggerLinkAccessed, true
	case action == models.EventDislike && deal.ClientTemperature == models.TemperatureCold:
		return models.TriggerColdLead, true
	}

	if rule, ok := Lookup(models.Trigger(action)); ok && !rule.SchedulerOnly {
		return rule.Trigger, true
	}
	return "", false
}

func isHotLead(deal *models.Deal) bool {
	return deal.ClientTemperature == models.TemperatureHot || deal.EngagementScore >= 80
}

func isLike(action string) bool {
	return action == models.EventLike || action == string(models.ActionPropertyLiked)
}

func dealLabel(deal *models.Deal) string {
	if deal.Title != "" {
		return deal.Title
	}
	return "the shared collection"
}
