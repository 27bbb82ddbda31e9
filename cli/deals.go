// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for creating, listing and moving deals and feeding them engagement
package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
)

// DealCreateCommand opens a deal for a shared link.
func DealCreateCommand(env Env, args []string) error {
	fs := env.flagSet("deal create")
	linkName := fs.String("link-name", "", "Collection name, used as the deal title")
	linkID := fs.String("link-id", "", "Shared link ID (generated when omitted)")
	owner := fs.String("owner", "", "Owning agent ID (defaults to --agent)")
	clientName := fs.String("client-name", "", "Client name")
	clientEmail := fs.String("client-email", "", "Client email")
	clientPhone := fs.String("client-phone", "", "Client phone")
	var prices, tags stringList
	fs.Var(&prices, "price", "Property price (repeatable)")
	fs.Var(&tags, "tag", "Collection tag (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	link := models.Link{Name: *linkName, Tags: tags}
	if *linkID != "" {
		id, err := uuid.Parse(*linkID)
		if err != nil {
			return fmt.Errorf("invalid --link-id: %w", err)
		}
		link.ID = id
	}
	if *owner != "" {
		id, err := uuid.Parse(*owner)
		if err != nil {
			return fmt.Errorf("invalid --owner: %w", err)
		}
		link.AgentID = id
	}

	properties := make([]models.Property, 0, len(prices))
	for _, p := range prices {
		price, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return fmt.Errorf("invalid --price %q: %w", p, err)
		}
		properties = append(properties, models.Property{Price: price})
	}

	var client *models.ClientInfo
	if *clientName != "" || *clientEmail != "" || *clientPhone != "" {
		client = &models.ClientInfo{Name: *clientName, Email: *clientEmail, Phone: *clientPhone}
	}

	deal, err := env.Service.CreateDealFromLink(context.Background(), env.Agent, link, properties, client)
	if err != nil {
		return err
	}

	env.printf("✓ Deal created: %s (ID: %s)\n", deal.Title, deal.ID)
	env.printf("  Client: %s\n", deal.ClientLabel())
	env.printf("  Value: $%d from %d properties\n", deal.Value, deal.PropertyCount)
	env.printf("  Stage: %s\n", deal.Stage)
	return nil
}

// DealListCommand lists deals, most recently active first.
func DealListCommand(env Env, args []string) error {
	fs := env.flagSet("deal list")
	stage := fs.String("stage", "", "Filter by stage")
	status := fs.String("status", "", "Filter by status")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := models.DealFilter{Stage: models.DealStage(*stage), Status: models.DealStatus(*status), Limit: *limit}
	if filter.Stage != "" && !filter.Stage.Valid() {
		return fmt.Errorf("invalid --stage: %s", *stage)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("invalid --status: %s", *status)
	}

	deals, err := env.Service.ListDeals(context.Background(), env.Agent, filter)
	if err != nil {
		return fmt.Errorf("failed to list deals: %w", err)
	}

	if len(deals) == 0 {
		env.printf("No deals found\n")
		return nil
	}

	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tCLIENT\tSTAGE\tSTATUS\tSCORE\tTEMP\tLAST ACTIVITY\tID")
	_, _ = fmt.Fprintln(w, "-----\t------\t-----\t------\t-----\t----\t-------------\t--")
	for i := range deals {
		deal := &deals[i]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			deal.Title, deal.ClientLabel(), deal.Stage, deal.Status, deal.EngagementScore,
			temperatureBadge(deal.ClientTemperature), formatWhen(deal.LastActivityAt), deal.ID)
	}
	return w.Flush()
}

// DealShowCommand prints one deal with its snapshot stage and tasks.
func DealShowCommand(env Env, args []string) error {
	fs := env.flagSet("deal show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs, "deal ID")
	if err != nil {
		return err
	}

	ctx := context.Background()
	deal, err := env.Service.GetDeal(ctx, env.Agent, id)
	if err != nil {
		return err
	}
	if deal == nil {
		return fmt.Errorf("deal %s: %w", id, models.ErrNotFound)
	}
	rec, err := env.Service.ReconcileDeal(ctx, env.Agent, id)
	if err != nil {
		return err
	}
	tasks, err := env.Service.ListTasks(ctx, env.Agent, models.TaskFilter{DealID: id})
	if err != nil {
		return err
	}

	env.printf("%s (%s)\n", deal.Title, deal.ID)
	env.printf("  Client:      %s\n", deal.ClientLabel())
	env.printf("  Stage:       %s", deal.Stage)
	if rec != nil && rec.Diverges {
		env.printf(" (engagement suggests %s)", rec.SnapshotStage)
	}
	env.printf("\n")
	env.printf("  Status:      %s\n", deal.Status)
	env.printf("  Engagement:  %d %s\n", deal.EngagementScore, temperatureBadge(deal.ClientTemperature))
	env.printf("  Value:       $%d (%d properties)\n", deal.Value, deal.PropertyCount)
	env.printf("  Sessions:    %d (%s)\n", deal.SessionCount, time.Duration(deal.TotalTimeSpent*float64(time.Second)).Round(time.Second))
	env.printf("  Last active: %s\n", formatWhen(deal.LastActivityAt))
	env.printf("  Follow-up:   %s\n", formatWhen(deal.NextFollowUp))

	if len(tasks) > 0 {
		env.printf("\nTasks:\n")
		for _, task := range tasks {
			env.printf("  %s %s [%s] due %s\n", priorityBadge(task.Priority), task.Title, task.Status, formatWhen(task.DueDate))
		}
	}
	return nil
}

// DealStageCommand moves a deal forward in the pipeline.
func DealStageCommand(env Env, args []string) error {
	fs := env.flagSet("deal stage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs, "deal ID")
	if err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("target stage is required")
	}

	deal, err := env.Service.ProgressDealStage(context.Background(), env.Agent, id, models.DealStage(fs.Arg(1)))
	if err != nil {
		return err
	}
	env.printf("✓ %s is now %s\n", deal.Title, deal.Stage)
	return nil
}

// DealStatusCommand changes a deal's status.
func DealStatusCommand(env Env, args []string) error {
	fs := env.flagSet("deal status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs, "deal ID")
	if err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("target status is required")
	}

	deal, err := env.Service.UpdateDealStatus(context.Background(), env.Agent, id, models.DealStatus(fs.Arg(1)))
	if err != nil {
		return err
	}
	env.printf("✓ %s is now %s (stage %s)\n", deal.Title, deal.Status, deal.Stage)
	return nil
}

// DealEventCommand feeds one engagement event to a deal.
func DealEventCommand(env Env, args []string) error {
	fs := env.flagSet("deal event")
	action := fs.String("action", "", "Interaction, e.g. view, like, link_accessed (required)")
	at := fs.String("at", "", "Event time in RFC3339 (defaults to now)")
	var meta stringList
	fs.Var(&meta, "meta", "Metadata as key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs, "deal ID")
	if err != nil {
		return err
	}

	event := models.EngagementEvent{Action: *action}
	if *at != "" {
		occurred, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		event.OccurredAt = occurred
	}
	if len(meta) > 0 {
		event.Metadata = make(map[string]interface{}, len(meta))
		for _, kv := range meta {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				return fmt.Errorf("invalid --meta %q (want key=value)", kv)
			}
			event.Metadata[key] = value
		}
	}

	result, err := env.Service.ProcessEngagementEvent(context.Background(), env.Agent, id, event)
	if err != nil {
		return err
	}
	if result.Deal == nil {
		env.printf("No deal %s; event ignored\n", id)
		return nil
	}

	env.printf("✓ %s recorded on %s\n", *action, result.Deal.Title)
	env.printf("  Score: %d %s\n", result.Deal.EngagementScore, temperatureBadge(result.Deal.ClientTemperature))
	if result.StageChanged {
		env.printf("  Stage: %s\n", result.Deal.Stage)
	}
	for _, task := range result.Tasks {
		env.printf("  + %s %s (due %s)\n", priorityBadge(task.Priority), task.Title, formatWhen(task.DueDate))
	}
	return nil
}

// DealSessionCommand records a browsing session.
func DealSessionCommand(env Env, args []string) error {
	fs := env.flagSet("deal session")
	seconds := fs.Float64("seconds", 0, "Session length in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs, "deal ID")
	if err != nil {
		return err
	}

	deal, err := env.Service.RecordSession(context.Background(), env.Agent, id, *seconds)
	if err != nil {
		return err
	}
	env.printf("✓ Session recorded: %d sessions, score %d %s\n", deal.SessionCount, deal.EngagementScore, temperatureBadge(deal.ClientTemperature))
	return nil
}

// DealUndoCommand removes one recorded activity and re-scores the deal.
func DealUndoCommand(env Env, args []string) error {
	fs := env.flagSet("deal undo")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs, "deal ID")
	if err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("activity ID is required")
	}
	activityID, err := uuid.Parse(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("invalid activity ID: %w", err)
	}

	deal, err := env.Service.UndoActivity(context.Background(), env.Agent, id, activityID)
	if err != nil {
		return err
	}
	env.printf("✓ Activity removed; score %d %s\n", deal.EngagementScore, temperatureBadge(deal.ClientTemperature))
	return nil
}
