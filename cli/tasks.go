// ABOUTME: Task CLI commands
// ABOUTME: Commands for listing, adding and completing deal tasks
package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
)

// TaskListCommand lists tasks ordered by due date.
func TaskListCommand(env Env, args []string) error {
	fs := env.flagSet("task list")
	dealID := fs.String("deal", "", "Filter by deal ID")
	status := fs.String("status", "", "Filter by status (pending, in_progress, completed, dismissed)")
	open := fs.Bool("open", false, "Show only pending and in-progress tasks")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := models.TaskFilter{Status: models.TaskStatus(*status), Limit: *limit}
	if *dealID != "" {
		id, err := uuid.Parse(*dealID)
		if err != nil {
			return fmt.Errorf("invalid --deal: %w", err)
		}
		filter.DealID = id
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("invalid --status: %s", *status)
	}

	tasks, err := env.Service.ListTasks(context.Background(), env.Agent, filter)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	now := time.Now()
	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PRIORITY\tTITLE\tTYPE\tSTATUS\tDUE\tDEAL\tID")
	_, _ = fmt.Fprintln(w, "--------\t-----\t----\t------\t---\t----\t--")

	shown := 0
	for i := range tasks {
		task := &tasks[i]
		if *open && !task.IsOpen() {
			continue
		}
		due := formatWhen(task.DueDate)
		if task.IsOverdue(now) {
			due += " (overdue)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			priorityBadge(task.Priority), task.Title, task.Type, task.Status, due, shortID(task.DealID), task.ID)
		shown++
	}

	if shown == 0 {
		env.printf("No tasks found\n")
		return nil
	}
	return w.Flush()
}

// TaskAddCommand adds a manual task to a deal.
func TaskAddCommand(env Env, args []string) error {
	fs := env.flagSet("task add")
	title := fs.String("title", "", "Task title (required)")
	description := fs.String("description", "", "Task details")
	taskType := fs.String("type", "", "Task type (default follow_up)")
	priority := fs.String("priority", "", "low, medium, high, urgent (default medium)")
	dueIn := fs.Duration("due-in", 0, "Offset until due, e.g. 24h")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dealID, err := requireID(fs, "deal ID")
	if err != nil {
		return err
	}

	task, err := env.Service.CreateManualTask(context.Background(), env.Agent, dealID, models.TaskSpec{
		Title:       *title,
		Description: *description,
		Type:        models.TaskType(*taskType),
		Priority:    models.TaskPriority(*priority),
		DueIn:       *dueIn,
	})
	if err != nil {
		return err
	}

	env.printf("✓ Task created: %s (ID: %s)\n", task.Title, task.ID)
	env.printf("  Priority: %s\n", priorityBadge(task.Priority))
	env.printf("  Due: %s\n", formatWhen(task.DueDate))
	return nil
}

// TaskStatusCommand moves a task through its workflow.
func TaskStatusCommand(env Env, args []string) error {
	fs := env.flagSet("task status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs, "task ID")
	if err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("target status is required")
	}

	task, err := env.Service.UpdateTaskStatus(context.Background(), env.Agent, id, models.TaskStatus(fs.Arg(1)))
	if err != nil {
		return err
	}
	env.printf("✓ %s is now %s\n", task.Title, task.Status)
	return nil
}
