// ABOUTME: Visualization CLI commands
// ABOUTME: Renders the pipeline dashboard and the Graphviz pipeline graph
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/harperreed/dealpulse/models"
	"github.com/harperreed/dealpulse/viz"
)

// VizDashboardCommand prints a pipeline overview.
func VizDashboardCommand(env Env, args []string) error {
	fs := env.flagSet("viz dashboard")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	deals, err := env.Service.ListDeals(ctx, env.Agent, models.DealFilter{})
	if err != nil {
		return fmt.Errorf("failed to list deals: %w", err)
	}
	tasks, err := env.Service.ListTasks(ctx, env.Agent, models.TaskFilter{})
	if err != nil {
		return err
	}
	plans, err := env.Service.PreviewFollowUps(ctx, env.Agent)
	if err != nil {
		return err
	}

	env.printf("%s", viz.RenderDashboard(viz.BuildDashboard(deals, tasks, plans, time.Now())))
	return nil
}

// VizGraphCommand writes the pipeline graph as DOT.
func VizGraphCommand(env Env, args []string) error {
	fs := env.flagSet("viz graph")
	output := fs.String("output", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	deals, err := env.Service.ListDeals(ctx, env.Agent, models.DealFilter{})
	if err != nil {
		return fmt.Errorf("failed to list deals: %w", err)
	}

	dot, err := viz.GeneratePipelineGraph(ctx, deals)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}
	env.printf("%s\n", dot)
	return nil
}
