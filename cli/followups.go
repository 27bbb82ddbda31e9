// ABOUTME: Follow-up CLI commands
// ABOUTME: Runs the follow-up scheduler or previews which quiet deals it would act on
package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/dealpulse/engine"
)

// FollowupScheduleCommand creates follow-up tasks for quiet deals.
func FollowupScheduleCommand(env Env, args []string) error {
	fs := env.flagSet("followups schedule")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := env.Service.ScheduleEngagementFollowUps(context.Background(), env.Agent)
	if result != nil {
		env.printf("Run %s: %d scheduled, %d skipped, %d errors\n", result.RunID, result.Scheduled, result.Skipped, result.Errors)
		if len(result.Plans) > 0 {
			if ferr := printPlans(env, result.Plans); ferr != nil {
				return ferr
			}
		}
	}
	return err
}

// FollowupPreviewCommand lists the deals the next run would pick up.
func FollowupPreviewCommand(env Env, args []string) error {
	fs := env.flagSet("followups preview")
	if err := fs.Parse(args); err != nil {
		return err
	}

	plans, err := env.Service.PreviewFollowUps(context.Background(), env.Agent)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		env.printf("No deals need a follow-up right now\n")
		return nil
	}
	return printPlans(env, plans)
}

func printPlans(env Env, plans []engine.FollowUpPlan) error {
	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "URGENCY\tFOLLOW-UP\tRISK\tDAYS QUIET\tTASKS\tDEAL")
	_, _ = fmt.Fprintln(w, "-------\t---------\t----\t----------\t-----\t----")

	for _, plan := range plans {
		indicator := "🟢"
		if plan.Urgency >= 7 {
			indicator = "🔴"
		} else if plan.Urgency >= 4 {
			indicator = "🟡"
		}
		_, _ = fmt.Fprintf(w, "%s %d\t%s\t%s\t%.1f\t%d\t%s\n",
			indicator, plan.Urgency, plan.Trigger, plan.Risk, plan.DaysStale, plan.TasksCreated, plan.DealID)
	}
	return w.Flush()
}
