// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Summarises the deal pipeline, client temperatures, open tasks and quiet deals
package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
)

// attentionLimit caps the quiet deals listed on the dashboard.
const attentionLimit = 5

type DashboardStats struct {
	PipelineByStage map[models.DealStage]PipelineStageStats
	ByTemperature   map[models.Temperature]int

	TotalDeals   int
	TotalValue   int64
	ClosedWon    int
	OpenTasks    int
	OverdueTasks int

	NeedsAttention []AttentionItem
}

type PipelineStageStats struct {
	Stage models.DealStage
	Count int
	Value int64
}

// AttentionItem is a deal the follow-up scheduler would act on.
type AttentionItem struct {
	Title     string
	Client    string
	Trigger   models.Trigger
	Urgency   int
	DaysStale float64
}

// BuildDashboard aggregates deals, tasks and pending follow-up plans. Plans
// are expected in urgency order, as the scheduler returns them.
func BuildDashboard(deals []models.Deal, tasks []models.Task, plans []engine.FollowUpPlan, now time.Time) *DashboardStats {
	stats := &DashboardStats{
		PipelineByStage: make(map[models.DealStage]PipelineStageStats),
		ByTemperature:   make(map[models.Temperature]int),
		TotalDeals:      len(deals),
	}

	byID := make(map[string]*models.Deal, len(deals))
	for i := range deals {
		deal := &deals[i]
		byID[deal.ID.String()] = deal

		pstats := stats.PipelineByStage[deal.Stage]
		pstats.Stage = deal.Stage
		pstats.Count++
		pstats.Value += deal.Value
		stats.PipelineByStage[deal.Stage] = pstats

		temperature := deal.ClientTemperature
		if temperature == "" {
			temperature = models.TemperatureCold
		}
		stats.ByTemperature[temperature]++
		stats.TotalValue += deal.Value
		if deal.Status == models.StatusClosedWon {
			stats.ClosedWon++
		}
	}

	for i := range tasks {
		if !tasks[i].IsOpen() {
			continue
		}
		stats.OpenTasks++
		if tasks[i].IsOverdue(now) {
			stats.OverdueTasks++
		}
	}

	for _, plan := range plans {
		if len(stats.NeedsAttention) == attentionLimit {
			break
		}
		deal, ok := byID[plan.DealID.String()]
		if !ok {
			continue
		}
		stats.NeedsAttention = append(stats.NeedsAttention, AttentionItem{
			Title:     deal.Title,
			Client:    deal.ClientLabel(),
			Trigger:   plan.Trigger,
			Urgency:   plan.Urgency,
			DaysStale: plan.DaysStale,
		})
	}

	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  DEALPULSE DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE\n")
	renderPipeline(&out, stats.PipelineByStage)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  💼 %d deals ($%d)  🏆 %d won  📋 %d open tasks",
		stats.TotalDeals, stats.TotalValue, stats.ClosedWon, stats.OpenTasks))
	if stats.OverdueTasks > 0 {
		out.WriteString(fmt.Sprintf(" (%d overdue)", stats.OverdueTasks))
	}
	out.WriteString("\n")
	out.WriteString(fmt.Sprintf("  🔥 %d hot  🌤  %d warm  🧊 %d cold\n\n",
		stats.ByTemperature[models.TemperatureHot],
		stats.ByTemperature[models.TemperatureWarm],
		stats.ByTemperature[models.TemperatureCold]))

	if len(stats.NeedsAttention) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		for _, item := range stats.NeedsAttention {
			out.WriteString(fmt.Sprintf("  ⚠️  %s (%s) - %s, quiet %.1f days\n",
				item.Title, item.Client, item.Trigger, item.DaysStale))
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, pipeline map[models.DealStage]PipelineStageStats) {
	maxCount := 0
	for _, pstats := range pipeline {
		if pstats.Count > maxCount {
			maxCount = pstats.Count
		}
	}
	if maxCount == 0 {
		out.WriteString("  (no deals)\n")
		return
	}

	for _, stage := range models.Stages {
		pstats, exists := pipeline[stage]
		if !exists {
			continue
		}

		barLength := (pstats.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-10s %s  %2d ($%d)\n",
			stage, bar, pstats.Count, pstats.Value))
	}
}
