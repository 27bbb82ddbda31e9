package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DEALPULSE"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	s.WriteString(m.renderTable())
	s.WriteString("\n\n")

	if status := m.renderStatus(); status != "" {
		s.WriteString(status)
		s.WriteString("\n")
	}
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Deals", "Tasks", "Follow-ups"}
	var rendered []string

	for i, tab := range tabs {
		if Tab(i) == m.tab {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderTable() string {
	var (
		columns []table.Column
		rows    []table.Row
	)

	switch m.tab {
	case TabDeals:
		columns = []table.Column{
			{Title: "Title", Width: 28},
			{Title: "Client", Width: 18},
			{Title: "Stage", Width: 10},
			{Title: "Score", Width: 6},
			{Title: "Temp", Width: 6},
			{Title: "Value", Width: 10},
		}
		for i := range m.deals {
			deal := &m.deals[i]
			rows = append(rows, table.Row{
				deal.Title,
				deal.ClientLabel(),
				string(deal.Stage),
				fmt.Sprintf("%d", deal.EngagementScore),
				string(deal.ClientTemperature),
				fmt.Sprintf("$%d", deal.Value),
			})
		}

	case TabTasks:
		columns = []table.Column{
			{Title: "Priority", Width: 8},
			{Title: "Title", Width: 40},
			{Title: "Status", Width: 12},
			{Title: "Due", Width: 16},
		}
		now := time.Now()
		for i := range m.tasks {
			task := &m.tasks[i]
			due := "-"
			if task.DueDate != nil {
				due = task.DueDate.Local().Format("2006-01-02 15:04")
				if task.IsOverdue(now) {
					due = "⚠ " + due
				}
			}
			rows = append(rows, table.Row{string(task.Priority), task.Title, string(task.Status), due})
		}

	case TabFollowups:
		columns = []table.Column{
			{Title: "Status", Width: 6},
			{Title: "Deal", Width: 28},
			{Title: "Follow-up", Width: 20},
			{Title: "Days", Width: 6},
			{Title: "Risk", Width: 8},
		}
		for _, plan := range m.plans {
			indicator := "🟢"
			if plan.Urgency >= 7 {
				indicator = "🔴"
			} else if plan.Urgency >= 4 {
				indicator = "🟡"
			}
			title := plan.DealID.String()[:8]
			if deal := m.findDeal(plan.DealID); deal != nil {
				title = deal.Title
			}
			rows = append(rows, table.Row{
				indicator,
				title,
				string(plan.Trigger),
				fmt.Sprintf("%.1f", plan.DaysStale),
				plan.Risk,
			})
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-10, 3)),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch tabs",
		"Enter: View deal",
	}
	if m.tab == TabFollowups {
		help = append(help, "s: Schedule follow-ups")
	}
	help = append(help, "r: Refresh", "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < m.rowCount()-1 {
			m.selectedRow++
		}
	case "tab":
		m.tab = (m.tab + 1) % tabCount
		m.selectedRow = 0
	case "enter":
		if id, ok := m.selectedDealID(); ok {
			m.viewMode = ViewDetail
			m.selectedID = id
			m.detailTasks = m.tasksForDeal(id)
			m.status = ""
		}
	case "s":
		if m.tab == TabFollowups {
			return m, m.schedule
		}
	}

	return m, nil
}

func (m Model) schedule() tea.Msg {
	result, err := m.service.ScheduleEngagementFollowUps(context.Background(), m.agent)
	if err != nil {
		return actionMsg{err: err}
	}
	return actionMsg{status: fmt.Sprintf("✓ %d follow-ups scheduled, %d skipped", result.Scheduled, result.Skipped)}
}
