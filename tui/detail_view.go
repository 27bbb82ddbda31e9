package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harperreed/dealpulse/models"
	"github.com/harperreed/dealpulse/pipeline"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// selectedDealID resolves the list cursor to a deal, whichever tab is shown.
func (m Model) selectedDealID() (uuid.UUID, bool) {
	if m.selectedRow < 0 || m.selectedRow >= m.rowCount() {
		return uuid.Nil, false
	}
	switch m.tab {
	case TabTasks:
		return m.tasks[m.selectedRow].DealID, true
	case TabFollowups:
		return m.plans[m.selectedRow].DealID, true
	default:
		return m.deals[m.selectedRow].ID, true
	}
}

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DEAL"))
	s.WriteString("\n\n")

	deal := m.findDeal(m.selectedID)
	if deal == nil {
		s.WriteString("Deal not found\n")
	} else {
		s.WriteString(m.renderDealDetail(deal))
	}

	s.WriteString("\n")
	if status := m.renderStatus(); status != "" {
		s.WriteString(status)
		s.WriteString("\n")
	}
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderDealDetail(deal *models.Deal) string {
	var s strings.Builder

	s.WriteString(m.renderField("Title", deal.Title))
	s.WriteString(m.renderField("Client", deal.ClientLabel()))
	if deal.ClientEmail != nil {
		s.WriteString(m.renderField("Email", *deal.ClientEmail))
	}
	if deal.ClientPhone != nil {
		s.WriteString(m.renderField("Phone", *deal.ClientPhone))
	}
	s.WriteString(m.renderField("Stage", string(deal.Stage)))
	s.WriteString(m.renderField("Status", string(deal.Status)))
	s.WriteString(m.renderField("Engagement", fmt.Sprintf("%d (%s)", deal.EngagementScore, deal.ClientTemperature)))
	s.WriteString(m.renderField("Value", fmt.Sprintf("$%d from %d properties", deal.Value, deal.PropertyCount)))
	if deal.LastActivityAt != nil {
		s.WriteString(m.renderField("Last Activity", deal.LastActivityAt.Local().Format("2006-01-02 15:04")))
	}
	if len(deal.Tags) > 0 {
		s.WriteString(m.renderField("Tags", strings.Join(deal.Tags, ", ")))
	}

	s.WriteString("\n")
	s.WriteString(fieldLabelStyle.Render("Tasks:"))
	s.WriteString("\n")
	if len(m.detailTasks) == 0 {
		s.WriteString("  none\n")
	}
	for _, task := range m.detailTasks {
		marker := "○"
		if !task.IsOpen() {
			marker = "●"
		}
		s.WriteString(fmt.Sprintf("  %s [%s] %s (%s)\n", marker, task.Priority, task.Title, task.Status))
	}

	return s.String()
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		return ""
	}
	return fieldLabelStyle.Render(label+":") + " " + fieldValueStyle.Render(value) + "\n"
}

func (m Model) renderDetailHelp() string {
	help := []string{"n: Next stage"}
	if deal := m.findDeal(m.selectedID); deal != nil {
		if canMove(deal.Status, models.StatusQualified) {
			help = append(help, "u: Qualify")
		}
		if canMove(deal.Status, models.StatusClosedWon) {
			help = append(help, "w: Mark won")
		}
	}
	help = append(help, "x: Complete next task", "Esc: Back", "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

// canMove is true for status changes the allow-list permits, excluding no-ops.
func canMove(from, to models.DealStatus) bool {
	return from != to && pipeline.CanTransitionStatus(from, to)
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.viewMode = ViewList
		m.status = ""
	case "n":
		return m, m.advanceStage
	case "u":
		return m, m.setStatus(models.StatusQualified)
	case "w":
		return m, m.setStatus(models.StatusClosedWon)
	case "x":
		return m, m.completeNextTask
	}
	return m, nil
}

func (m Model) advanceStage() tea.Msg {
	deal := m.findDeal(m.selectedID)
	if deal == nil {
		return actionMsg{err: models.ErrNotFound}
	}
	next := deal.Stage.Index() + 1
	if next >= len(models.Stages) {
		return actionMsg{status: "Deal is already at the last stage"}
	}

	updated, err := m.service.ProgressDealStage(context.Background(), m.agent, deal.ID, models.Stages[next])
	if err != nil {
		return actionMsg{err: err}
	}
	return actionMsg{status: fmt.Sprintf("✓ Moved to %s", updated.Stage)}
}

// setStatus moves the deal along the status allow-list. Moves it does not
// permit are reported without calling the service.
func (m Model) setStatus(to models.DealStatus) tea.Cmd {
	return func() tea.Msg {
		deal := m.findDeal(m.selectedID)
		if deal == nil {
			return actionMsg{err: models.ErrNotFound}
		}
		if !canMove(deal.Status, to) {
			return actionMsg{status: fmt.Sprintf("Cannot move deal from %s to %s", deal.Status, to)}
		}

		updated, err := m.service.UpdateDealStatus(context.Background(), m.agent, deal.ID, to)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("✓ %s is now %s", updated.Title, updated.Status)}
	}
}

func (m Model) completeNextTask() tea.Msg {
	for _, task := range m.detailTasks {
		if !task.IsOpen() {
			continue
		}
		if _, err := m.service.UpdateTaskStatus(context.Background(), m.agent, task.ID, models.TaskStatusCompleted); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("✓ Completed %s", task.Title)}
	}
	return actionMsg{status: "No open tasks"}
}
