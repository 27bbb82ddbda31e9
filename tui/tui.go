// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Interactive deal board with deal, task and follow-up tabs over the engine service
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// Tab selects what the list view shows
type Tab int

const (
	TabDeals Tab = iota
	TabTasks
	TabFollowups
	tabCount
)

// Model is the main bubbletea model
type Model struct {
	service *engine.Service
	agent   models.AgentContext

	viewMode ViewMode
	tab      Tab

	deals []models.Deal
	tasks []models.Task
	plans []engine.FollowUpPlan

	// List view state
	selectedRow int

	// Detail view state
	selectedID  uuid.UUID
	detailTasks []models.Task

	status string
	err    error

	width  int
	height int
}

// dataMsg carries a fresh snapshot from the service.
type dataMsg struct {
	deals []models.Deal
	tasks []models.Task
	plans []engine.FollowUpPlan
	err   error
}

// actionMsg reports the outcome of a mutation.
type actionMsg struct {
	status string
	err    error
}

// NewModel creates a new TUI model
func NewModel(service *engine.Service, agent models.AgentContext) Model {
	return Model{
		service:  service,
		agent:    agent,
		viewMode: ViewList,
		tab:      TabDeals,
		width:    80,
		height:   24,
	}
}

// Run starts the full-screen program and blocks until the user quits.
func Run(service *engine.Service, agent models.AgentContext) error {
	_, err := tea.NewProgram(NewModel(service, agent), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.load
}

func (m Model) load() tea.Msg {
	ctx := context.Background()
	deals, err := m.service.ListDeals(ctx, m.agent, models.DealFilter{})
	if err != nil {
		return dataMsg{err: err}
	}
	tasks, err := m.service.ListTasks(ctx, m.agent, models.TaskFilter{})
	if err != nil {
		return dataMsg{err: err}
	}
	plans, err := m.service.PreviewFollowUps(ctx, m.agent)
	if err != nil {
		return dataMsg{err: err}
	}
	return dataMsg{deals: deals, tasks: tasks, plans: plans}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case dataMsg:
		m.err = msg.err
		if msg.err == nil {
			m.deals, m.tasks, m.plans = msg.deals, msg.tasks, msg.plans
			m.detailTasks = m.tasksForDeal(m.selectedID)
			if m.selectedRow >= m.rowCount() {
				m.selectedRow = max(m.rowCount()-1, 0)
			}
		}
		return m, nil
	case actionMsg:
		m.status, m.err = msg.status, msg.err
		return m, m.load
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewDetail:
		return m.renderDetailView()
	default:
		return m.renderListView()
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.status = ""
		return m, m.load
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	}
	return m, nil
}

func (m Model) rowCount() int {
	switch m.tab {
	case TabTasks:
		return len(m.tasks)
	case TabFollowups:
		return len(m.plans)
	default:
		return len(m.deals)
	}
}

func (m Model) findDeal(id uuid.UUID) *models.Deal {
	for i := range m.deals {
		if m.deals[i].ID == id {
			return &m.deals[i]
		}
	}
	return nil
}

func (m Model) tasksForDeal(id uuid.UUID) []models.Task {
	if id == uuid.Nil {
		return nil
	}
	var tasks []models.Task
	for _, task := range m.tasks {
		if task.DealID == id {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	if m.status != "" {
		return statusStyle.Render(m.status)
	}
	return ""
}
