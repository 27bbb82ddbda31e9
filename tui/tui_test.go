// ABOUTME: Tests for the deal board TUI
// ABOUTME: Drives the bubbletea model with messages and checks rendered views
package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/dealpulse/db"
	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
)

func setupModel(t *testing.T) (Model, *engine.Service, *models.Deal) {
	t.Helper()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "tui.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	agent := models.AgentContext{AgentID: uuid.New()}
	service := engine.NewService(db.NewStore(database), nil)
	deal, err := service.CreateDealFromLink(context.Background(), agent,
		models.Link{Name: "Lakeside lofts"}, []models.Property{{Price: 500000}},
		&models.ClientInfo{Name: "Avery"})
	require.NoError(t, err)

	return NewModel(service, agent), service, deal
}

// drive runs a command and feeds its message back, as the bubbletea runtime would.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		var next tea.Model
		next, cmd = m.Update(cmd())
		m = next.(Model)
	}
	return m
}

func press(t *testing.T, m Model, key string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return drive(t, next.(Model), cmd)
}

func TestListView(t *testing.T) {
	m, _, _ := setupModel(t)
	m = drive(t, m, m.Init())

	view := m.View()
	assert.Contains(t, view, "DEALPULSE")
	assert.Contains(t, view, "Lakeside lofts")
	assert.Contains(t, view, "Avery")

	m = press(t, m, "tab")
	assert.Equal(t, TabTasks, m.tab)
	m = press(t, m, "tab")
	assert.Equal(t, TabFollowups, m.tab)
	assert.Contains(t, m.View(), "s: Schedule follow-ups")
	m = press(t, m, "tab")
	assert.Equal(t, TabDeals, m.tab)

	m = press(t, m, "j")
	assert.Equal(t, 0, m.selectedRow, "cursor stays on the only row")
}

func TestDetailViewActions(t *testing.T) {
	m, service, deal := setupModel(t)
	m = drive(t, m, m.Init())

	m = press(t, m, "enter")
	require.Equal(t, ViewDetail, m.viewMode)
	assert.Equal(t, deal.ID, m.selectedID)
	assert.Contains(t, m.View(), "Lakeside lofts")

	m = press(t, m, "n")
	assert.NoError(t, m.err)
	assert.Contains(t, m.status, "shared")

	stored, err := service.GetDeal(context.Background(), models.SystemAgent(), deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageShared, stored.Stage)

	_, err = service.CreateManualTask(context.Background(), m.agent, deal.ID, models.TaskSpec{Title: "Call Avery"})
	require.NoError(t, err)
	m = press(t, m, "r")
	require.Len(t, m.detailTasks, 1)

	m = press(t, m, "x")
	assert.Contains(t, m.status, "Completed Call Avery")
	assert.False(t, m.detailTasks[0].IsOpen())

	assert.NotContains(t, m.View(), "w: Mark won", "active deals cannot be won directly")
	m = press(t, m, "w")
	assert.NoError(t, m.err)
	assert.Contains(t, m.status, "Cannot move deal from active to closed-won")
	assert.Contains(t, m.View(), "active")

	m = press(t, m, "u")
	require.NoError(t, m.err)
	assert.Contains(t, m.status, "is now qualified")
	assert.Contains(t, m.View(), "w: Mark won")

	m = press(t, m, "w")
	require.NoError(t, m.err)
	assert.Contains(t, m.status, "is now closed-won")
	assert.Contains(t, m.View(), "closed-won")
	assert.NotContains(t, m.View(), "w: Mark won")

	stored, err = service.GetDeal(context.Background(), models.SystemAgent(), deal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosedWon, stored.Status)
	assert.Equal(t, models.StageClosed, stored.Stage)

	m = press(t, m, "esc")
	assert.Equal(t, ViewList, m.viewMode)
}

func TestQuit(t *testing.T) {
	m, _, _ := setupModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestFollowupsTabSchedules(t *testing.T) {
	m, _, _ := setupModel(t)
	m = drive(t, m, m.Init())
	m = press(t, m, "tab")
	m = press(t, m, "tab")

	m = press(t, m, "s")
	assert.NoError(t, m.err)
	assert.True(t, strings.HasPrefix(m.status, "✓"), m.status)
}
