// ABOUTME: Tests for the web dashboard
// ABOUTME: Exercises every route through httptest against a temp database
package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/dealpulse/db"
	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
)

func setupServer(t *testing.T) (http.Handler, *models.Deal) {
	t.Helper()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	agent := models.AgentContext{AgentID: uuid.New()}
	service := engine.NewService(db.NewStore(database), nil)
	deal, err := service.CreateDealFromLink(context.Background(), agent,
		models.Link{Name: "Lakeside lofts"}, []models.Property{{Price: 500000}},
		&models.ClientInfo{Name: "Avery"})
	require.NoError(t, err)

	server, err := NewServer(service, agent, nil)
	require.NoError(t, err)
	return server.Handler(), deal
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDashboard(t *testing.T) {
	h, _ := setupServer(t)

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 deals worth $15000")
	assert.Contains(t, rec.Body.String(), "/deals?stage=created")
}

func TestDealPages(t *testing.T) {
	h, deal := setupServer(t)

	rec := get(t, h, "/deals")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lakeside lofts")
	assert.Contains(t, rec.Body.String(), "Avery")

	rec = get(t, h, "/deals?stage=closed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No deals found")

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/deals?stage=proposal").Code)

	rec = get(t, h, "/deals/"+deal.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "$15000 from 1 properties")
	assert.Contains(t, rec.Body.String(), "No tasks")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/deals/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/deals/nope").Code)
}

func TestFollowupsAndGraph(t *testing.T) {
	h, _ := setupServer(t)

	rec := get(t, h, "/followups")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No deals need a follow-up")

	rec = get(t, h, "/graph.dot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "graphviz")
	assert.Contains(t, rec.Body.String(), "Lakeside lofts")
}
