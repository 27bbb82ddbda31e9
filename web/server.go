// ABOUTME: Web UI server with embedded templates
// ABOUTME: Read-only pipeline dashboard, deal pages and follow-up preview at localhost
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
	"github.com/harperreed/dealpulse/viz"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Server struct {
	service   *engine.Service
	agent     models.AgentContext
	templates *template.Template
	log       *slog.Logger
}

// NewServer parses the embedded templates. A nil logger discards output.
func NewServer(service *engine.Service, agent models.AgentContext, logger *slog.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"when": func(t *time.Time) string {
			if t == nil {
				return "-"
			}
			return t.Local().Format("2006-01-02 15:04")
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		service:   service,
		agent:     agent,
		templates: tmpl,
		log:       logger.With(slog.String("component", "web")),
	}, nil
}

// Handler returns the routed mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /deals", s.handleDeals)
	mux.HandleFunc("GET /deals/{id}", s.handleDealDetail)
	mux.HandleFunc("GET /followups", s.handleFollowups)
	mux.HandleFunc("GET /graph.dot", s.handleGraph)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("starting web server", slog.String("addr", "http://localhost"+srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deals, err := s.service.ListDeals(ctx, s.agent, models.DealFilter{})
	if err != nil {
		s.fail(w, err)
		return
	}
	tasks, err := s.service.ListTasks(ctx, s.agent, models.TaskFilter{})
	if err != nil {
		s.fail(w, err)
		return
	}
	plans, err := s.service.PreviewFollowUps(ctx, s.agent)
	if err != nil {
		s.fail(w, err)
		return
	}

	stats := viz.BuildDashboard(deals, tasks, plans, time.Now())

	type stageRow struct {
		Stage models.DealStage
		Count int
		Value int64
	}
	var stages []stageRow
	for _, stage := range models.Stages {
		if p, ok := stats.PipelineByStage[stage]; ok {
			stages = append(stages, stageRow{Stage: stage, Count: p.Count, Value: p.Value})
		}
	}

	s.renderTemplate(w, "layout.html", map[string]interface{}{
		"Title":           "Dashboard",
		"ContentTemplate": "dashboard-content",
		"Stats":           stats,
		"Stages":          stages,
	})
}

func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	filter := models.DealFilter{
		Stage:  models.DealStage(r.URL.Query().Get("stage")),
		Status: models.DealStatus(r.URL.Query().Get("status")),
	}
	if filter.Stage != "" && !filter.Stage.Valid() {
		http.Error(w, "unknown stage", http.StatusBadRequest)
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	deals, err := s.service.ListDeals(r.Context(), s.agent, filter)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.renderTemplate(w, "layout.html", map[string]interface{}{
		"Title":           "Deals",
		"ContentTemplate": "deals-content",
		"Deals":           deals,
		"Stages":          models.Stages,
	})
}

func (s *Server) handleDealDetail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid deal ID", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	deal, err := s.service.GetDeal(ctx, s.agent, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if deal == nil {
		http.NotFound(w, r)
		return
	}
	tasks, err := s.service.ListTasks(ctx, s.agent, models.TaskFilter{DealID: id})
	if err != nil {
		s.fail(w, err)
		return
	}
	rec, err := s.service.ReconcileDeal(ctx, s.agent, id)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.renderTemplate(w, "layout.html", map[string]interface{}{
		"Title":           deal.Title,
		"ContentTemplate": "deal-detail-content",
		"Deal":            deal,
		"Tasks":           tasks,
		"Reconciliation":  rec,
	})
}

func (s *Server) handleFollowups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plans, err := s.service.PreviewFollowUps(ctx, s.agent)
	if err != nil {
		s.fail(w, err)
		return
	}

	type planView struct {
		engine.FollowUpPlan
		Title string
	}
	views := make([]planView, 0, len(plans))
	for _, plan := range plans {
		view := planView{FollowUpPlan: plan, Title: plan.DealID.String()[:8]}
		if deal, err := s.service.GetDeal(ctx, s.agent, plan.DealID); err == nil && deal != nil {
			view.Title = deal.Title
		}
		views = append(views, view)
	}

	s.renderTemplate(w, "layout.html", map[string]interface{}{
		"Title":           "Follow-ups",
		"ContentTemplate": "followups-content",
		"Plans":           views,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	deals, err := s.service.ListDeals(r.Context(), s.agent, models.DealFilter{})
	if err != nil {
		s.fail(w, err)
		return
	}
	dot, err := viz.GeneratePipelineGraph(r.Context(), deals)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = fmt.Fprint(w, dot)
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	// layout.html picks the content block named by ContentTemplate
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("template error", slog.String("template", name), slog.Any("error", err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error("request failed", slog.Any("error", err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
