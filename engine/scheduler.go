// ABOUTME: Staleness-based follow-up scheduler for deals
// ABOUTME: Scans deals with bounded fan-out, classifies risk and urgency, and creates follow-up tasks
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
	"github.com/harperreed/dealpulse/rules"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultSchedulerConcurrency = 4
	maxUrgency                  = 10
)

// FollowUpPlan describes the follow-up chosen for one stale deal.
type FollowUpPlan struct {
	DealID       uuid.UUID      `json:"deal_id"`
	Trigger      models.Trigger `json:"trigger"`
	Risk         string         `json:"risk"`
	Urgency      int            `json:"urgency"`
	DaysStale    float64        `json:"days_stale"`
	TasksCreated int            `json:"tasks_created"`
}

// ScheduleResult summarises one scheduler run.
type ScheduleResult struct {
	RunID     string         `json:"run_id"`
	Scheduled int            `json:"scheduled"`
	Skipped   int            `json:"skipped"`
	Errors    int            `json:"errors"`
	Plans     []FollowUpPlan `json:"plans,omitempty"`
}

// Scheduler creates follow-up tasks for deals that have gone quiet.
type Scheduler struct {
	store       Store
	log         *slog.Logger
	concurrency int
	limiter     *rate.Limiter

	// Now is the scheduler clock. Tests replace it.
	Now func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithConcurrency bounds how many deals are processed at once.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRateLimit caps deals processed per second. Zero disables throttling.
func WithRateLimit(perSecond float64) SchedulerOption {
	return func(s *Scheduler) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithClock overrides the scheduler clock.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.Now = now
		}
	}
}

// NewScheduler wires a scheduler over store. A nil logger discards output.
func NewScheduler(store Store, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:       store,
		log:         componentLogger(logger, "scheduler"),
		concurrency: DefaultSchedulerConcurrency,
		Now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StalenessThreshold returns how many days a deal in stage may sit idle
// before it needs a follow-up.
func StalenessThreshold(stage models.DealStage) float64 {
	switch stage {
	case models.StageCreated, models.StageShared:
		return 2
	case models.StageAccessed, models.StageEngaged:
		return 1
	case models.StageQualified:
		return 0.5
	default:
		return 3
	}
}

// FollowUpType picks the follow-up trigger for a stale deal. The second
// return is false when the deal should be skipped.
func FollowUpType(deal *models.Deal, daysStale float64) (models.Trigger, bool) {
	switch {
	case deal.ClientTemperature == models.TemperatureHot && daysStale >= 1:
		return models.TriggerUrgentFollowUp, true
	case daysStale >= 7:
		return models.TriggerNurtureSequence, true
	case daysStale >= 3:
		return models.TriggerRegularFollowUp, true
	case deal.LastActivityAt == nil:
		return models.TriggerInitialFollowUp, true
	}
	return "", false
}

// UrgencyScore rates a deal's follow-up from 1 to 10.
func UrgencyScore(deal *models.Deal, daysStale float64) int {
	urgency := 1

	switch deal.ClientTemperature {
	case models.TemperatureHot:
		urgency += 4
	case models.TemperatureWarm:
		urgency += 2
	}

	switch {
	case deal.EngagementScore >= 80:
		urgency += 3
	case deal.EngagementScore >= 50:
		urgency += 2
	}

	switch {
	case daysStale <= 1:
		urgency += 2
	case daysStale <= 3:
		urgency++
	}

	if urgency > maxUrgency {
		urgency = maxUrgency
	}
	return urgency
}

// DaysStale measures idle time from the last activity, or from creation for
// deals that never saw any.
func DaysStale(deal *models.Deal, now time.Time) float64 {
	since := deal.CreatedAt
	if deal.LastActivityAt != nil {
		since = *deal.LastActivityAt
	}
	days := now.Sub(since).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

// Plan evaluates a deal without touching storage. The second return is false
// when the deal needs no follow-up now.
func (s *Scheduler) Plan(deal *models.Deal, now time.Time) (FollowUpPlan, bool) {
	if deal.Status.IsClosed() {
		return FollowUpPlan{}, false
	}
	if deal.NextFollowUp != nil && deal.NextFollowUp.After(now) {
		return FollowUpPlan{}, false
	}

	days := DaysStale(deal, now)
	if days < StalenessThreshold(deal.Stage) {
		return FollowUpPlan{}, false
	}

	trigger, ok := FollowUpType(deal, days)
	if !ok {
		return FollowUpPlan{}, false
	}

	return FollowUpPlan{
		DealID:    deal.ID,
		Trigger:   trigger,
		Risk:      rules.RiskLevel(deal.EngagementScore),
		Urgency:   UrgencyScore(deal, days),
		DaysStale: days,
	}, true
}

// Schedule scans the agent's deals, or every deal for the system context, and
// creates follow-up tasks for stale ones. A failure on one deal is counted and
// the scan continues; only failing to list deals aborts the run. Cancelling
// ctx stops the scan between deals and returns the partial result with the
// context error.
func (s *Scheduler) Schedule(ctx context.Context, agent models.AgentContext) (*ScheduleResult, error) {
	now := s.Now()
	result := &ScheduleResult{RunID: newRunID(now)}
	log := s.log.With(slog.String("run_id", result.RunID))

	deals, err := s.store.ListDeals(ctx, models.DealFilter{AgentID: agent.AgentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list deals for follow-up run %s: %w", result.RunID, err)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)

	var stopErr error
	for i := range deals {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				stopErr = err
				break
			}
		}

		deal := deals[i]
		g.Go(func() error {
			plan, scheduled, err := s.scheduleDeal(ctx, &deal, now)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Errors++
				log.Warn("follow-up failed",
					slog.String("deal_id", deal.ID.String()),
					slog.Any("error", err))
			case scheduled:
				result.Scheduled++
				result.Plans = append(result.Plans, plan)
			default:
				result.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	sortPlans(result.Plans)

	log.Info("follow-up run finished",
		slog.Int("deals", len(deals)),
		slog.Int("scheduled", result.Scheduled),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", result.Errors))

	if stopErr != nil {
		return result, fmt.Errorf("follow-up run %s stopped: %w", result.RunID, stopErr)
	}
	return result, nil
}

func (s *Scheduler) scheduleDeal(ctx context.Context, deal *models.Deal, now time.Time) (FollowUpPlan, bool, error) {
	plan, ok := s.Plan(deal, now)
	if !ok {
		return FollowUpPlan{}, false, nil
	}

	err := s.store.WithinTx(ctx, func(tx Store) error {
		current, err := tx.GetDeal(ctx, deal.ID)
		if err != nil {
			return fmt.Errorf("failed to reload deal %s: %w", deal.ID, err)
		}
		if current == nil {
			return fmt.Errorf("deal %s: %w", deal.ID, models.ErrNotFound)
		}

		tasks, err := createTasks(ctx, tx, current, rules.GenerateTasks(string(plan.Trigger), current), now)
		if err != nil {
			return err
		}
		plan.TasksCreated = len(tasks)

		current.NextFollowUp = earliestDue(tasks)
		current.UpdatedAt = now
		if err := tx.UpsertDeal(ctx, current); err != nil {
			return fmt.Errorf("failed to save deal %s: %w", deal.ID, err)
		}
		return nil
	})
	if err != nil {
		return FollowUpPlan{}, false, err
	}
	return plan, true, nil
}

// sortPlans orders plans by urgency, then by how long the deal has been quiet.
func sortPlans(plans []FollowUpPlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].Urgency != plans[j].Urgency {
			return plans[i].Urgency > plans[j].Urgency
		}
		return plans[i].DaysStale > plans[j].DaysStale
	})
}

func newRunID(now time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
