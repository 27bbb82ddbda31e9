// ABOUTME: Deal pipeline state machine for stage and status transitions
// ABOUTME: Validates explicit progressions and derives stage snapshots from engagement telemetry
package pipeline

import (
	"github.com/harperreed/dealpulse/models"
)

var allowedStatusTransitions = map[models.DealStatus]map[models.DealStatus]struct{}{
	models.StatusActive: {
		models.StatusQualified:  {},
		models.StatusNurturing:  {},
		models.StatusClosedLost: {},
	},
	models.StatusQualified: {
		models.StatusNurturing:  {},
		models.StatusClosedWon:  {},
		models.StatusClosedLost: {},
	},
	models.StatusNurturing: {
		models.StatusQualified:  {},
		models.StatusClosedWon:  {},
		models.StatusClosedLost: {},
	},
	models.StatusClosedWon: {},
	models.StatusClosedLost: {
		models.StatusActive: {}, // Reactivation.
	},
}

// CanProgressStage reports whether a deal may move from one stage to another.
func CanProgressStage(from, to models.DealStage) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	return to.Index() >= from.Index()
}

// CanTransitionStatus reports whether the status allow-list permits from -> to.
func CanTransitionStatus(from, to models.DealStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	next, ok := allowedStatusTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// ProgressStage moves the deal forward in the pipeline. Moving to the current
// stage is a no-op; moving backwards fails with an InvalidTransitionError.
func ProgressStage(deal *models.Deal, to models.DealStage) error {
	if !CanProgressStage(deal.Stage, to) {
		return &models.InvalidTransitionError{
			Kind:   models.TransitionStage,
			DealID: deal.ID,
			From:   string(deal.Stage),
			To:     string(to),
		}
	}
	deal.Stage = to
	return nil
}

// UpdateStatus applies a status change from the allow-list. Closing a deal
// forces its stage to closed; reactivating a lost deal re-derives the stage
// from its engagement snapshot.
func UpdateStatus(deal *models.Deal, to models.DealStatus) error {
	if !CanTransitionStatus(deal.Status, to) {
		return &models.InvalidTransitionError{
			Kind:   models.TransitionStatus,
			DealID: deal.ID,
			From:   string(deal.Status),
			To:     string(to),
		}
	}

	from := deal.Status
	deal.Status = to

	switch {
	case to.IsClosed():
		deal.Stage = models.StageClosed
	case from == models.StatusClosedLost && to == models.StatusActive:
		stage, _ := DeriveSnapshot(deal)
		deal.Stage = stage
	}

	return nil
}

// DeriveSnapshot recomputes a deal's stage from scratch using its current
// score and activity state. A non-nil status means the snapshot also implies a
// status. This is a reconciliation policy, distinct from the forward-only
// event nudges applied by the orchestrator.
func DeriveSnapshot(deal *models.Deal) (models.DealStage, *models.DealStatus) {
	switch {
	case deal.LastActivityAt == nil:
		return models.StageShared, nil
	case deal.EngagementScore >= 80:
		status := models.StatusQualified
		return models.StageQualified, &status
	case deal.EngagementScore >= 50:
		return models.StageEngaged, nil
	case deal.SessionCount > 0:
		return models.StageAccessed, nil
	default:
		return models.StageShared, nil
	}
}

// EventStage returns the stage an engagement event nudges the deal towards,
// and whether the nudge applies from the deal's current stage.
func EventStage(current models.DealStage, action string) (models.DealStage, bool) {
	var target models.DealStage
	switch action {
	case models.EventView:
		if current != models.StageCreated {
			return current, false
		}
		target = models.StageAccessed
	case string(models.ActionLinkAccessed):
		if current != models.StageCreated && current != models.StageShared {
			return current, false
		}
		target = models.StageAccessed
	case models.EventLike, models.EventConsider:
		switch current {
		case models.StageCreated, models.StageShared, models.StageAccessed:
			target = models.StageEngaged
		default:
			return current, false
		}
	case models.EventDetail:
		if current != models.StageEngaged {
			return current, false
		}
		target = models.StageQualified
	default:
		return current, false
	}

	if target.Index() <= current.Index() {
		return current, false
	}
	return target, true
}
