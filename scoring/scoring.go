// ABOUTME: Engagement scoring and temperature classification
// ABOUTME: Pure functions turning activity history and session time into a bounded score
package scoring

import (
	"math"

	"github.com/harperreed/dealpulse/models"
)

const (
	// MaxScore is the upper bound of an engagement score.
	MaxScore = 100

	// SessionSecondsPerPoint converts session time into score points.
	SessionSecondsPerPoint = 300.0

	// MaxSessionPoints caps the session-time component.
	MaxSessionPoints = 40.0

	// HotThreshold is the lowest score classified as hot.
	HotThreshold = 70

	// WarmThreshold is the lowest score classified as warm.
	WarmThreshold = 30
)

var weights = map[models.ActivityAction]int{
	models.ActionLinkAccessed:         10,
	models.ActionPropertyViewed:       5,
	models.ActionPropertyLiked:        15,
	models.ActionPropertyShared:       20,
	models.ActionContactFormSubmitted: 25,
	models.ActionPhoneClicked:         20,
	models.ActionEmailClicked:         15,
}

// Weight returns the score contribution of a single action. Unknown actions weigh 0.
func Weight(action models.ActivityAction) int {
	return weights[action]
}

// Score computes the engagement score from the full activity history and the
// total session time in seconds. Only the session component is capped; the
// total is clamped to [0, MaxScore] and rounded to the nearest integer.
func Score(activities []models.ActivityRecord, sessionSeconds float64) int {
	if sessionSeconds < 0 || math.IsNaN(sessionSeconds) {
		sessionSeconds = 0
	}

	total := math.Min(sessionSeconds/SessionSecondsPerPoint, MaxSessionPoints)
	for _, activity := range activities {
		total += float64(Weight(activity.Action))
	}

	if total > MaxScore {
		total = MaxScore
	}

	return int(math.Round(total))
}

// Classify maps a score to its temperature tier.
func Classify(score int) models.Temperature {
	switch {
	case score >= HotThreshold:
		return models.TemperatureHot
	case score >= WarmThreshold:
		return models.TemperatureWarm
	default:
		return models.TemperatureCold
	}
}

// Apply stores score and its derived temperature on the deal.
func Apply(deal *models.Deal, score int) {
	deal.EngagementScore = score
	deal.ClientTemperature = Classify(score)
}
