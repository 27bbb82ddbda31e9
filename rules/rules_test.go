// ABOUTME: Tests for the task rule engine
// ABOUTME: Exercises every trigger template, priority defaults, purity and event trigger resolution
package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeal(score int, temperature models.Temperature) *models.Deal {
	name := "Jordan"
	return &models.Deal{
		ID:                uuid.New(),
		Title:             "Lakeview homes",
		ClientName:        &name,
		EngagementScore:   score,
		ClientTemperature: temperature,
		Stage:             models.StageEngaged,
		Status:            models.StatusActive,
	}
}

func TestHighEngagementFlagsHotLead(t *testing.T) {
	specs := GenerateTasks(string(models.TriggerHighEngagement), testDeal(85, models.TemperatureHot))
	require.NotEmpty(t, specs)

	var flagged bool
	for _, spec := range specs {
		if !strings.Contains(spec.Title, "Hot Lead") {
			continue
		}
		flagged = true
		assert.Contains(t, []models.TaskPriority{models.PriorityHigh, models.PriorityUrgent}, spec.Priority)
		assert.Contains(t, []models.TaskType{models.TaskTypeCall, models.TaskTypeUrgentCall, models.TaskTypeUrgentFollowUp}, spec.Type)
	}
	assert.True(t, flagged, "expected a task flagging the hot lead")
}

func TestLinkAccessedEmitsOneCheckInCall(t *testing.T) {
	now := time.Now()
	specs := GenerateTasks(string(models.TriggerLinkAccessed), testDeal(10, models.TemperatureCold))
	require.Len(t, specs, 1)

	spec := specs[0]
	assert.Equal(t, models.TaskTypeCall, spec.Type)
	assert.Equal(t, models.TriggerLinkAccessed, spec.Trigger)

	due := spec.DueDate(now)
	require.NotNil(t, due)
	assert.WithinDuration(t, now.Add(24*time.Hour), *due, time.Hour)
}

func TestMultipleLikesSchedulesShowing(t *testing.T) {
	specs := GenerateTasks(string(models.TriggerMultipleLikes), testDeal(45, models.TemperatureWarm))
	require.NotEmpty(t, specs)

	types := make([]models.TaskType, 0, len(specs))
	for _, spec := range specs {
		types = append(types, spec.Type)
	}
	assert.Contains(t, types, models.TaskTypeShowing)
}

func TestColdLeadEmitsOneLowPriorityEmail(t *testing.T) {
	specs := GenerateTasks(string(models.TriggerColdLead), testDeal(5, models.TemperatureCold))
	require.Len(t, specs, 1)
	assert.Equal(t, models.TaskTypeEmail, specs[0].Type)
	assert.Equal(t, models.PriorityLow, specs[0].Priority)
}

func TestFirstShowingAttendedMilestone(t *testing.T) {
	specs := GenerateTasks(string(models.TriggerFirstShowingAttended), testDeal(60, models.TemperatureWarm))
	require.GreaterOrEqual(t, len(specs), 2)

	types := []models.TaskType{specs[0].Type, specs[1].Type}
	assert.Contains(t, types, models.TaskTypeFeedback)
	assert.Contains(t, types, models.TaskTypePlanning)
}

func TestSchedulerTriggers(t *testing.T) {
	tests := []struct {
		trigger  models.Trigger
		taskType models.TaskType
		priority models.TaskPriority
		dueIn    time.Duration
	}{
		{models.TriggerUrgentFollowUp, models.TaskTypeUrgentFollowUp, models.PriorityUrgent, 4 * time.Hour},
		{models.TriggerRegularFollowUp, models.TaskTypeFollowUp, models.PriorityMedium, 24 * time.Hour},
		{models.TriggerNurtureSequence, models.TaskTypeNurture, models.PriorityLow, 72 * time.Hour},
		{models.TriggerInitialFollowUp, models.TaskTypeFollowUp, models.PriorityMedium, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(string(tt.trigger), func(t *testing.T) {
			rule, ok := Lookup(tt.trigger)
			require.True(t, ok)
			assert.True(t, rule.SchedulerOnly)

			specs := GenerateTasks(string(tt.trigger), testDeal(40, models.TemperatureWarm))
			require.Len(t, specs, 1)
			assert.Equal(t, tt.taskType, specs[0].Type)
			assert.Equal(t, tt.priority, specs[0].Priority)
			assert.Equal(t, tt.dueIn, specs[0].DueIn)
		})
	}
}

func TestPriorityDefaultsFollowTemperature(t *testing.T) {
	tests := []struct {
		temperature models.Temperature
		expected    models.TaskPriority
	}{
		{models.TemperatureHot, models.PriorityHigh},
		{models.TemperatureWarm, models.PriorityMedium},
		{models.TemperatureCold, models.PriorityLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DefaultPriority(tt.temperature))

		specs := GenerateTasks(string(models.TriggerLinkAccessed), testDeal(50, tt.temperature))
		require.Len(t, specs, 1)
		assert.Equal(t, tt.expected, specs[0].Priority, "link_accessed on %s deal", tt.temperature)
	}
}

func TestTemplatesInterpolateClient(t *testing.T) {
	specs := GenerateTasks(string(models.TriggerColdLead), testDeal(5, models.TemperatureCold))
	require.Len(t, specs, 1)
	assert.Equal(t, "Send Jordan a re-engagement email", specs[0].Title)
	assert.Contains(t, specs[0].Description, "Lakeview homes")

	anonymous := testDeal(5, models.TemperatureCold)
	anonymous.ClientName = nil
	specs = GenerateTasks(string(models.TriggerColdLead), anonymous)
	assert.Equal(t, "Send client a re-engagement email", specs[0].Title)
}

func TestUnknownTriggerYieldsNothing(t *testing.T) {
	assert.Empty(t, GenerateTasks("swiped_left", testDeal(50, models.TemperatureWarm)))
	assert.Empty(t, GenerateTasks(string(models.TriggerLinkAccessed), nil))
}

func TestEveryTriggerHasValidTemplates(t *testing.T) {
	triggers := Triggers()
	assert.Len(t, triggers, 9)

	for _, trigger := range triggers {
		rule, ok := Lookup(trigger)
		require.True(t, ok)
		require.NotEmpty(t, rule.Templates, "trigger %s", trigger)
		for _, tmpl := range rule.Templates {
			assert.NotEmpty(t, tmpl.Title)
			assert.True(t, tmpl.Type.Valid(), "trigger %s type %s", trigger, tmpl.Type)
			if tmpl.Priority != "" {
				assert.True(t, tmpl.Priority.Valid())
			}
			assert.Greater(t, tmpl.DueIn, time.Duration(0))
		}
	}
}

func TestGenerateTasksIsPure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	triggers := Triggers()
	temperatures := []models.Temperature{models.TemperatureCold, models.TemperatureWarm, models.TemperatureHot}

	properties.Property("identical inputs give identical specs", prop.ForAll(
		func(triggerIdx, tempIdx, score int) bool {
			deal := testDeal(score, temperatures[tempIdx])
			first := GenerateTasks(string(triggers[triggerIdx]), deal)
			second := GenerateTasks(string(triggers[triggerIdx]), deal)
			return assert.ObjectsAreEqual(first, second) && len(first) > 0
		},
		gen.IntRange(0, len(triggers)-1),
		gen.IntRange(0, len(temperatures)-1),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestResolveEventTrigger(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		deal      *models.Deal
		likeCount int
		expected  models.Trigger
		ok        bool
	}{
		{"showing milestone wins", models.EventFirstShowingAttended, testDeal(90, models.TemperatureHot), 0, models.TriggerFirstShowingAttended, true},
		{"showing attended alias", models.EventShowingAttended, testDeal(10, models.TemperatureCold), 0, models.TriggerFirstShowingAttended, true},
		{"hot deal", models.EventLike, testDeal(75, models.TemperatureHot), 3, models.TriggerHighEngagement, true},
		{"score 80 counts as hot", models.EventView, testDeal(80, models.TemperatureWarm), 0, models.TriggerHighEngagement, true},
		{"second like", models.EventLike, testDeal(40, models.TemperatureWarm), 2, models.TriggerMultipleLikes, true},
		{"first like", models.EventLike, testDeal(40, models.TemperatureWarm), 1, "", false},
		{"link accessed", string(models.ActionLinkAccessed), testDeal(10, models.TemperatureCold), 0, models.TriggerLinkAccessed, true},
		{"dislike while cold", models.EventDislike, testDeal(10, models.TemperatureCold), 0, models.TriggerColdLead, true},
		{"dislike while warm", models.EventDislike, testDeal(40, models.TemperatureWarm), 0, "", false},
		{"plain view", models.EventView, testDeal(20, models.TemperatureCold), 0, "", false},
		{"scheduler trigger never resolves from events", string(models.TriggerNurtureSequence), testDeal(20, models.TemperatureCold), 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, ok := ResolveEventTrigger(tt.action, tt.deal, tt.likeCount)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, trigger)
		})
	}
}

func TestRiskLevel(t *testing.T) {
	assert.Equal(t, "high", RiskLevel(29))
	assert.Equal(t, "medium", RiskLevel(30))
	assert.Equal(t, "medium", RiskLevel(59))
	assert.Equal(t, "low", RiskLevel(60))
}
