// ABOUTME: Shared plumbing for CLI commands
// ABOUTME: Command environment, flag helpers and lipgloss badges for temperature and priority
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
)

// Env carries what every command needs.
type Env struct {
	Service *engine.Service
	Agent   models.AgentContext
	Out     io.Writer
}

func (e Env) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(e.Out, format, args...)
}

func (e Env) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.Out)
	return fs
}

var (
	hotStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	coldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	urgentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func temperatureBadge(t models.Temperature) string {
	switch t {
	case models.TemperatureHot:
		return hotStyle.Render("HOT")
	case models.TemperatureWarm:
		return warmStyle.Render("WARM")
	default:
		return coldStyle.Render("COLD")
	}
}

func priorityBadge(p models.TaskPriority) string {
	label := strings.ToUpper(string(p))
	switch p {
	case models.PriorityUrgent:
		return urgentStyle.Render(label)
	case models.PriorityHigh:
		return highStyle.Render(label)
	default:
		return mutedStyle.Render(label)
	}
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func requireID(fs *flag.FlagSet, name string) (uuid.UUID, error) {
	if fs.NArg() < 1 {
		return uuid.Nil, fmt.Errorf("%s is required", name)
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return id, nil
}

func formatWhen(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
