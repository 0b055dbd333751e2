package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for section headers such as "Current task".
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// TaskPanelStyle frames the detail view of a single task.
var TaskPanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// NameStyle renders task names.
var NameStyle = lipgloss.NewStyle().Bold(true)

// IDStyle renders task ids.
var IDStyle = lipgloss.NewStyle().Foreground(ColorGray)

// LabelStyle renders field labels in detail views.
var LabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(12)

// TreeBranchStyle renders the connectors of the task tree.
var TreeBranchStyle = lipgloss.NewStyle().Foreground(ColorBorder)

// HelpStyle is used for hints and empty-state messages.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle is used for error output.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// SuccessStyle is used to confirm mutations.
var SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen)

// KindStyle returns a color-coded badge style for the given task kind:
// "scheduled", "recurring", "deadline", "overdue" or anything else.
func KindStyle(kind string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch kind {
	case "scheduled":
		return base.Foreground(ColorBlue)
	case "recurring":
		return base.Foreground(ColorMagenta)
	case "deadline":
		return base.Foreground(ColorYellow)
	case "overdue":
		return base.Foreground(ColorRed)
	case "done":
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}
