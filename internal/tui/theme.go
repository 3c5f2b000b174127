package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	colorPrimary   = lipgloss.Color("#2563EB") // Blue
	colorSecondary = lipgloss.Color("#93C5FD") // Light blue
	colorSuccess   = lipgloss.Color("#10B981") // Green
	colorDanger    = lipgloss.Color("#EF4444") // Red
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorBorder    = lipgloss.Color("#374151") // Dark gray
	colorWarning   = lipgloss.Color("#F59E0B") // Amber
)

var (
	// Header bar: "mcplink  ~/Library/.../claude_desktop_config.json"
	logoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorPrimary).
			Padding(0, 1)

	headerPathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F3F4F6")).
			Padding(0, 1)

	// NOTE: No MarginBottom; views add explicit \n for predictable height.
	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorMuted)

	sectionRuleStyle = lipgloss.NewStyle().
				Foreground(colorBorder)

	selectedItemStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorSecondary)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D1D5DB"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	bannerStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Padding(0, 2)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)

	// Status bar zones.
	statusSuccessStyle = lipgloss.NewStyle().Foreground(colorSuccess).Padding(0, 1)
	statusErrorStyle   = lipgloss.NewStyle().Foreground(colorDanger).Padding(0, 1)
	statusWarningStyle = lipgloss.NewStyle().Foreground(colorWarning).Padding(0, 1)
	statusRightStyle   = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)

	// Confirmation dialog.
	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 2)

	dialogButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFF7DB")).
				Background(colorMuted).
				Padding(0, 2)

	dialogActiveButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFF7DB")).
				Background(colorDanger).
				Padding(0, 2).
				Bold(true)
)

// renderSectionHeader renders "  ── LABEL ──".
func renderSectionHeader(label string) string {
	rule := sectionRuleStyle.Render("──")
	return "  " + rule + sectionHeaderStyle.Render(" "+label+" ") + rule
}
