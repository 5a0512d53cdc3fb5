package console

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/gonogo/internal/trial"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1)

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Border(lipgloss.HiddenBorder()).
			Padding(0, 1)

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	goodStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	badStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))

	ledOn  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
	ledOff = lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Render("○")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// outcomeStyle colors rewarded and neutral outcomes green, punished ones red.
func outcomeStyle(o trial.Outcome) lipgloss.Style {
	switch o {
	case trial.Hit, trial.CorrectRejection:
		return goodStyle
	default:
		return badStyle
	}
}

func led(on bool) string {
	if on {
		return ledOn
	}
	return ledOff
}
