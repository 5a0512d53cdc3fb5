package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/gonogo/internal/trial"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("gonogo"))
	b.WriteString(dimStyle.Render("  rig " + m.rigName))
	b.WriteString("\n\n")

	b.WriteString(m.selectorView())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n\n")
	b.WriteString(m.lastView())
	b.WriteString("\n")

	if len(m.history) > 1 {
		b.WriteString("\n")
		b.WriteString(m.historyView())
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) selectorView() string {
	opts := make([]string, 0, 2)
	for _, t := range []trial.Type{trial.Go, trial.NoGo} {
		label := strings.ToUpper(t.String())
		if t == m.typ {
			opts = append(opts, selectedStyle.Render(label))
		} else {
			opts = append(opts, optionStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		labelStyle.Render("Trial type "), opts[0], " ", opts[1])
}

func (m Model) statusView() string {
	state := m.seq.State()
	line := labelStyle.Render("State ") + state.String()
	if state == trial.Running {
		line = m.spinner.View() + " " + line
	}

	sim := m.sim.State()
	leds := fmt.Sprintf("%s reward (%d)  %s punishment (%d)",
		led(sim.Reward), sim.Rewards, led(sim.Punishment), sim.Punishments)
	window := ""
	if sim.Armed {
		window = fmt.Sprintf("  window read %d", sim.Reads)
		if sim.Responded {
			window += ", response latched"
		}
	}
	return line + dimStyle.Render(window) + "\n" + leds
}

func (m Model) lastView() string {
	r, ok := m.Last()
	if !ok {
		return panelStyle.Render(dimStyle.Render("No trial yet. Press enter to run one."))
	}
	return panelStyle.Render(reportView(r))
}

func reportView(r trial.Report) string {
	head := fmt.Sprintf("Trial %d (%s)", r.Trial.ID, strings.ToUpper(r.Trial.Type.String()))
	if !r.OK() {
		return head + "\n" + errorStyle.Render("Error") + "\n" + r.Err.Error()
	}
	return head + "\n" + outcomeStyle(r.Outcome).Render(r.Outcome.Title()) + "\n" + r.Outcome.Message()
}

func (m Model) historyView() string {
	lines := []string{labelStyle.Render("History")}
	for _, r := range m.history[1:] {
		result := errorStyle.Render(string(trial.CodeOf(r.Err)))
		if r.OK() {
			result = outcomeStyle(r.Outcome).Render(r.Outcome.String())
		}
		lines = append(lines, fmt.Sprintf("  #%d %-5s %s  %d polls",
			r.Trial.ID, r.Trial.Type.String(), result, r.Trial.Polls))
	}
	return strings.Join(lines, "\n")
}
