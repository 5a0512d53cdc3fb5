// Package console is the interactive operator surface: a bubbletea program
// that selects the trial type, runs trials on a simulated module and shows
// each outcome.
//
// All sequencer calls happen inside Update, so the bubbletea event loop is the
// single writer the sequencer requires. A tea.Tick at the rig poll interval
// drives Poll.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roach88/gonogo/internal/hardware"
	"github.com/roach88/gonogo/internal/rig"
	"github.com/roach88/gonogo/internal/stimulus"
	"github.com/roach88/gonogo/internal/trial"
)

// historySize is the number of past reports kept on screen.
const historySize = 8

// Config wires the console to a rig and a simulated module.
type Config struct {
	Profile   rig.Profile
	Simulator *hardware.Simulator
	Player    trial.StimulusPlayer
	Logger    *slog.Logger

	// Extra sequencer options, applied after the profile's.
	TrialOptions []trial.Option
}

// pollMsg fires once per poll interval.
type pollMsg time.Time

// outbox collects reports delivered by the sequencer during one Update.
type outbox struct {
	reports []trial.Report
}

func (o *outbox) OnOutcome(r trial.Report) {
	o.reports = append(o.reports, r)
}

// Model is the bubbletea model of the console.
type Model struct {
	ctx      context.Context
	seq      *trial.Sequencer
	sim      *hardware.Simulator
	out      *outbox
	interval time.Duration
	rigName  string
	logger   *slog.Logger

	typ     trial.Type
	history []trial.Report // newest first
	notice  string

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	quitting bool
}

// New builds the console and its sequencer.
func New(ctx context.Context, cfg Config) (Model, error) {
	if cfg.Simulator == nil {
		return Model{}, errors.New("console: simulator is required")
	}
	if err := cfg.Profile.Validate(); err != nil {
		return Model{}, fmt.Errorf("console: invalid rig: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	player := cfg.Player
	if player == nil {
		player = stimulus.Silent{Logger: logger}
	}

	out := &outbox{}
	opts := append(cfg.Profile.TrialOptions(), trial.WithLogger(logger))
	opts = append(opts, cfg.TrialOptions...)
	seq, err := trial.New(cfg.Simulator, player, out, opts...)
	if err != nil {
		return Model{}, fmt.Errorf("console: %w", err)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:      ctx,
		seq:      seq,
		sim:      cfg.Simulator,
		out:      out,
		interval: cfg.Profile.PollInterval,
		rigName:  cfg.Profile.Name,
		logger:   logger,
		typ:      trial.Go,
		keys:     defaultKeys(),
		help:     help.New(),
		spinner:  sp,
	}, nil
}

// Run starts the console full-screen and blocks until the operator quits.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case pollMsg:
		m.seq.Poll(m.ctx)
		m.drain()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.seq.State() == trial.Running {
			_ = m.seq.Abort(m.ctx, "console closed")
			m.drain()
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		if m.seq.State() != trial.Idle {
			m.notice = "trial type is locked while a trial runs"
			return m, nil
		}
		if m.typ == trial.Go {
			m.typ = trial.NoGo
		} else {
			m.typ = trial.Go
		}
		m.notice = ""

	case key.Matches(msg, m.keys.Run):
		tr, err := m.seq.Start(m.ctx, m.typ)
		if err != nil {
			m.notice = err.Error()
			m.logger.Warn("start failed", "type", m.typ.String(), "error", err)
		} else {
			m.notice = fmt.Sprintf("trial %d started", tr.ID)
		}
		m.drain()

	case key.Matches(msg, m.keys.Respond):
		if m.sim.Respond() {
			m.notice = "response injected"
		} else {
			m.notice = "no response window open"
		}

	case key.Matches(msg, m.keys.Abort):
		if err := m.seq.Abort(m.ctx, "operator abort"); err != nil {
			m.notice = err.Error()
		}
		m.drain()
	}
	return m, nil
}

// drain moves reports delivered during the last sequencer call into history.
func (m *Model) drain() {
	for _, r := range m.out.reports {
		m.history = append([]trial.Report{r}, m.history...)
		if len(m.history) > historySize {
			m.history = m.history[:historySize]
		}
		if r.OK() {
			m.notice = ""
		}
	}
	m.out.reports = m.out.reports[:0]
}

// TrialType returns the selected trial type.
func (m Model) TrialType() trial.Type { return m.typ }

// State returns the sequencer state.
func (m Model) State() trial.State { return m.seq.State() }

// Last returns the most recent report.
func (m Model) Last() (trial.Report, bool) {
	if len(m.history) == 0 {
		return trial.Report{}, false
	}
	return m.history[0], true
}

// History returns past reports, newest first.
func (m Model) History() []trial.Report { return m.history }

// Notice returns the operator notice line.
func (m Model) Notice() string { return m.notice }
