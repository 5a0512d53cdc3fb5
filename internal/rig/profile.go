// Package rig loads rig profiles: CUE files that describe the register map,
// poll cadence and stimulus files of one experimental setup.
//
// A profile file is unified with the embedded #Rig schema, so omitted fields
// take their defaults and constraint violations carry CUE positions:
//
//	name: "booth-2"
//	trigger: address: 0x41
//	poll: {interval: "100ms", max_polls: 50}
package rig

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gonogo/internal/trial"
)

//go:embed schema.cue
var schemaSource string

// DefaultPollInterval is the poll cadence of the reference setup.
const DefaultPollInterval = 250 * time.Millisecond

// Profile is a compiled rig profile.
type Profile struct {
	Name   string
	Wiring trial.Wiring

	PollInterval time.Duration
	MaxPolls     int
	Timeout      time.Duration

	// StimulusDir is where relative stimulus paths are resolved.
	StimulusDir string
	Stimuli     map[trial.StimulusID]string

	// Simulator defaults for the in-process module.
	SimWindow       int
	SimRespondAfter int

	// Source is the file the profile was loaded from, empty for Default().
	Source string
}

// CompileError is a profile error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// rigFile mirrors #Rig for decoding.
type rigFile struct {
	Name    string `json:"name"`
	Trigger struct {
		Address  uint16 `json:"address"`
		StartBit uint   `json:"start_bit"`
		ResetBit uint   `json:"reset_bit"`
	} `json:"trigger"`
	Status struct {
		Address     uint16 `json:"address"`
		ResponseBit uint   `json:"response_bit"`
		DoneBit     uint   `json:"done_bit"`
	} `json:"status"`
	Actuation struct {
		Address       uint16 `json:"address"`
		RewardBit     uint   `json:"reward_bit"`
		PunishmentBit uint   `json:"punishment_bit"`
	} `json:"actuation"`
	Poll struct {
		Interval string `json:"interval"`
		MaxPolls int    `json:"max_polls"`
		Timeout  string `json:"timeout"`
	} `json:"poll"`
	Stimuli struct {
		Dir  string `json:"dir"`
		Go   string `json:"go"`
		NoGo string `json:"no-go"`
	} `json:"stimuli"`
	Simulator struct {
		Window       int `json:"window"`
		RespondAfter int `json:"respond_after"`
	} `json:"simulator"`
}

// Default returns the profile of the reference setup.
func Default() Profile {
	ctx := cuecontext.New()
	p, err := Compile(ctx.CompileString("{}"))
	if err != nil {
		panic(fmt.Sprintf("rig: embedded schema does not compile: %v", err))
	}
	return *p
}

// Load reads, unifies and validates a profile file. A relative stimuli.dir
// is resolved against the file's directory; an empty one stays empty.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rig profile: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p, err := Compile(v)
	if err != nil {
		return nil, err
	}
	p.Source = path
	if p.StimulusDir != "" && !filepath.IsAbs(p.StimulusDir) {
		p.StimulusDir = filepath.Join(filepath.Dir(path), p.StimulusDir)
	}
	return p, nil
}

// Compile unifies v with #Rig and decodes the result.
func Compile(v cue.Value) (*Profile, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema, err := compileSchema(v.Context())
	if err != nil {
		return nil, err
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var f rigFile
	if err := unified.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}

	interval, err := time.ParseDuration(f.Poll.Interval)
	if err != nil {
		return nil, fieldError(unified, "poll.interval", err.Error())
	}
	timeout, err := time.ParseDuration(f.Poll.Timeout)
	if err != nil {
		return nil, fieldError(unified, "poll.timeout", err.Error())
	}

	p := &Profile{
		Name: f.Name,
		Wiring: trial.Wiring{
			TriggerAddr:   trial.Address(f.Trigger.Address),
			StartBit:      f.Trigger.StartBit,
			ResetBit:      f.Trigger.ResetBit,
			StatusAddr:    trial.Address(f.Status.Address),
			ResponseBit:   f.Status.ResponseBit,
			DoneBit:       f.Status.DoneBit,
			ActuationAddr: trial.Address(f.Actuation.Address),
			RewardBit:     f.Actuation.RewardBit,
			PunishmentBit: f.Actuation.PunishmentBit,
		},
		PollInterval: interval,
		MaxPolls:     f.Poll.MaxPolls,
		Timeout:      timeout,
		StimulusDir:  f.Stimuli.Dir,
		Stimuli: map[trial.StimulusID]string{
			trial.StimulusGo:   f.Stimuli.Go,
			trial.StimulusNoGo: f.Stimuli.NoGo,
		},
		SimWindow:       f.Simulator.Window,
		SimRespondAfter: f.Simulator.RespondAfter,
	}

	if err := checkDistinct(unified, p.Wiring); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, &CompileError{Field: "rig", Message: err.Error(), Pos: v.Pos()}
	}
	return p, nil
}

// Validate checks the profile independently of its CUE source.
func (p *Profile) Validate() error {
	if err := p.Wiring.Validate(); err != nil {
		return err
	}
	if p.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", p.PollInterval)
	}
	if p.MaxPolls < 0 || p.Timeout < 0 {
		return errors.New("poll bounds must be non-negative")
	}
	if p.MaxPolls == 0 && p.Timeout == 0 {
		return errors.New("poll: at least one of max_polls or timeout must bound the trial")
	}
	return nil
}

// TrialOptions returns the sequencer options this profile implies.
func (p *Profile) TrialOptions() []trial.Option {
	return []trial.Option{
		trial.WithWiring(p.Wiring),
		trial.WithMaxPolls(p.MaxPolls),
		trial.WithTimeout(p.Timeout),
	}
}

// checkDistinct rejects bits that share a register, reporting the position
// of the second field of each pair.
func checkDistinct(v cue.Value, w trial.Wiring) error {
	pairs := []struct {
		a, b       string
		bitA, bitB uint
	}{
		{"trigger.start_bit", "trigger.reset_bit", w.StartBit, w.ResetBit},
		{"status.response_bit", "status.done_bit", w.ResponseBit, w.DoneBit},
		{"actuation.reward_bit", "actuation.punishment_bit", w.RewardBit, w.PunishmentBit},
	}
	for _, p := range pairs {
		if p.bitA == p.bitB {
			return fieldError(v, p.b, fmt.Sprintf("bit %d already used by %s", p.bitB, p.a))
		}
	}
	return nil
}

func fieldError(v cue.Value, field, msg string) error {
	return &CompileError{
		Field:   field,
		Message: msg,
		Pos:     v.LookupPath(cue.ParsePath(field)).Pos(),
	}
}

func compileSchema(ctx *cue.Context) (cue.Value, error) {
	s := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := s.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return s.LookupPath(cue.ParsePath("#Rig")), nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   pathString(first.Path()),
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "rig"
	}
	s := path[0]
	for _, p := range path[1:] {
		s += "." + p
	}
	return s
}
