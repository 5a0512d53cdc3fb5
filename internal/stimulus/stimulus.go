// Package stimulus provides trial.StimulusPlayer implementations and the
// stimulus bank loaded from WAV files.
//
// Playback is fire-and-forget: Play returns as soon as the request is queued
// and never waits for the sound to finish.
package stimulus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/roach88/gonogo/internal/trial"
)

// ErrUnknownStimulus is returned when a stimulus ID has no clip.
var ErrUnknownStimulus = errors.New("unknown stimulus")

// Silent logs each request and plays nothing.
type Silent struct {
	Logger *slog.Logger
}

// Play implements trial.StimulusPlayer.
func (s Silent) Play(_ context.Context, id trial.StimulusID) error {
	if s.Logger != nil {
		s.Logger.Debug("stimulus (silent)", "stimulus", string(id))
	}
	return nil
}

// Recorder records requested stimuli. When Err is set every Play fails with it
// after recording the request.
type Recorder struct {
	mu     sync.Mutex
	played []trial.StimulusID

	Err error
}

// Play implements trial.StimulusPlayer.
func (r *Recorder) Play(_ context.Context, id trial.StimulusID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.played = append(r.played, id)
	return r.Err
}

// Played returns the requested stimuli in order.
func (r *Recorder) Played() []trial.StimulusID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]trial.StimulusID, len(r.played))
	copy(out, r.played)
	return out
}

// Bank maps stimulus IDs to decoded clips.
type Bank map[trial.StimulusID]*Clip

// LoadBank decodes one WAV file per stimulus. Relative paths are resolved
// against dir. All clips must share one sample format.
func LoadBank(dir string, files map[trial.StimulusID]string) (Bank, error) {
	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	bank := make(Bank, len(files))
	var first *Clip
	for _, id := range ids {
		path := files[trial.StimulusID(id)]
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		clip, err := LoadWAV(path)
		if err != nil {
			return nil, fmt.Errorf("stimulus %q: %w", id, err)
		}
		if first == nil {
			first = clip
		} else if clip.SampleRate != first.SampleRate || clip.Channels != first.Channels {
			return nil, fmt.Errorf("stimulus %q: format %dHz/%dch differs from %dHz/%dch",
				id, clip.SampleRate, clip.Channels, first.SampleRate, first.Channels)
		}
		bank[trial.StimulusID(id)] = clip
	}
	return bank, nil
}

// Format returns the shared sample rate and channel count, or zeros for an
// empty bank.
func (b Bank) Format() (sampleRate uint32, channels uint16) {
	for _, c := range b {
		return c.SampleRate, c.Channels
	}
	return 0, 0
}

// Lookup returns the clip for id.
func (b Bank) Lookup(id trial.StimulusID) (*Clip, error) {
	c, ok := b[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStimulus, string(id))
	}
	return c, nil
}

var (
	_ trial.StimulusPlayer = Silent{}
	_ trial.StimulusPlayer = (*Recorder)(nil)
)
