// Package miniaudio plays stimulus clips on the default output device through
// malgo (miniaudio).
package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/roach88/gonogo/internal/stimulus"
	"github.com/roach88/gonogo/internal/trial"
)

// Player is a fire-and-forget trial.StimulusPlayer.
//
// Play copies the clip into the pending buffer and returns; the device data
// callback drains it. A new Play replaces whatever is still pending so that a
// stimulus always starts on its trial's trigger.
type Player struct {
	bank   stimulus.Bank
	logger *slog.Logger

	audioContext *malgo.AllocatedContext
	device       *malgo.Device

	mu      sync.Mutex
	pending []byte
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the logger for device messages.
func WithLogger(l *slog.Logger) Option {
	return func(p *Player) { p.logger = l }
}

// NewPlayer opens and starts the default playback device in the bank's format.
func NewPlayer(bank stimulus.Bank, opts ...Option) (*Player, error) {
	sampleRate, channels := bank.Format()
	if sampleRate == 0 {
		return nil, errors.New("stimulus bank is empty")
	}

	p := &Player{
		bank:   bank,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	for id, clip := range bank {
		p.logger.Debug("stimulus loaded", "stimulus", string(id), "duration", clip.Duration(), "bytes", len(clip.PCM))
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		p.logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	p.audioContext = audioCtx

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * int(channels)

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = sampleRate
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = sampleRate / 100 // 10ms keeps onset latency low
	config.Periods = 4

	p.device, err = malgo.InitDevice(audioCtx.Context, config, malgo.DeviceCallbacks{
		Data: p.processAudio(bytesPerFrame),
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("init playback device: %w", err)
	}
	if err := p.device.Start(); err != nil {
		p.Close()
		return nil, fmt.Errorf("start playback device: %w", err)
	}

	p.logger.Info("audio output ready", "sample_rate", sampleRate, "channels", channels)
	return p, nil
}

// Play implements trial.StimulusPlayer.
func (p *Player) Play(_ context.Context, id trial.StimulusID) error {
	clip, err := p.bank.Lookup(id)
	if err != nil {
		return err
	}
	if p.device == nil || !p.device.IsStarted() {
		return errors.New("playback device not started")
	}

	p.mu.Lock()
	p.pending = append(p.pending[:0], clip.PCM...)
	p.mu.Unlock()
	return nil
}

// Close stops the device and releases the audio context.
func (p *Player) Close() error {
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	if p.audioContext != nil {
		_ = p.audioContext.Uninit()
		p.audioContext.Free()
		p.audioContext = nil
	}
	return nil
}

func (p *Player) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(out, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		p.mu.Lock()
		defer p.mu.Unlock()

		n := copy(out[:need], p.pending)
		clear(out[n:need])
		p.pending = p.pending[n:]
	}
}

var _ trial.StimulusPlayer = (*Player)(nil)
