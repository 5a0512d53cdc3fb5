package stimulus

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gonogo/internal/trial"
)

// encodeWAV writes clip as a canonical 44-byte-header PCM16 RIFF/WAVE stream.
func encodeWAV(w io.Writer, clip *Clip) error {
	blockAlign := clip.Channels * 2
	hdr := struct {
		RIFF          [4]byte
		Size          uint32
		WAVE          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		Size:          uint32(36 + len(clip.PCM)),
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		Format:        wavFormatPCM,
		Channels:      clip.Channels,
		SampleRate:    clip.SampleRate,
		ByteRate:      clip.SampleRate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(len(clip.PCM)),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	_, err := w.Write(clip.PCM)
	return err
}

func wavBytes(t *testing.T, clip *Clip) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, encodeWAV(&buf, clip))
	return buf.Bytes()
}

func writeClip(t *testing.T, dir, name string, clip *Clip) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, encodeWAV(&buf, clip))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestParseWAV_RoundTrip(t *testing.T) {
	clip := &Clip{SampleRate: 44100, Channels: 2, PCM: []byte{1, 2, 3, 4, 5, 6, 7, 8}}

	got, err := ParseWAV(wavBytes(t, clip))
	require.NoError(t, err)
	assert.Equal(t, clip, got)
}

func TestParseWAV_SkipsUnknownChunks(t *testing.T) {
	raw := wavBytes(t, &Clip{SampleRate: 8000, Channels: 1, PCM: []byte{9, 9}})

	// Splice a LIST chunk between fmt and data.
	list := []byte{'L', 'I', 'S', 'T', 4, 0, 0, 0, 'a', 'b', 'c', 'd'}
	spliced := append(append(append([]byte{}, raw[:36]...), list...), raw[36:]...)
	binary.LittleEndian.PutUint32(spliced[4:8], uint32(len(spliced)-8))

	got, err := ParseWAV(spliced)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, got.PCM)
}

func TestParseWAV_Rejects(t *testing.T) {
	pcm8 := func() []byte {
		b := wavBytes(t, &Clip{SampleRate: 8000, Channels: 1, PCM: []byte{1, 2}})
		b[34] = 8 // bits per sample
		return b
	}
	oversizedData := func() []byte {
		b := wavBytes(t, &Clip{SampleRate: 8000, Channels: 1, PCM: []byte{1, 2}})
		binary.LittleEndian.PutUint32(b[40:44], 0xFFFFFFF0)
		return b
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "not a RIFF/WAVE"},
		{"not riff", []byte("RIFX\x00\x00\x00\x00WAVE"), "not a RIFF/WAVE"},
		{"no data", []byte("RIFF\x04\x00\x00\x00WAVE"), "missing data chunk"},
		{"8-bit", pcm8(), "only PCM16"},
		{"data before fmt", []byte("RIFF\x0c\x00\x00\x00WAVEdata\x00\x00\x00\x00"), "before fmt"},
		{"oversized fmt", []byte("RIFF\x0c\x00\x00\x00WAVEfmt \xf0\xff\xff\xff"), "declares 4294967280 bytes but 0 remain"},
		{"oversized data", oversizedData(), "declares 4294967280 bytes but 2 remain"},
		{"truncated fmt", []byte("RIFF\x10\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00"), "declares 16 bytes but 2 remain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWAV(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClip_Duration(t *testing.T) {
	clip := &Clip{SampleRate: 1000, Channels: 2, PCM: make([]byte, 4*250)}
	assert.Equal(t, 250*time.Millisecond, clip.Duration())
	assert.Equal(t, time.Duration(0), (&Clip{}).Duration())
}

func TestLoadBank(t *testing.T) {
	dir := t.TempDir()
	writeClip(t, dir, "go.wav", &Clip{SampleRate: 48000, Channels: 1, PCM: []byte{1, 0}})
	abs := writeClip(t, dir, "nogo.wav", &Clip{SampleRate: 48000, Channels: 1, PCM: []byte{2, 0}})

	bank, err := LoadBank(dir, map[trial.StimulusID]string{
		trial.StimulusGo:   "go.wav",
		trial.StimulusNoGo: abs,
	})
	require.NoError(t, err)

	rate, ch := bank.Format()
	assert.Equal(t, uint32(48000), rate)
	assert.Equal(t, uint16(1), ch)

	c, err := bank.Lookup(trial.StimulusNoGo)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0}, c.PCM)

	_, err = bank.Lookup("beep")
	assert.ErrorIs(t, err, ErrUnknownStimulus)
}

func TestLoadBank_MismatchedFormats(t *testing.T) {
	dir := t.TempDir()
	writeClip(t, dir, "go.wav", &Clip{SampleRate: 48000, Channels: 1, PCM: []byte{0, 0}})
	writeClip(t, dir, "no-go.wav", &Clip{SampleRate: 44100, Channels: 1, PCM: []byte{0, 0}})

	_, err := LoadBank(dir, map[trial.StimulusID]string{
		trial.StimulusGo:   "go.wav",
		trial.StimulusNoGo: "no-go.wav",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differs")
}

func TestLoadBank_MissingFile(t *testing.T) {
	_, err := LoadBank(t.TempDir(), map[trial.StimulusID]string{trial.StimulusGo: "go.wav"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := &Recorder{}
	require.NoError(t, rec.Play(ctx, trial.StimulusGo))

	rec.Err = errors.New("device lost")
	assert.Error(t, rec.Play(ctx, trial.StimulusNoGo))

	assert.Equal(t, []trial.StimulusID{trial.StimulusGo, trial.StimulusNoGo}, rec.Played())
}

func TestSilent(t *testing.T) {
	assert.NoError(t, Silent{}.Play(context.Background(), trial.StimulusGo))
}
