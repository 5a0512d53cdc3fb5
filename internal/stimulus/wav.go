package stimulus

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// Clip is a decoded 16-bit PCM stimulus, little-endian interleaved samples.
type Clip struct {
	SampleRate uint32
	Channels   uint16
	PCM        []byte
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	frame := int(c.Channels) * 2
	if frame == 0 || c.SampleRate == 0 {
		return 0
	}
	frames := len(c.PCM) / frame
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

const wavFormatPCM = 1

var errNotWAV = errors.New("not a RIFF/WAVE file")

// LoadWAV reads and decodes a WAV file.
func LoadWAV(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	clip, err := ParseWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// ParseWAV decodes a PCM16 RIFF/WAVE file held in memory. Compressed
// formats and other bit depths are rejected.
func ParseWAV(data []byte) (*Clip, error) {
	if err := checkChunks(data); err != nil {
		return nil, err
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errNotWAV
	}
	if d.WavAudioFormat != wavFormatPCM || d.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported encoding (format=%d, bits=%d): only PCM16", d.WavAudioFormat, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	pcm := make([]byte, 2*len(buf.Data))
	for i, v := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(v)))
	}
	return &Clip{SampleRate: d.SampleRate, Channels: d.NumChans, PCM: pcm}, nil
}

// checkChunks walks the chunk table and rejects sizes that run past the end
// of data, a data chunk ahead of fmt, and files without a data chunk.
func checkChunks(data []byte) error {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return errNotWAV
	}

	var hasFmt bool
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := uint64(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		off += 8
		if remain := uint64(len(data) - off); size > remain {
			return fmt.Errorf("%q chunk declares %d bytes but %d remain", id, size, remain)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return fmt.Errorf("fmt chunk too short (%d bytes)", size)
			}
			hasFmt = true
		case "data":
			if !hasFmt {
				return errors.New("data chunk before fmt chunk")
			}
			return nil
		}

		// Chunks are word aligned.
		off += int(size + size%2)
	}
	return errors.New("missing data chunk")
}
