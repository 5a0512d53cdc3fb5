package trial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWiring(t *testing.T) {
	w := DefaultWiring()
	require.NoError(t, w.Validate())

	assert.Equal(t, Address(0x40), w.TriggerAddr)
	assert.Equal(t, Address(0x20), w.StatusAddr)
	assert.Equal(t, Address(0x00), w.ActuationAddr)
	assert.Equal(t, uint32(1), w.StartMask())
	assert.Equal(t, uint32(2), w.ResetMask())

	m, ok := w.ActuationMask(Reward)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), m)

	m, ok = w.ActuationMask(Punishment)
	assert.True(t, ok)
	assert.Equal(t, uint32(2), m)

	_, ok = w.ActuationMask(NoActuation)
	assert.False(t, ok)
}

func TestWiring_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Wiring)
		errMsg string
	}{
		{"bit out of range", func(w *Wiring) { w.DoneBit = 32 }, "out of range"},
		{"start equals reset", func(w *Wiring) { w.ResetBit = w.StartBit }, "start_bit and reset_bit"},
		{"response equals done", func(w *Wiring) { w.DoneBit = w.ResponseBit }, "response_bit and done_bit"},
		{"reward equals punishment", func(w *Wiring) { w.PunishmentBit = w.RewardBit }, "reward_bit and punishment_bit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWiring()
			tt.mutate(&w)
			err := w.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
