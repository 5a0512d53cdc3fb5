package trial

import "fmt"

// maxBit is the highest bit index of a 32-bit wire.
const maxBit = 31

// Wiring is the register map of the timed-response hardware module.
type Wiring struct {
	// TriggerAddr receives the start and reset triggers.
	TriggerAddr Address
	StartBit    uint
	ResetBit    uint

	// StatusAddr is the wire-out polled for completion.
	StatusAddr  Address
	ResponseBit uint
	DoneBit     uint

	// ActuationAddr is the wire-in driving reward and punishment lines.
	ActuationAddr Address
	RewardBit     uint
	PunishmentBit uint
}

// DefaultWiring returns the register map of the reference FPGA bitstream:
// trigger-in 0x40 (bit 0 start, bit 1 reset), wire-out 0x20 (bit 0 response,
// bit 1 done), wire-in 0x00 (bit 0 reward, bit 1 punishment).
func DefaultWiring() Wiring {
	return Wiring{
		TriggerAddr:   0x40,
		StartBit:      0,
		ResetBit:      1,
		StatusAddr:    0x20,
		ResponseBit:   0,
		DoneBit:       1,
		ActuationAddr: 0x00,
		RewardBit:     0,
		PunishmentBit: 1,
	}
}

// Validate checks bit ranges and that bits sharing a register are distinct.
func (w Wiring) Validate() error {
	bits := []struct {
		name string
		bit  uint
	}{
		{"start_bit", w.StartBit},
		{"reset_bit", w.ResetBit},
		{"response_bit", w.ResponseBit},
		{"done_bit", w.DoneBit},
		{"reward_bit", w.RewardBit},
		{"punishment_bit", w.PunishmentBit},
	}
	for _, b := range bits {
		if b.bit > maxBit {
			return fmt.Errorf("%s: bit %d out of range (0..%d)", b.name, b.bit, maxBit)
		}
	}
	if w.StartBit == w.ResetBit {
		return fmt.Errorf("start_bit and reset_bit must differ (both %d)", w.StartBit)
	}
	if w.ResponseBit == w.DoneBit {
		return fmt.Errorf("response_bit and done_bit must differ (both %d)", w.DoneBit)
	}
	if w.RewardBit == w.PunishmentBit {
		return fmt.Errorf("reward_bit and punishment_bit must differ (both %d)", w.RewardBit)
	}
	return nil
}

// StartMask is the trigger mask that starts the timed window.
func (w Wiring) StartMask() uint32 { return mask(w.StartBit) }

// ResetMask is the trigger mask that resets the module.
func (w Wiring) ResetMask() uint32 { return mask(w.ResetBit) }

// ActuationMask returns the wire-in value asserting a, and false for NoActuation.
func (w Wiring) ActuationMask(a Actuation) (uint32, bool) {
	switch a {
	case Reward:
		return mask(w.RewardBit), true
	case Punishment:
		return mask(w.PunishmentBit), true
	default:
		return 0, false
	}
}
