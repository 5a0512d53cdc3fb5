package trial

// Classify maps a trial type and the response bit to an outcome.
//
//	GO   + response    -> Hit
//	GO   + no response -> Miss
//	NOGO + response    -> FalseStart
//	NOGO + no response -> CorrectRejection
//
// Classify is pure. An invalid type is treated as NOGO, the condition that
// never rewards.
func Classify(t Type, responded bool) Outcome {
	if t == Go {
		if responded {
			return Hit
		}
		return Miss
	}
	if responded {
		return FalseStart
	}
	return CorrectRejection
}

// ActuationFor returns the output driven for an outcome.
func ActuationFor(o Outcome) Actuation {
	switch o {
	case Hit:
		return Reward
	case Miss, FalseStart:
		return Punishment
	default:
		return NoActuation
	}
}

// bitSet reports whether bit n of v is set.
func bitSet(v uint32, n uint) bool {
	return v&(1<<n) != 0
}

// mask returns the single-bit mask for bit n.
func mask(n uint) uint32 {
	return 1 << n
}
