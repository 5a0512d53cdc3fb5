package testutil

// FixedSessionGenerator returns the same session ID for every trial.
//
// Scenario traces then stay byte-identical across runs, which golden
// comparison relies on.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id.
//
// The ID is typically set in the scenario YAML:
//
//	session: "booth-2-2024-01-01"
//
// If id is empty, Generate returns "test-session".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate implements trial.SessionGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
