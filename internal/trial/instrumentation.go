package trial

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const scopeName = "github.com/roach88/gonogo/internal/trial"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

// newOutcomeCounter creates the trial.outcomes counter, falling back to a
// no-op instrument if the meter provider rejects it.
func newOutcomeCounter() metric.Int64Counter {
	c, err := meter.Int64Counter("trial.outcomes",
		metric.WithDescription("Completed trials by type and outcome or error code"),
		metric.WithUnit("{trial}"),
	)
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
