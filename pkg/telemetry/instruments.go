package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans and instruments created by this service.
const InstrumentationName = "github.com/ghuser/inventorystorage"

// Tracer returns the service tracer from the global provider set up by Setup.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Meter returns the service meter from the global provider set up by Setup.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}
