package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContextWithoutTracer(t *testing.T) {
	tracer := FromContext(context.Background())
	assert.IsType(t, &DummyTracer{}, tracer)
}

func TestFromContextReturnsStoredTracer(t *testing.T) {
	stored := &DummyTracer{}
	ctx := context.WithValue(context.Background(), TracerKey{}, Tracer(stored))

	assert.Same(t, stored, FromContext(ctx))
}

func TestFactoryWithoutTelemetryIsNoOp(t *testing.T) {
	factory := &TracerFactory{}
	tracer := factory.NewTracer(context.Background(), "fuzzing run")
	assert.IsType(t, &DummyTracer{}, tracer)

	// the dummy chain must be safe to drive end to end
	tracer.Start()
	child := tracer.Spawn("reproduction")
	child.Start()
	child.End()
	tracer.End()
}
