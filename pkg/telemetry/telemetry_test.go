package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewBuildsTracerWithoutBlockingOnDial(t *testing.T) {
	// otlptracegrpc.New dials lazily; construction must succeed even though
	// nothing is listening on the endpoint below.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p, err := New(ctx, Config{ServiceName: "kernel-test", Endpoint: "127.0.0.1:0", Insecure: true})
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(ctx, "test-span")
	span.End()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	require.NoError(t, p.Shutdown(shutdownCtx))
}

func TestShutdownOnZeroValueIsNoop(t *testing.T) {
	var p Provider
	require.NoError(t, p.Shutdown(context.Background()))
}
