package telemetry

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	logger, hook := test.NewNullLogger()
	shutdown := Setup(context.Background(), Options{ServiceName: "clinic-queue"}, logger)
	assert.NoError(t, shutdown(context.Background()))
	assert.Empty(t, hook.AllEntries())
}

func TestSamplerFollowsRatio(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", sampler(1).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
