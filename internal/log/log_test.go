package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	Configure(logger, "debug", "json", &buf)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("ticket_id", "abc").Debug("issued")
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc", line["ticket_id"])
	assert.Equal(t, "issued", line["msg"])
}

func TestConfigureUnknownLevel(t *testing.T) {
	logger := logrus.New()
	Configure(logger, "loud", "text", nil)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestContextRoundTrip(t *testing.T) {
	entry := logrus.New().WithField("request_id", "r-1")
	ctx := ToContext(context.Background(), entry)
	assert.Same(t, entry, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}
