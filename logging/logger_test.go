package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("warn", "json", &buf)

	log.Info("dropped")
	log.WithField("order_id", 7).Warn("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.EqualValues(t, 7, line["order_id"])
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	log := NewWithOutput("chatty", "text", &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestFromContext(t *testing.T) {
	base := Discard()
	assert.Empty(t, FromContext(context.Background(), base).Data)

	entry := base.WithField("request_id", "abc")
	ctx := WithEntry(context.Background(), entry)
	assert.Equal(t, "abc", FromContext(ctx, base).Data["request_id"])
}
