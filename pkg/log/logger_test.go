package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/event-booking/pkg/log"
)

func TestLogger_WritesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := log.New(log.LevelInfo, log.WithOutput(buf))

	ctx := logger.WithContext(context.Background(), log.Fields{"queue": "delete_user"})
	logger.WithField("userID", 42).WithError(errors.New("boom")).Warn(ctx, "handled")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "handled", record["msg"])
	assert.Equal(t, "delete_user", record["queue"])
	assert.InDelta(t, 42, record["userID"], 0)
	assert.Equal(t, "boom", record["error"])
}

func TestLogger_SkipsLowerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := log.New(log.LevelWarn, log.WithOutput(buf))

	logger.Info(context.Background(), "skipped")
	logger.Log(context.Background(), log.LevelDisabled, "skipped")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.LevelDebug, log.ParseLevel("debug"))
	assert.Equal(t, log.LevelDisabled, log.ParseLevel("disabled"))
	assert.Equal(t, log.LevelInfo, log.ParseLevel("verbose"))
}
