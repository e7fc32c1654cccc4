package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "json", "info")
	log.Info("refresh completed", "clients", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "refresh completed", entry["msg"])
	assert.EqualValues(t, 3, entry["clients"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "text", "warn")
	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("ambiguous segment assignment")
	assert.Contains(t, buf.String(), "ambiguous segment assignment")
}
