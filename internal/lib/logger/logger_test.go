package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Local(t *testing.T) {
	var buf bytes.Buffer
	log := New(EnvLocal, &buf)

	log.Debug("debug enabled")

	assert.Contains(t, buf.String(), "msg=\"debug enabled\"")
}

func TestNew_ProdWritesJSONAndSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(EnvProd, &buf)

	log.Debug("hidden")
	log.Info("visible", "user_id", "42")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "42", entry["user_id"])
}
