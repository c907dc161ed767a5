package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_LevelAndFormat(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})

	assert.Equal(t, log.WarnLevel, L().GetLevel())

	WithComponent("registry").Info("hidden")
	assert.Zero(t, buf.Len(), "info should be filtered at warn level")

	WithComponent("registry").Warn("shown")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "registry", entry["component"])
	assert.Equal(t, "shown", entry["msg"])
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: "loud", Output: &buf})
	assert.Equal(t, log.InfoLevel, L().GetLevel())
}
