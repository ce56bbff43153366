package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "America/Argentina/Cordoba", cfg.Timezone)
	assert.Equal(t, 15*time.Second, cfg.DebounceWait)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 8, cfg.MaxToolRounds)
	assert.Equal(t, 7, cfg.SearchHorizon)
	assert.Equal(t, 9, cfg.WorkHoursStart)
	assert.Equal(t, 20, cfg.WorkHoursEnd)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEBOUNCE_WAIT", "3s")
	t.Setenv("HISTORY_LIMIT", "25")
	t.Setenv("MP_BASE_URL", "http://localhost:9999")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.DebounceWait)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, "http://localhost:9999", cfg.MPBaseURL)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "lots")
	t.Setenv("DEBOUNCE_WAIT", "soon")

	cfg := Load()

	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 15*time.Second, cfg.DebounceWait)
}
