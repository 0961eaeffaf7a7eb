package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KANBAN_SNOOZE_POLL_INTERVAL", "")
	t.Setenv("KANBAN_DEFAULT_SNOOZE", "")
	t.Setenv("KANBAN_SEARCH_LIMIT", "")
	t.Setenv("KANBAN_SESSION_IDLE", "")

	cfg := Load()
	assert.Equal(t, 30*time.Minute, cfg.SessionIdle)
	assert.Equal(t, time.Minute, cfg.SnoozePollInterval)
	assert.Equal(t, time.Hour, cfg.DefaultSnooze)
	assert.Equal(t, 20, cfg.SearchLimit)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KANBAN_SNOOZE_POLL_INTERVAL", "15s")
	t.Setenv("KANBAN_DEFAULT_SNOOZE", "3h")
	t.Setenv("KANBAN_SEARCH_LIMIT", "50")
	t.Setenv("KANBAN_SEMANTIC_MIN_SCORE", "0.55")
	t.Setenv("KANBAN_BOARD_BACKEND", "sqlite")
	t.Setenv("KANBAN_SESSION_IDLE", "2h")

	cfg := Load()
	assert.Equal(t, 2*time.Hour, cfg.SessionIdle)
	assert.Equal(t, 15*time.Second, cfg.SnoozePollInterval)
	assert.Equal(t, 3*time.Hour, cfg.DefaultSnooze)
	assert.Equal(t, 50, cfg.SearchLimit)
	assert.InDelta(t, 0.55, cfg.SemanticMinScore, 1e-9)
	assert.Equal(t, "sqlite", cfg.BoardBackend)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("KANBAN_SNOOZE_POLL_INTERVAL", "soon")
	t.Setenv("KANBAN_SEARCH_LIMIT", "-3")

	cfg := Load()
	assert.Equal(t, time.Minute, cfg.SnoozePollInterval)
	assert.Equal(t, 20, cfg.SearchLimit)
}
