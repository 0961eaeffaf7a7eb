package api

import (
	"net/http"

	"ga03-kanban/internal/search"
	"ga03-kanban/pkg/config"

	"github.com/gin-gonic/gin"
)

// BoardSettings are the engine settings a client needs to render the board
type BoardSettings struct {
	DefaultSnoozeMinutes int           `json:"default_snooze_minutes"`
	SnoozePollSeconds    int           `json:"snooze_poll_seconds"`
	SearchLimit          int           `json:"search_limit"`
	SemanticMinScore     float64       `json:"semantic_min_score"`
	AIProvider           string        `json:"ai_provider"`
	Semantic             search.Status `json:"semantic"`
}

type settingsHandler struct {
	cfg    *config.Config
	status func(c *gin.Context) search.Status
}

// GetSettings returns the current engine settings
// GET /api/settings
func (h *settingsHandler) GetSettings(c *gin.Context) {
	provider := h.cfg.AIProvider
	if provider == "" {
		provider = "auto"
	}
	c.JSON(http.StatusOK, BoardSettings{
		DefaultSnoozeMinutes: int(h.cfg.DefaultSnooze.Minutes()),
		SnoozePollSeconds:    int(h.cfg.SnoozePollInterval.Seconds()),
		SearchLimit:          h.cfg.SearchLimit,
		SemanticMinScore:     h.cfg.SemanticMinScore,
		AIProvider:           provider,
		Semantic:             h.status(c),
	})
}
