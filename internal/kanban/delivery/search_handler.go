package delivery

import (
	"context"
	"net/http"

	"ga03-kanban/internal/kanban/domain"
	"ga03-kanban/internal/search"

	"github.com/gin-gonic/gin"
)

// Searcher runs board searches for a user
type Searcher interface {
	SearchWithFallback(ctx context.Context, userID string, req search.Request) (*search.Response, error)
	SwitchMode(userID string, mode domain.SearchMode) error
	Clear(userID string)
	Status(ctx context.Context) search.Status
}

type SearchHandler struct {
	searcher Searcher
}

func NewSearchHandler(searcher Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// POST /api/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.run(c, req)
}

// GET /api/search?q=...&mode=fuzzy
func (h *SearchHandler) Query(c *gin.Context) {
	var req search.Request
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.run(c, req)
}

func (h *SearchHandler) run(c *gin.Context, req search.Request) {
	resp, err := h.searcher.SearchWithFallback(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type modeRequest struct {
	Mode domain.SearchMode `json:"mode" binding:"required"`
}

// PUT /api/search/mode
func (h *SearchHandler) SwitchMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.searcher.SwitchMode(c.GetString("user_id"), req.Mode); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": req.Mode})
}

// DELETE /api/search
func (h *SearchHandler) Clear(c *gin.Context) {
	h.searcher.Clear(c.GetString("user_id"))
	c.JSON(http.StatusOK, gin.H{"message": "search cleared"})
}

// GET /api/search/status
func (h *SearchHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.searcher.Status(c.Request.Context()))
}
