package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ga03-kanban/internal/kanban/board"
	"ga03-kanban/internal/kanban/domain"
	"ga03-kanban/internal/kanban/usecase"

	"github.com/gin-gonic/gin"
)

// BoardProvider returns the open board session of a user
type BoardProvider interface {
	Get(ctx context.Context, userID string) (*usecase.Board, error)
}

// SummaryQueue queues cards for background AI summaries
type SummaryQueue interface {
	QueueCardsForSummary(userID string, cards []domain.BoardEmail) (map[string]string, int)
}

// Mailbox lists the newest messages of a user's mailbox as board cards
type Mailbox interface {
	RecentCards(ctx context.Context, userID, labelID string, limit int) ([]domain.BoardEmail, error)
}

type KanbanHandler struct {
	boards    BoardProvider
	summaries SummaryQueue
	mailbox   Mailbox
}

// NewKanbanHandler creates the board handler. summaries and mailbox may be nil.
func NewKanbanHandler(boards BoardProvider, summaries SummaryQueue, mailbox Mailbox) *KanbanHandler {
	return &KanbanHandler{
		boards:    boards,
		summaries: summaries,
		mailbox:   mailbox,
	}
}

func (h *KanbanHandler) board(c *gin.Context) (*usecase.Board, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil, false
	}
	b, err := h.boards.Get(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return nil, false
	}
	return b, true
}

// GET /api/kanban/board?unread=true&attachments=true&starred=true&sort=date-desc
func (h *KanbanHandler) GetBoard(c *gin.Context) {
	var filter domain.BoardFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order := board.SortOrder(c.Query("sort"))
	if !order.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown sort order %q", order)})
		return
	}

	b, ok := h.board(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, domain.BoardSnapshot{
		Columns:        b.Columns(),
		EmailsByColumn: b.View(filter, order),
	})
}

func (h *KanbanHandler) GetColumns(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": b.Columns()})
}

func (h *KanbanHandler) CreateColumn(c *gin.Context) {
	var req domain.Column
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, ok := h.board(c)
	if !ok {
		return
	}
	col, err := b.UpsertColumn(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, col)
}

func (h *KanbanHandler) UpdateColumn(c *gin.Context) {
	var patch domain.ColumnPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, ok := h.board(c)
	if !ok {
		return
	}
	col, err := b.UpdateColumn(c.Request.Context(), c.Param("column_id"), patch)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, col)
}

func (h *KanbanHandler) DeleteColumn(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	fallbackID, err := b.DeleteColumn(c.Request.Context(), c.Param("column_id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "column deleted", "relocated_to": fallbackID})
}

type columnOrdersRequest struct {
	ColumnIDs []string `json:"column_ids" binding:"required"`
}

// PUT /api/kanban/columns/orders
func (h *KanbanHandler) UpdateColumnOrders(c *gin.Context) {
	var req columnOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, ok := h.board(c)
	if !ok {
		return
	}
	cols, err := b.ReorderColumns(c.Request.Context(), req.ColumnIDs)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": cols})
}

type addEmailRequest struct {
	domain.BoardEmail
	// Index is the slot in the column; omitted appends
	Index *int `json:"index"`
}

func (h *KanbanHandler) AddEmail(c *gin.Context) {
	var req addEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	b, ok := h.board(c)
	if !ok {
		return
	}
	if err := b.AddToBoard(c.Request.Context(), req.BoardEmail, index); err != nil {
		RespondError(c, err)
		return
	}
	card, _ := b.Email(req.EmailID)
	c.JSON(http.StatusCreated, card)
}

func (h *KanbanHandler) RemoveEmail(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	if err := b.RemoveFromBoard(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email removed from board"})
}

// POST /api/kanban/emails/:id/move
func (h *KanbanHandler) MoveEmail(c *gin.Context) {
	var req usecase.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.EmailID = c.Param("id")
	b, ok := h.board(c)
	if !ok {
		return
	}
	result, err := b.Move(c.Request.Context(), req)
	respondTransition(c, result, err)
}

type snoozeRequest struct {
	SnoozeUntil *time.Time `json:"snooze_until"`
	// Minutes is used when SnoozeUntil is not set
	Minutes int `json:"minutes"`
}

// POST /api/kanban/emails/:id/snooze
func (h *KanbanHandler) SnoozeEmail(c *gin.Context) {
	var req snoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var until time.Time
	switch {
	case req.SnoozeUntil != nil:
		until = *req.SnoozeUntil
	case req.Minutes > 0:
		until = time.Now().Add(time.Duration(req.Minutes) * time.Minute)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "snooze_until or minutes is required"})
		return
	}

	b, ok := h.board(c)
	if !ok {
		return
	}
	result, err := b.Snooze(c.Request.Context(), c.Param("id"), until)
	respondTransition(c, result, err)
}

func (h *KanbanHandler) UnsnoozeEmail(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	columnID, err := b.Unsnooze(c.Request.Context(), c.Param("id"))
	var partial *domain.PartialMoveError
	if err != nil && !errors.As(err, &partial) {
		RespondError(c, err)
		return
	}
	resp := gin.H{"email_id": c.Param("id"), "column_id": columnID}
	if partial != nil {
		resp["warning"] = partial.Error()
	}
	c.JSON(http.StatusOK, resp)
}

type flagRequest struct {
	Value *bool `json:"value" binding:"required"`
}

// PATCH /api/kanban/emails/:id/read
func (h *KanbanHandler) SetRead(c *gin.Context) {
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, ok := h.board(c)
	if !ok {
		return
	}
	result, err := b.SetRead(c.Request.Context(), c.Param("id"), *req.Value)
	respondTransition(c, result, err)
}

// PATCH /api/kanban/emails/:id/star
func (h *KanbanHandler) SetStarred(c *gin.Context) {
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, ok := h.board(c)
	if !ok {
		return
	}
	result, err := b.SetStarred(c.Request.Context(), c.Param("id"), *req.Value)
	respondTransition(c, result, err)
}

func (h *KanbanHandler) GetLabels(c *gin.Context) {
	b, ok := h.board(c)
	if !ok {
		return
	}
	labels, err := b.Labels(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"labels": labels})
}

type summarizeRequest struct {
	EmailIDs []string `json:"email_ids" binding:"required"`
}

// POST /api/kanban/summarize
// Returns the summaries cards already carry; the rest arrive as "summary_update" events
func (h *KanbanHandler) QueueSummaries(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.summaries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summaries are not configured"})
		return
	}
	b, ok := h.board(c)
	if !ok {
		return
	}

	cards := make([]domain.BoardEmail, 0, len(req.EmailIDs))
	for _, id := range req.EmailIDs {
		if card, found := b.Email(id); found {
			cards = append(cards, card)
		}
	}
	summaries, queued := h.summaries.QueueCardsForSummary(b.UserID(), cards)
	c.JSON(http.StatusOK, gin.H{
		"summaries": summaries,
		"queued":    queued,
	})
}

// POST /api/kanban/import?label=INBOX&limit=50
// Puts the newest mailbox messages that are not on the board into the inbox column
func (h *KanbanHandler) ImportMailbox(c *gin.Context) {
	if h.mailbox == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mailbox import is not configured"})
		return
	}
	label := c.DefaultQuery("label", domain.LabelInbox)
	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	b, ok := h.board(c)
	if !ok {
		return
	}
	cards, err := h.mailbox.RecentCards(c.Request.Context(), b.UserID(), label, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b.Import(c.Request.Context(), cards))
}

// respondTransition writes the result of a move-like call. A transition whose
// board half succeeded is a 200 even when its label half failed.
func respondTransition(c *gin.Context, result *usecase.MoveResult, err error) {
	var partial *domain.PartialMoveError
	if err != nil && !(errors.As(err, &partial) && result != nil) {
		RespondError(c, err)
		return
	}
	if partial != nil {
		c.JSON(http.StatusOK, gin.H{"result": result, "warning": partial.Error(), "retryable": domain.IsRetryable(partial)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// RespondError maps an engine error kind to an HTTP status
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
		if errors.Is(err, domain.ErrColumnNotFound) || errors.Is(err, domain.ErrEmailNotOnBoard) {
			status = http.StatusNotFound
		}
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrStale):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTransient):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error(), "retryable": domain.IsRetryable(err)})
}
