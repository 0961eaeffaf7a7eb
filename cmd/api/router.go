package api

import (
	"net/http"

	"ga03-kanban/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	kanbanHandler := h.kanbanHandler
	searchHandler := h.searchHandler

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE endpoint
		api.GET("/events", delivery.AuthMiddleware(h.authUsecase), func(c *gin.Context) {
			userID := c.GetString("user_id")
			h.sseManager.ServeHTTP(c, userID)
		})

		api.GET("/me", delivery.AuthMiddleware(h.authUsecase), func(c *gin.Context) {
			user, ok := delivery.CurrentUser(c)
			if !ok {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": user, "mailbox_connected": user.HasMailbox()})
		})

		// Kanban routes (protected)
		kanban := api.Group("/kanban")
		kanban.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			kanban.GET("/board", kanbanHandler.GetBoard)
			kanban.GET("/columns", kanbanHandler.GetColumns)
			kanban.POST("/columns", kanbanHandler.CreateColumn)
			kanban.PUT("/columns/orders", kanbanHandler.UpdateColumnOrders)
			kanban.PUT("/columns/:column_id", kanbanHandler.UpdateColumn)
			kanban.DELETE("/columns/:column_id", kanbanHandler.DeleteColumn)
			kanban.POST("/emails", kanbanHandler.AddEmail)
			kanban.DELETE("/emails/:id", kanbanHandler.RemoveEmail)
			kanban.POST("/emails/:id/move", kanbanHandler.MoveEmail)
			kanban.POST("/emails/:id/snooze", kanbanHandler.SnoozeEmail)
			kanban.POST("/emails/:id/unsnooze", kanbanHandler.UnsnoozeEmail)
			kanban.PATCH("/emails/:id/read", kanbanHandler.SetRead)
			kanban.PATCH("/emails/:id/star", kanbanHandler.SetStarred)
			kanban.GET("/labels", kanbanHandler.GetLabels)
			kanban.POST("/import", kanbanHandler.ImportMailbox)
			kanban.POST("/summarize", kanbanHandler.QueueSummaries) // Background AI summary generation
		}

		// Search routes (protected)
		search := api.Group("/search")
		search.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			search.GET("", searchHandler.Query)
			search.POST("", searchHandler.Search)
			search.DELETE("", searchHandler.Clear)
			search.PUT("/mode", searchHandler.SwitchMode)
			search.GET("/status", searchHandler.Status)
		}

		// Settings routes (protected)
		settings := api.Group("/settings")
		settings.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			settings.GET("", h.settingsHandler.GetSettings)
		}
	}
}
