package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"boardtex/internal/middleware"
	"boardtex/internal/pkg/response"
)

type RouterDeps struct {
	Convert        *ConvertHandler
	Notes          *NoteHandler
	Chat           *ChatHandler
	VisionModel    string
	ChatRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{
			"status":    "ok",
			"model":     deps.VisionModel,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api.POST("/convert", deps.Convert.Convert)

	api.GET("/notes", deps.Notes.List)
	api.GET("/notes/:name", deps.Notes.Get)
	api.GET("/notes/:name/download", deps.Notes.Download)
	api.DELETE("/notes/:name", deps.Notes.Delete)

	chatGroup := api.Group("")
	if deps.ChatRateWindow > 0 {
		chatGroup.Use(middleware.RateLimit(deps.ChatRateWindow))
	}
	chatGroup.POST("/chat", deps.Chat.Chat)
}
