package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/bigsoczeq/ai-chatbot2/internal/interfaces/httpserver/handlers"
)

func registerChatRoutes(router gin.IRoutes, handler *handlers.ChatHandler) {
	router.POST("/chat", handler.Submit)
	router.GET("/chat", handler.Get)
	router.DELETE("/chat", handler.Delete)
	router.GET("/chat/stream", handler.Resume)
}
