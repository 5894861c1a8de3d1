package http

import (
	"github.com/gin-gonic/gin"

	"gopherai-notebook/internal/bootstrap"
	"gopherai-notebook/internal/transport/http/handler"
	"gopherai-notebook/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLog(app.Logger), gin.Recovery())
	router.MaxMultipartMemory = 32 << 20

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	sessions := handler.NewChatSessions(app)
	flowHandler := handler.NewFlowHandler(app)
	notebookHandler := handler.NewNotebookHandler(app, sessions)
	chatHandler := handler.NewChatHandler(app, sessions)

	v1 := router.Group("/api/v1")
	if app.Config.Auth.JWTSecret != "" {
		v1.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	}

	v1.POST("/flows", flowHandler.Create)
	v1.GET("/flows/:id", flowHandler.Get)
	v1.DELETE("/flows/:id", flowHandler.Cancel)

	v1.GET("/models", notebookHandler.Models)

	notebooks := v1.Group("/notebooks")
	notebooks.GET("", notebookHandler.List)
	notebooks.DELETE("/:id", notebookHandler.Delete)
	notebooks.POST("/:id/sources", notebookHandler.AddSources)
	notebooks.PUT("/:id/model", notebookHandler.SwitchModel)
	notebooks.POST("/:id/podcast", notebookHandler.Podcast)
	notebooks.GET("/:id/turns", notebookHandler.Turns)

	notebooks.POST("/:id/messages", chatHandler.SendMessage)
	notebooks.GET("/:id/messages", chatHandler.ListMessages)
	notebooks.DELETE("/:id/error", chatHandler.DismissError)
	notebooks.DELETE("/:id/chat", chatHandler.Close)

	return router
}
