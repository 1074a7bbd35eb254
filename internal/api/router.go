package api

import "github.com/gin-gonic/gin"

// SetupRouter configures and returns a Gin engine.
func SetupRouter(h *Handler, jwtSecret string) *gin.Engine {
	// Default middleware set (logger, recovery).
	r := gin.Default()

	r.GET("/health", h.Health)

	authMiddleware := AuthMiddleware(jwtSecret)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(authMiddleware)
	{
		documents := apiV1.Group("/documents")
		{
			documents.POST("/upload", h.UploadDocument)
			documents.POST("/website", h.IngestWebsite)
			documents.GET("", h.ListDocuments)
			documents.GET("/:id", h.GetDocument)
			documents.DELETE("/:id", h.DeleteDocument)
		}

		apiV1.POST("/query", h.Query)

		sessions := apiV1.Group("/sessions")
		{
			sessions.GET("", h.ListSessions)
			sessions.GET("/:token/messages", h.GetHistory)
		}

		apiV1.GET("/stats", h.Stats)
	}

	return r
}
