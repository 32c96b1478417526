package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "clause-extractor/internal/app"
	"clause-extractor/internal/bootstrap"
	"clause-extractor/internal/pkg/pdfextract"
	"clause-extractor/internal/repository"
	"clause-extractor/internal/transport/http/handler"
	"clause-extractor/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	extractionRepo := repository.NewExtractionRepository(app.MySQL)
	extractionService := appsvc.NewExtractionService(
		extractionRepo,
		pdfextract.NewExtractor(),
		app.Providers,
	)
	extractionHandler := handler.NewExtractionHandler(
		extractionService,
		app.Config.Limits.MaxUploadBytes,
	)

	api := router.Group("/api")
	api.POST("/extract",
		middleware.RateLimit(app.Config.Limits.ExtractPerMinute, time.Minute),
		extractionHandler.Extract,
	)
	api.GET("/extractions", extractionHandler.List)
	api.GET("/extractions/:document_id", extractionHandler.GetByID)

	return router
}
