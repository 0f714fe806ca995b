package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"biolens-backend/internal/shared/metrics"
	"biolens-backend/internal/shared/server/middleware"
)

// GoogleAuthHandlers is implemented by the OAuth handler when sign-in
// is configured.
type GoogleAuthHandlers interface {
	Start(c *gin.Context)
	Callback(c *gin.Context)
}

// SampleHandlers covers sample upload and retrieval routes.
type SampleHandlers interface {
	Upload(c *gin.Context)
	Presign(c *gin.Context)
	List(c *gin.Context)
	Current(c *gin.Context)
	Image(c *gin.Context)
}

// AnalysisHandlers covers analysis routes.
type AnalysisHandlers interface {
	Start(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
}

// CreditHandlers covers credit routes.
type CreditHandlers interface {
	GetBalance(c *gin.Context)
}

// RouterDeps injects handlers into the router.
type RouterDeps struct {
	Env             string
	AllowedOrigins  []string
	Samples         SampleHandlers
	Analyses        AnalysisHandlers
	Credits         CreditHandlers
	GoogleAuth      GoogleAuthHandlers
	DevGrantCredits gin.HandlerFunc
}

// NewRouter builds the gin engine with the shared middleware chain.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logging())
	r.Use(middleware.CORS(deps.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(deps.Env))

	if deps.GoogleAuth != nil {
		api.GET("/auth/google/start", deps.GoogleAuth.Start)
		api.GET("/auth/google/callback", deps.GoogleAuth.Callback)
	}

	api.POST("/samples", deps.Samples.Upload)
	api.POST("/samples/presign", deps.Samples.Presign)
	api.GET("/samples", deps.Samples.List)
	api.GET("/samples/current", deps.Samples.Current)
	api.GET("/samples/:id/image", deps.Samples.Image)
	api.POST("/samples/:id/analyze", deps.Analyses.Start)

	api.GET("/analyses", deps.Analyses.List)
	api.GET("/analyses/:id", deps.Analyses.Get)

	api.GET("/credits", deps.Credits.GetBalance)
	if deps.Env != "production" && deps.DevGrantCredits != nil {
		api.POST("/credits/grant", deps.DevGrantCredits)
	}

	return r
}
