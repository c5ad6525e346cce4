package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pablosanchi/consultation-backend/internal/config"
	"github.com/pablosanchi/consultation-backend/internal/middleware"
	"github.com/pablosanchi/consultation-backend/pkg/auth"
	"github.com/pablosanchi/consultation-backend/pkg/metrics"
)

func NewRouter(
	cfg *config.Config,
	jwtManager *auth.JWTManager,
	collector *metrics.Collector,
	authHandler *AuthHandler,
	submissionHandler *SubmissionHandler,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RateLimit(cfg.RateLimit))
	r.Use(middleware.Metrics(collector))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.App.Version})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api")
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/refresh", authHandler.Refresh)

		authed := api.Group("/")
		authed.Use(middleware.Authenticate(jwtManager))
		{
			authed.POST("/submission", submissionHandler.Create)
			authed.GET("/submissions", submissionHandler.List)
			authed.GET("/submission/:id", submissionHandler.Get)
			authed.POST("/submission/:id/done", submissionHandler.Complete)
			authed.POST("/submission/:id/prescription", submissionHandler.UploadPrescription)
			authed.GET("/submission/:id/prescription", submissionHandler.GetPrescription)
			authed.DELETE("/submission/:id/prescription", submissionHandler.DeletePrescription)
			authed.GET("/getDoctorInformation/:doctorId", submissionHandler.GetDoctorInformation)
		}
	}

	return r
}
