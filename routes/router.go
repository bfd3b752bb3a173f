package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oakhaven/storefront/config"
	"github.com/oakhaven/storefront/controllers"
	"github.com/oakhaven/storefront/limiter"
	"github.com/oakhaven/storefront/middleware"
	"github.com/oakhaven/storefront/models"
	"github.com/oakhaven/storefront/moderation"
	"github.com/oakhaven/storefront/store"
	"github.com/oakhaven/storefront/utils"
	"github.com/oakhaven/storefront/validation"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Validator *validation.Validator
	Moderator *moderation.Moderator
	Verifier  moderation.ChallengeVerifier
	// Captcha is nil unless captcha mode is enabled.
	Captcha   *moderation.CaptchaVerifier
	Reviews   *store.ReviewStore
	Limiter   *limiter.Limiter
	Forwarder utils.Forwarder
	Completer utils.Completer
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, d Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			accessLog = gl
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, true))
	r.Use(middleware.PrometheusMetrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, "", gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	submissions := controllers.NewSubmissionController(d.Validator, d.Forwarder)
	reviews := controllers.NewReviewController(d.Validator, d.Moderator, d.Verifier, d.Reviews)
	chat := controllers.NewChatController(d.Validator, d.Completer)

	contactPolicy := limiter.Policy{MaxAttempts: cfg.ContactMaxAttempts, Window: seconds(cfg.ContactWindowSec)}
	reviewPolicy := limiter.Policy{MaxAttempts: cfg.ReviewMaxAttempts, Window: seconds(cfg.ReviewWindowSec)}
	actionPolicy := limiter.Policy{MaxAttempts: cfg.ReviewActionMaxAttempts, Window: seconds(cfg.ReviewActionWindowSec)}
	chatPolicy := limiter.Policy{MaxAttempts: cfg.ChatMaxAttempts, Window: seconds(cfg.ChatWindowSec)}

	api := r.Group("/api")
	api.Use(middleware.GlobalRateLimit(cfg.GlobalRateLimitPerMinute))

	api.POST("/contact", middleware.SubmissionLimit(d.Limiter, models.FormContact, contactPolicy), submissions.SubmitContact)

	api.GET("/reviews", reviews.ListReviews)
	api.POST("/reviews", middleware.SubmissionLimit(d.Limiter, models.FormReview, reviewPolicy), reviews.SubmitReview)
	api.POST("/reviews/update", middleware.SubmissionLimit(d.Limiter, models.FormReviewAction, actionPolicy), reviews.UpdateReview)

	chatLimit := middleware.SubmissionLimit(d.Limiter, models.FormChat, chatPolicy)
	api.POST("/chat", chatLimit, chat.Reply)
	api.POST("/chat/summary", chatLimit, chat.Summary)

	if d.Captcha != nil {
		api.GET("/captcha", controllers.NewCaptchaController(d.Captcha).Captcha)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(cfg.AdminJWTSecret))
	admin.POST("/reviews/:id/transition", reviews.TransitionReview)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
