package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"givehub/api/internal/config"
	"givehub/api/internal/middleware"
	"givehub/api/internal/models"
	"givehub/api/internal/repository"
	"givehub/api/internal/security"
	"givehub/api/internal/service"
	"givehub/api/internal/storage"
)

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	tokenSvc     *security.TokenService
	auth         *service.AuthService
	donations    *service.DonationService
	testimonials *service.TestimonialService
	exports      *service.ExportService
	users        *repository.UserRepository
	db           *pgxpool.Pool
	cache        *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	testimonialRepo := repository.NewTestimonialRepository(db)

	tokenSvc := security.NewTokenService(cfg.Security)
	auth := service.NewAuthService(userRepo, tokenRepo, tokenSvc, cfg.Security, log)
	donations := service.NewDonationService(donationRepo, cfg.Donations, log)
	testimonials := service.NewTestimonialService(testimonialRepo, log)
	exports := service.NewExportService(donationRepo, store, log)

	return HandlerSet{
		log:          log,
		cfg:          cfg,
		tokenSvc:     tokenSvc,
		auth:         auth,
		donations:    donations,
		testimonials: testimonials,
		exports:      exports,
		users:        userRepo,
		db:           db,
		cache:        cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authRequired := middleware.Auth(h.tokenSvc, h.users)
	moderatorOnly := middleware.RequireRoles(models.UserRoleModerator, models.UserRoleAdmin)
	adminOnly := middleware.RequireRoles(models.UserRoleAdmin)
	authLimit := middleware.RateLimit(h.cache, h.log, "auth",
		h.cfg.RateLimit.AuthRequests, h.cfg.RateLimit.AuthWindow)
	donationLimit := middleware.RateLimit(h.cache, h.log, "donations",
		h.cfg.RateLimit.DonationRequests, h.cfg.RateLimit.DonationWindow)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", authLimit, h.RegisterUser)
		auth.POST("/login", authLimit, h.Login)
		auth.POST("/refresh", authLimit, h.Refresh)
		auth.POST("/logout", authRequired, h.Logout)
		auth.POST("/change-password", authRequired, h.ChangePassword)
		auth.GET("/me", authRequired, h.Me)
	}

	donations := v1.Group("/donations")
	{
		donations.POST("", donationLimit, h.CreateDonation)
		donations.GET("/leaderboard", h.Leaderboard)
		donations.GET("/stats", h.DonationStats)
		donations.POST("/webhook", h.DonationWebhook)

		donations.GET("", authRequired, adminOnly, h.ListDonations)
		donations.GET("/:id", authRequired, adminOnly, h.GetDonation)
		donations.PATCH("/:id/status", authRequired, adminOnly, h.UpdateDonationStatus)
		donations.POST("/export", authRequired, adminOnly, h.ExportDonations)
	}

	testimonials := v1.Group("/testimonials")
	{
		testimonials.POST("", donationLimit, h.CreateTestimonial)
		testimonials.GET("", h.ListTestimonials)
		testimonials.GET("/stats/ratings", h.RatingStats)
		testimonials.GET("/:id", h.GetTestimonial)

		testimonials.PATCH("/:id/approve", authRequired, moderatorOnly, h.ApproveTestimonial)
		testimonials.PATCH("/:id/reject", authRequired, moderatorOnly, h.RejectTestimonial)
		testimonials.PATCH("/:id/feature", authRequired, adminOnly, h.FeatureTestimonial)
		testimonials.PATCH("/:id/visibility", authRequired, adminOnly, h.TestimonialVisibility)
		testimonials.DELETE("/:id", authRequired, adminOnly, h.DeleteTestimonial)
	}

	admin := v1.Group("/admin")
	admin.Use(authRequired, moderatorOnly)
	{
		admin.GET("/testimonials", h.AdminListTestimonials)
	}
}
