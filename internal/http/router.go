package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/accounts"
	"github.com/hcsem/communityhub/internal/audit"
	"github.com/hcsem/communityhub/internal/auth"
	"github.com/hcsem/communityhub/internal/cache"
	"github.com/hcsem/communityhub/internal/config"
	"github.com/hcsem/communityhub/internal/domain/role"
	"github.com/hcsem/communityhub/internal/http/handlers"
	"github.com/hcsem/communityhub/internal/http/middlewares"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/hcsem/communityhub/internal/repo/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterDeps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Prom     *observability.Prom
	Registry *prometheus.Registry
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Cfg
	log := deps.Log

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware("communityhub-api"))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health
	ping := func() error {
		if deps.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)
	rolesRepo := postgres.NewRolesRepo(deps.Pool, deps.Prom)
	sessionsRepo := postgres.NewSessionsRepo(deps.Pool, deps.Prom)
	resetsRepo := postgres.NewResetTokensRepo(deps.Pool, deps.Prom)
	auditRepo := postgres.NewAuditLogsRepo(deps.Pool, deps.Prom)
	eventsRepo := postgres.NewEventsRepo(deps.Pool, deps.Prom)
	blogsRepo := postgres.NewBlogsRepo(deps.Pool, deps.Prom)
	contactRepo := postgres.NewContactRequestsRepo(deps.Pool, deps.Prom)
	settingsRepo := postgres.NewSettingsRepo(deps.Pool, deps.Prom)
	jobsRepo := postgres.NewJobsRepo(deps.Pool, deps.Prom)
	accountsStore := postgres.NewAccountsStore(deps.Pool, usersRepo, sessionsRepo, resetsRepo)

	// account security services
	recorder := audit.NewRecorder(auditRepo, log)
	guard := accounts.NewLockoutGuard(cfg.LockoutThreshold, cfg.LockoutDuration())
	tokens := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL(), cfg.PwChangeTTL())
	roleCache := cache.New(cfg.RoleCacheTTL())

	creds := accounts.NewCredentialStore(usersRepo, guard, recorder, log)
	gate := accounts.NewGate(creds, sessionsRepo, usersRepo, rolesRepo, tokens, roleCache, recorder, log)
	passwords := accounts.NewPasswordService(usersRepo, accountsStore, tokens, cfg.ResetTokenTTL(), recorder, log)
	registry := accounts.NewRegistry(usersRepo, rolesRepo, roleCache, recorder, log)

	// handlers
	authHandler := handlers.NewAuthHandler(gate, passwords, deps.Prom)
	usersHandler := handlers.NewUsersHandler(registry, passwords, jobsRepo, cfg.PublicBaseURL)
	rolesHandler := handlers.NewRolesHandler(registry)
	eventsHandler := handlers.NewEventsHandler(eventsRepo)
	blogsHandler := handlers.NewBlogsHandler(blogsRepo)
	contactHandler := handlers.NewContactHandler(contactRepo)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, recorder)
	auditHandler := handlers.NewAuditLogsHandler(auditRepo)

	authMW := middlewares.NewAuthMiddleware(gate)

	// login and contact intake share a distributed fixed-window budget when
	// redis is configured; otherwise fall back to the per-process limiter
	var loginLimit, contactLimit gin.HandlerFunc

	if deps.Redis != nil {
		loginLimit = middlewares.NewRedisRateLimiter(deps.Redis, "login", 10, time.Minute).RateLimiterMiddleware(middlewares.KeyByIP)
		contactLimit = middlewares.NewRedisRateLimiter(deps.Redis, "contact", 5, time.Minute).RateLimiterMiddleware(middlewares.KeyByIP)
	} else {
		loginLimit = middlewares.NewRateLimiter(10, time.Minute).RateLimiterMiddleware(middlewares.KeyByIP)
		contactLimit = middlewares.NewRateLimiter(5, time.Minute).RateLimiterMiddleware(middlewares.KeyByIP)
	}

	api := r.Group("/api")

	// public surface
	api.POST("/auth/login", loginLimit, authHandler.Login)
	api.POST("/auth/password/forced-change", loginLimit, authHandler.CompleteForcedChange)
	api.POST("/auth/password/reset", loginLimit, authHandler.ResetPassword)

	api.GET("/events", eventsHandler.ListPublic)
	api.GET("/events/:slug", eventsHandler.GetBySlug)
	api.GET("/blogs", blogsHandler.ListPublic)
	api.GET("/blogs/:slug", blogsHandler.GetBySlug)
	api.GET("/settings", settingsHandler.Get)
	api.POST("/contact", contactLimit, contactHandler.Submit)

	// session-holder surface
	authed := api.Group("")
	authed.Use(authMW.RequireAuth())
	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.Me)
	authed.POST("/auth/password/change", authHandler.ChangePassword)

	// admin surface, gated per permission
	admin := api.Group("/admin")
	admin.Use(authMW.RequireAuth())

	users := admin.Group("/users", authMW.RequirePermission(role.PermManageUsers))
	users.POST("", usersHandler.Create)
	users.GET("", usersHandler.List)
	users.GET("/:id", usersHandler.Get)
	users.PUT("/:id", usersHandler.Update)
	users.DELETE("/:id", usersHandler.Delete)
	users.POST("/:id/unlock", usersHandler.Unlock)
	users.POST("/:id/lock", usersHandler.Lock)
	users.POST("/:id/reset-attempts", usersHandler.ResetAttempts)
	users.POST("/:id/force-password-change", usersHandler.ForcePasswordChange)
	users.POST("/:id/password-reset", usersHandler.InitiateReset)

	roles := admin.Group("/roles", authMW.RequirePermission(role.PermManageRoles))
	roles.POST("", rolesHandler.Create)
	roles.GET("", rolesHandler.List)
	roles.GET("/permissions", rolesHandler.Permissions)
	roles.GET("/:id", rolesHandler.Get)
	roles.PUT("/:id", rolesHandler.Update)
	roles.DELETE("/:id", rolesHandler.Delete)

	content := admin.Group("", authMW.RequirePermission(role.PermManageContent))
	content.GET("/events", eventsHandler.ListAdmin)
	content.POST("/events", eventsHandler.Create)
	content.PUT("/events/:id", eventsHandler.Update)
	content.DELETE("/events/:id", eventsHandler.Delete)
	content.GET("/blogs", blogsHandler.ListAdmin)
	content.POST("/blogs", blogsHandler.Create)
	content.PUT("/blogs/:id", blogsHandler.Update)
	content.DELETE("/blogs/:id", blogsHandler.Delete)
	content.GET("/contact-requests", contactHandler.List)
	content.GET("/contact-requests/:id", contactHandler.Get)
	content.PUT("/contact-requests/:id/status", contactHandler.SetStatus)
	content.DELETE("/contact-requests/:id", contactHandler.Delete)
	content.POST("/contact-requests/:id/restore", contactHandler.Restore)

	settings := admin.Group("/settings", authMW.RequirePermission(role.PermManageSettings))
	settings.PUT("", settingsHandler.Update)

	auditGroup := admin.Group("/audit-logs", authMW.RequirePermission(role.PermViewAuditLog))
	auditGroup.GET("", auditHandler.List)

	return r
}
