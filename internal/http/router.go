package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/fellowship/internal/access"
	"github.com/geocoder89/fellowship/internal/auth"
	"github.com/geocoder89/fellowship/internal/cache"
	"github.com/geocoder89/fellowship/internal/config"
	"github.com/geocoder89/fellowship/internal/domain/profile"
	"github.com/geocoder89/fellowship/internal/http/handlers"
	"github.com/geocoder89/fellowship/internal/http/middlewares"
	"github.com/geocoder89/fellowship/internal/observability"
	"github.com/geocoder89/fellowship/internal/redisclient"
	"github.com/geocoder89/fellowship/internal/repo/postgres"
	"github.com/geocoder89/fellowship/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// Deps are the long-lived collaborators the router wires into handlers.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// SessionDB is subject to row level security; ServiceDB bypasses it.
	SessionDB *postgres.DB
	ServiceDB *postgres.DB

	Auth *auth.Service
	// Redis is nil when REDIS_ADDR is unset.
	Redis *redisclient.Client

	// ShuttingDown flips readiness to 503 while the server drains.
	ShuttingDown func() bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	if err := middlewares.TrustProxies(r, d.Config.TrustedProxies); err != nil {
		log.Warn("invalid TRUSTED_PROXIES, trusting none", "err", err)
	}

	clients := auth.NewFactory(d.Auth, auth.FactoryOptions{
		RefreshThreshold: d.Config.RefreshThreshold,
		Cookie:           session.DefaultOptions(d.Config.IsProd()),
		Prom:             d.Prom,
		Log:              log,
	})

	// session repositories see what row level security allows the caller
	profiles := postgres.NewProfilesRepo(d.SessionDB)
	contentRepo := postgres.NewContentRepo(d.SessionDB)
	contactsRepo := postgres.NewContactsRepo(d.SessionDB)
	eventsRepo := postgres.NewEventsRepo(d.SessionDB)

	// elevated repositories, only reached behind an admin gate
	adminProfiles := postgres.NewProfilesRepo(d.ServiceDB)
	adminSettings := postgres.NewAdminSettingsRepo(d.ServiceDB)

	gate := access.NewGate(clients, access.NewResolver(profiles), d.Prom, log)

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("fellowship-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(d.Config.IsProd()))
	r.Use(middlewares.CORSMiddleware(d.Config.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.BearerSession(d.Auth.CookieNames().Access))
	r.Use(middlewares.SessionRefresher(clients, middlewares.SessionRefresherOptions{
		AdminPrefixes: d.Config.AdminPathPrefixes,
		LoginPath:     access.LoginPath,
	}, log))

	// health
	var redisPing handlers.Pinger
	if d.Redis != nil {
		redisPing = d.Redis
	}
	health := handlers.NewHealthHandler(d.SessionDB, redisPing).WithShutdownSignal(d.ShuttingDown)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// wire up handlers
	var pages cache.Pages = cache.NewMemoryPages(d.Config.ContentCacheTTL)
	if d.Redis != nil {
		pages = cache.NewRedisPages(d.Redis.Raw(), d.Config.ContentCacheTTL, log)
	}

	authHandler := handlers.NewAuthHandler(clients, log)
	profileHandler := handlers.NewProfileHandler(gate, profiles, log)
	contentHandler := handlers.NewContentHandler(contentRepo, pages, log)
	contactsHandler := handlers.NewContactsHandler(contactsRepo, log)
	eventsHandler := handlers.NewEventsHandlerWithCache(eventsRepo, cache.NewTTL[handlers.EventsPage](30*time.Second))
	pagesHandler := handlers.NewPagesHandler(gate, profiles, profiles, contactsRepo, log)

	adminUsers := handlers.NewAdminUsersHandler(handlers.AdminUsersDeps{
		Gate:           gate,
		Identities:     d.Auth,
		Profiles:       adminProfiles,
		Lister:         adminProfiles,
		Settings:       adminSettings,
		FallbackSecret: d.Config.AdminDeleteSecret,
		Log:            log,
	})
	adminSettingsHandler := handlers.NewAdminSettingsHandler(gate, adminSettings, log)

	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	contactLimiter := middlewares.NewRateLimiter(5, time.Minute)

	// pages
	r.GET("/admin", pagesHandler.AdminDashboard)
	r.GET("/profile", pagesHandler.ProfilePage)
	r.POST("/logout", authHandler.LogoutPage)

	// privileged mutations gate themselves with the caller's session
	r.POST("/admin/delete-user", middlewares.RequireJSON(), adminUsers.DeleteUser)

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
	authGroup.POST("/login", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)

	api.GET("/profile", profileHandler.GetProfile)
	api.PATCH("/profile", profileHandler.UpdateProfile)

	api.GET("/content/:page", contentHandler.GetPage)
	api.POST("/contact", contactLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), contactsHandler.Submit)

	api.GET("/events", eventsHandler.ListEvents)
	api.GET("/events/:id", eventsHandler.GetEventById)

	api.POST("/admin/update-user-role", adminUsers.UpdateUserRole)
	api.POST("/admin/update-user-permission", adminUsers.UpdateUserPermission)
	api.POST("/admin/set-admin-password", adminSettingsHandler.SetAdminPassword)
	api.GET("/admin/users", adminUsers.ListUsers)

	admin := api.Group("/admin", gate.APIRole(profile.RoleAdmin))
	admin.PUT("/content", contentHandler.Upsert)
	admin.GET("/contacts", contactsHandler.List)
	admin.POST("/contacts/:id/read", contactsHandler.MarkRead)
	admin.POST("/events", eventsHandler.CreateEvent)
	admin.PUT("/events/:id", eventsHandler.UpdateEvent)
	admin.DELETE("/events/:id", eventsHandler.DeleteEvent)

	return r
}
