package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dmarkov/saasadmin/internal/analytics"
	"github.com/dmarkov/saasadmin/internal/api/handlers"
	"github.com/dmarkov/saasadmin/internal/api/middleware"
	"github.com/dmarkov/saasadmin/internal/audit"
	"github.com/dmarkov/saasadmin/internal/auth"
	"github.com/dmarkov/saasadmin/internal/billing"
	"github.com/dmarkov/saasadmin/internal/cache"
	"github.com/dmarkov/saasadmin/internal/company"
	"github.com/dmarkov/saasadmin/internal/config"
	"github.com/dmarkov/saasadmin/internal/invitation"
	"github.com/dmarkov/saasadmin/internal/mail"
	"github.com/dmarkov/saasadmin/internal/queue"
	"github.com/dmarkov/saasadmin/internal/settings"
	"github.com/dmarkov/saasadmin/internal/user"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.App.AllowedOrigins))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	tokens := auth.NewTokenService(rt.cfg.Auth)
	mailer := mail.NewSMTPSender(rt.cfg.SMTP)
	queueClient := queue.NewClient(rt.cfg.Redis)
	cacheLayer := cache.New(rt.redis)

	authStore := auth.NewStore(rt.db)
	authSvc := auth.NewService(authStore, tokens, mailer, queueClient, rt.cfg)
	authMW := auth.NewMiddleware(tokens, authStore)

	userSvc := user.NewService(rt.db, rt.cfg.Auth.BcryptCost)
	companySvc := company.NewService(rt.db)
	inviteSvc := invitation.NewService(invitation.NewStore(rt.db), tokens, mailer,
		rt.cfg.Auth.InvitationExpiry, rt.cfg.Auth.BcryptCost, rt.cfg.App.FrontendURL)
	settingsSvc := settings.NewService(rt.db, cacheLayer)
	billingSvc := billing.NewService(rt.db)
	analyticsSvc := analytics.NewService(rt.db, cacheLayer)
	auditSvc := audit.NewService(rt.db)

	authH := handlers.NewAuthHandler(authSvc)
	usersH := handlers.NewUsersHandler(userSvc, inviteSvc, companySvc, auditSvc)
	companiesH := handlers.NewCompaniesHandler(companySvc, auditSvc)
	settingsH := handlers.NewSettingsHandler(settingsSvc, auditSvc)
	subscriptionH := handlers.NewSubscriptionHandler(billingSvc, auditSvc)
	analyticsH := handlers.NewAnalyticsHandler(analyticsSvc)
	adminH := handlers.NewAdminHandler(auditSvc, queueClient)

	r.Route("/api", func(r chi.Router) {
		// Public auth and invitation acceptance routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authH.Login)
			r.Post("/signup", authH.Signup)
			r.Post("/forgot-password", authH.ForgotPassword)
			r.Post("/reset-password", authH.ResetPassword)
			r.Post("/verify-email", authH.VerifyEmail)
			r.Get("/invitation/{token}", usersH.InvitationDetails)
			r.Post("/accept-invitation", usersH.AcceptInvitation)

			r.Group(func(r chi.Router) {
				r.Use(authMW.Authenticate)
				r.Get("/verify", authH.Verify)
			})
		})

		// Aliases kept for clients that address invitations under /users
		r.Get("/users/invitation/{token}", usersH.InvitationDetails)
		r.Post("/users/accept-invitation", usersH.AcceptInvitation)

		// Everything below requires a session
		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", usersH.List)
				r.Post("/", usersH.Create)
				r.Post("/invite", usersH.Invite)
				r.Put("/profile", usersH.UpdateProfile)
				r.Put("/change-password", usersH.ChangePassword)
				r.Get("/{id}", usersH.Get)
				r.Put("/{id}", usersH.Update)
				r.Delete("/{id}", usersH.Delete)
			})

			r.Route("/companies", func(r chi.Router) {
				r.Get("/", companiesH.List)
				r.Post("/", companiesH.Create)
				r.Get("/{id}", companiesH.Get)
				r.Put("/{id}", companiesH.Update)
				r.Delete("/{id}", companiesH.Delete)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", settingsH.Get)
				r.Put("/", settingsH.Update)
			})

			r.Route("/subscription", func(r chi.Router) {
				r.Get("/", subscriptionH.Current)
				r.Get("/invoices", subscriptionH.Invoices)
				r.Post("/checkout", subscriptionH.CreateCheckoutSession)
				r.Post("/cancel", subscriptionH.Cancel)
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/dashboard", analyticsH.Dashboard)
				r.Get("/user-growth", analyticsH.UserGrowth)
				r.Get("/revenue", analyticsH.Revenue)
				r.Get("/top-companies", analyticsH.TopCompanies)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Get("/audit", adminH.AuditLogs)
			})
			r.Post("/messages", adminH.SendMessage)
		})
	})

	return r
}
