package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shoplite/shoplite/internal/application/admin"
	"github.com/shoplite/shoplite/internal/application/cart"
	"github.com/shoplite/shoplite/internal/application/catalog"
	"github.com/shoplite/shoplite/internal/application/identity"
	"github.com/shoplite/shoplite/internal/application/verification"
	"github.com/shoplite/shoplite/internal/config"
	jwtinfra "github.com/shoplite/shoplite/internal/infrastructure/jwt"
	"github.com/shoplite/shoplite/internal/infrastructure/smtp"
	"github.com/shoplite/shoplite/internal/infrastructure/sns"
	"github.com/shoplite/shoplite/internal/transport/http/handler"
	appmiddleware "github.com/shoplite/shoplite/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	IdentityRepo IdentityRepository
	SessionRepo  SessionRepository
	OtpRepo      OtpRepository
	CartRepo     CartRepository
	ProductRepo  ProductRepository
	ImageStore   ObjectStore
	AdminTables  map[string]admin.TableBrowser
	Mailer       smtp.Mailer
	SMSSender    sns.SMSSender
	JWTProvider  *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.OptionalAuth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}
	sessionMw := appmiddleware.Session(cfg.SessionCookie, deps.SessionRepo)

	verifDeps := verification.ServiceDeps{
		OtpRepo:      deps.OtpRepo,
		IdentityRepo: deps.IdentityRepo,
		Mailer:       deps.Mailer,
		SMSSender:    deps.SMSSender,
		CodeTTL:      cfg.OTPCodeTTL,
	}
	// Assign only when non-nil so the service's nil check sees a nil
	// interface, not a typed nil.
	if deps.JWTProvider != nil {
		verifDeps.JWTProvider = deps.JWTProvider
	}

	verifSvc := verification.NewService(verifDeps)
	identitySvc := identity.NewService(deps.IdentityRepo)
	catalogSvc := catalog.NewService(deps.ProductRepo, deps.ImageStore)
	cartSvc := cart.NewService(deps.CartRepo, deps.ProductRepo)
	adminSvc := admin.NewService(deps.AdminTables)

	healthH := handler.NewHealthHandler()
	verifH := handler.NewVerificationHandler(verifSvc)
	identityH := handler.NewIdentityHandler(identitySvc)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	cartH := handler.NewCartHandler(cartSvc)
	adminH := handler.NewAdminHandler(adminSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no session) ───────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Storefront routes (anonymous session + optional bearer) ─────────
		r.Group(func(r chi.Router) {
			r.Use(sessionMw)
			r.Use(authMw)

			r.Post("/verification/email/request", verifH.RequestEmail)
			r.Post("/verification/email/verify", verifH.VerifyEmail)

			r.Get("/me", identityH.Me)
			r.Put("/me", identityH.UpdateProfile)

			r.Get("/products", catalogH.List)
			r.Get("/products/{id}", catalogH.Get)

			r.Get("/cart", cartH.Get)
			r.Delete("/cart", cartH.Clear)
			r.Put("/cart/items/{productID}", cartH.SetItem)
			r.Delete("/cart/items/{productID}", cartH.RemoveItem)
		})

		// ── Admin routes (shared header key) ─────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.AdminKey(cfg.AdminAPIKey))

			r.Post("/admin/products", catalogH.Create)
			r.Put("/admin/products/{id}", catalogH.Update)
			r.Delete("/admin/products/{id}", catalogH.Delete)

			r.Get("/admin/tables", adminH.ListTables)
			r.Get("/admin/tables/{table}", adminH.ListRows)
			r.Delete("/admin/tables/{table}/{id}", adminH.DeleteRow)
		})
	})

	return r
}
