package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/cantina-pos/api/internal/config"
	"github.com/cantina-pos/api/internal/database"
	"github.com/cantina-pos/api/internal/enum"
	"github.com/cantina-pos/api/internal/events"
	"github.com/cantina-pos/api/internal/handler"
	"github.com/cantina-pos/api/internal/metrics"
	mw "github.com/cantina-pos/api/internal/middleware"
	"github.com/cantina-pos/api/internal/pickup"
	"github.com/cantina-pos/api/internal/service"
	"github.com/cantina-pos/api/internal/ws"
)

// Deps bundles what the router needs to build handlers and services.
// Publisher, MenuCache, Metrics, Limiter and Logger are optional.
type Deps struct {
	Config    *config.Config
	Queries   *database.Queries
	Pool      *pgxpool.Pool
	Hub       *ws.Hub
	Publisher events.Publisher
	MenuCache service.MenuCache
	Metrics   *metrics.Metrics
	Limiter   *mw.RateLimiter
	Logger    log.FieldLogger
}

// New creates a Chi router with all application routes wired up under
// /api/v1. Applies authentication, role checks and rate limiting as needed.
func New(d Deps) chi.Router {
	cfg, queries, pool := d.Config, d.Queries, d.Pool
	if d.Logger == nil {
		d.Logger = log.StandardLogger()
	}
	if d.MenuCache == nil {
		d.MenuCache = service.NopMenuCache{}
	}
	if d.Limiter == nil {
		d.Limiter = mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	publisher := d.Publisher
	if publisher == nil && d.Hub != nil {
		publisher = d.Hub
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(d.Logger))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Instrument)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/cafeterias/{cid}/reservations", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
	})

	// Services
	catalogService := service.NewCatalogService(pool, func(db database.DBTX) service.CatalogStore {
		return database.New(db)
	}, queries, d.MenuCache)
	menuService := service.NewMenuService(pool, func(db database.DBTX) service.MenuStore {
		return database.New(db)
	}, queries, d.MenuCache)
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, publisher)
	balanceService := service.NewBalanceService(pool, func(db database.DBTX) service.LedgerStore {
		return database.New(db)
	}, publisher)

	// Handlers
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	userHandler := handler.NewUserHandler(queries)
	balanceHandler := handler.NewBalanceHandler(balanceService, queries)
	cafeteriaHandler := handler.NewCafeteriaHandler(queries, catalogService)
	dishHandler := handler.NewDishHandler(queries, catalogService)
	menuHandler := handler.NewMenuHandler(menuService)
	reservationHandler := handler.NewReservationHandler(orderService, queries, pickup.DefaultQRGenerator{BaseURL: cfg.PublicURL})
	reportsHandler := handler.NewReportsHandler(queries)

	requireAdmin := mw.RequireRole(enum.UserRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		authHandler.RegisterRoutes(r)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			r.Get("/user/me", userHandler.Me)
			balanceHandler.RegisterRoutes(r)
			r.With(d.Limiter.Limit).Post("/user/balance", balanceHandler.TopUp)

			r.Route("/reservations", func(r chi.Router) {
				reservationHandler.RegisterRoutes(r)
				r.With(d.Limiter.Limit).Post("/", reservationHandler.Create)
			})

			r.Route("/cafeterias", func(r chi.Router) {
				cafeteriaHandler.RegisterRoutes(r)
				r.Get("/{id}/menu", menuHandler.CafeteriaMenu)
				r.Group(func(r chi.Router) {
					r.Use(requireAdmin)
					cafeteriaHandler.RegisterAdminRoutes(r)
				})
			})

			dishHandler.RegisterRoutes(r)
			menuHandler.RegisterRoutes(r)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				dishHandler.RegisterAdminRoutes(r)
				menuHandler.RegisterAdminRoutes(r)
				r.Route("/users", userHandler.RegisterRoutes)
				r.Route("/reports", reportsHandler.RegisterRoutes)
			})
		})
	})

	d.Logger.Info("router initialized")
	return r
}
