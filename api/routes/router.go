package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grupomeridio/pricedesk-backend/api/controllers"
	"github.com/grupomeridio/pricedesk-backend/api/middleware"
	"github.com/grupomeridio/pricedesk-backend/internal/auth"
	"github.com/grupomeridio/pricedesk-backend/internal/refdata"
	"github.com/grupomeridio/pricedesk-backend/internal/requests"
	"github.com/grupomeridio/pricedesk-backend/pkg/config"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	"github.com/grupomeridio/pricedesk-backend/pkg/logger"
	"github.com/grupomeridio/pricedesk-backend/pkg/metrics"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              pinger
	Redis           pinger
	Sessions        middleware.SessionChecker
	AuthService     auth.Service
	RequestsService requests.Service
	RefdataService  refdata.Service
	Metrics         *metrics.DecisionMetrics
	Registry        *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(params.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, params.Sessions, logg))

		r.Post("/calculator/solve", controllers.CalculatorSolve(params.Metrics, logg))

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.RequestCreate(params.RequestsService, logg))
			r.Post("/batch", controllers.RequestBatchCreate(params.RequestsService, logg))
			r.Post("/preview", controllers.RequestPreview(params.RequestsService, logg))
			r.Get("/", controllers.RequestList(params.RequestsService, logg))
			r.Get("/summary", controllers.RequestSummary(params.RequestsService, logg))
			r.Get("/{requestId}", controllers.RequestDetail(params.RequestsService, logg))
			r.Post("/{requestId}/decision", controllers.RequestDecision(params.RequestsService, logg))
			r.Post("/batches/{batchId}/decision", controllers.BatchDecision(params.RequestsService, logg))
		})

		r.Route("/refdata", func(r chi.Router) {
			r.Get("/clients", controllers.ClientList(params.RefdataService, logg))
			r.Get("/clients/{clientCode}", controllers.ClientDetail(params.RefdataService, logg))
			r.Get("/products", controllers.ProductList(params.RefdataService, logg))
			r.Get("/products/{productCode}", controllers.ProductDetail(params.RefdataService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, params.Sessions, logg))
		r.Use(middleware.RequireRole(logg, string(enums.ActorRoleAdmin)))

		r.Route("/users", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateUser(params.AuthService, logg))
			r.Patch("/{userCode}/active", controllers.AdminSetUserActive(params.AuthService, logg))
		})

		r.Route("/refdata", func(r chi.Router) {
			r.Post("/clients/import", controllers.ImportClients(params.RefdataService, logg))
			r.Post("/products/import", controllers.ImportProducts(params.RefdataService, logg))
			r.Post("/rules/import", controllers.ImportRules(params.RefdataService, logg))
			r.Get("/rules/issues", controllers.RuleIssues(params.RefdataService, logg))
		})
	})

	return r
}
