package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/remitbd/remit-core/internal/api/handler"
	"github.com/remitbd/remit-core/internal/api/middleware"
	"github.com/remitbd/remit-core/internal/api/spec"
	"github.com/remitbd/remit-core/internal/config"
	"github.com/remitbd/remit-core/internal/idempotency"
	"github.com/remitbd/remit-core/internal/repository"
	"github.com/remitbd/remit-core/internal/service"
)

// Router wires middleware, handlers and services into the HTTP surface.
type Router struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *pgxpool.Pool
	redis      redis.Cmdable
	idem       *idempotency.Store
	store      *repository.Store
	requestSvc *service.RequestService
	reviewSvc  *service.ReviewService
	walletSvc  *service.WalletService
	rateSvc    *service.RateService
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *pgxpool.Pool,
	redisClient redis.Cmdable,
	idemStore *idempotency.Store,
	store *repository.Store,
	requestSvc *service.RequestService,
	reviewSvc *service.ReviewService,
	walletSvc *service.WalletService,
	rateSvc *service.RateService,
) *Router {
	return &Router{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		redis:      redisClient,
		idem:       idemStore,
		store:      store,
		requestSvc: requestSvc,
		reviewSvc:  reviewSvc,
		walletSvc:  walletSvc,
		rateSvc:    rateSvc,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	authHandler := handler.NewAuthHandler(api.store)
	userHandler := handler.NewUserHandler(api.store, api.walletSvc)
	walletHandler := handler.NewWalletHandler(api.walletSvc)
	requestHandler := handler.NewRequestHandler(api.requestSvc)
	adminHandler := handler.NewAdminHandler(api.reviewSvc, api.rateSvc, api.store)
	referenceHandler := handler.NewReferenceHandler(api.rateSvc, api.store)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	// Public routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/v1/auth/login", authHandler.Login)
		r.Post("/v1/users", userHandler.CreateUser)
	})

	r.Get("/healthz/live", healthHandler.Live)
	r.Get("/healthz/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/wallets", walletHandler.GetBalances)
		r.Get("/v1/transactions", walletHandler.GetHistory)
		r.Get("/v1/bank-accounts", referenceHandler.ListBankAccounts)
		r.Get("/v1/rates/current", referenceHandler.GetRate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.IdempotencyMiddleware(api.idem, api.logger))
			r.Post("/v1/requests/deposit", requestHandler.SubmitDeposit)
			r.Post("/v1/requests/withdrawal", requestHandler.SubmitWithdrawal)
			r.Post("/v1/requests/exchange", requestHandler.SubmitExchange)
		})
		r.Get("/v1/requests/{id}", requestHandler.GetRequest)
		r.Post("/v1/requests/{id}/cancel", requestHandler.Cancel)

		// Admin routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))
			r.Get("/v1/admin/requests/pending", adminHandler.ListPending)
			r.Post("/v1/admin/requests/{id}/approve", adminHandler.Approve)
			r.Post("/v1/admin/requests/{id}/reject", adminHandler.Reject)
			r.Get("/v1/admin/dashboard", adminHandler.Dashboard)

			r.Post("/v1/admin/bank-accounts", adminHandler.CreateBankAccount)
			r.Delete("/v1/admin/bank-accounts/{id}", adminHandler.DeactivateBankAccount)
			r.Post("/v1/admin/rates", adminHandler.SetRate)
			r.Get("/v1/admin/rates", adminHandler.ListRates)
			r.Delete("/v1/admin/rates/{id}", adminHandler.DeactivateRate)
		})
	})

	return r
}
