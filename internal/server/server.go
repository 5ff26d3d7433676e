package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"feewallet/internal/account"
	"feewallet/internal/auth"
	"feewallet/internal/collection"
	"feewallet/internal/config"
	"feewallet/internal/db"
	"feewallet/internal/ledger"
	"feewallet/internal/settlement"
)

type Server struct {
	router *gin.Engine
	srv    *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(database *sqlx.DB, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	store := db.NewStore(database, cfg.LockTimeoutMS)
	settlementSvc := settlement.NewService(
		store,
		account.NewRepository(),
		collection.NewRepository(),
		ledger.NewRepository(),
	)

	accountHandler := account.NewHandler(database)
	collectionHandler := collection.NewHandler(database)
	settlementHandler := settlement.NewHandler(settlementSvc)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/accounts/me", accountHandler.GetMyAccount)
		protected.POST("/transactions/deposit", settlementHandler.Deposit)
		protected.POST("/transactions/withdraw", settlementHandler.Withdraw)
		protected.POST("/transactions/pay", settlementHandler.Pay)
		protected.GET("/transactions/me", settlementHandler.History)
	}

	// Service-to-service surface; callers authenticate with a service-role token.
	internal := router.Group("/internal")
	internal.Use(authMiddleware, auth.RequireRole("service"))
	{
		internal.POST("/refund", settlementHandler.Refund)
		internal.POST("/summary/student-collection-payments", settlementHandler.SummarizePayments)
		internal.GET("/collection-accounts/:collectionID", collectionHandler.GetCollectionAccount)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     database,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.srv = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Router exposes the engine for handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
