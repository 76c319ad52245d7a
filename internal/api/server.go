package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"stockaggr/internal/auth"
	"stockaggr/internal/cache"
	"stockaggr/internal/config"
	"stockaggr/internal/database"
	"stockaggr/internal/datasource"
	"stockaggr/internal/logging"
	"stockaggr/internal/monitor"
)

// Server represents the API server
type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader
	log        *logging.Logger

	db         *database.DB
	manager    *datasource.Manager
	respCache  *cache.ResponseCache
	jwtManager *auth.JWTManager
	metrics    *monitor.Metrics

	market     *MarketHandler
	dataSource *DataSourceHandler
	authH      *AuthHandler
	ws         *WebSocketHandler
}

// Deps carries the services the server routes requests to.
type Deps struct {
	DB        *database.DB
	Manager   *datasource.Manager
	Cache     *cache.ResponseCache
	Metrics   *monitor.Metrics
	Logger    *logging.Logger
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Deps) *Server {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Logger == nil {
		deps.Logger = logging.GetGlobalLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = monitor.NewMetrics()
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Duration)

	s := &Server{
		config: cfg,
		router: gin.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:        deps.Logger,
		db:         deps.DB,
		manager:    deps.Manager,
		respCache:  deps.Cache,
		jwtManager: jwtManager,
		metrics:    deps.Metrics,
	}

	s.market = NewMarketHandler(deps.Manager, deps.Cache, &cfg.Cache, deps.Metrics, deps.Logger)
	s.dataSource = NewDataSourceHandler(deps.Manager, datasource.NewPostgresStore(deps.DB), deps.Logger)
	s.authH = NewAuthHandler(jwtManager, &cfg.Admin, deps.Logger)
	s.ws = NewWebSocketHandler(s.upgrader, deps.Manager, deps.Logger)

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(requestLogMiddleware(s.log))
	s.router.Use(corsMiddleware(s.config.CORS))
	if s.config.RateLimit.Enabled {
		s.router.Use(rateLimitMiddleware(s.config.RateLimit))
	}
	s.router.Use(s.metrics.Middleware())

	if s.config.App.Env == "development" {
		s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", s.authH.Login)
		}

		// Market data routes are public.
		market := v1.Group("/market")
		{
			market.GET("/kline", s.market.GetKline)
			market.GET("/quotes", s.market.GetQuotes)
			market.GET("/indices", s.market.GetIndices)
			market.GET("/spot", s.market.GetSpotStatistics)
			market.GET("/industry-rank", s.market.GetIndustryRank)
			market.GET("/concept-rank", s.market.GetConceptRank)
			market.GET("/sectors/:code/stocks", s.market.GetSectorStocks)
			market.GET("/money-flow/:symbol", s.market.GetMoneyFlow)
			market.GET("/money-flow-rank", s.market.GetMoneyFlowRank)
			market.GET("/north-flow", s.market.GetNorthFlow)
			market.GET("/long-tiger", s.market.GetLongTiger)
			market.GET("/limit-up-pool", s.market.GetLimitUpPool)
			market.GET("/limit-down-pool", s.market.GetLimitDownPool)
			market.GET("/volume-ratio-rank", s.market.GetVolumeRatioRank)
			market.GET("/boards", s.market.GetBoardDict)
			market.GET("/economic-calendar", s.market.GetEconomicCalendar)
			market.GET("/interactive-qa/:symbol", s.market.GetInteractiveQA)
			market.GET("/research-reports/:symbol", s.market.GetResearchReports)
			market.GET("/notices/:symbol", s.market.GetNotices)
		}

		// Source administration requires authentication.
		admin := v1.Group("/datasources")
		admin.Use(authMiddleware(s.jwtManager))
		{
			admin.GET("", s.dataSource.List)
			admin.GET("/:name", s.dataSource.Get)
			admin.PUT("/:name", s.dataSource.Update)
			admin.POST("/:name/reset", s.dataSource.ResetBreaker)
			admin.PUT("/priorities", s.dataSource.UpdatePriorities)
		}
	}

	ws := s.router.Group("/ws")
	{
		ws.GET("/indices", s.ws.IndexStream)
	}

	s.router.GET("/health", s.health)
}

// health reports process and dependency health
func (s *Server) health(c *gin.Context) {
	dbHealth := "ok"
	if s.db != nil {
		if err := s.db.HealthCheck(c.Request.Context()); err != nil {
			dbHealth = "error"
		}
	} else {
		dbHealth = "unavailable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
		"services": gin.H{
			"database": dbHealth,
		},
	})
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	s.log.Infof("starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down API server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
