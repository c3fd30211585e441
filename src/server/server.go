package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"mt5-bridge/src/bridge"
	"mt5-bridge/src/interfaces"
	"mt5-bridge/src/logger"
	"mt5-bridge/src/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

var _ interfaces.IDataExchanger = (*APIServer)(nil)

// Controller runs intents against the bridge state.
type Controller interface {
	Do(ctx context.Context, fn bridge.Intent) (any, error)
}

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine
	http   *http.Server

	controller     Controller
	orderLimiter   *rate.Limiter
	metricsHandler http.Handler

	// WebSocket clients, owned by the hub goroutine
	clients    map[*Client]struct{}
	broadcast  chan *models.MBridgeView
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	// Local cache
	latestView  *models.MBridgeView
	connections int
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewAPIServer wires the REST, WebSocket and metrics surface. A nil
// metricsHandler serves the default Prometheus registry.
func NewAPIServer(cfg *models.MConfig, logger *logger.Logger, controller Controller, metricsHandler http.Handler) *APIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	s := &APIServer{
		Config:         cfg,
		Logger:         logger,
		engine:         gin.New(),
		controller:     controller,
		orderLimiter:   rate.NewLimiter(rate.Limit(cfg.API.OrderRatePerSec), cfg.API.OrderBurst),
		metricsHandler: metricsHandler,
		clients:        make(map[*Client]struct{}),
		broadcast:      make(chan *models.MBridgeView, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		quit:           make(chan struct{}),
		latestView:     &models.MBridgeView{Type: "INITIAL"},
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(corsMiddleware)

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------

func corsMiddleware(c *gin.Context) {
	origin := c.Request.Header.Get("Origin")
	if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
	}
	c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	c.Next()
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	s.engine.GET("/metrics", gin.WrapH(s.metricsHandler))
	s.engine.GET("/ws", s.handleWebSocket)

	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/state", s.getState)
	api.GET("/config", s.getConfig)

	trading := api.Group("", s.rateLimit)
	trading.POST("/orders", s.postOrder)
	trading.POST("/positions/:ticket/close", s.closePosition)
	trading.POST("/pending/:ticket/cancel", s.cancelOrder)
	trading.POST("/history", s.postHistory)

	api.POST("/lot/adjust", s.adjustLot)
	api.PUT("/lot", s.setLot)
	api.POST("/lot/quick", s.quickLot)

	api.POST("/recording/start", s.startRecording)
	api.POST("/recording/stop", s.stopRecording)

	if s.Config.API.StaticDir != "" {
		s.engine.Static("/ui", s.Config.API.StaticDir)
	}
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until Stop is called. It blocks.
func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.http = &http.Server{Addr: addr, Handler: s.engine}
	go s.runHub()

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.http == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = s.http.Shutdown(ctx)
	})
	return err
}

// -----------------------------------------------------------------------------

// SetController attaches the intent runner when it is built after the server.
func (s *APIServer) SetController(controller Controller) {
	s.controller = controller
}
