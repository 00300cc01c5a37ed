package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sentra/internal/logger"
	"sentra/internal/market"
	"sentra/internal/position"
	"sentra/internal/recorder"
	"sentra/internal/risk"

	"github.com/gin-gonic/gin"
)

// Server 暴露只读监控接口：仓位、成交、统计与权益曲线。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr     string
	Registry *position.Registry
	Trades   *recorder.Store
	Risk     *risk.Manager
	Source   market.Source
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Registry == nil || cfg.Trades == nil {
		return nil, errors.New("http server requires registry and trade store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{registry: cfg.Registry, trades: cfg.Trades, risk: cfg.Risk, source: cfg.Source}
	api := router.Group("/api")
	api.GET("/positions", h.positions)
	api.GET("/account", h.account)
	api.GET("/trades", h.recentTrades)
	api.GET("/trades.csv", h.tradesCSV)
	api.GET("/stats", h.stats)
	api.GET("/equity.html", h.equityChart)

	return &Server{addr: cfg.Addr, router: router}, nil
}

func (s *Server) Addr() string { return s.addr }

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("http: listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("http: %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func parseLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
