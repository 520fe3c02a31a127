package api

// 爬取过程中的HTTP状态接口：健康检查、引擎统计和版本信息

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dszqbsm/planning/idox"
	"github.com/dszqbsm/planning/spider/workerengine"
	"github.com/dszqbsm/planning/version"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// 引擎统计来源
type Engine interface {
	Stats() workerengine.Stats
}

// 站点爬取进度来源
type Progress interface {
	Site() idox.Site
	Scraped() int
	Pending() int
}

type SiteStats struct {
	Name    string `json:"name"`
	Scraped int    `json:"scraped"`
	Pending int    `json:"pending"`
}

type StatsResponse struct {
	Engine  workerengine.Stats `json:"engine"`
	Sites   []SiteStats        `json:"sites"`
	Version version.Info       `json:"version"`
	Uptime  string             `json:"uptime"`
}

type Server struct {
	engine  Engine
	sites   []Progress
	logger  *zap.Logger
	started time.Time
	router  *gin.Engine
}

/*
输入引擎、站点进度列表和日志器，输出一个Server实例

该方法用于创建状态服务，注册/healthz、/stats和/version三个接口，所有请求经过日志和恢复中间件
*/
func NewServer(engine Engine, sites []Progress, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:  engine,
		sites:   sites,
		logger:  logger,
		started: time.Now(),
	}

	r := gin.New()
	r.Use(Logger(logger), gin.Recovery())
	r.GET("/healthz", s.health)
	r.GET("/stats", s.stats)
	r.GET("/version", s.version)
	s.router = r

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) stats(c *gin.Context) {
	resp := StatsResponse{
		Sites:   make([]SiteStats, 0, len(s.sites)),
		Version: version.Get(),
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	if s.engine != nil {
		resp.Engine = s.engine.Stats()
	}
	for _, p := range s.sites {
		resp.Sites = append(resp.Sites, SiteStats{
			Name:    p.Site().Name,
			Scraped: p.Scraped(),
			Pending: p.Pending(),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}

/*
输入一个上下文和监听地址，输出一个错误

该方法用于启动HTTP服务，上下文结束时优雅关闭，关闭最多等待5秒
*/
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// 请求日志中间件，健康检查只记debug级别
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			logger.Error("http request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		if path == "/healthz" {
			logger.Debug("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
	}
}
