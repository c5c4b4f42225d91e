package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sable/internal/engine"
	"sable/internal/logger"
	"sable/internal/market"
	"sable/internal/store/sqlite"
)

// Server 提供只读状态接口：实例状态、成交流水、模式切换与数据源健康。
// 引擎状态经 atomic 快照读取，接口不会触碰任何可变状态。
type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr    string
	Manager *engine.Manager
	Store   *sqlite.SqliteStore // 可空：未启用落盘时流水接口返回 404
	Source  market.Source       // 可空
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Manager == nil {
		return nil, errors.New("http server requires an engine manager")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9982"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/instances", func(c *gin.Context) {
		statuses := cfg.Manager.Statuses()
		sort.Slice(statuses, func(i, j int) bool { return statuses[i].Key < statuses[j].Key })
		c.JSON(http.StatusOK, statuses)
	})
	api.GET("/instances/:symbol/:direction", func(c *gin.Context) {
		key := strings.ToUpper(strings.TrimSpace(c.Param("symbol"))) + "/" + strings.ToLower(strings.TrimSpace(c.Param("direction")))
		inst, ok := cfg.Manager.Instance(key)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown instance " + key})
			return
		}
		c.JSON(http.StatusOK, inst.Status())
	})

	if cfg.Store != nil {
		api.GET("/trades", func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
			trades, err := cfg.Store.ListTrades(c.Request.Context(), c.Query("symbol"), limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, trades)
		})
		api.GET("/switches", func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
			switches, err := cfg.Store.ListModeSwitches(c.Request.Context(), c.Query("instance"), limit)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, switches)
		})
	}

	if cfg.Source != nil {
		api.GET("/source", func(c *gin.Context) {
			c.JSON(http.StatusOK, cfg.Source.Stats())
		})
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger 记录接口调用，便于追踪人工查询。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

// Handler 暴露路由，测试用。
func (s *Server) Handler() http.Handler { return s.router }

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

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
