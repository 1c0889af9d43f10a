// Package httpserver exposes the monitor's control and inspection API:
// source start/stop, per-source status, settings, the monitoring log with
// its JSON export, Prometheus metrics, and a WebSocket live feed.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/e7canasta/orion-stream-health/internal/config"
	"github.com/e7canasta/orion-stream-health/internal/eventlog"
	"github.com/e7canasta/orion-stream-health/internal/frame"
	"github.com/e7canasta/orion-stream-health/internal/monitor"
)

// Server provides the HTTP API for the stream health monitor.
type Server struct {
	addr       string
	supervisor *monitor.Supervisor
	settings   *config.Settings
	log        *eventlog.Log
	gatherer   prometheus.Gatherer

	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates the API server. A nil gatherer disables /metrics.
func NewServer(addr string, sup *monitor.Supervisor, settings *config.Settings, log *eventlog.Log, gatherer prometheus.Gatherer) *Server {
	if addr == "" {
		addr = "127.0.0.1:8700"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:       addr,
		supervisor: sup,
		settings:   settings,
		log:        log,
		gatherer:   gatherer,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/status", s.handleStatus)
	r.POST("/api/sources/:source/start", s.handleStart)
	r.POST("/api/sources/:source/stop", s.handleStop)
	r.GET("/api/settings", s.handleGetSettings)
	r.PUT("/api/settings", s.handlePutSettings)
	r.GET("/api/logs", s.handleLogs)
	r.GET("/api/logs/export", s.handleExport)
	r.GET("/ws", s.handleWebSocket)

	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the bound listen address. Valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).String(),
		"log_count": s.log.Len(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sources":  s.supervisor.Status(),
		"settings": s.settings.Snapshot(),
	})
}

func (s *Server) handleStart(c *gin.Context) {
	src := frame.Source(c.Param("source"))
	if !src.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source"})
		return
	}
	if err := s.supervisor.Start(s.ctx, src); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"source": src, "desired": true})
}

func (s *Server) handleStop(c *gin.Context) {
	src := frame.Source(c.Param("source"))
	if !src.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source"})
		return
	}
	if err := s.supervisor.Stop(src); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": src, "desired": false})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.settings.Snapshot())
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var raw config.Snapshot
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.settings.Apply(raw)
	c.JSON(http.StatusOK, s.settings.Snapshot())
}

func (s *Server) handleLogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": s.log.Entries()})
}

func (s *Server) handleExport(c *gin.Context) {
	doc, err := s.log.ExportJSON(s.settings.Snapshot())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="stream-health-log.json"`)
	c.Data(http.StatusOK, "application/json", doc)
}
