package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-irc/internal/config"
	"github.com/vovakirdan/wirechat-irc/internal/core"
	ilog "github.com/vovakirdan/wirechat-irc/internal/log"
	"github.com/vovakirdan/wirechat-irc/internal/metrics"
	"github.com/vovakirdan/wirechat-irc/internal/store"
)

// Server is the admin HTTP server. It also hosts the WebSocket gateway,
// whose sessions outlive Shutdown; use Wait for them.
type Server struct {
	*stdhttp.Server
	ws *WSHandler
}

// NewServer builds the HTTP server with its routes. st and m may be nil,
// which disables /sessions and /metrics respectively.
func NewServer(engine *core.Engine, st store.SessionStore, m *metrics.Collector, cfg *config.Config, logger *zerolog.Logger) *Server {
	httpLog := ilog.Component(logger, "http")

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(httpLog))

	admin := NewAdminHandlers(engine, st, httpLog)
	router.GET("/health", admin.Health)
	router.GET("/stats", admin.Stats)
	router.GET("/sessions", admin.Sessions)

	if m != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	// The upgrade hijacks the connection after writing 101, which gin's
	// response writer refuses, so /ws bypasses the router.
	ws := NewWSHandler(engine, httpLog)
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", router)

	return &Server{
		Server: &stdhttp.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		ws: ws,
	}
}

// Wait blocks until every WebSocket session has ended.
func (s *Server) Wait() {
	s.ws.Wait()
}
