package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roombroker/internal/config"
	"github.com/vovakirdan/roombroker/internal/core"
	"github.com/vovakirdan/roombroker/internal/metrics"
	"github.com/vovakirdan/roombroker/internal/store"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewServer builds the HTTP server: websocket endpoints, the read-only REST API, health and metrics.
// journal may be nil, in which case the journal endpoint is not mounted.
//
// Websocket upgrades go straight to a stdlib mux; everything else is served by gin.
func NewServer(hub *core.Hub, journal store.JournalStore, m *metrics.Metrics, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()

	ws := NewWSHandler(hub, m, cfg, logger)
	mux.Handle("/ws", ws)
	mux.Handle("/ws/conn", ws)
	mux.Handle("/", newRouter(hub, journal, m, ws.forward, logger))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func newRouter(hub *core.Hub, journal store.JournalStore, m *metrics.Metrics, forward forwardPolicy, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	// request logs resolve client_ip with the same proxy trust as websocket origins
	router.ForwardedByClientIP = forward.enabled()
	if err := router.SetTrustedProxies(forward.cidrs()); err != nil {
		router.ForwardedByClientIP = false
		logger.Warn().Err(err).Msg("invalid trusted proxies, client ip falls back to peer address")
	}

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("/api")
	rooms := NewRoomHandlers(hub, logger)
	api.GET("/rooms", rooms.ListRooms)
	api.GET("/rooms/:id", rooms.GetRoom)

	sessions := NewSessionHandlers(hub, journal, logger)
	api.GET("/sessions", sessions.ListSessions)
	if journal != nil {
		api.GET("/sessions/events", sessions.ListEvents)
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
