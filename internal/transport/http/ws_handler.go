package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roombroker/internal/config"
	"github.com/vovakirdan/roombroker/internal/core"
	"github.com/vovakirdan/roombroker/internal/metrics"
	"github.com/vovakirdan/roombroker/internal/proto"
	"github.com/vovakirdan/roombroker/internal/utils"
)

// WSHandler upgrades HTTP connections and feeds their frames to the hub.
// It is mounted on the stdlib mux, not gin, because the upgrade hijacks the raw ResponseWriter.
type WSHandler struct {
	hub     *core.Hub
	metrics *metrics.Metrics
	log     *zerolog.Logger

	acceptOptions   *websocket.AcceptOptions
	maxMessageBytes int64
	rateLimit       int
	forward         forwardPolicy
}

// NewWSHandler builds a new WebSocket handler. An invalid trusted proxy list is logged and
// disables forwarding headers entirely.
func NewWSHandler(hub *core.Hub, m *metrics.Metrics, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	forward, err := newForwardPolicy(cfg.TrustForwardedFor, cfg.TrustedProxies)
	if err != nil {
		logger.Warn().Err(err).Strs("trusted_proxies", cfg.TrustedProxies).Msg("ignoring forwarding headers")
	}

	opts := &websocket.AcceptOptions{}
	if len(cfg.AllowedOrigins) == 0 || containsWildcard(cfg.AllowedOrigins) {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = cfg.AllowedOrigins
	}

	return &WSHandler{
		hub:             hub,
		metrics:         m,
		log:             logger,
		acceptOptions:   opts,
		maxMessageBytes: cfg.MaxMessageBytes,
		rateLimit:       cfg.RateLimitPerMinute,
		forward:         forward,
	}
}

// ServeHTTP implements http.Handler.
func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	h.serve(w, r, h.forward.origin(r))
}

func (h *WSHandler) serve(w stdhttp.ResponseWriter, r *stdhttp.Request, origin string) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, h.acceptOptions)
	if err != nil {
		h.log.Error().Err(err).Str("origin", origin).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	client := newWSConn(utils.NewSessionID(), origin, conn)

	// hub work must outlive the request context so peers still get updates after this client drops
	hubCtx := context.WithoutCancel(ctx)

	if err := h.hub.OnConnect(hubCtx, client); err != nil {
		h.log.Warn().Err(err).Str("session_id", client.ID()).Msg("welcome not delivered")
	}

	err = h.readLoop(ctx, hubCtx, conn, client)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
			reason = s.String()
		}
		// evicted sessions see their own policy close echoed back
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || status == websocket.StatusPolicyViolation {
			err = nil
		}
		if err != nil && !errors.Is(err, core.ErrUnknownSession) {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", client.ID()).Msg("ws connection closed with error")
		}
	}

	h.hub.OnDisconnect(hubCtx, client, reason)
	conn.Close(status, truncateReason(reason))
}

func (h *WSHandler) readLoop(ctx, hubCtx context.Context, conn *websocket.Conn, client *wsConn) error {
	limiter := newRateLimiter(h.rateLimit)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if typ != websocket.MessageText {
			h.metrics.Malformed()
			h.log.Warn().Str("session_id", client.ID()).Msg("dropping non-text frame")
			continue
		}
		if !limiter.allow() {
			h.metrics.RateLimited()
			h.log.Warn().Err(core.ErrRateLimited).Str("session_id", client.ID()).Msg("dropping inbound frame")
			continue
		}

		err = h.hub.OnMessage(hubCtx, client, data)
		switch {
		case err == nil:
		case errors.Is(err, proto.ErrMalformedMessage):
			h.log.Warn().Err(err).Str("session_id", client.ID()).Msg("dropping malformed message")
		case errors.Is(err, core.ErrUnknownSession):
			return err
		default:
			h.log.Error().Err(err).Str("session_id", client.ID()).Msg("handle message")
		}
	}
}

func containsWildcard(patterns []string) bool {
	for _, p := range patterns {
		if p == "*" {
			return true
		}
	}
	return false
}

// truncateReason keeps close reasons within the 123 byte control frame budget.
func truncateReason(reason string) string {
	const maxReason = 123
	if len(reason) <= maxReason {
		return reason
	}
	return reason[:maxReason]
}
