package http

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"net/netip"
	"strings"

	"github.com/coder/websocket"

	"github.com/vovakirdan/roombroker/internal/core"
)

// wsConn adapts a websocket connection to core.Connection.
// coder/websocket allows concurrent Write and Close calls, so no extra locking is needed.
type wsConn struct {
	id     string
	origin string
	conn   *websocket.Conn
}

func newWSConn(id, origin string, conn *websocket.Conn) *wsConn {
	return &wsConn{id: id, origin: origin, conn: conn}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) RemoteOrigin() string { return c.origin }

func (c *wsConn) Send(ctx context.Context, payload []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

func (c *wsConn) Close(code core.CloseCode, reason string) error {
	return c.conn.Close(websocket.StatusCode(code), reason)
}

// CloseNow drops the connection without waiting for the close handshake.
func (c *wsConn) CloseNow() error {
	return c.conn.CloseNow()
}

// forwardPolicy decides which peers may name the client address through forwarding headers.
// The zero value trusts nobody.
type forwardPolicy struct {
	trusted []netip.Prefix
}

var anyPeer = []string{"0.0.0.0/0", "::/0"}

// newForwardPolicy parses proxies as CIDRs or single addresses. An empty list trusts any peer.
func newForwardPolicy(enabled bool, proxies []string) (forwardPolicy, error) {
	if !enabled {
		return forwardPolicy{}, nil
	}
	if len(proxies) == 0 {
		proxies = anyPeer
	}

	trusted := make([]netip.Prefix, 0, len(proxies))
	for _, raw := range proxies {
		raw = strings.TrimSpace(raw)
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			trusted = append(trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return forwardPolicy{}, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		trusted = append(trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return forwardPolicy{trusted: trusted}, nil
}

func (p forwardPolicy) enabled() bool { return len(p.trusted) > 0 }

// cidrs renders the trusted set in the form gin's SetTrustedProxies accepts.
func (p forwardPolicy) cidrs() []string {
	out := make([]string, 0, len(p.trusted))
	for _, prefix := range p.trusted {
		out = append(out, prefix.String())
	}
	return out
}

func (p forwardPolicy) trusts(addr netip.Addr) bool {
	for _, prefix := range p.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// origin picks the address a connection is deduplicated by. A trusted peer may name the client
// with the first valid X-Forwarded-For entry, or X-Real-IP; otherwise the peer address is used.
func (p forwardPolicy) origin(r *stdhttp.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if peer, err := netip.ParseAddr(host); err == nil && p.trusts(peer.Unmap().WithZone("")) {
		for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
			if _, err := netip.ParseAddr(strings.Trim(strings.TrimSpace(part), "[]")); err == nil {
				return normalizeOrigin(part)
			}
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return normalizeOrigin(realIP)
		}
	}
	return normalizeOrigin(host)
}

// normalizeOrigin turns a client IP string into the deduplication key.
// IPv4-mapped IPv6 addresses collapse to IPv4 and zones are dropped.
func normalizeOrigin(host string) string {
	host = strings.TrimSpace(strings.Trim(host, "[]"))
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return strings.ToLower(host)
	}
	return addr.Unmap().WithZone("").String()
}
