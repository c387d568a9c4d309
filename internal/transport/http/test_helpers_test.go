package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roombroker/internal/config"
	"github.com/vovakirdan/roombroker/internal/core"
	"github.com/vovakirdan/roombroker/internal/metrics"
	"github.com/vovakirdan/roombroker/internal/proto"
	"github.com/vovakirdan/roombroker/internal/store"
	"github.com/vovakirdan/roombroker/internal/store/sqlite"
)

type testEnv struct {
	ts      *httptest.Server
	hub     *core.Hub
	journal store.Store
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ReadHeaderTimeout = time.Second
	cfg.SendTimeout = time.Second
	// every test client picks its own origin through X-Forwarded-For
	cfg.TrustForwardedFor = true
	return &cfg
}

func startTestServer(t *testing.T, withJournal bool) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	return startServerWith(t, testConfig(), withJournal, &logger)
}

func startServerWith(t *testing.T, cfg *config.Config, withJournal bool, logger *zerolog.Logger) *testEnv {
	t.Helper()

	m := metrics.New()

	env := &testEnv{}
	opts := core.HubOptions{
		Logger:      logger,
		Metrics:     m,
		SendTimeout: cfg.SendTimeout,
	}
	var journal store.JournalStore
	if withJournal {
		st, err := sqlite.New(":memory:")
		if err != nil {
			t.Fatalf("open journal: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		env.journal = st
		journal = st
		opts.Store = st
	}

	env.hub = core.NewHub(opts)
	server := NewServer(env.hub, journal, m, cfg, logger)

	env.ts = httptest.NewServer(server.Handler)
	t.Cleanup(env.ts.Close)
	return env
}

func (e *testEnv) wsURL() string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
}

// dial connects as a client behind ip and consumes the welcome frame.
func (e *testEnv) dial(ctx context.Context, t *testing.T, ip string) *websocket.Conn {
	t.Helper()

	header := stdhttp.Header{}
	header.Set("X-Forwarded-For", ip)
	conn, _, err := websocket.Dial(ctx, e.wsURL(), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial %s: %v", ip, err)
	}
	t.Cleanup(func() { conn.CloseNow() })

	if got := readText(ctx, t, conn); got != "connected" {
		t.Fatalf("welcome frame = %q, want connected", got)
	}
	return conn
}

func readText(ctx context.Context, t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("frame type = %v, want text", typ)
	}
	return string(data)
}

// frame holds either outbound shape: a relayed chat message or a count notice.
type frame struct {
	Type        string            `json:"type"`
	MeetingType proto.MeetingType `json:"meetingType"`
	ChatRoomID  int64             `json:"chatRoomId"`
	Username    string            `json:"username"`
	Message     string            `json:"message"`
	Count       int               `json:"count"`
}

func readFrame(ctx context.Context, t *testing.T, conn *websocket.Conn) frame {
	t.Helper()

	var f frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func expectCount(ctx context.Context, t *testing.T, conn *websocket.Conn, roomID int64, count int) {
	t.Helper()

	f := readFrame(ctx, t, conn)
	if f.Type != proto.OutboundTypeRoomCountUpdate || f.ChatRoomID != roomID || f.Count != count {
		t.Fatalf("got %+v, want count update room=%d count=%d", f, roomID, count)
	}
}

func expectChat(ctx context.Context, t *testing.T, conn *websocket.Conn, typ proto.MeetingType, username, message string) {
	t.Helper()

	f := readFrame(ctx, t, conn)
	if f.MeetingType != typ || f.Username != username || f.Message != message {
		t.Fatalf("got %+v, want %s from %q with %q", f, typ, username, message)
	}
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, msg proto.ChatMessage) {
	t.Helper()

	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := stdhttp.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == stdhttp.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}
