package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/court-scheduler/hub"
)

func newTestHub(t *testing.T, mutate func(*hub.Config)) *hub.Hub {
	t.Helper()
	cfg := hub.DefaultConfig()
	cfg.HealthCheckInterval = time.Hour
	if mutate != nil {
		mutate(&cfg)
	}
	h := hub.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return h
}

func newWSServer(t *testing.T, h *hub.Hub) *httptest.Server {
	t.Helper()
	ws := NewWebSocketHandler(h, []string{"*"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Get("/ws/tournaments/{tournamentID}", ws.ServeWs)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, tournamentID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tournaments/" + tournamentID
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) hub.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg hub.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestServeWsDeliversBroadcasts(t *testing.T) {
	h := newTestHub(t, nil)
	srv := newWSServer(t, h)

	conn, _, err := dial(t, srv, "5")
	require.NoError(t, err)
	defer conn.Close()

	welcome := readMessage(t, conn)
	assert.Equal(t, "connected", welcome.Type)

	require.Eventually(t, func() bool {
		n, err := h.Broadcast(5, "schedule_adjusted", map[string]int{"match_id": 1})
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	msg := readMessage(t, conn)
	assert.Equal(t, "schedule_adjusted", msg.Type)
	assert.Equal(t, 5, msg.TournamentID)
}

func TestServeWsControlFrames(t *testing.T) {
	h := newTestHub(t, nil)
	srv := newWSServer(t, h)

	conn, _, err := dial(t, srv, "5")
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(hub.ControlFrame{Type: hub.FrameJoin, TournamentID: 6}))
	assert.Equal(t, "joined", readMessage(t, conn).Type)

	m, err := h.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalConnections)
	assert.Equal(t, map[int]int{5: 1, 6: 1}, m.PerTournament)

	require.NoError(t, conn.WriteJSON(hub.ControlFrame{Type: hub.FramePing}))
	assert.Equal(t, "pong", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, "error", readMessage(t, conn).Type)
}

func TestServeWsPassiveViewerSurvivesShortTimeout(t *testing.T) {
	h := newTestHub(t, func(c *hub.Config) {
		c.ConnectionTimeout = 400 * time.Millisecond
		c.HealthCheckInterval = 50 * time.Millisecond
	})
	srv := newWSServer(t, h)

	conn, _, err := dial(t, srv, "5")
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)

	// Reading lets the default ping handler answer the server's pings; the
	// viewer never sends a frame of its own.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	time.Sleep(1200 * time.Millisecond)

	m, err := h.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalConnections)
	assert.Zero(t, m.Evictions)
}

func TestServeWsDisconnectFreesSlot(t *testing.T) {
	h := newTestHub(t, func(c *hub.Config) { c.MaxConnectionsPerTournament = 1 })
	srv := newWSServer(t, h)

	conn, _, err := dial(t, srv, "5")
	require.NoError(t, err)
	readMessage(t, conn)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		m, err := h.Metrics()
		return err == nil && m.TotalConnections == 0
	}, 2*time.Second, 10*time.Millisecond)

	again, _, err := dial(t, srv, "5")
	require.NoError(t, err)
	again.Close()
}

func TestServeWsRejectsAtCapacityBeforeUpgrade(t *testing.T) {
	h := newTestHub(t, func(c *hub.Config) { c.MaxConnectionsPerTournament = 1 })
	srv := newWSServer(t, h)

	first, _, err := dial(t, srv, "5")
	require.NoError(t, err)
	defer first.Close()

	_, resp, err := dial(t, srv, "5")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	m, err := h.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalConnections, "rejected connections hold no state")
	assert.Equal(t, 1, m.CapacityEvents)
}

func TestServeWsBadTournamentID(t *testing.T) {
	h := newTestHub(t, nil)
	srv := newWSServer(t, h)

	_, resp, err := dial(t, srv, "nope")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHubMetricsHandler(t *testing.T) {
	h := newTestHub(t, nil)
	_, err := h.Join("a", 9, 1)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	NewHubHandler(h).Metrics(rec, httptest.NewRequest(http.MethodGet, "/hub/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["total_connections"])
	assert.Equal(t, map[string]any{"9": float64(1)}, body["per_tournament_connections"])

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))

	rec = httptest.NewRecorder()
	NewHubHandler(h).Metrics(rec, httptest.NewRequest(http.MethodGet, "/hub/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
