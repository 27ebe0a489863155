package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"NavGuard/internal/domain/models"
	"NavGuard/internal/usecase"
	"NavGuard/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubServer(t *testing.T) (*Hub, string) {
	t.Helper()
	return newHubServerWith(t, Config{PingInterval: time.Second, WriteWait: time.Second, ClientBuffer: 4})
}

func newHubServerWith(t *testing.T, cfg Config) (*Hub, string) {
	t.Helper()
	idle := usecase.Snapshot{State: models.RequestState{Phase: models.PhaseIdle}, Lifecycle: models.LifecycleIdle}
	hub := NewHub(cfg, idle, logger.Nop())

	e := echo.New()
	e.GET("/api/stream", hub.Handle)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) usecase.Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var s usecase.Snapshot
	require.NoError(t, conn.ReadJSON(&s))
	return s
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	assert.Eventually(t, func() bool { return hub.Clients() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestNewClientReceivesCurrentSnapshot(t *testing.T) {
	hub, url := newHubServer(t)
	conn := dial(t, url)

	s := readSnapshot(t, conn)
	assert.Equal(t, models.LifecycleIdle, s.Lifecycle)
	waitClients(t, hub, 1)
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub, url := newHubServer(t)
	a := dial(t, url)
	b := dial(t, url)
	readSnapshot(t, a)
	readSnapshot(t, b)
	waitClients(t, hub, 2)

	hub.Broadcast(usecase.Snapshot{
		State:     models.RequestState{Phase: models.PhasePending, Generation: 1},
		Lifecycle: models.LifecycleLoading,
	})

	for _, conn := range []*websocket.Conn{a, b} {
		s := readSnapshot(t, conn)
		assert.Equal(t, models.LifecycleLoading, s.Lifecycle)
		assert.Equal(t, uint64(1), s.State.Generation)
	}
}

func TestLateClientGetsLatestBroadcast(t *testing.T) {
	hub, url := newHubServer(t)
	hub.Broadcast(usecase.Snapshot{
		State:     models.RequestState{Phase: models.PhaseFailed, Generation: 3},
		Lifecycle: models.LifecycleSettled,
		Message:   models.MessageTransport,
	})

	s := readSnapshot(t, dial(t, url))
	assert.Equal(t, uint64(3), s.State.Generation)
	assert.Equal(t, models.MessageTransport, s.Message)
}

func TestClientDisconnectIsRemoved(t *testing.T) {
	hub, url := newHubServer(t)
	conn := dial(t, url)
	readSnapshot(t, conn)
	waitClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitClients(t, hub, 0)
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub, url := newHubServer(t)
	conn := dial(t, url)
	readSnapshot(t, conn)
	waitClients(t, hub, 1)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestUpgradeHonoursAllowedOrigins(t *testing.T) {
	hub, url := newHubServerWith(t, Config{AllowOrigins: []string{"http://bridge.local"}})

	ok, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://bridge.local"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ok.Close() })
	readSnapshot(t, ok)

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://elsewhere.example"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	waitClients(t, hub, 1)
}

func TestUpgradeWithoutOriginListIsSameOriginOnly(t *testing.T) {
	_, url := newHubServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://elsewhere.example"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
