package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, cfg Config, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	s, err := NewServer(cfg, config.Default(), opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Stop()
		ts.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func send(t *testing.T, conn *websocket.Conn, typ MessageType, requestID string, data any) Message {
	t.Helper()
	m, err := NewMessage(typ, data, time.Now())
	require.NoError(t, err)
	m.RequestID = requestID
	require.NoError(t, conn.WriteJSON(m))
	return read(t, conn)
}

func TestWelcome(t *testing.T) {
	s, ts := testServer(t, DefaultConfig())
	conn := dial(t, ts)

	m := read(t, conn)
	require.Equal(t, MessageTypeWelcome, m.Type)

	var w WelcomeData
	require.NoError(t, json.Unmarshal(m.Data, &w))
	assert.NotEmpty(t, w.Session)
	assert.Equal(t, 6, w.Rules.Decks)
	assert.Equal(t, table.Betting, w.Snapshot.Phase)

	assert.Eventually(t, func() bool { return s.SessionCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestCommandsOverWebSocket(t *testing.T) {
	_, ts := testServer(t, DefaultConfig())
	conn := dial(t, ts)
	read(t, conn)

	m := send(t, conn, MessageTypeJoin, "1", JoinData{Player: "alice"})
	require.Equal(t, MessageTypeState, m.Type)
	assert.Equal(t, "1", m.RequestID)

	m = send(t, conn, MessageTypeBet, "2", BetData{Player: "alice", Amount: 25})
	require.Equal(t, MessageTypeState, m.Type)
	var state StateData
	require.NoError(t, json.Unmarshal(m.Data, &state))
	assert.Equal(t, MessageTypeBet, state.Command)
	assert.Equal(t, int64(975), state.Snapshot.Balances["alice"])

	m = send(t, conn, MessageTypeDeal, "3", nil)
	require.Equal(t, MessageTypeState, m.Type)
	require.NoError(t, json.Unmarshal(m.Data, &state))
	assert.NotEqual(t, table.Betting, state.Snapshot.Phase)

	m = send(t, conn, MessageTypeDeal, "4", nil)
	require.Equal(t, MessageTypeError, m.Type)
	assert.Equal(t, "4", m.RequestID)
	var e ErrorData
	require.NoError(t, json.Unmarshal(m.Data, &e))
	assert.Equal(t, CodeIllegalAction, e.Code)
	assert.NotEmpty(t, e.Message)
}

func TestBadRequestOverWebSocket(t *testing.T) {
	_, ts := testServer(t, DefaultConfig())
	conn := dial(t, ts)
	read(t, conn)

	m := send(t, conn, "raise", "x", nil)
	require.Equal(t, MessageTypeError, m.Type)
	var e ErrorData
	require.NoError(t, json.Unmarshal(m.Data, &e))
	assert.Equal(t, CodeBadRequest, e.Code)
}

func TestIdleTimeoutClosesSession(t *testing.T) {
	mock := quartz.NewMock(t)
	cfg := DefaultConfig()
	cfg.IdleTimeout = time.Minute
	s, ts := testServer(t, cfg, WithClock(mock))
	conn := dial(t, ts)
	read(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d, w := mock.AdvanceNext()
	w.MustWait(ctx)
	assert.Equal(t, time.Minute, d)

	m := read(t, conn)
	require.Equal(t, MessageTypeClosing, m.Type)
	var c ClosingData
	require.NoError(t, json.Unmarshal(m.Data, &c))
	assert.Equal(t, "idle timeout", c.Reason)

	assert.Eventually(t, func() bool { return s.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestMaxSessions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 1
	s, ts := testServer(t, cfg)
	conn := dial(t, ts)
	read(t, conn)
	require.Eventually(t, func() bool { return s.SessionCount() == 1 }, time.Second, 10*time.Millisecond)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMaxSessionsCountsUpgradesInFlight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 1
	s, ts := testServer(t, cfg)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	require.True(t, s.reserve())
	assert.False(t, s.reserve())
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, s.SessionCount())
	s.release()

	// A failed upgrade gives its slot back.
	resp, err = http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	conn := dial(t, ts)
	assert.Equal(t, MessageTypeWelcome, read(t, conn).Type)
}

func TestHTTPEndpoints(t *testing.T) {
	_, ts := testServer(t, DefaultConfig())

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(ts.URL + "/rules")
	require.NoError(t, err)
	var rules config.Rules
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rules))
	_ = resp.Body.Close()
	assert.Equal(t, config.Default().Limits, rules.Limits)

	resp, err = http.Get(ts.URL + "/sessions")
	require.NoError(t, err)
	var sessions map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sessions))
	_ = resp.Body.Close()
	assert.Equal(t, 0, sessions["sessions"])

	resp, err = http.Post(ts.URL+"/health", "text/plain", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestNewServerValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 70000
	_, err := NewServer(cfg, config.Default())
	assert.Error(t, err)

	rules := config.Default()
	rules.Decks = 0
	_, err = NewServer(DefaultConfig(), rules)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestStartStopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	s, err := NewServer(cfg, config.Default(), WithLogger(log.New(io.Discard)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
