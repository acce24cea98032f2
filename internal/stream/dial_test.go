package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenSource struct {
	token string
}

func (f fakeTokenSource) GetAccessToken(ctx context.Context) (string, error) {
	return f.token, nil
}

func TestRunForever_ConnectsAuthenticatesAndReceivesMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"world"}`))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	var mu sync.Mutex
	var received []string
	handle := func(ctx context.Context, message []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(message))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	runForever(ctx, zerolog.Nop(), wsURL, fakeTokenSource{token: "tok-abc"}, nil, handle)

	assert.Equal(t, "Bearer tok-abc", gotAuth)
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, received)
	assert.Equal(t, `{"hello":"world"}`, received[0])
}

func TestRunForever_CallsConnectHookOnce(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	connectCalls := 0
	connect := func(conn *websocket.Conn) error {
		connectCalls++
		return conn.WriteJSON(map[string]string{"op": "subscribe"})
	}
	handle := func(ctx context.Context, message []byte) error { return nil }

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	runForever(ctx, zerolog.Nop(), wsURL, fakeTokenSource{token: "t"}, connect, handle)

	assert.Equal(t, 1, connectCalls)
}
