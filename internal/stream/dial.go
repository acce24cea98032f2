// Package stream runs the forever-reconnecting websocket workers that feed
// market data and account state into the store.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

const (
	reconnectDelay = 3 * time.Second
	pingInterval   = 20 * time.Second
	pingTimeout    = 20 * time.Second
)

// onConnect is called once per successful dial, before the read loop starts,
// to send any subscribe frames.
type onConnect func(conn *websocket.Conn) error

// onMessage is called for every frame the socket receives.
type onMessage func(ctx context.Context, message []byte) error

// runForever dials url with a bearer token, reconnecting with a fixed delay
// on any error, until ctx is cancelled. This is the reconnect shape every
// stream worker in this package shares.
func runForever(ctx context.Context, log zerolog.Logger, url string, tokens domain.TokenSource, connect onConnect, handle onMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := connectAndListen(ctx, log, url, tokens, connect, handle); err != nil {
			log.Error().Err(err).Str("url", url).Msg("stream connection lost")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func connectAndListen(ctx context.Context, log zerolog.Logger, url string, tokens domain.TokenSource, connect onConnect, handle onMessage) error {
	connID := uuid.NewString()
	log = log.With().Str("connection_id", connID).Logger()

	token, err := tokens.GetAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	log.Info().Str("url", url).Msg("connected")

	conn.SetReadDeadline(time.Now().Add(pingInterval + pingTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pingInterval + pingTimeout))
		return nil
	})

	if connect != nil {
		if err := connect(conn); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	defer cancelHeartbeat()
	go heartbeat(heartbeatCtx, log, conn)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if err := handle(ctx, message); err != nil {
			log.Warn().Err(err).Msg("message handler error")
		}
	}
}

func heartbeat(ctx context.Context, log zerolog.Logger, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingTimeout)); err != nil {
				log.Error().Err(err).Msg("ping failed")
				return
			}
		}
	}
}
