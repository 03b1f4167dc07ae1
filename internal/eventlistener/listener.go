// Package eventlistener follows the live event stream of a curvectl serve
// instance, reconnecting when the connection drops.
package eventlistener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/api"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
	maxAttempts    = 5
	readTimeout    = 75 * time.Second // server pings every 30s
	writeTimeout   = 5 * time.Second
)

// Handler receives every streamed event.
type Handler func(api.EventMessage)

// EventListener reads the /ws stream of a server.
type EventListener struct {
	wsURL  string
	logger *zap.Logger
	dialer *websocket.Dialer

	initialBackoff time.Duration
	maxAttempts    uint
}

// NewEventListener creates a listener for the server at baseURL
// (http, https, ws or wss).
func NewEventListener(baseURL string, logger *zap.Logger) (*EventListener, error) {
	wsURL, err := streamURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &EventListener{
		wsURL:          wsURL,
		logger:         logger.Named("event_listener"),
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		initialBackoff: initialBackoff,
		maxAttempts:    maxAttempts,
	}, nil
}

// Run delivers events to handler until ctx is done. A dropped connection is
// re-dialed after a backoff. Run gives up after maxAttempts failed dials, or
// after maxAttempts consecutive sessions that ended within maxBackoff.
func (el *EventListener) Run(ctx context.Context, handler Handler) error {
	policy := el.policy()
	var drops uint

	for {
		conn, err := el.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		started := time.Now()
		err = el.read(ctx, conn, handler)
		if ctx.Err() != nil {
			return nil
		}
		if websocket.IsCloseError(err, websocket.CloseGoingAway) {
			el.logger.Info("Server closed the event stream")
		} else {
			el.logger.Warn("Event stream interrupted", zap.Error(err))
		}

		if time.Since(started) > maxBackoff {
			drops = 0
			policy.Reset()
		}
		drops++
		if drops >= el.maxAttempts {
			return fmt.Errorf("event stream dropped %d times: %w", drops, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(policy.NextBackOff()):
		}
	}
}

func (el *EventListener) policy() *backoff.ExponentialBackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = el.initialBackoff
	policy.MaxInterval = maxBackoff
	return policy
}

func (el *EventListener) dial(ctx context.Context) (*websocket.Conn, error) {
	op := func() (*websocket.Conn, error) {
		conn, _, err := el.dialer.DialContext(ctx, el.wsURL, nil)
		return conn, err
	}
	notify := func(err error, next time.Duration) {
		el.logger.Debug("Dial failed, retrying",
			zap.String("url", el.wsURL),
			zap.Duration("next_attempt", next),
			zap.Error(err))
	}

	conn, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(el.policy()),
		backoff.WithNotify(notify),
		backoff.WithMaxTries(el.maxAttempts))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", el.wsURL, err)
	}
	el.logger.Debug("Event stream connected", zap.String("url", el.wsURL))
	return conn, nil
}

func (el *EventListener) read(ctx context.Context, conn *websocket.Conn, handler Handler) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		conn.Close()
	})
	defer func() {
		if stop() {
			conn.Close()
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		var msg api.EventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			el.logger.Warn("Skipping malformed event", zap.Error(err))
			continue
		}
		handler(msg)
	}
}

func streamURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server url %q: unsupported scheme", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
