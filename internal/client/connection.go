package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gorilla/websocket"
)

// State is the lifecycle position of a session's single room connection.
type State int32

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const closeGracePeriod = time.Second

// socketURL maps the page origin onto the room websocket endpoint.
func socketURL(base *url.URL, roomID string) string {
	u := *base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = path.Join("/", u.Path, "ws", roomID) + "/"
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func (s *Session) dial(ctx context.Context, roomID string) (*websocket.Conn, error) {
	target := socketURL(s.baseURL, roomID)

	header := http.Header{}
	header.Set("Origin", s.baseURL.Scheme+"://"+s.baseURL.Host)

	conn, resp, err := s.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s failed with status %s: %w", target, resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial %s failed: %w", target, err)
	}

	log.Printf("[client] connected to %s", target)
	return conn, nil
}

// readLoop delivers frames in transport order until the socket goes away.
// Cancelling ctx closes the socket.
func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() {
		s.writeMu.Lock()
		s.mu.Lock()
		s.stopping = true
		s.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod))
		s.writeMu.Unlock()
		_ = conn.Close()
	})
	defer stop()

	var cause error
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			cause = classifyClose(ctx, err)
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.HandleFrame(payload)
	}

	_ = conn.Close()
	s.finish(cause)
}

// classifyClose returns nil for orderly shutdowns and an ErrConnectionClosed
// wrapper for everything else.
func classifyClose(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return fmt.Errorf("%w: code %d %s", ErrConnectionClosed, closeErr.Code, closeErr.Text)
	}
	return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
}
