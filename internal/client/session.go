// Package client implements the visitor side of a support chat room: it
// registers the room over HTTP, opens the single room websocket and hands
// inbound chat messages to a render hook.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chatroom/internal/model/chat"
)

// Hooks are the caller's observation points. Every field is optional.
// OnMessage and OnClose run on the connection's read goroutine.
type Hooks struct {
	OnMessage func(chat.ChatMessage)
	OnOpen    func()
	OnClose   func(err error)
	OnError   func(err error)
}

// Option customises a Session.
type Option func(*Session)

// WithRoomID joins a known room instead of generating a new id.
func WithRoomID(roomID string) Option {
	return func(s *Session) {
		if roomID != "" {
			s.info.RoomID = roomID
		}
	}
}

// WithAgentID marks outbound messages as sent by the given staff member.
func WithAgentID(agentID string) Option {
	return func(s *Session) {
		s.agentID = agentID
	}
}

// WithStrictRegistration makes Join abort when room registration fails
// instead of opening the socket anyway.
func WithStrictRegistration() Option {
	return func(s *Session) {
		s.strict = true
	}
}

// WithTimeouts bounds the registration request and the websocket handshake.
// Zero leaves the corresponding default untouched.
func WithTimeouts(httpTimeout, handshakeTimeout time.Duration) Option {
	return func(s *Session) {
		if httpTimeout > 0 {
			s.httpClient.Timeout = httpTimeout
		}
		if handshakeTimeout > 0 {
			s.dialer.HandshakeTimeout = handshakeTimeout
		}
	}
}

// Session owns one visitor identity, one room registration and at most one
// websocket connection. A Session is never reconnected.
type Session struct {
	baseURL    *url.URL
	httpClient *http.Client
	dialer     *websocket.Dialer
	hooks      Hooks
	agentID    string
	strict     bool

	mu       sync.Mutex
	info     chat.Session
	joined   bool
	state    State
	stopping bool // Join's ctx was cancelled; the socket is going away
	conn     *websocket.Conn
	regErr   error
	done     chan struct{}

	// gorilla connections allow one concurrent writer; also orders Send
	// against the cancellation close frame
	writeMu sync.Mutex
}

// New prepares a session against the page origin baseURL (for example
// "http://localhost:8080"). The room id is fixed here.
func New(baseURL string, hooks Hooks, opts ...Option) (*Session, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	s := &Session{
		baseURL: base,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
			Jar:              jar,
		},
		hooks: hooks,
		info:  chat.Session{RoomID: NewRoomID()},
		state: StateUnopened,
		done:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Join registers the room and then opens the room socket. The socket is
// dialed once registration has settled, whatever its outcome, unless strict
// registration was requested. A registration failure is reported through
// Hooks.OnError and RegistrationErr.
//
// ctx bounds the whole connection lifetime: cancelling it closes the socket.
func (s *Session) Join(ctx context.Context, displayName, originURL string) error {
	s.mu.Lock()
	if s.joined {
		s.mu.Unlock()
		return ErrAlreadyJoined
	}
	s.joined = true
	s.info.DisplayName = displayName
	s.info.OriginURL = originURL
	info := s.info
	s.mu.Unlock()

	log.Printf("[client] joining room=%s as %q", info.RoomID, info.DisplayName)

	if err := s.register(ctx, info); err != nil {
		log.Printf("[client] %v", err)
		s.mu.Lock()
		s.regErr = err
		s.mu.Unlock()
		s.emitError(err)

		if s.strict {
			s.finish(nil)
			return err
		}
	}

	conn, err := s.dial(ctx, info.RoomID)
	if err != nil {
		s.finish(nil)
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateOpen
	s.mu.Unlock()

	log.Println("[client] chat socket has been opened")
	if s.hooks.OnOpen != nil {
		s.hooks.OnOpen()
	}

	go s.readLoop(ctx, conn)
	return nil
}

// Send writes a chat message to the room. When the connection is not open, or
// is shutting down after cancellation, the message is dropped and Send returns
// nil; only write failures are errors.
func (s *Session) Send(text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	conn, state, stopping, name := s.conn, s.state, s.stopping, s.info.DisplayName
	s.mu.Unlock()

	if state != StateOpen || conn == nil || stopping {
		if stopping && state == StateOpen {
			state = StateClosed
		}
		log.Printf("[client] dropping outbound message, connection is %s", state)
		return nil
	}

	msg := chat.NewOutboundMessage(name, text)
	msg.Agent = s.agentID

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// HandleFrame decodes one inbound frame and renders it when it is a chat
// message. Frames of other types are dropped.
func (s *Session) HandleFrame(raw []byte) {
	var frame chat.ChatMessage
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.reportMalformed(fmt.Errorf("%w: %v", ErrMalformedPayload, err))
		return
	}

	switch frame.Type {
	case "":
		s.reportMalformed(fmt.Errorf("%w: missing type", ErrMalformedPayload))
	case chat.TypeChatMessage:
		if s.hooks.OnMessage != nil {
			s.hooks.OnMessage(frame)
		}
	case chat.TypeError:
		log.Printf("[client] server rejected a frame: %s", frame.Message)
	}
}

// State reports where the room connection is in its lifecycle.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoomID returns the id shared by the registration call and the socket.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info.RoomID
}

// Info returns a copy of the session identity.
func (s *Session) Info() chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// RegistrationErr returns the create-room failure seen by Join, if any.
func (s *Session) RegistrationErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regErr
}

// Done is closed once the connection reaches StateClosed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) finish(cause error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	wasOpen := s.state == StateOpen
	s.state = StateClosed
	s.conn = nil
	close(s.done)
	s.mu.Unlock()

	if !wasOpen {
		return
	}

	if cause != nil {
		log.Printf("[client] chat socket closed: %v", cause)
	} else {
		log.Println("[client] chat socket has been closed")
	}
	if s.hooks.OnClose != nil {
		s.hooks.OnClose(cause)
	}
}

func (s *Session) reportMalformed(err error) {
	log.Printf("[client] dropping frame: %v", err)
	s.emitError(err)
}

func (s *Session) emitError(err error) {
	if s.hooks.OnError != nil {
		s.hooks.OnError(err)
	}
}
