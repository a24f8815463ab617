package room

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chatroom/internal/model/chat"
	"github.com/zhouzirui/chatroom/internal/repository"
	chatservice "github.com/zhouzirui/chatroom/internal/service/chat"
)

type fakeResponder struct {
	reply string
	delay time.Duration
	seen  chan []chat.ChatMessage
}

func (f *fakeResponder) Name() string { return "Helper Bot" }

// Reply echoes the last message when no fixed reply is set.
func (f *fakeResponder) Reply(ctx context.Context, room chat.Room, history []chat.ChatMessage) (string, error) {
	f.seen <- history
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "re: " + history[len(history)-1].Message, nil
}

type wsFixture struct {
	srv     *httptest.Server
	chatSvc *chatservice.Service
	hub     *Hub
}

func newWSFixture(t *testing.T, agent AgentResponder) *wsFixture {
	t.Helper()

	chatSvc := chatservice.NewService(repository.NewMemoryRoomRepository())
	hub := NewHub()
	ws := NewWebSocketHandler(chatSvc, hub, agent, WebSocketConfig{PingInterval: time.Second})

	r := chi.NewRouter()
	ws.RegisterWebSocketRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &wsFixture{srv: srv, chatSvc: chatSvc, hub: hub}
}

func (f *wsFixture) createRoom(t *testing.T, roomID string) {
	t.Helper()
	if _, _, err := f.chatSvc.CreateRoom(context.Background(), roomID, "Ada", "http://shop.example"); err != nil {
		t.Fatalf("CreateRoom err: %v", err)
	}
}

func (f *wsFixture) dial(t *testing.T, roomID string) *websocket.Conn {
	t.Helper()
	target := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/" + roomID + "/"
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readChat(t *testing.T, conn *websocket.Conn) chat.ChatMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg chat.ChatMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func waitMembers(t *testing.T, hub *Hub, roomID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Members(roomID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d members, got %d", want, hub.Members(roomID))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketUnknownRoom(t *testing.T) {
	f := newWSFixture(t, nil)

	target := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/missing/"
	_, resp, err := websocket.DefaultDialer.Dial(target, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", resp)
	}
}

func TestWebSocketBroadcastsToRoom(t *testing.T) {
	f := newWSFixture(t, nil)
	f.createRoom(t, "room1")
	f.createRoom(t, "room2")

	visitor := f.dial(t, "room1")
	agent := f.dial(t, "room1")
	other := f.dial(t, "room2")
	waitMembers(t, f.hub, "room1", 2)

	if err := visitor.WriteJSON(chat.NewOutboundMessage("Ada Lovelace", "hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, conn := range []*websocket.Conn{visitor, agent} {
		msg := readChat(t, conn)
		if msg.Type != chat.TypeChatMessage || msg.Message != "hello" || msg.Agent {
			t.Fatalf("unexpected frame %+v", msg)
		}
		if msg.Initials != "AL" || msg.CreatedAt != "now" {
			t.Fatalf("unexpected decoration %+v", msg)
		}
	}

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatal("message leaked into another room")
	}
}

func TestWebSocketAgentMessageActivatesRoom(t *testing.T) {
	f := newWSFixture(t, nil)
	f.createRoom(t, "room1")

	agent := f.dial(t, "room1")
	msg := chat.NewOutboundMessage("Support", "how can I help?")
	msg.Agent = "42"
	if err := agent.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := readChat(t, agent)
	if !got.Agent {
		t.Fatalf("expected agent frame, got %+v", got)
	}

	room, err := f.chatSvc.GetRoom(context.Background(), "room1")
	if err != nil {
		t.Fatalf("GetRoom err: %v", err)
	}
	if room.Status != chat.RoomActive {
		t.Fatalf("expected active room, got %q", room.Status)
	}
	if !f.hub.HumanAgentPresent("room1") {
		t.Fatal("expected human agent to be present")
	}
}

func TestWebSocketRejectsBadFrames(t *testing.T) {
	f := newWSFixture(t, nil)
	f.createRoom(t, "room1")
	conn := f.dial(t, "room1")

	cases := map[string]string{
		`not json`:          "malformed message",
		`{"message":"hi"}`:  "message type is required",
		`{"type":"typing"}`: "unsupported message type: typing",
	}
	for frame, want := range cases {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got chat.ErrorMessage
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read: %v", err)
		}
		if got.Type != chat.TypeError || got.Message != want {
			t.Fatalf("frame %q: unexpected reply %+v", frame, got)
		}
	}
}

func TestWebSocketHistoryIsBounded(t *testing.T) {
	f := newWSFixture(t, nil)
	f.createRoom(t, "room1")
	conn := f.dial(t, "room1")

	for i := 0; i < historyLimit+2; i++ {
		text := string(rune('a' + i))
		if err := conn.WriteJSON(chat.NewOutboundMessage("Ada", text)); err != nil {
			t.Fatalf("write: %v", err)
		}
		readChat(t, conn)
	}

	history := f.hub.History("room1")
	if len(history) != historyLimit {
		t.Fatalf("expected %d messages, got %d", historyLimit, len(history))
	}
	if history[0].Message != "c" || history[len(history)-1].Message != "l" {
		t.Fatalf("unexpected window %q..%q", history[0].Message, history[len(history)-1].Message)
	}

	conn.Close()
	waitMembers(t, f.hub, "room1", 0)
	if got := f.hub.History("room1"); got != nil {
		t.Fatalf("expected history dropped with the room, got %d messages", len(got))
	}
}

func TestWebSocketAutoReply(t *testing.T) {
	bot := &fakeResponder{reply: "We will be right with you.", seen: make(chan []chat.ChatMessage, 1)}
	f := newWSFixture(t, bot)
	f.createRoom(t, "room1")
	visitor := f.dial(t, "room1")

	if err := visitor.WriteJSON(chat.NewOutboundMessage("Ada", "is anyone there?")); err != nil {
		t.Fatalf("write: %v", err)
	}

	echo := readChat(t, visitor)
	if echo.Message != "is anyone there?" {
		t.Fatalf("unexpected echo %+v", echo)
	}

	select {
	case history := <-bot.seen:
		if len(history) == 0 || history[len(history)-1].Message != "is anyone there?" {
			t.Fatalf("unexpected history %+v", history)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("responder was not called")
	}

	reply := readChat(t, visitor)
	if !reply.Agent || reply.Name != "Helper Bot" || reply.Message != "We will be right with you." {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if reply.Initials != "HB" {
		t.Fatalf("unexpected initials %q", reply.Initials)
	}
}

func TestWebSocketAutoReplyAnswersBurstOnce(t *testing.T) {
	bot := &fakeResponder{delay: 100 * time.Millisecond, seen: make(chan []chat.ChatMessage, 8)}
	f := newWSFixture(t, bot)
	f.createRoom(t, "room1")
	visitor := f.dial(t, "room1")

	for _, text := range []string{"a", "b", "c"} {
		if err := visitor.WriteJSON(chat.NewOutboundMessage("Ada", text)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	var replies []chat.ChatMessage
	deadline := time.Now().Add(600 * time.Millisecond)
	for {
		_ = visitor.SetReadDeadline(deadline)
		var msg chat.ChatMessage
		if err := visitor.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Agent {
			replies = append(replies, msg)
		}
	}

	if len(replies) != 1 {
		t.Fatalf("expected one reply for the burst, got %d: %+v", len(replies), replies)
	}
	if replies[0].Message != "re: c" {
		t.Fatalf("expected the newest message to be answered, got %q", replies[0].Message)
	}
	if calls := len(bot.seen); calls > 2 {
		t.Fatalf("expected at most two sequential responder calls, got %d", calls)
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewWebSocketHandler(nil, NewHub(), nil, WebSocketConfig{AllowedOrigins: []string{"http://shop.example"}})

	cases := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "http://chat.example", want: true},
		{origin: "http://shop.example", want: true},
		{origin: "http://evil.example", want: false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://chat.example/ws/x/", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if got := h.checkOrigin(req); got != tc.want {
			t.Fatalf("origin %q: expected %v, got %v", tc.origin, tc.want, got)
		}
	}
}
