package room

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chatroom/internal/model/chat"
	chatservice "github.com/zhouzirui/chatroom/internal/service/chat"
)

const defaultReplyTimeout = 30 * time.Second

// AgentResponder answers visitors while no human agent is in the room.
type AgentResponder interface {
	Name() string
	Reply(ctx context.Context, room chat.Room, history []chat.ChatMessage) (string, error)
}

// WebSocketConfig tunes the room socket.
type WebSocketConfig struct {
	PingInterval   time.Duration
	AllowedOrigins []string
	ReplyTimeout   time.Duration
}

// WebSocketHandler serves /ws/{roomID}/ and relays chat messages between the
// connections of a room.
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	hub      *Hub
	agent    AgentResponder
	cfg      WebSocketConfig
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewWebSocketHandler 创建WebSocket处理器. agent may be nil.
func NewWebSocketHandler(chatSvc *chatservice.Service, hub *Hub, agent AgentResponder, cfg WebSocketConfig) *WebSocketHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = defaultReplyTimeout
	}

	h := &WebSocketHandler{
		chatSvc: chatSvc,
		hub:     hub,
		agent:   agent,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		now: time.Now,
	}
	h.upgrader.CheckOrigin = h.checkOrigin
	return h
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{roomID}/", h.handleWebSocket)
}

// checkOrigin accepts same-origin pages plus the configured embedding sites.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if slices.Contains(h.cfg.AllowedOrigins, origin) {
		return true
	}
	return strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://"), r.Host)
}

func (h *WebSocketHandler) pongWait() time.Duration {
	return h.cfg.PingInterval * 2
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	room, err := h.chatSvc.GetRoom(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, chatservice.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		log.Printf("[websocket] load room=%s failed: %v", roomID, err)
		http.Error(w, "room lookup failed", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	p := &peer{conn: conn}
	h.hub.join(room.ID, p)
	defer h.hub.leave(room.ID, p)

	log.Printf("[websocket] new connection for room: %s", room.ID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait()))
	})

	go h.pingLoop(ctx, p)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[websocket] read error: %v", err)
			}
			log.Printf("[websocket] connection closed for room: %s", room.ID)
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait()))

		if messageType != websocket.TextMessage {
			h.sendError(p, "binary frames are not supported")
			continue
		}

		h.handleMessage(ctx, &room, p, payload)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, room *chat.Room, p *peer, payload []byte) {
	var msg chat.OutboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.sendError(p, "malformed message")
		return
	}

	switch msg.Type {
	case chat.TypeMessage:
	case "":
		h.sendError(p, "message type is required")
		return
	default:
		h.sendError(p, "unsupported message type: "+msg.Type)
		return
	}

	if msg.Agent != "" {
		h.hub.markAgent(p)
		if room.Status != chat.RoomActive {
			if err := h.chatSvc.MarkActive(ctx, room.ID); err != nil {
				log.Printf("[websocket] mark room=%s active failed: %v", room.ID, err)
			} else {
				room.Status = chat.RoomActive
			}
		}
	}

	now := h.now()
	h.hub.broadcast(room.ID, chatservice.ComposeChatMessage(msg, now, now))

	if msg.Agent == "" && h.agent != nil && !h.hub.HumanAgentPresent(room.ID) {
		go h.autoReply(*room)
	}
}

// autoReply answers the room's latest visitor message. One reply runs per
// room at a time; messages that arrive meanwhile are folded into a single
// answer to the newest of them.
func (h *WebSocketHandler) autoReply(room chat.Room) {
	if !h.hub.beginReply(room.ID) {
		return
	}

	for {
		seq, history, ok := h.hub.replySnapshot(room.ID)
		if !ok || len(history) == 0 {
			h.hub.endReply(room.ID, seq)
			return
		}

		reply, err := h.requestReply(room, history)

		if !h.hub.replyCurrent(room.ID, seq) {
			// a newer visitor message is waiting; answer that one instead
			continue
		}

		switch {
		case err != nil:
			log.Printf("[websocket] auto reply for room=%s failed: %v", room.ID, err)
		case strings.TrimSpace(reply) == "":
		case h.hub.HumanAgentPresent(room.ID):
			log.Printf("[websocket] dropping auto reply for room=%s, an agent joined", room.ID)
		default:
			msg := chat.NewOutboundMessage(h.agent.Name(), reply)
			msg.Agent = "auto"
			now := h.now()
			h.hub.broadcast(room.ID, chatservice.ComposeChatMessage(msg, now, now))
		}

		if h.hub.endReply(room.ID, seq) {
			return
		}
	}
}

func (h *WebSocketHandler) requestReply(room chat.Room, history []chat.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.ReplyTimeout)
	defer cancel()
	return h.agent.Reply(ctx, room, history)
}

func (h *WebSocketHandler) sendError(p *peer, message string) {
	if err := p.writeJSON(chat.ErrorMessage{Type: chat.TypeError, Message: message}); err != nil {
		log.Printf("[websocket] write error failed: %v", err)
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, p *peer) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.ping(); err != nil {
				return
			}
		}
	}
}
