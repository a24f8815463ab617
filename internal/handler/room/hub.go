package room

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chatroom/internal/model/chat"
)

const (
	historyLimit = 10
	writeWait    = 10 * time.Second
)

// peer is one websocket connection inside a room.
type peer struct {
	conn *websocket.Conn

	mu    sync.Mutex
	agent bool
}

func (p *peer) writeJSON(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(v)
}

func (p *peer) ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

type roomGroup struct {
	// sendMu keeps every peer seeing the room's messages in the same order.
	sendMu  sync.Mutex
	peers   map[*peer]struct{}
	history []chat.ChatMessage

	// visitorSeq counts visitor messages; replying marks an auto-reply in flight.
	visitorSeq uint64
	replying   bool
}

// Hub tracks the live connections of every room and fans messages out to them.
// Room history lives only as long as the room has connections.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*roomGroup
}

// NewHub 创建房间连接中心
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*roomGroup)}
}

func (h *Hub) join(roomID string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.rooms[roomID]
	if !ok {
		group = &roomGroup{peers: make(map[*peer]struct{})}
		h.rooms[roomID] = group
	}
	group.peers[p] = struct{}{}
}

func (h *Hub) leave(roomID string, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(group.peers, p)
	if len(group.peers) == 0 {
		delete(h.rooms, roomID)
	}
}

// markAgent records that p speaks for the support side of the room.
func (h *Hub) markAgent(p *peer) {
	p.mu.Lock()
	p.agent = true
	p.mu.Unlock()
}

// broadcast appends msg to the room history and writes it to every peer.
func (h *Hub) broadcast(roomID string, msg chat.ChatMessage) {
	h.mu.Lock()
	group, ok := h.rooms[roomID]
	h.mu.Unlock()
	if !ok {
		return
	}

	group.sendMu.Lock()
	defer group.sendMu.Unlock()

	h.mu.Lock()
	if !msg.Agent {
		group.visitorSeq++
	}
	group.history = append(group.history, msg)
	if len(group.history) > historyLimit {
		group.history = group.history[len(group.history)-historyLimit:]
	}
	peers := make([]*peer, 0, len(group.peers))
	for p := range group.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		if err := p.writeJSON(msg); err != nil {
			log.Printf("[room] broadcast to room=%s failed: %v", roomID, err)
		}
	}
}

// History returns a copy of the room's recent messages, oldest first.
func (h *Hub) History(roomID string) []chat.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]chat.ChatMessage, len(group.history))
	copy(out, group.history)
	return out
}

// Members returns the number of live connections in the room.
func (h *Hub) Members(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if group, ok := h.rooms[roomID]; ok {
		return len(group.peers)
	}
	return 0
}

// HumanAgentPresent reports whether a connected peer has spoken as an agent.
func (h *Hub) HumanAgentPresent(roomID string) bool {
	h.mu.Lock()
	group, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	peers := make([]*peer, 0, len(group.peers))
	for p := range group.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		p.mu.Lock()
		agent := p.agent
		p.mu.Unlock()
		if agent {
			return true
		}
	}
	return false
}

// beginReply claims the room's single auto-reply slot.
func (h *Hub) beginReply(roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.rooms[roomID]
	if !ok || group.replying {
		return false
	}
	group.replying = true
	return true
}

// replySnapshot returns the visitor message count together with the history
// it describes.
func (h *Hub) replySnapshot(roomID string) (uint64, []chat.ChatMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.rooms[roomID]
	if !ok {
		return 0, nil, false
	}
	history := make([]chat.ChatMessage, len(group.history))
	copy(history, group.history)
	return group.visitorSeq, history, true
}

// replyCurrent reports whether no visitor message arrived after seq.
func (h *Hub) replyCurrent(roomID string, seq uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.rooms[roomID]
	return ok && group.visitorSeq == seq
}

// endReply releases the slot unless a visitor spoke after seq, in which case
// the holder keeps it and must answer again.
func (h *Hub) endReply(roomID string, seq uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.rooms[roomID]
	if !ok {
		return true
	}
	if group.visitorSeq != seq {
		return false
	}
	group.replying = false
	return true
}
