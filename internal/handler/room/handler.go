package room

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/chatroom/internal/model/chat"
	chatservice "github.com/zhouzirui/chatroom/internal/service/chat"
	"github.com/zhouzirui/chatroom/pkg/utils"
)

// Handler 房间注册的HTTP处理器
type Handler struct {
	chatSvc *chatservice.Service
	hub     *Hub
}

// New 创建房间处理器
func New(chatSvc *chatservice.Service, hub *Hub) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		hub:     hub,
	}
}

// RegisterRoutes 注册房间相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/create-room/{roomID}", h.handleCreateRoom)
	r.Get("/rooms", h.handleListRooms)
}

// handleCreateRoom accepts urlencoded or multipart forms with name and url.
func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	name := r.PostFormValue("name")
	url := r.PostFormValue("url")

	room, created, err := h.chatSvc.CreateRoom(r.Context(), roomID, name, url)
	if err != nil {
		if errors.Is(err, chatservice.ErrRoomIDRequired) || errors.Is(err, chatservice.ErrInvalidRoomID) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[room] create room=%s failed: %v", roomID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	if !created {
		utils.RespondMessage(w, http.StatusOK, "room already exists", "room", room)
		return
	}

	log.Printf("[room] created room=%s client=%q", room.ID, room.Client)
	utils.RespondMessage(w, http.StatusCreated, "room created", "room", room)
}

type roomView struct {
	chat.Room
	Members int `json:"members"`
}

func (h *Handler) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.chatSvc.ListRooms(r.Context())
	if err != nil {
		log.Printf("[room] list rooms failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	views := make([]roomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, roomView{Room: room, Members: h.hub.Members(room.ID)})
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"rooms": views})
}
