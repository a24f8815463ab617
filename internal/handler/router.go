package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/chatroom/internal/config"
	"github.com/zhouzirui/chatroom/internal/handler/room"
	middlewarePkg "github.com/zhouzirui/chatroom/internal/middleware"
	chatService "github.com/zhouzirui/chatroom/internal/service/chat"
	"github.com/zhouzirui/chatroom/pkg/utils"
)

// NewRouter wires HTTP routes to core services. agent may be nil, in which
// case rooms only relay messages between their connections.
func NewRouter(cfg *config.Config, chatSvc *chatService.Service, agent room.AgentResponder) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.Server.AllowedOrigins...))

	hub := room.NewHub()
	roomHandler := room.New(chatSvc, hub)
	wsHandler := room.NewWebSocketHandler(chatSvc, hub, agent, room.WebSocketConfig{
		PingInterval:   cfg.Server.PingInterval,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReplyTimeout:   cfg.AI.ReplyTimeout,
	})

	// The widget page; it exists to hand out the csrftoken cookie.
	r.With(middlewarePkg.EnsureCSRFCookie).Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.RequireCSRF)
		roomHandler.RegisterRoutes(api)
	})

	wsHandler.RegisterWebSocketRoutes(r)

	return r
}
