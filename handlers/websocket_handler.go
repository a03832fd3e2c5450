package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/sideline-hq/sideline/middleware"
	"github.com/sideline-hq/sideline/realtime"
	"github.com/sideline-hq/sideline/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub         *realtime.Hub
	chatService services.ChatService
	jwtSecret   string
	logger      *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, chatService services.ChatService, jwtSecret string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, chatService: chatService, jwtSecret: jwtSecret, logger: logger}
}

// Serve апгрейдит соединение и подписывает клиента на его комнаты.
// Браузерный websocket не умеет ставить заголовки, поэтому токен
// приходит query-параметром. Клиент всегда в своей user-комнате;
// параметр chat_id дополнительно подключает комнату конкретного чата
// (открытый экран разговора).
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.ParseToken(r.URL.Query().Get("token"), h.jwtSecret)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}
	rawID, ok := claims["user_id"].(float64)
	if !ok {
		http.Error(w, "invalid token claims", http.StatusUnauthorized)
		return
	}
	userID := int(rawID)

	rooms := []string{realtime.UserRoom(userID)}
	if chatParam := r.URL.Query().Get("chat_id"); chatParam != "" {
		chatID, convErr := strconv.Atoi(chatParam)
		if convErr != nil {
			http.Error(w, "invalid chat_id", http.StatusBadRequest)
			return
		}
		// Подписка на чужой чат отклоняется до апгрейда.
		if _, chatErr := h.chatService.GetByID(r.Context(), chatID, userID); chatErr != nil {
			mapServiceErrorToHTTP(w, chatErr)
			return
		}
		rooms = append(rooms, realtime.ChatRoom(chatID))
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &realtime.Client{
		Hub:   h.hub,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Rooms: rooms,
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
