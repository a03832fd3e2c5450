package handlers

import (
	"context"
	"net/http"

	"github.com/sideline-hq/sideline/middleware"
	"github.com/sideline-hq/sideline/services"
)

type ChatHandler struct {
	chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type createChatRequest struct {
	Name   string   `json:"name,omitempty"`
	Emails []string `json:"emails"`
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createChatRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	chat, err := h.chatService.CreateChat(r.Context(), userID, req.Name, req.Emails)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	chatID, err := urlParamInt(r, "chatID")
	if err != nil {
		badRequest(w, err)
		return
	}

	chat, err := h.chatService.GetByID(r.Context(), chatID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	chats, err := h.chatService.ListMine(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	chatID, err := urlParamInt(r, "chatID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var input services.SendMessageInput
	if err := readJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	message, err := h.chatService.SendMessage(r.Context(), chatID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	chatID, err := urlParamInt(r, "chatID")
	if err != nil {
		badRequest(w, err)
		return
	}

	messages, err := h.chatService.ListMessages(r.Context(), chatID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, h.chatService.MarkChatAsRead, "chat marked as read")
}

func (h *ChatHandler) Hide(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, h.chatService.HideChat, "chat hidden")
}

func (h *ChatHandler) Unhide(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, h.chatService.UnhideChat, "chat unhidden")
}

func (h *ChatHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, h.chatService.LeaveChat, "left chat")
}

func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.simpleAction(w, r, h.chatService.ClearHistory, "history cleared")
}

func (h *ChatHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	chatID, err := urlParamInt(r, "chatID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	url, err := h.chatService.UploadAttachment(r.Context(), chatID, userID,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"image_url": url})
}

// simpleAction — общий каркас операций над чатом без тела запроса.
func (h *ChatHandler) simpleAction(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, chatID, userID int) error,
	status string,
) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	chatID, err := urlParamInt(r, "chatID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := op(r.Context(), chatID, userID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}
