package handlers

import (
	"net/http"

	"github.com/sideline-hq/sideline/middleware"
	"github.com/sideline-hq/sideline/services"
)

type RequestHandler struct {
	requestService services.RequestService
}

func NewRequestHandler(requestService services.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

type createRequestRequest struct {
	RosterID int `json:"roster_id"`
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createRequestRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	request, err := h.requestService.CreateRequest(r.Context(), userID, req.RosterID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	requestID, err := urlParamInt(r, "requestID")
	if err != nil {
		badRequest(w, err)
		return
	}

	result, err := h.requestService.Approve(r.Context(), requestID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RequestHandler) Deny(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	requestID, err := urlParamInt(r, "requestID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.requestService.Deny(r.Context(), requestID, userID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "request denied"})
}

func (h *RequestHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requests, err := h.requestService.ListByManager(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *RequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requests, err := h.requestService.ListByUser(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}
