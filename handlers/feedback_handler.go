package handlers

import (
	"net/http"

	"github.com/sideline-hq/sideline/middleware"
	"github.com/sideline-hq/sideline/models"
	"github.com/sideline-hq/sideline/services"
)

type FeedbackHandler struct {
	feedbackService services.FeedbackService
}

func NewFeedbackHandler(feedbackService services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input services.CreateFeedbackInput
	if err := readJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	feedback, err := h.feedbackService.Create(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, feedback)
}

func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.feedbackService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *FeedbackHandler) ToggleVote(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	feedbackID, err := urlParamInt(r, "feedbackID")
	if err != nil {
		badRequest(w, err)
		return
	}

	feedback, err := h.feedbackService.ToggleVote(r.Context(), feedbackID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

type updateStatusRequest struct {
	Status models.FeedbackStatus `json:"status"`
}

func (h *FeedbackHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	feedbackID, err := urlParamInt(r, "feedbackID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req updateStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.feedbackService.UpdateStatus(r.Context(), feedbackID, userID, req.Status); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "feedback status updated"})
}

type developerNoteRequest struct {
	Text string `json:"text"`
}

func (h *FeedbackHandler) AddDeveloperNote(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	feedbackID, err := urlParamInt(r, "feedbackID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req developerNoteRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.feedbackService.AddDeveloperNote(r.Context(), feedbackID, userID, req.Text); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "note added"})
}
