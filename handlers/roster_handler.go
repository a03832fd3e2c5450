package handlers

import (
	"net/http"

	"github.com/sideline-hq/sideline/middleware"
	"github.com/sideline-hq/sideline/services"
)

type RosterHandler struct {
	rosterService services.RosterService
}

func NewRosterHandler(rosterService services.RosterService) *RosterHandler {
	return &RosterHandler{rosterService: rosterService}
}

func (h *RosterHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input services.CreateRosterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	roster, err := h.rosterService.CreateRoster(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roster)
}

func (h *RosterHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rosterID, err := urlParamInt(r, "rosterID")
	if err != nil {
		badRequest(w, err)
		return
	}

	roster, err := h.rosterService.GetByID(r.Context(), rosterID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

func (h *RosterHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rosterID, err := urlParamInt(r, "rosterID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var input services.UpdateRosterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	roster, err := h.rosterService.Update(r.Context(), rosterID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

func (h *RosterHandler) ListDiscoverable(w http.ResponseWriter, r *http.Request) {
	rosters, err := h.rosterService.ListDiscoverable(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rosters)
}

func (h *RosterHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rosters, err := h.rosterService.ListMine(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rosters)
}

type playerRequest struct {
	PlayerID int `json:"player_id"`
}

func (h *RosterHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rosterID, err := urlParamInt(r, "rosterID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req playerRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.rosterService.AddPlayer(r.Context(), rosterID, userID, req.PlayerID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "player added"})
}

func (h *RosterHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rosterID, err := urlParamInt(r, "rosterID")
	if err != nil {
		badRequest(w, err)
		return
	}
	playerID, err := urlParamInt(r, "playerID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.rosterService.RemovePlayer(r.Context(), rosterID, userID, playerID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "player removed"})
}

func (h *RosterHandler) RecreateChat(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rosterID, err := urlParamInt(r, "rosterID")
	if err != nil {
		badRequest(w, err)
		return
	}

	chat, err := h.rosterService.RecreateRosterChat(r.Context(), rosterID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (h *RosterHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rosterID, err := urlParamInt(r, "rosterID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var input services.CreateEventInput
	if err := readJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	event, err := h.rosterService.CreateEvent(r.Context(), rosterID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *RosterHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rosterID, err := urlParamInt(r, "rosterID")
	if err != nil {
		badRequest(w, err)
		return
	}

	events, err := h.rosterService.ListEvents(r.Context(), rosterID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
