package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sideline-hq/sideline/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type errorResponse struct {
	Error string `json:"error"`
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, err.Error())
}

// urlParamInt достаёт целочисленный параметр из пути chi.
func urlParamInt(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return value, nil
}

// mapServiceErrorToHTTP транслирует доменные ошибки в статусы HTTP.
// Неизвестные ошибки не протекают наружу: клиент получает 500 без
// деталей, подробности остаются в логе.
func mapServiceErrorToHTTP(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrRosterNameRequired),
		errors.Is(err, services.ErrGroupNameRequired),
		errors.Is(err, services.ErrRecipientsRequired),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrInvalidCapacity),
		errors.Is(err, services.ErrCannotMessageSelf):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, services.ErrAuthInvalidCredentials),
		errors.Is(err, services.ErrReauthRequired):
		writeError(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrManagerActionForbidden),
		errors.Is(err, services.ErrNotChatParticipant),
		errors.Is(err, services.ErrNotGroupMember),
		errors.Is(err, services.ErrRoleForbidden),
		errors.Is(err, services.ErrOwnerOnly):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRosterNotFound),
		errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrChatNotFound),
		errors.Is(err, services.ErrRequestNotFound),
		errors.Is(err, services.ErrFeedbackNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, services.ErrAuthEmailTaken),
		errors.Is(err, services.ErrUserEmailConflict),
		errors.Is(err, services.ErrAlreadyOnRoster),
		errors.Is(err, services.ErrRequestConflict),
		errors.Is(err, services.ErrRosterFull),
		errors.Is(err, services.ErrLastOwner),
		errors.Is(err, services.ErrRequestNotPending):
		writeError(w, http.StatusConflict, err.Error())

	default:
		slog.Error("unhandled service error", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
