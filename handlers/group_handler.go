package handlers

import (
	"context"
	"net/http"

	"github.com/sideline-hq/sideline/middleware"
	"github.com/sideline-hq/sideline/services"
)

type GroupHandler struct {
	groupService services.GroupService
}

func NewGroupHandler(groupService services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input services.CreateGroupInput
	if err := readJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	group, err := h.groupService.CreateGroup(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, err := urlParamInt(r, "groupID")
	if err != nil {
		badRequest(w, err)
		return
	}

	group, err := h.groupService.GetByID(r.Context(), groupID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	groups, err := h.groupService.ListMine(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *GroupHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupService.ListPublic(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

type memberRequest struct {
	UserID int `json:"user_id"`
}

func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, err := urlParamInt(r, "groupID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req memberRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.groupService.AddMember(r.Context(), groupID, actorID, req.UserID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "member added"})
}

func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, err := urlParamInt(r, "groupID")
	if err != nil {
		badRequest(w, err)
		return
	}
	targetID, err := urlParamInt(r, "userID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.groupService.RemoveMember(r.Context(), groupID, actorID, targetID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "member removed"})
}

func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, err := urlParamInt(r, "groupID")
	if err != nil {
		badRequest(w, err)
		return
	}

	if err := h.groupService.LeaveGroup(r.Context(), groupID, userID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left group"})
}

func (h *GroupHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.groupService.PromoteMember, "member promoted")
}

func (h *GroupHandler) Demote(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.groupService.DemoteMember, "member demoted")
}

func (h *GroupHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.groupService.TransferOwnership, "ownership transferred")
}

// changeRole — общий каркас ролевых мутаций: promote/demote/transfer
// отличаются только вызываемой операцией сервиса.
func (h *GroupHandler) changeRole(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, groupID, actorID, targetID int) error,
	status string,
) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, err := urlParamInt(r, "groupID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var req memberRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if err := op(r.Context(), groupID, actorID, req.UserID); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *GroupHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, err := urlParamInt(r, "groupID")
	if err != nil {
		badRequest(w, err)
		return
	}

	var input services.CreatePostInput
	if err := readJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	post, err := h.groupService.CreatePost(r.Context(), groupID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *GroupHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, err := urlParamInt(r, "groupID")
	if err != nil {
		badRequest(w, err)
		return
	}

	posts, err := h.groupService.ListPosts(r.Context(), groupID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *GroupHandler) UploadPostImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID, err := urlParamInt(r, "groupID")
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

	url, err := h.groupService.UploadPostImage(r.Context(), groupID, userID,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"image_url": url})
}
