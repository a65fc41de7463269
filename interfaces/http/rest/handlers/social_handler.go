package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"clipstream-backend/application/ports"
	"clipstream-backend/application/services"
	"clipstream-backend/interfaces/http/rest/middleware"
	"clipstream-backend/pkg/common"
)

var validate = validator.New()

// SocialHandler exposes the social graph operations
type SocialHandler struct {
	social *services.SocialGraphService
	logger *zap.Logger
}

// NewSocialHandler creates the social graph handler
func NewSocialHandler(social *services.SocialGraphService, logger *zap.Logger) *SocialHandler {
	return &SocialHandler{social: social, logger: logger}
}

func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return "", false
	}
	return id, true
}

// Follow handles POST /api/users/{userID}/follow
func (h *SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	target := chi.URLParam(r, "userID")

	if err := h.social.Follow(r.Context(), caller, target); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "following"})
}

// Unfollow handles DELETE /api/users/{userID}/follow
func (h *SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	target := chi.URLParam(r, "userID")

	if err := h.social.Unfollow(r.Context(), caller, target); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "unfollowed"})
}

// SendFriendRequest handles POST /api/users/{userID}/friend-request
func (h *SocialHandler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	receiver := chi.URLParam(r, "userID")

	if err := h.social.SendFriendRequest(r.Context(), caller, receiver); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "request_sent"})
}

// AcceptFriendRequest handles POST /api/users/{userID}/friend-request/accept.
// The path user is the request sender; the caller is the receiver accepting.
func (h *SocialHandler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	sender := chi.URLParam(r, "userID")

	if err := h.social.AcceptFriendRequest(r.Context(), caller, sender); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// RejectFriendRequest handles POST /api/users/{userID}/friend-request/reject
func (h *SocialHandler) RejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	sender := chi.URLParam(r, "userID")

	if err := h.social.RejectFriendRequest(r.Context(), caller, sender); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// GetFollowers handles GET /api/users/{userID}/followers
func (h *SocialHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.social.GetFollowers(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, profiles)
}

// GetFollowing handles GET /api/users/{userID}/following
func (h *SocialHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.social.GetFollowing(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, profiles)
}

// GetFriends handles GET /api/users/{userID}/friends
func (h *SocialHandler) GetFriends(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.social.GetFriends(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, profiles)
}

// GetPendingRequests handles GET /api/users/me/friend-requests
func (h *SocialHandler) GetPendingRequests(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	profiles, err := h.social.GetPendingRequests(r.Context(), caller)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, profiles)
}

// UpdateProfileRequest is the payload for PUT /api/users/me
type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=30"`
	Avatar   *string `json:"avatar" validate:"omitempty,url"`
	Bio      *string `json:"bio" validate:"omitempty,max=200"`
}

// GetProfile handles GET /api/users/{userID}
func (h *SocialHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.social.GetProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/users/me
func (h *SocialHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	profile, err := h.social.UpdateProfile(r.Context(), caller, ports.ProfilePatch{
		Username: req.Username,
		Avatar:   req.Avatar,
		Bio:      req.Bio,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, profile)
}
