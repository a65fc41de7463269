package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clipstream-backend/application/ports"
	"clipstream-backend/application/services"
	"clipstream-backend/pkg/common"
)

// EngagementHandler exposes video engagement operations
type EngagementHandler struct {
	engagement *services.EngagementService
	logger     *zap.Logger
}

// NewEngagementHandler creates the engagement handler
func NewEngagementHandler(engagement *services.EngagementService, logger *zap.Logger) *EngagementHandler {
	return &EngagementHandler{engagement: engagement, logger: logger}
}

// Like handles POST /api/videos/{videoID}/like
func (h *EngagementHandler) Like(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.engagement.Like(r.Context(), chi.URLParam(r, "videoID"), caller); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "liked"})
}

// Unlike handles DELETE /api/videos/{videoID}/like
func (h *EngagementHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.engagement.Unlike(r.Context(), chi.URLParam(r, "videoID"), caller); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "unliked"})
}

// Save handles POST /api/videos/{videoID}/save
func (h *EngagementHandler) Save(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.engagement.Save(r.Context(), chi.URLParam(r, "videoID"), caller); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// Unsave handles DELETE /api/videos/{videoID}/save
func (h *EngagementHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.engagement.Unsave(r.Context(), chi.URLParam(r, "videoID"), caller); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "unsaved"})
}

// Share handles POST /api/videos/{videoID}/share
func (h *EngagementHandler) Share(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := h.engagement.Share(r.Context(), chi.URLParam(r, "videoID"), caller); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "shared"})
}

// CommentRequest is the payload for adding or editing a comment
type CommentRequest struct {
	Content string `json:"content" validate:"required,max=500"`
}

// AddComment handles POST /api/videos/{videoID}/comments
func (h *EngagementHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	comment, err := h.engagement.AddComment(r.Context(), chi.URLParam(r, "videoID"), caller, req.Content)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, comment)
}

// UpdateComment handles PUT /api/videos/{videoID}/comments/{commentID}
func (h *EngagementHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	comment, err := h.engagement.UpdateComment(r.Context(),
		chi.URLParam(r, "videoID"), chi.URLParam(r, "commentID"), caller, req.Content)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, comment)
}

// DeleteComment handles DELETE /api/videos/{videoID}/comments/{commentID}
func (h *EngagementHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	err := h.engagement.DeleteComment(r.Context(),
		chi.URLParam(r, "videoID"), chi.URLParam(r, "commentID"), caller)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ViewRequest reports how much of a video was watched
type ViewRequest struct {
	WatchDuration float64 `json:"watchDuration" validate:"gte=0"`
	TotalDuration float64 `json:"totalDuration" validate:"gt=0"`
}

// RecordView handles POST /api/videos/{videoID}/view
func (h *EngagementHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	result, err := h.engagement.RecordView(r.Context(), chi.URLParam(r, "videoID"), req.WatchDuration, req.TotalDuration)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// GetVideo handles GET /api/videos/{videoID}
func (h *EngagementHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := h.engagement.GetVideo(r.Context(), chi.URLParam(r, "videoID"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, videoResponse(video))
}

// ListVideos handles GET /api/videos
func (h *EngagementHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractPaginationParams(r)
	page, err := h.engagement.ListPublicVideos(r.Context(), ports.Page{
		Offset: params.Offset(),
		Limit:  params.Limit,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	h.respondVideoPage(w, r, page, params)
}

// ListUserVideos handles GET /api/users/{userID}/videos
func (h *EngagementHandler) ListUserVideos(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractPaginationParams(r)
	page, err := h.engagement.ListUserVideos(r.Context(), chi.URLParam(r, "userID"), ports.Page{
		Offset: params.Offset(),
		Limit:  params.Limit,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	h.respondVideoPage(w, r, page, params)
}

func (h *EngagementHandler) respondVideoPage(w http.ResponseWriter, r *http.Request, page *ports.VideoPage, params common.PaginationParams) {
	videos := make([]map[string]interface{}, 0, len(page.Videos))
	for _, v := range page.Videos {
		videos = append(videos, videoResponse(v))
	}

	common.RespondWithMeta(w, http.StatusOK, videos, &common.MetaInfo{
		RequestID:  common.ExtractRequestID(r),
		Pagination: common.BuildPaginationMeta(params.Page, params.Limit, page.Total),
	})
}
