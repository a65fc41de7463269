package handlers

import (
	"clipstream-backend/domain/core/entities"
)

// videoResponse projects a video entity onto the wire shape. Membership sets
// go out as plain id lists.
func videoResponse(v *entities.Video) map[string]interface{} {
	return map[string]interface{}{
		"id":           v.ID,
		"ownerId":      v.OwnerID,
		"title":        v.Title,
		"desc":         v.Desc,
		"videoUrl":     v.VideoURL,
		"isPublic":     v.IsPublic,
		"likedBy":      v.LikedBy.Values(),
		"savedBy":      v.SavedBy.Values(),
		"sharedBy":     v.SharedBy.Values(),
		"comments":     v.Comments,
		"likes":        v.Likes,
		"saved":        v.Saved,
		"shared":       v.Shared,
		"commentCount": v.CommentCount,
		"views":        v.Views,
		"createdAt":    v.CreatedAt,
		"updatedAt":    v.UpdatedAt,
	}
}
