package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"github.com/draftdeck/draftdeck/internal/draft"
	"github.com/draftdeck/draftdeck/internal/schedule"
	"github.com/draftdeck/draftdeck/internal/shared"
	"github.com/draftdeck/draftdeck/pkg/logger"
)

// writeError translates service errors into HTTP responses. Unknown errors
// are logged and hidden behind a generic 500.
func writeError(c *gin.Context, err error) {
	var vErr *draft.ValidationError
	var dupErr *draft.DuplicateContentError
	var transErr *draft.InvalidTransitionError
	var neErr *draft.NotEditableError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.As(err, &dupErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":              "duplicate content",
			"contentHash":        dupErr.Hash,
			"conflictingDraftId": dupErr.ConflictingID,
		})
	case errors.As(err, &neErr):
		c.JSON(http.StatusConflict, gin.H{"error": neErr.Error(), "status": string(neErr.Status)})
	case errors.As(err, &transErr):
		c.JSON(http.StatusConflict, gin.H{
			"error": transErr.Error(),
			"from":  string(transErr.From),
			"to":    string(transErr.To),
		})
	case errors.Is(err, draft.ErrNotFound),
		errors.Is(err, schedule.ErrSlotNotFound),
		errors.Is(err, shared.ErrTokenNotFound),
		errors.Is(err, shared.ErrCommentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case minio.ToErrorResponse(err).Code == "NoSuchKey":
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
	case errors.Is(err, draft.ErrNotPermitted):
		c.JSON(http.StatusForbidden, gin.H{"error": "not permitted"})
	case errors.Is(err, shared.ErrCommentsDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "comments are disabled for this share"})
	case errors.Is(err, shared.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{"error": "share link expired"})
	case errors.Is(err, draft.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent modification, retry"})
	case errors.Is(err, schedule.ErrNoCapacity):
		c.JSON(http.StatusConflict, gin.H{"error": "no capacity in scheduling horizon"})
	default:
		logger.Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
