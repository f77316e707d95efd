package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/draftdeck/draftdeck/internal/media"
	"github.com/draftdeck/draftdeck/internal/shared"
	"github.com/draftdeck/draftdeck/pkg/logger"
	"github.com/draftdeck/draftdeck/pkg/middleware"
)

// RegisterShareRoutes wires share management for authenticated team members.
func RegisterShareRoutes(g *gin.RouterGroup, svc *shared.Service) {
	g.POST("/drafts/:id/share", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		var req struct {
			CanComment bool `json:"canComment"`
			TTLHours   int  `json:"ttlHours,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		share, err := svc.CreateShare(c.Request.Context(), id, c.Param("id"), req.CanComment, time.Duration(req.TTLHours)*time.Hour)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, share)
	})

	g.DELETE("/shares/:token", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		if err := svc.Revoke(c.Request.Context(), id, c.Param("token")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	g.POST("/comments/:id/resolve", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		var req struct {
			Resolved *bool `json:"resolved,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resolved := true
		if req.Resolved != nil {
			resolved = *req.Resolved
		}
		cm, err := svc.SetResolved(c.Request.Context(), id, c.Param("id"), resolved)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cm)
	})
}

// RegisterPublicShareRoutes wires the token-addressed endpoints. No auth
// middleware: the token is the credential. A nil store skips media URL
// resolution and the view carries opaque media ids only.
func RegisterPublicShareRoutes(r gin.IRouter, svc *shared.Service, store *media.Store) {
	r.GET("/shared/:token", func(c *gin.Context) {
		share, d, err := svc.Resolve(c.Request.Context(), c.Param("token"))
		if err != nil {
			writeError(c, err)
			return
		}
		out := gin.H{
			"draft":      d,
			"authorName": share.AuthorName,
			"canComment": share.CanComment,
			"expiresAt":  share.ExpiresAt,
		}
		if store != nil {
			var ids []string
			for _, p := range d.Posts {
				ids = append(ids, p.MediaIDs...)
			}
			if len(ids) > 0 {
				urls, err := store.ResolveURLs(c.Request.Context(), ids)
				if err != nil {
					logger.Warnf("media url resolution for share failed: %v", err)
				} else {
					out["mediaUrls"] = urls
				}
			}
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/shared/:token/comments", func(c *gin.Context) {
		comments, err := svc.Comments(c.Request.Context(), c.Param("token"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, comments)
	})

	r.POST("/shared/:token/comments", func(c *gin.Context) {
		var req struct {
			Content     string `json:"content"`
			DisplayName string `json:"displayName,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Authenticated teammates keep their identity on public routes too.
		id, _ := middleware.CallerIdentity(c)
		cm, err := svc.AddComment(c.Request.Context(), c.Param("token"), req.Content, id, req.DisplayName)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, cm)
	})
}
