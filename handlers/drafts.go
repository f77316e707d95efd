package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/draftdeck/draftdeck/internal/draft"
	draftsvc "github.com/draftdeck/draftdeck/internal/draft/service"
	"github.com/draftdeck/draftdeck/internal/identity"
	"github.com/draftdeck/draftdeck/pkg/middleware"
)

type postInput struct {
	Content  string   `json:"content"`
	MediaIDs []string `json:"mediaIds,omitempty"`
}

func toPosts(in []postInput) []draft.Post {
	out := make([]draft.Post, 0, len(in))
	for _, p := range in {
		out = append(out, draft.Post{Content: p.Content, MediaIDs: p.MediaIDs})
	}
	return out
}

func caller(c *gin.Context) (identity.Identity, bool) {
	id, ok := middleware.CallerIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
	}
	return id, ok
}

// RegisterDraftRoutes wires the draft lifecycle endpoints onto the
// authenticated route group.
func RegisterDraftRoutes(g *gin.RouterGroup, svc *draftsvc.Service) {
	g.POST("/drafts", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		var req struct {
			Kind  string      `json:"kind"`
			Posts []postInput `json:"posts"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		kind := draft.Kind(req.Kind)
		if kind == "" {
			kind = draft.KindTweet
		}
		if kind != draft.KindTweet && kind != draft.KindThread {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown draft kind"})
			return
		}
		d, err := svc.Create(c.Request.Context(), id, kind, toPosts(req.Posts))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	})

	g.GET("/drafts", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		list, err := svc.Repo().ListByTeam(c.Request.Context(), id.TeamID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.GET("/drafts/:id", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		d, err := svc.Get(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})

	g.PUT("/drafts/:id", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		var req struct {
			Posts []postInput `json:"posts"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := svc.UpdateContent(c.Request.Context(), id, c.Param("id"), toPosts(req.Posts))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})

	g.POST("/drafts/:id/submit", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		d, err := svc.Submit(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})

	g.POST("/drafts/:id/review", func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		var req struct {
			Approve bool   `json:"approve"`
			Reason  string `json:"reason,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d, err := svc.Review(c.Request.Context(), id, c.Param("id"), req.Approve, req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})
}
