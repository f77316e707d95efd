package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/draftdeck/draftdeck/internal/media"
)

// RegisterMediaRoutes wires attachment upload and URL resolution onto the
// authenticated route group. Only registered when object storage is configured.
func RegisterMediaRoutes(g *gin.RouterGroup, store *media.Store) {
	g.POST("/media", func(c *gin.Context) {
		if _, ok := caller(c); !ok {
			return
		}
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
			return
		}
		defer file.Close()

		mediaID := uuid.NewString()
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := store.Upload(c.Request.Context(), mediaID, file, header.Size, contentType); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"mediaId": mediaID})
	})

	g.GET("/media/:id/url", func(c *gin.Context) {
		if _, ok := caller(c); !ok {
			return
		}
		u, err := store.ResolveURL(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mediaId": c.Param("id"), "url": u})
	})

	g.POST("/media/urls", func(c *gin.Context) {
		if _, ok := caller(c); !ok {
			return
		}
		var req struct {
			MediaIDs []string `json:"mediaIds"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		urls, err := store.ResolveURLs(c.Request.Context(), req.MediaIDs)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"urls": urls})
	})
}
