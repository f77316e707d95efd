package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/draftdeck/draftdeck/internal/identity"
)

// IdentityKey is the gin context key the identity middleware populates.
const IdentityKey = "identity"

type identityClaims struct {
	TeamID string `json:"team"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies Bearer tokens signed with the shared secret and
// places the resolved identity on the request context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		var raw string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &raw); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		claims := &identityClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, keyFunc)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.Subject == "" || claims.TeamID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing identity claims"})
			return
		}

		c.Set(IdentityKey, identity.Identity{
			UserID: claims.Subject,
			TeamID: claims.TeamID,
			Role:   identity.Role(claims.Role),
			Name:   claims.Name,
		})
		c.Next()
	}
}

// InsecureAuthMiddleware trusts identity from plain headers. Dev and test only.
func InsecureAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		teamID := c.GetHeader("X-Team-ID")
		if userID == "" || teamID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity headers"})
			return
		}
		role := c.GetHeader("X-User-Role")
		if role == "" {
			role = string(identity.RoleMember)
		}
		c.Set(IdentityKey, identity.Identity{
			UserID: userID,
			TeamID: teamID,
			Role:   identity.Role(role),
			Name:   c.GetHeader("X-User-Name"),
		})
		c.Next()
	}
}

// CallerIdentity returns the identity set by the auth middleware.
func CallerIdentity(c *gin.Context) (identity.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}
