package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/draftdeck/draftdeck/internal/identity"
)

const testSecret = "testsecret123456789012345678901234"

func signIdentityToken(t *testing.T, secret, sub, team, role, name string) string {
	t.Helper()
	claims := identityClaims{
		TeamID: team,
		Role:   role,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	g := gin.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	g := gin.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "BadHeader")
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_BadSignature(t *testing.T) {
	g := gin.New()
	token := signIdentityToken(t, "some-other-secret-value-entirely!!", "user1", "team1", "member", "Ada")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	g := gin.New()
	token := signIdentityToken(t, testSecret, "user1", "team1", "admin", "Ada")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(testSecret), func(c *gin.Context) {
		id, ok := CallerIdentity(c)
		require.True(t, ok)
		require.Equal(t, "user1", id.UserID)
		require.Equal(t, "team1", id.TeamID)
		require.Equal(t, identity.RoleAdmin, id.Role)
		require.Equal(t, "Ada", id.Name)
		c.Status(http.StatusOK)
	})
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
}

func TestAuthMiddleware_MissingTeamClaim(t *testing.T) {
	g := gin.New()
	token := signIdentityToken(t, testSecret, "user1", "", "member", "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()

	g.GET("/", AuthMiddleware(testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestInsecureAuthMiddleware(t *testing.T) {
	g := gin.New()
	g.GET("/", InsecureAuthMiddleware(), func(c *gin.Context) {
		id, ok := CallerIdentity(c)
		require.True(t, ok)
		require.Equal(t, "u1", id.UserID)
		require.Equal(t, identity.RoleMember, id.Role)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "u1")
	req.Header.Set("X-Team-ID", "t1")
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)

	// headers absent -> rejected
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	rw2 := httptest.NewRecorder()
	g.ServeHTTP(rw2, req2)
	require.Equal(t, http.StatusUnauthorized, rw2.Code)
}
