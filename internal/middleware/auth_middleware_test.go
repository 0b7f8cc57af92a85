package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func setupAuthRouter(educatorOnly bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	chain := []gin.HandlerFunc{JWTAuthMiddleware()}
	if educatorOnly {
		chain = append(chain, RequireEducator())
	}
	chain = append(chain, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/probe", chain...)
	return r
}

func TestJWTAuthMiddlewareSetsIdentity(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	gin.SetMode(gin.TestMode)

	var userID, role any
	r := gin.New()
	r.GET("/probe", JWTAuthMiddleware(), func(c *gin.Context) {
		userID, _ = c.Get("user_id")
		role, _ = c.Get("role")
		c.Status(http.StatusOK)
	})

	token := signToken(t, "testsecret", jwt.MapClaims{
		"sub":  "user_123",
		"role": "educator",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user_123", userID)
	assert.Equal(t, "educator", role)
}

func TestJWTAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	r := setupAuthRouter(false)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	r := setupAuthRouter(false)

	token := signToken(t, "othersecret", jwt.MapClaims{
		"sub": "user_123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	r := setupAuthRouter(false)

	token := signToken(t, "testsecret", jwt.MapClaims{
		"sub": "user_123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareRejectsMissingSubject(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	r := setupAuthRouter(false)

	token := signToken(t, "testsecret", jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireEducatorBlocksStudents(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	r := setupAuthRouter(true)

	token := signToken(t, "testsecret", jwt.MapClaims{
		"sub":  "user_123",
		"role": "student",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireEducatorAllowsEducators(t *testing.T) {
	t.Setenv("JWT_SECRET", "testsecret")
	r := setupAuthRouter(true)

	token := signToken(t, "testsecret", jwt.MapClaims{
		"sub":  "user_123",
		"role": "educator",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
