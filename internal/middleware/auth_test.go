package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"wayantrails/internal/pkg/jwt"
)

func protectedRouter(tokens *jwt.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWTAuth(tokens))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetInt64("user_id"),
			"role":    c.GetString("role"),
		})
	})
	return router
}

func TestJWTAuthValidToken(t *testing.T) {
	tokens := jwt.New("test-secret-123", time.Hour)
	token, _ := tokens.GenerateToken(42, jwt.RoleGuest)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protectedRouter(tokens).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":42`)
	assert.Contains(t, w.Body.String(), `"role":"guest"`)
}

func TestJWTAuthMissingToken(t *testing.T) {
	tokens := jwt.New("test-secret-123", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	protectedRouter(tokens).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tokens := jwt.New("test-secret-123", time.Hour)
	other := jwt.New("other-secret", time.Hour)
	token, _ := other.GenerateToken(42, jwt.RoleGuest)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protectedRouter(tokens).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStaffOnlyRejectsGuest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := jwt.New("test-secret-123", time.Hour)

	router := gin.New()
	router.Use(JWTAuth(tokens), StaffOnly())
	router.GET("/staff", func(c *gin.Context) { c.Status(http.StatusOK) })

	guestToken, _ := tokens.GenerateToken(5, jwt.RoleGuest)
	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+guestToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	staffToken, _ := tokens.GenerateToken(7, jwt.RoleStaff)
	req = httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalJWTAllowsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := jwt.New("test-secret-123", time.Hour)

	router := gin.New()
	router.Use(OptionalJWT(tokens))
	router.GET("/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64("user_id")})
	})

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":0`)

	token, _ := tokens.GenerateToken(9, jwt.RoleGuest)
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"user_id":9`)
}
