package handler

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

const (
	testUserSecret    = "user-secret"
	testServiceSecret = "service-secret"
)

func userToken(t *testing.T, role string) string {
	claims := JWTClaims{
		UserID:   "user-123",
		Email:    "user@example.com",
		RoleName: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testUserSecret))
	require.NoError(t, err)
	return token
}

func serviceToken(t *testing.T, secret, scope string) string {
	claims := ServiceClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "moderation-console",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	m := NewAuthMiddleware(testUserSecret, testServiceSecret)

	router.GET("/user", m.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	router.GET("/admin", m.Authenticate(), m.RequireModerator(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/internal", m.AuthenticateService(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString("service_subject")})
	})

	return router
}

func getWithToken(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_ValidToken(t *testing.T) {
	router := setupAuthRouter()

	w := getWithToken(router, "/user", userToken(t, "user"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-123")
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	router := setupAuthRouter()

	w := getWithToken(router, "/user", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	router := setupAuthRouter()

	claims := JWTClaims{UserID: "user-123", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	w := getWithToken(router, "/user", forged)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	router := setupAuthRouter()

	claims := JWTClaims{UserID: "user-123", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testUserSecret))
	require.NoError(t, err)

	w := getWithToken(router, "/user", expired)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireModerator_AllowsModeratorAndAdmin(t *testing.T) {
	router := setupAuthRouter()

	assert.Equal(t, http.StatusOK, getWithToken(router, "/admin", userToken(t, "moderator")).Code)
	assert.Equal(t, http.StatusOK, getWithToken(router, "/admin", userToken(t, "admin")).Code)
}

func TestRequireModerator_RejectsRegularUser(t *testing.T) {
	router := setupAuthRouter()

	w := getWithToken(router, "/admin", userToken(t, "user"))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthenticateService_ValidCredential(t *testing.T) {
	router := setupAuthRouter()

	w := getWithToken(router, "/internal", serviceToken(t, testServiceSecret, "moderation:internal"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "moderation-console")
}

func TestAuthenticateService_RejectsUserToken(t *testing.T) {
	router := setupAuthRouter()

	// Модераторский JWT не открывает author lookup: секреты разные
	w := getWithToken(router, "/internal", userToken(t, "moderator"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateService_RejectsWrongScope(t *testing.T) {
	router := setupAuthRouter()

	w := getWithToken(router, "/internal", serviceToken(t, testServiceSecret, "catalog:read"))

	assert.Equal(t, http.StatusForbidden, w.Code)
}
