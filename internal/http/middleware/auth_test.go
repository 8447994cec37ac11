package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, sub string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequireAuthAcceptsBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	logg, err := logger.New("test")
	require.NoError(t, err)
	am := NewAuthMiddleware(logg)

	userID := uuid.New()
	var seen uuid.UUID
	r := gin.New()
	r.GET("/protected", am.RequireAuth(), func(c *gin.Context) {
		seen = UserID(c)
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String(), time.Hour))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, seen)
}

func TestRequireAuthAcceptsQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	logg, err := logger.New("test")
	require.NoError(t, err)
	am := NewAuthMiddleware(logg)

	userID := uuid.New()
	r := gin.New()
	r.GET("/stream", am.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/stream?token="+signToken(t, testSecret, userID.String(), time.Hour), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthRejections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	logg, err := logger.New("test")
	require.NoError(t, err)
	am := NewAuthMiddleware(logg)

	r := gin.New()
	r.GET("/protected", am.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	cases := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong secret", signToken(t, "other-secret", uuid.New().String(), time.Hour)},
		{"expired", signToken(t, testSecret, uuid.New().String(), -time.Hour)},
		{"subject not uuid", signToken(t, testSecret, "not-a-uuid", time.Hour)},
		{"missing subject", signToken(t, testSecret, "", time.Hour)},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.name)
	}
}
