package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haydnphilipdesign/coversheet-service/config"
	"github.com/haydnphilipdesign/coversheet-service/pkg/helpers"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := helpers.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	cfg := &config.Config{
		AdminEmail:        "desk@example.com",
		AdminPasswordHash: hash,
		CookieDomain:      "localhost",
		AccessTTL:         time.Hour,
		RefreshTTL:        24 * time.Hour,
	}
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", cfg.AccessTTL, cfg.RefreshTTL)

	h := NewAuthHandler(nil, logrus.New(), cfg, jwt)
	r := gin.New()
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/logout", h.Logout)
	return r
}

func login(r *gin.Engine, email, password string) *httptest.ResponseRecorder {
	b, _ := json.Marshal(gin.H{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogin_Success(t *testing.T) {
	r := newAuthRouter(t)

	w := login(r, "desk@example.com", "correct horse battery staple")
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, c := range cookies {
		names[c.Name] = c.Value != ""
	}
	assert.True(t, names["access_token"])
	assert.True(t, names["refresh_token"])
}

func TestLogin_WrongPassword(t *testing.T) {
	r := newAuthRouter(t)

	w := login(r, "desk@example.com", "nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnknownEmail(t *testing.T) {
	r := newAuthRouter(t)

	w := login(r, "somebody@example.com", "correct horse battery staple")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_InvalidPayload(t *testing.T) {
	r := newAuthRouter(t)

	w := login(r, "not-an-email", "pw")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout_ClearsCookies(t *testing.T) {
	r := newAuthRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value)
	}
}
