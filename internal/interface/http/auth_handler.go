package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/haydnphilipdesign/coversheet-service/config"
	"github.com/haydnphilipdesign/coversheet-service/pkg/helpers"
	"github.com/haydnphilipdesign/coversheet-service/pkg/response"
	"github.com/haydnphilipdesign/coversheet-service/pkg/validation"
)

// OperatorID is the subject used for the single coordination-desk account.
// There is no user table; credentials come from the environment.
const OperatorID = "operator"

type AuthHandler struct {
	RDB     *redis.Client
	Logger  *logrus.Logger
	Cfg     *config.Config
	JWT     *helpers.JWTManager
	Cookies *helpers.Manager
}

func NewAuthHandler(rdb *redis.Client, logger *logrus.Logger, cfg *config.Config, jwt *helpers.JWTManager) *AuthHandler {
	return &AuthHandler{
		RDB:     rdb,
		Logger:  logger,
		Cfg:     cfg,
		JWT:     jwt,
		Cookies: helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
	}
}

func sessionKey(uid string) string { return "operator:session:" + uid }

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type session struct {
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if h.Cfg.AdminEmail == "" || h.Cfg.AdminPasswordHash == "" {
		response.Error[any](c, http.StatusInternalServerError, "operator account is not configured", nil)
		return
	}
	if req.Email != h.Cfg.AdminEmail || !helpers.CompareHashAndPassword(h.Cfg.AdminPasswordHash, req.Password) {
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	access, aexp, err := h.JWT.GenerateAccessToken(OperatorID)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "token generation failed", nil)
		return
	}
	refresh, rexp, err := h.JWT.GenerateRefreshToken(OperatorID)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "token generation failed", nil)
		return
	}

	if h.RDB != nil {
		sess := session{RefreshToken: refresh, IssuedAt: time.Now().UTC()}
		if err := helpers.RedisSetJSON(c, h.RDB, sessionKey(OperatorID), sess, h.Cfg.RefreshTTL); err != nil {
			h.Logger.WithError(err).Warn("failed to store session")
		}
	}

	h.Cookies.SetPair(c, access, aexp, refresh, rexp)
	response.Success(c, http.StatusOK, gin.H{"email": req.Email}, "login successful",
		map[string]any{"access_expires_at": aexp, "refresh_expires_at": rexp})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie("refresh_token")
	if err != nil || refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	claims, err := h.JWT.ParseRefreshToken(refresh)
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	uid := claims.UserID
	if h.RDB != nil {
		var sess session
		found, gerr := helpers.RedisGetJSON(c, h.RDB, sessionKey(uid), &sess)
		if gerr != nil || !found || sess.RefreshToken != refresh {
			response.Error[any](c, http.StatusUnauthorized, "session expired", nil)
			return
		}
	}

	access, aexp, err := h.JWT.GenerateAccessToken(uid)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "token generation failed", nil)
		return
	}
	newRefresh, rexp, err := h.JWT.GenerateRefreshToken(uid)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "token generation failed", nil)
		return
	}
	if h.RDB != nil {
		sess := session{RefreshToken: newRefresh, IssuedAt: time.Now().UTC()}
		if serr := helpers.RedisSetJSON(c, h.RDB, sessionKey(uid), sess, h.Cfg.RefreshTTL); serr != nil {
			h.Logger.WithError(serr).Warn("failed to rotate session")
		}
	}

	h.Cookies.SetPair(c, access, aexp, newRefresh, rexp)
	response.Success[any](c, http.StatusOK, map[string]any{"refreshed": true}, "token refreshed",
		map[string]any{"access_expires_at": aexp, "refresh_expires_at": rexp})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if h.RDB != nil {
		_ = helpers.RedisDel(c, h.RDB, sessionKey(OperatorID))
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, map[string]any{"logged_out": true}, "logged out", nil)
}
