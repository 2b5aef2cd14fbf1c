package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (a *App) googleConfigured(c *gin.Context) bool {
	if a.Login == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google login not configured", "code": "not_configured"})
		return false
	}
	return true
}

// GET /auth/google/url
func (a *App) GoogleAuthURLHandler(c *gin.Context) {
	if !a.googleConfigured(c) {
		return
	}
	state := uuid.NewString()
	c.JSON(http.StatusOK, gin.H{
		"auth_url": a.Login.AuthURL(state),
		"state":    state,
	})
}

type googleLoginReq struct {
	Code string `json:"code"`
}

// POST /auth/login/google
func (a *App) GoogleLoginHandler(c *gin.Context) {
	if !a.googleConfigured(c) {
		return
	}
	var req googleLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	a.login(c, req.Code)
}

// GET /oauth2callback?code=
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if !a.googleConfigured(c) {
		return
	}
	a.login(c, c.Query("code"))
}

func (a *App) login(c *gin.Context, code string) {
	res, err := a.Login.Login(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
