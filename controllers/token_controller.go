package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cartpix/cartpix/config"
	"github.com/cartpix/cartpix/middleware"
	"github.com/cartpix/cartpix/utils"
)

// TokenController issues per-form anti-forgery tokens for the upload field.
type TokenController struct{}

// NewTokenController creates a new TokenController instance.
func NewTokenController() *TokenController {
	return &TokenController{}
}

// Issue returns a fresh form token bound to the caller's session. The token
// stays valid for its whole window; repeated submissions with the same token
// are accepted by design.
func (tc *TokenController) Issue(ctx *gin.Context) {
	cfg := config.Get()
	ttl := time.Duration(cfg.FormTokenTTLMinutes) * time.Minute

	token, err := utils.IssueFormToken(middleware.SessionID(ctx), ttl)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{
		"token":      token,
		"field":      FormTokenField,
		"expires_in": int(ttl.Seconds()),
	})
}
