package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cartpix/cartpix/config"
)

const (
	// SessionCookieName carries the anonymous cart session ID.
	SessionCookieName = "cartpix_session"
	// ContextSessionIDKey stores the session ID inside the Gin context.
	ContextSessionIDKey = "session_id"
)

// CartSession assigns every request an anonymous session ID, minting one when
// the cookie is absent. Guest checkout works off this same ID; there is no
// login requirement anywhere in the flow.
func CartSession() gin.HandlerFunc {
	cfg := config.Get()
	maxAge := cfg.CartSessionTTLHours * 3600

	return func(ctx *gin.Context) {
		sid, err := ctx.Cookie(SessionCookieName)
		if err != nil || sid == "" {
			sid = uuid.NewString()
			ctx.SetSameSite(http.SameSiteLaxMode)
			ctx.SetCookie(SessionCookieName, sid, maxAge, "/", "", false, true)
		}
		ctx.Set(ContextSessionIDKey, sid)
		ctx.Next()
	}
}

// SessionID returns the request's session ID from the Gin context.
func SessionID(ctx *gin.Context) string {
	if v, ok := ctx.Get(ContextSessionIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
