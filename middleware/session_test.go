package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartpix/cartpix/config"
)

func TestCartSessionMintsAndKeepsID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.SetForTest(config.AppConfig{CartSessionTTLHours: 1})

	var seen []string
	r := gin.New()
	r.Use(CartSession())
	r.GET("/x", func(ctx *gin.Context) {
		seen = append(seen, SessionID(ctx))
		ctx.Status(http.StatusOK)
	})

	// First request has no cookie: one gets minted.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Len(t, w.Result().Cookies(), 1)
	cookie := w.Result().Cookies()[0]
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	// A returning request keeps its ID.
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(cookie)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, seen, 2)
	assert.Equal(t, cookie.Value, seen[0])
	assert.Equal(t, seen[0], seen[1])
}
