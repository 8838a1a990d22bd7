package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartpix/cartpix/utils"
)

func TestIssueFormToken(t *testing.T) {
	setupTestConfig(t)

	r := gin.New()
	r.Use(sessionStub())
	r.GET("/api/v1/upload/token", NewTokenController().Issue)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/upload/token", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var env apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var payload struct {
		Token     string `json:"token"`
		Field     string `json:"field"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))

	assert.Equal(t, FormTokenField, payload.Field)
	assert.Equal(t, 1800, payload.ExpiresIn)
	assert.NoError(t, utils.VerifyFormToken(payload.Token))
}
