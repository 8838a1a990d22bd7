package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartpix/cartpix/config"
	"github.com/cartpix/cartpix/middleware"
	"github.com/cartpix/cartpix/models"
	"github.com/cartpix/cartpix/storage"
	"github.com/cartpix/cartpix/upload"
	"github.com/cartpix/cartpix/utils"
)

const testSessionID = "test-session"

var pngContent = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0xAB}, 64)...)

func init() {
	gin.SetMode(gin.TestMode)
	utils.Sugar = zap.NewNop().Sugar()
}

func setupTestConfig(t *testing.T) {
	t.Helper()
	config.SetForTest(config.AppConfig{
		UploadEnabled:       true,
		AllowedExtensions:   []string{"jpg", "jpeg", "png", "gif", "webp"},
		AllowedCategories:   []string{"*"},
		MaxUploadSizeMB:     10,
		StorageRoot:         "/data/attachments",
		PublicBaseURL:       "/static/attachments",
		FormTokenSecret:     "controller-test-secret",
		FormTokenTTLMinutes: 30,
		OrphanTTLMinutes:    60,
		CartSessionTTLHours: 1,
	})
}

// sessionStub pins every request to one session, standing in for the cookie
// middleware.
func sessionStub() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextSessionIDKey, testSessionID)
		ctx.Next()
	}
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type cartPayload struct {
	Cart    models.Cart `json:"cart"`
	Notices []string    `json:"notices"`
}

func decodeCartResponse(t *testing.T, w *httptest.ResponseRecorder) cartPayload {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var payload cartPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload
}

type cartTestEnv struct {
	router *gin.Engine
	store  *storage.LocalStore
	carts  utils.CartStore
	fs     afero.Fs
}

func newCartTestEnv(t *testing.T) *cartTestEnv {
	t.Helper()
	setupTestConfig(t)
	cfg := config.Get()

	fs := afero.NewMemMapFs()
	store := storage.NewLocalStore(fs, cfg.StorageRoot, cfg.PublicBaseURL, cfg.AllowedExtensions)
	carts := utils.NewSessionCartStore(nil, time.Hour)
	validator := upload.NewValidator(cfg.AllowedExtensions, utils.FormTokenVerifier{})
	cc := NewCartController(nil, carts, store, validator)

	r := gin.New()
	r.Use(sessionStub())
	r.GET("/api/v1/cart", cc.GetCart)
	r.POST("/api/v1/cart/items", cc.AddItem)
	r.DELETE("/api/v1/cart/items/:lineId", cc.RemoveItem)

	return &cartTestEnv{router: r, store: store, carts: carts, fs: fs}
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("attachment", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func issueTestToken(t *testing.T) string {
	t.Helper()
	tok, err := utils.IssueFormToken(testSessionID, time.Minute)
	require.NoError(t, err)
	return tok
}
