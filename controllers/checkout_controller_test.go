package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cartpix/cartpix/models"
	"github.com/cartpix/cartpix/utils"
)

type checkoutTestEnv struct {
	router *gin.Engine
	db     *gorm.DB
	carts  utils.CartStore
}

func newCheckoutTestEnv(t *testing.T, dsn string) *checkoutTestEnv {
	t.Helper()
	setupTestConfig(t)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Order{}, &models.OrderLine{}, &models.OrderLineMeta{}, &models.StoredUpload{},
	))

	carts := utils.NewSessionCartStore(nil, time.Hour)
	oc := NewCheckoutController(db, carts)

	r := gin.New()
	r.Use(sessionStub())
	r.POST("/api/v1/checkout", oc.Checkout)
	r.GET("/api/v1/orders/:number", oc.GetOrder)

	return &checkoutTestEnv{router: r, db: db, carts: carts}
}

func seedCartWithAttachment(t *testing.T, env *checkoutTestEnv) models.Attachment {
	t.Helper()
	att := models.Attachment{
		FilePath: "/data/attachments/1700000000-photo.png",
		FileURL:  "/static/attachments/1700000000-photo.png",
		FileName: "1700000000-photo.png",
	}
	cart := &models.Cart{
		SessionID: testSessionID,
		Lines: []models.CartLine{
			{ID: "line-1", ProductID: 7, Category: "prints", Quantity: 1, Attachments: []models.Attachment{att}},
			{ID: "line-2", ProductID: 9, Quantity: 3},
		},
	}
	require.NoError(t, env.carts.Put(cart))

	require.NoError(t, env.db.Create(&models.StoredUpload{
		FileName:  att.FileName,
		FilePath:  att.FilePath,
		URL:       att.FileURL,
		SessionID: testSessionID,
		ExpireAt:  time.Now().Add(time.Hour),
	}).Error)
	return att
}

func TestCheckoutMaterializesOrderWithAttachmentMeta(t *testing.T) {
	env := newCheckoutTestEnv(t, "file:checkout_meta?mode=memory&cache=shared")
	att := seedCartWithAttachment(t, env)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var order models.Order
	require.NoError(t, env.db.Preload("Lines.Metas").Preload("Lines").First(&order).Error)
	assert.True(t, strings.HasPrefix(order.Number, "CP-"))
	require.Len(t, order.Lines, 2)

	var metas []models.OrderLineMeta
	for _, l := range order.Lines {
		metas = append(metas, l.Metas...)
	}
	require.Len(t, metas, 1)
	assert.Equal(t, AttachmentMetaKey, metas[0].MetaKey)
	assert.Contains(t, metas[0].MetaValue, "<a href=")
	assert.Contains(t, metas[0].MetaValue, "action="+DownloadActionName)
	assert.Contains(t, metas[0].MetaValue, att.FileName)

	// The ledger row is claimed by the order and off-limits to the cleaner.
	var row models.StoredUpload
	require.NoError(t, env.db.Where("file_name = ?", att.FileName).First(&row).Error)
	assert.True(t, row.Claimed)

	// Cart is transient and gone; the stored file is not touched by that.
	cart, err := env.carts.Get(testSessionID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := newCheckoutTestEnv(t, "file:checkout_empty?mode=memory&cache=shared")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder(t *testing.T) {
	env := newCheckoutTestEnv(t, "file:checkout_get?mode=memory&cache=shared")
	seedCartWithAttachment(t, env)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var order models.Order
	require.NoError(t, env.db.First(&order).Error)

	got := httptest.NewRecorder()
	env.router.ServeHTTP(got, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+order.Number, nil))
	require.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), order.Number)
	assert.Contains(t, got.Body.String(), "action="+DownloadActionName)

	missing := httptest.NewRecorder()
	env.router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/orders/CP-NOPE", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestAttachmentAnchor(t *testing.T) {
	setupTestConfig(t)

	anchor := AttachmentAnchor("1700000000-photo.png")
	assert.Contains(t, anchor, `<a href=`)
	assert.Contains(t, anchor, "file=1700000000-photo.png")
	assert.Contains(t, anchor, ">1700000000-photo.png</a>")

	// A hostile name cannot smuggle markup into order history.
	hostile := AttachmentAnchor(`"><script>alert(1)</script>`)
	assert.NotContains(t, hostile, "<script")
}
