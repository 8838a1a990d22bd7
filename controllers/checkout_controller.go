package controllers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartpix/cartpix/middleware"
	"github.com/cartpix/cartpix/models"
	"github.com/cartpix/cartpix/utils"
)

// AttachmentMetaKey names the order line metadata entry for one attachment.
const AttachmentMetaKey = "uploaded_image"

// CheckoutController materializes session carts into permanent orders.
type CheckoutController struct {
	db    *gorm.DB
	carts utils.CartStore
}

// NewCheckoutController creates a new CheckoutController instance.
func NewCheckoutController(db *gorm.DB, carts utils.CartStore) *CheckoutController {
	return &CheckoutController{db: db, carts: carts}
}

// Checkout converts the session's cart into an order. Every attachment on a
// cart line becomes one permanent metadata entry whose value links to the
// download action; the stored files are from here on owned by the order and
// never reclaimed by cart cleanup.
func (oc *CheckoutController) Checkout(ctx *gin.Context) {
	sid := middleware.SessionID(ctx)
	cart, err := oc.carts.Get(sid)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to restore cart")
		return
	}
	if len(cart.Lines) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40040, "cart is empty")
		return
	}

	order := models.Order{
		Number:    newOrderNumber(),
		SessionID: sid,
	}

	var claimed []string
	for _, line := range cart.Lines {
		ol := models.OrderLine{
			ProductID: line.ProductID,
			Category:  line.Category,
			Quantity:  line.Quantity,
		}
		for _, att := range line.Attachments {
			ol.Metas = append(ol.Metas, models.OrderLineMeta{
				MetaKey:   AttachmentMetaKey,
				MetaValue: AttachmentAnchor(att.FileName),
			})
			claimed = append(claimed, att.FileName)
		}
		order.Lines = append(order.Lines, ol)
	}

	err = oc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		if len(claimed) > 0 {
			if err := tx.Model(&models.StoredUpload{}).
				Where("file_name IN ?", claimed).
				Update("claimed", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.Sugar.Errorf("checkout failed for session %s: %v", sid, err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to place order")
		return
	}

	// Cart is transient; dropping it must not touch the stored files.
	_ = oc.carts.Delete(sid)

	utils.Success(ctx, gin.H{"order": order})
}

// GetOrder returns one order with its lines and attachment metadata.
func (oc *CheckoutController) GetOrder(ctx *gin.Context) {
	number := strings.TrimSpace(ctx.Param("number"))
	if number == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "missing order number")
		return
	}

	cacheKey := "cache:order:detail:" + number
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	var order models.Order
	err := oc.db.Preload("Lines.Metas").Preload("Lines").
		Where("number = ?", number).First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40440, "order not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load order")
		return
	}

	payload := gin.H{"order": order}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	utils.Success(ctx, payload)
}

// AttachmentAnchor renders the sanitized metadata anchor for a stored file:
// a link to the download action with the file name as both query value and
// link text.
func AttachmentAnchor(fileName string) string {
	href := DownloadActionPath + "?action=" + DownloadActionName + "&file=" + url.QueryEscape(fileName)
	raw := fmt.Sprintf(`<a href="%s">%s</a>`, href, fileName)
	return utils.SanitizeAnchor(raw)
}

func newOrderNumber() string {
	return "CP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
