package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartpix/cartpix/config"
	"github.com/cartpix/cartpix/middleware"
	"github.com/cartpix/cartpix/models"
	"github.com/cartpix/cartpix/storage"
	"github.com/cartpix/cartpix/upload"
	"github.com/cartpix/cartpix/utils"
)

// FormTokenField is the multipart field carrying the anti-forgery token.
const FormTokenField = "cartpix_token"

// CartController manages the session cart and the attachment admission flow.
type CartController struct {
	db        *gorm.DB
	carts     utils.CartStore
	store     storage.Storage
	validator *upload.Validator
}

// NewCartController creates a new CartController instance.
func NewCartController(db *gorm.DB, carts utils.CartStore, store storage.Storage, validator *upload.Validator) *CartController {
	return &CartController{db: db, carts: carts, store: store, validator: validator}
}

// GetCart restores and returns the session's cart. Attachment records pass
// through unchanged; the trust boundary was crossed at upload time.
func (cc *CartController) GetCart(ctx *gin.Context) {
	cart, err := cc.carts.Get(middleware.SessionID(ctx))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to restore cart")
		return
	}
	utils.Success(ctx, gin.H{"cart": cart})
}

// AddItem adds a product line to the cart, optionally attaching an uploaded
// image. Attachment failures never sink the add-to-cart itself: the line
// proceeds bare and the rejection surfaces as a notice.
func (cc *CartController) AddItem(ctx *gin.Context) {
	productID, err := strconv.ParseUint(strings.TrimSpace(ctx.PostForm("product_id")), 10, 64)
	if err != nil || productID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid or missing product_id")
		return
	}
	category := utils.SanitizeText(strings.TrimSpace(ctx.PostForm("category")))
	quantity := 1
	if q, err := strconv.Atoi(ctx.PostForm("quantity")); err == nil && q > 0 {
		quantity = q
	}

	sid := middleware.SessionID(ctx)
	cart, err := cc.carts.Get(sid)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to restore cart")
		return
	}

	line := models.CartLine{
		ID:        uuid.NewString(),
		ProductID: uint(productID),
		Category:  category,
		Quantity:  quantity,
		AddedAt:   time.Now(),
	}

	var notices []string
	if file, header, ferr := ctx.Request.FormFile("attachment"); ferr == nil {
		defer file.Close()
		rec, notice := cc.admitAndStore(ctx, sid, uint(productID), category, file, header)
		if notice != "" {
			notices = append(notices, notice)
		}
		if rec != nil {
			line.Attachments = append(line.Attachments, *rec)
		}
	}

	cart.Lines = append(cart.Lines, line)
	if err := cc.carts.Put(cart); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to persist cart")
		return
	}

	utils.Success(ctx, gin.H{"cart": cart, "notices": notices})
}

// admitAndStore runs the validate-then-store pipeline for one upload. A nil
// record with a notice means the upload was rejected; the store is never
// reached after a validation failure.
func (cc *CartController) admitAndStore(ctx *gin.Context, sid string, productID uint, category string, file multipart.File, header *multipart.FileHeader) (*models.Attachment, string) {
	cfg := config.Get()

	if !cfg.UploadEnabled {
		return nil, "attachments are not enabled"
	}
	if !upload.ProductEligible(productID, category, cfg.AllowedProductIDs, cfg.AllowedCategories) {
		return nil, "attachments are not available for this product"
	}

	maxSize := int64(cfg.MaxUploadSizeMB) * 1024 * 1024
	if header.Size > maxSize {
		return nil, "upload rejected: file too large"
	}

	token := ctx.PostForm(FormTokenField)
	admitted, err := cc.validator.Admit(header.Filename, header.Size, file, token)
	if err != nil {
		utils.Sugar.Infof("upload rejected for session %s: %v", sid, err)
		switch {
		case errors.Is(err, upload.ErrTokenMissing), errors.Is(err, upload.ErrTokenInvalid):
			return nil, "upload rejected: security check failed"
		case errors.Is(err, upload.ErrTypeNotAllowed), errors.Is(err, upload.ErrTypeMismatch):
			return nil, "upload rejected: file type not permitted"
		default:
			return nil, "upload rejected"
		}
	}

	rec, err := cc.store.Save(admitted.OriginalName, file)
	if err != nil {
		utils.Sugar.Errorf("attachment store failed for session %s: %v", sid, err)
		return nil, "upload rejected: could not store file"
	}

	cc.ledger(sid, rec)
	return &rec, ""
}

// ledger records the stored file for the orphan cleaner. Best-effort: a
// ledger miss only means the cleaner cannot reclaim this file later.
func (cc *CartController) ledger(sid string, rec models.Attachment) {
	if cc.db == nil {
		return
	}
	cfg := config.Get()
	row := models.StoredUpload{
		FileName:  rec.FileName,
		FilePath:  rec.FilePath,
		URL:       rec.FileURL,
		SessionID: sid,
		ExpireAt:  time.Now().Add(time.Duration(cfg.OrphanTTLMinutes) * time.Minute),
	}
	if err := cc.db.Create(&row).Error; err != nil {
		utils.Sugar.Warnf("stored upload ledger write failed for %s: %v", rec.FileName, err)
	}
}

// RemoveItem deletes a cart line. Files behind its attachments are removed
// from the store: a missing file is logged and ignored, an undeletable file is
// surfaced to the operator log but never fails the removal.
func (cc *CartController) RemoveItem(ctx *gin.Context) {
	lineID := strings.TrimSpace(ctx.Param("lineId"))
	if lineID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40011, "missing cart line id")
		return
	}

	sid := middleware.SessionID(ctx)
	cart, err := cc.carts.Get(sid)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to restore cart")
		return
	}

	line := cart.Line(lineID)
	if line == nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "cart line not found")
		return
	}

	for _, att := range line.Attachments {
		if err := cc.store.Delete(att.FileName); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				utils.Sugar.Infof("attachment %s already gone at cart removal", att.FileName)
			} else {
				utils.Sugar.Errorf("attachment %s could not be deleted at cart removal: %v", att.FileName, err)
			}
		}
		if cc.db != nil {
			if err := cc.db.Where("file_name = ?", att.FileName).Delete(&models.StoredUpload{}).Error; err != nil {
				utils.Sugar.Warnf("stored upload ledger delete failed for %s: %v", att.FileName, err)
			}
		}
	}

	kept := cart.Lines[:0]
	for _, l := range cart.Lines {
		if l.ID != lineID {
			kept = append(kept, l)
		}
	}
	cart.Lines = kept

	if err := cc.carts.Put(cart); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to persist cart")
		return
	}
	utils.Success(ctx, gin.H{"cart": cart})
}
