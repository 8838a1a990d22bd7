package controllers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cartpix/cartpix/storage"
	"github.com/cartpix/cartpix/utils"
)

const (
	// DownloadActionPath is the fixed action route the gate listens on.
	DownloadActionPath = "/api/v1/action"
	// DownloadActionName is the query discriminator selecting the download.
	DownloadActionName = "cartpix_download"
)

// DownloadController is the retrieval gate: it maps a requested bare file
// name back to a stored file and streams it as a forced download. It is
// reachable anonymously; download links appear in guest order history.
// Knowing a file name is sufficient to retrieve it; the missing capability
// token is a recorded scope decision, not an oversight.
type DownloadController struct {
	store storage.Storage
}

// NewDownloadController creates a new DownloadController instance.
func NewDownloadController(store storage.Storage) *DownloadController {
	return &DownloadController{store: store}
}

// HandleAction dispatches the action route. Two terminal outcomes only: a
// full binary stream, or a generic error page that leaks nothing about
// internal paths.
func (dc *DownloadController) HandleAction(ctx *gin.Context) {
	if ctx.Query("action") != DownloadActionName {
		utils.Error(ctx, http.StatusNotFound, 40450, "not found")
		return
	}

	name := strings.TrimSpace(ctx.Query("file"))
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, 40050, "missing file parameter")
		return
	}

	// The supplied value is treated as a bare file name, never a path.
	// Resolution is always root + basename; traversal inputs reduce to a
	// basename that simply fails the existence check.
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || base == "/" || strings.HasPrefix(base, ".") {
		utils.Error(ctx, http.StatusNotFound, 40451, "not found")
		return
	}

	if !dc.store.Exists(base) {
		utils.Error(ctx, http.StatusNotFound, 40451, "not found")
		return
	}

	size, err := dc.store.Size(base)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40451, "not found")
		return
	}
	f, err := dc.store.Open(base)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40451, "not found")
		return
	}
	defer f.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", base),
	}
	ctx.DataFromReader(http.StatusOK, size, "application/octet-stream", f, extraHeaders)
}
