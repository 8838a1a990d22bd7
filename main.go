package main

import (
	"time"

	"github.com/spf13/afero"

	"github.com/cartpix/cartpix/config"
	"github.com/cartpix/cartpix/models"
	"github.com/cartpix/cartpix/routes"
	"github.com/cartpix/cartpix/storage"
	"github.com/cartpix/cartpix/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.Order{}, &models.OrderLine{}, &models.OrderLineMeta{}, &models.StoredUpload{})

	store := storage.NewLocalStore(afero.NewOsFs(), cfg.StorageRoot, cfg.PublicBaseURL, cfg.AllowedExtensions)
	carts := utils.NewSessionCartStore(utils.GetRedis(), time.Duration(cfg.CartSessionTTLHours)*time.Hour)

	r := routes.SetupRouter(db, carts, store)

	// Reclaim uploads whose cart session lapsed without checkout (best-effort)
	utils.StartOrphanCleaner(db, store, time.Duration(cfg.CleanerIntervalMinutes)*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
