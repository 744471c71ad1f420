package main

import (
	"context"

	"efficity_backend/internal/events"
	"efficity_backend/internal/leads"
	"efficity_backend/platform/config"
	"efficity_backend/platform/db"
	"efficity_backend/platform/logger"
	"efficity_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead rescore backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	leadsModule := leads.NewModule(pool, eventBus, cfg, val, log)

	scored, err := leadsModule.Service.RescoreAll(ctx)
	if err != nil {
		log.Error("rescore failed", "error", err)
		panic("rescore failed: " + err.Error())
	}

	log.Info("rescore backfill finished", "scored", scored)
}
