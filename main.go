package main

import (
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/nandakv/regio/internal/config"
	"github.com/nandakv/regio/internal/db"
	"github.com/nandakv/regio/internal/export"
	"github.com/nandakv/regio/internal/flow"
	"github.com/nandakv/regio/internal/gelf"
	"github.com/nandakv/regio/internal/handler"
	"github.com/nandakv/regio/internal/identity"
	"github.com/nandakv/regio/internal/repository"
	"github.com/nandakv/regio/internal/router"
	"github.com/nandakv/regio/internal/service"
)

func main() {
	cfg := config.Load()

	// GELF UDP logging
	if cfg.GelfAddr != "" {
		gelfWriter, err := gelf.New(cfg.GelfAddr)
		if err != nil {
			log.Printf("Warning: GELF init failed: %v", err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stderr, gelfWriter))
			log.Printf("GELF logging: enabled (%s)", cfg.GelfAddr)
		}
	}

	mode, err := flow.ParseMode(cfg.FlowMode)
	if err != nil {
		log.Fatalf("Bad configuration: %v", err)
	}

	// Connect to the document store
	pool, err := db.NewPool(cfg.StoreHost, cfg.StorePort, cfg.PoolSize, cfg.StoreTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer pool.Close()
	log.Printf("Connected to store at %s:%d (pool size: %d)", cfg.StoreHost, cfg.StorePort, cfg.PoolSize)

	var logo []byte
	if cfg.LogoPath != "" {
		logo, err = os.ReadFile(cfg.LogoPath)
		if err != nil {
			log.Printf("Warning: logo not readable, exports render without it: %v", err)
		}
	}

	// Wiring
	repo := repository.NewRegistrantRepo(pool)
	ids := identity.NewProvider()
	composer := export.NewComposer(cfg.BrandTitle, logo)

	subSvc := service.NewSubmissionService(repo, ids)
	adminSvc := service.NewAdminService(repo)
	authSvc := service.NewAuthService(cfg.AdminEmail, cfg.AdminPassHash, cfg.JWTSecret)

	flowCtl := flow.NewController(mode, subSvc, ids)

	regH := handler.NewRegistrationHandler(flowCtl, repo, composer, cfg.PublicBaseURL)
	adminH := handler.NewAdminHandler(adminSvc, composer)
	authH := handler.NewAuthHandler(authSvc)
	healthH := handler.NewHealthHandler(pool)

	r := router.New(cfg.JWTSecret, regH, adminH, authH, healthH)

	// Settled flows are polled for a while after submission, then dropped.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n := flowCtl.Prune(time.Hour); n > 0 {
				log.Printf("Pruned %d settled submission flows", n)
			}
		}
	}()

	// Start HTTP immediately; build indexes and the photo bucket in the
	// background on a dedicated connection so startup never blocks on the
	// store.
	go func() {
		log.Printf("Background init: starting")
		initPool, err := db.NewPool(cfg.StoreHost, cfg.StorePort, 1, cfg.StoreTimeout)
		if err != nil {
			log.Printf("Warning: init pool connect failed, using main pool: %v", err)
			initPool = pool
		}
		defer func() {
			if initPool != pool {
				initPool.Close()
			}
		}()

		initRepo := repository.NewRegistrantRepo(initPool)
		if err := initRepo.EnsureIndexes(); err != nil {
			log.Printf("Warning: index creation failed: %v", err)
		}
		if err := initRepo.EnsureBucket(); err != nil {
			log.Printf("Warning: photo bucket creation failed: %v", err)
		}
		log.Printf("Background init: done")
	}()

	if cfg.AdminPassHash == "" {
		log.Printf("Warning: REG_ADMIN_PASS_HASH not set, admin API is locked")
	}

	log.Printf("regio server starting on %s (flow mode: %s)", cfg.HTTPAddr, mode)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
