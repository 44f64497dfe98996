package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiro-gateway/gateway/internal/config"
	"github.com/kiro-gateway/gateway/internal/cooldown"
	"github.com/kiro-gateway/gateway/internal/credential"
	"github.com/kiro-gateway/gateway/internal/handler"
	"github.com/kiro-gateway/gateway/internal/logging"
	"github.com/kiro-gateway/gateway/internal/pipeline"
	"github.com/kiro-gateway/gateway/internal/repository"
	"github.com/kiro-gateway/gateway/internal/repository/sqlite"
	"github.com/kiro-gateway/gateway/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("failed to create data directory %s: %v", cfg.DataDir, err)
	}

	globalMgr, err := credential.NewManager(credential.Config{
		RefreshToken:        cfg.RefreshToken,
		Region:              cfg.KiroRegion,
		ProfileArn:          cfg.ProfileArn,
		RefreshThreshold:    cfg.TokenRefreshThreshold,
		CredentialsFilePath: cfg.KiroCreds,
	})
	if err != nil {
		log.Fatalf("credential: failed to construct global manager: %v", err)
	}
	credCache := credential.NewCache(0, cfg.KiroRegion, cfg.ProfileArn)

	cooldownMgr := cooldown.NewManager(cooldown.Config{
		AuthSeconds:      cfg.CooldownAuthSeconds,
		RateLimitSeconds: cfg.CooldownRateLimitSeconds,
		UpstreamSeconds:  cfg.CooldownUpstreamSeconds,
	})

	var usageRepo repository.UsageRecordRepository
	if cfg.DBPath != "" {
		db, err := sqlite.NewDB(cfg.DBPath)
		if err != nil {
			log.Fatalf("repository: failed to open database at %s: %v", cfg.DBPath, err)
		}
		defer db.Close()

		cooldownMgr.SetRepository(sqlite.NewCooldownRepository(db))
		if err := cooldownMgr.LoadFromDatabase(); err != nil {
			logging.Warnf("main", "failed to load cooldowns from database: %v", err)
		}
		usageRepo = sqlite.NewUsageRecordRepository(db)
		logging.Infof("main", "persistence enabled at %s", cfg.DBPath)
	} else {
		logging.Infof("main", "persistence disabled (set GATEWAY_DB_PATH to enable)")
	}

	stopCleanup := make(chan struct{})
	go runCooldownCleanup(cooldownMgr, stopCleanup)

	auth := handler.NewAuthenticator(cfg.ProxyAPIKey, globalMgr, credCache)
	gw := handler.NewGateway(auth, cooldownMgr, usageRepo, handler.Config{
		PipelineConfig: pipeline.Config{
			MaxInputTokens:       cfg.DefaultMaxInputTokens,
			FirstTokenMaxRetries: cfg.FirstTokenMaxRetries,
			StreamReadTimeout:    cfg.StreamReadTimeout,
		},
		UpstreamConfig: upstream.Config{
			FirstTokenTimeout: cfg.FirstTokenTimeout,
			NonStreamTimeout:  cfg.NonStreamTimeout,
			SlowMultiplier:    cfg.SlowModelTimeoutMultiplier,
		},
	})
	adminHandler := handler.NewAdminHandler(cfg.AdminToken, cooldownMgr, usageRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", gw.HandleOpenAI)
	mux.HandleFunc("/v1/messages", gw.HandleAnthropic)
	mux.HandleFunc("/v1beta/models/", func(w http.ResponseWriter, r *http.Request) {
		stream := len(r.URL.Path) >= len("streamGenerateContent") &&
			r.URL.Path[len(r.URL.Path)-len("streamGenerateContent"):] == "streamGenerateContent"
		gw.HandleGemini(w, r, stream)
	})
	mux.HandleFunc("/v1/models", handler.HandleModels)
	mux.Handle("/api/admin/", adminHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler.LoggingMiddleware(mux),
		IdleTimeout: cfg.RequestIdleTimeout,
	}

	go func() {
		logging.Infof("main", "gateway listening on %s", addr)
		logging.Infof("main", "  OpenAI:    http://localhost%s/v1/chat/completions", addr)
		logging.Infof("main", "  Anthropic: http://localhost%s/v1/messages", addr)
		logging.Infof("main", "  Gemini:    http://localhost%s/v1beta/models/{model}:generateContent", addr)
		if adminHandler.Enabled() {
			logging.Infof("main", "  Admin:     http://localhost%s/api/admin/", addr)
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	close(stopCleanup)

	logging.Infof("main", "shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warnf("main", "forcing close after graceful shutdown timeout: %v", err)
		_ = srv.Close()
	}
}

// runCooldownCleanup drops expired cooldown entries once an hour, matching
// the teacher's own background-cleanup cadence.
func runCooldownCleanup(mgr *cooldown.Manager, stop <-chan struct{}) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			before := len(mgr.GetAll())
			mgr.CleanupExpired()
			after := len(mgr.GetAll())
			if before != after {
				logging.Infof("Cooldown", "cleanup removed %d expired entries", before-after)
			}
		case <-stop:
			return
		}
	}
}
