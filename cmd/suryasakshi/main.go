package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"suryasakshi/internal/attachments"
	"suryasakshi/internal/auth"
	"suryasakshi/internal/backend"
	"suryasakshi/internal/cli"
	"suryasakshi/internal/config"
	apphttp "suryasakshi/internal/http"
	"suryasakshi/internal/log"
	"suryasakshi/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateServer)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	files, err := attachments.NewFileStore(cfg.AttachmentsDir)
	if err != nil {
		logger.Error("Failed to initialize attachment store", log.FieldError, err, "dir", cfg.AttachmentsDir)
		os.Exit(1)
	}

	verifier, err := auth.ParseUsers(cfg.AuthUsers)
	if err != nil {
		logger.Error("Invalid AUTH_USERS", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Loaded operators", "users", verifier.Users())

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Ledger:             services.NewLedger(result.Repositories, files, result.Publisher()),
		Files:              files,
		Verifier:           verifier,
		Sessions:           auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL),
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		SecureCookies:      cfg.SecureCookies,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting suryasakshi server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
