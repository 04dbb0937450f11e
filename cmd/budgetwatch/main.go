package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/auth"
	"budgetwatch/internal/cli"
	"budgetwatch/internal/entry"
	apphttp "budgetwatch/internal/http"
	"budgetwatch/internal/mail"
	"budgetwatch/internal/summary"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("server")
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Reset mails go through AMQP when configured, otherwise the log
	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		mailer = mail.NewQueueMailer(amqpClient)
		logger.Info("Mail queue initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, reset mails go to the log")
	}

	tokens := auth.NewTokenSigner([]byte(cfg.ResetSecret), cfg.ResetTokenTTL)
	authSvc := auth.NewService(repo, mailer, tokens, cfg.SessionTTL, cfg.RememberTTL, cfg.BaseURL)
	entrySvc := entry.NewService(repo)
	summarySvc := summary.NewService(repo)

	srv := apphttp.NewServer(":"+cfg.Port, authSvc, entrySvc, summarySvc, cfg.SecureCookies)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting budgetwatch server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Periodically drop expired sessions
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SessionSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := repo.DeleteExpiredSessions(ctx)
				if err != nil {
					logger.Warn("Session sweep failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("Expired sessions removed", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
