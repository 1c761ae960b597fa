package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pumpcap/internal/app"
	"pumpcap/internal/domain"
	"pumpcap/internal/infra"
	"pumpcap/internal/infra/pumpportal"
	"pumpcap/internal/server"
	"pumpcap/internal/service"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	// Secrets (PUMP_API_KEY) usually arrive via .env in development
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", slog.Any("error", err))
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rest := pumpportal.NewClient(cfg.API.PumpPortal.RestURL, cfg.API.PumpPortal.APIKey)

	svc := service.NewValuationServiceWithConfig(
		cfg.Token.Mint,
		bootstrap.Storage,
		rest,
		time.Duration(cfg.Server.CacheWindowMS)*time.Millisecond,
		time.Duration(cfg.Fallback.CheckIntervalSec)*time.Second,
		time.Duration(cfg.Fallback.StaleAfterSec)*time.Second,
	)

	// Cache the token icon whenever fresh metadata arrives
	svc.SetMetadataHook(func(meta domain.TokenMetadata) {
		if meta.ImageURI == "" {
			return
		}
		path, err := bootstrap.Icons.FetchIcon(cfg.Token.Mint, meta.ImageURI)
		if err != nil {
			slog.Warn("Failed to fetch token icon", slog.Any("error", err))
			return
		}
		svc.SetIconPath(path)
	})

	solPrice := infra.NewSolPriceClientWithConfig(
		func(p decimal.Decimal) { svc.SetSolPrice(p) },
		cfg.API.CoinGecko.URL,
		cfg.API.CoinGecko.PollIntervalSec,
	)
	if err := solPrice.Start(ctx); err != nil {
		slog.Error("Failed to start SOL price client", slog.Any("error", err))
	}
	defer solPrice.Stop()

	worker := pumpportal.NewWorker(cfg.API.PumpPortal.WSURL, cfg.API.PumpPortal.APIKey, cfg.Token.Mint, svc)
	if err := worker.Connect(ctx); err != nil {
		if errors.Is(err, domain.ErrMissingAPIKey) {
			// Not fatal: the REST fallback still produces values
			slog.Error("PUMP_API_KEY is not set, trade stream disabled")
		} else {
			slog.Error("Failed to start trade stream", slog.Any("error", err))
		}
	} else {
		defer worker.Disconnect()
		slog.InfoContext(ctx, "Trade stream worker started", slog.String("mint", cfg.Token.Mint))
	}

	if err := svc.Start(ctx); err != nil {
		slog.Error("Failed to start fallback supervisor", slog.Any("error", err))
	}
	defer svc.Stop()

	go bootstrap.SyncTokenMetadata(ctx, svc, rest)

	handler := server.New(slog.Default(), svc, infra.GlobalMetrics)
	slog.InfoContext(ctx, "API server listening", slog.String("addr", cfg.Server.ListenAddr))

	if err := server.ListenAndServe(ctx, cfg.Server.ListenAddr, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("API server failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Shutting down gracefully...")
}
