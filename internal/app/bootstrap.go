package app

import (
	"context"
	"log/slog"

	"pumpcap/internal/infra"
	"pumpcap/internal/infra/pumpportal"
	"pumpcap/internal/infra/storage"
	"pumpcap/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Icons   *infra.IconFetcher
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB)
func (b *Bootstrap) Initialize() error {
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store

	// Seed the row so the first read never races the first trade
	if err := store.Seed(cfg.Token.Mint, infra.DefaultSolPrice.InexactFloat64()); err != nil {
		return err
	}
	slog.Info("Database initialized", slog.String("mint", cfg.Token.Mint))

	icons, err := infra.NewIconFetcher("")
	if err != nil {
		return err
	}
	b.Icons = icons

	return nil
}

// SyncTokenMetadata fetches token metadata and its icon once at
// startup. Best-effort: the tracker works without it.
func (b *Bootstrap) SyncTokenMetadata(ctx context.Context, svc *service.ValuationService, rest *pumpportal.Client) {
	data, err := rest.FetchTokenData(ctx, b.Config.Token.Mint)
	if err != nil {
		slog.Warn("Initial token metadata fetch failed", slog.Any("error", err))
		return
	}
	if meta := data.Metadata(); meta.Name != "" {
		svc.UpdateMetadata(meta)
	}
	slog.Info("Token metadata synced", slog.String("name", data.Name), slog.String("symbol", data.Symbol))
}
