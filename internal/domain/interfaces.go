package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ValuationStore defines how the single valuation row is persisted
type ValuationStore interface {
	UpsertValuation(rec *ValuationRecord) error
	GetValuation(mint string) (*ValuationRecord, error)
}

// PriceSource defines the settlement-asset price feed (e.g. SOL/USD)
type PriceSource interface {
	Start(ctx context.Context) error
	CurrentPrice() decimal.Decimal
}

// StreamWorker defines the trade stream connector lifecycle
type StreamWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}

// TradeSink consumes inbound trade events from the stream worker
type TradeSink interface {
	ProcessTrade(t *TradeEvent)
}
