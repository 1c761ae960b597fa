package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSolPrice seeds the quote before the first successful fetch.
var DefaultSolPrice = decimal.NewFromInt(150)

// simplePriceResponse represents the CoinGecko simple-price response:
// {"solana":{"usd":150.12}}
type simplePriceResponse struct {
	Solana struct {
		USD float64 `json:"usd"`
	} `json:"solana"`
}

// SolPriceClient polls the SOL/USD quote from CoinGecko. A stale price
// is preferred over no price: fetch failures keep the previous value
// and there is no retry before the next scheduled tick.
type SolPriceClient struct {
	onUpdate     func(decimal.Decimal)
	price        decimal.Decimal
	mu           sync.RWMutex
	pollInterval time.Duration
	apiURL       string
	httpClient   *http.Client
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewSolPriceClient creates a new SOL price client
func NewSolPriceClient(onUpdate func(decimal.Decimal)) *SolPriceClient {
	return &SolPriceClient{
		onUpdate:     onUpdate,
		price:        DefaultSolPrice,
		pollInterval: 60 * time.Second,
		apiURL:       "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSolPriceClientWithConfig creates a client with custom configuration
func NewSolPriceClientWithConfig(onUpdate func(decimal.Decimal), apiURL string, pollIntervalSec int) *SolPriceClient {
	client := NewSolPriceClient(onUpdate)
	if apiURL != "" {
		client.apiURL = apiURL
	}
	if pollIntervalSec > 0 {
		client.pollInterval = time.Duration(pollIntervalSec) * time.Second
	}
	return client
}

// Start begins polling for price updates
func (c *SolPriceClient) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	// Fetch immediately on start; failure keeps the seeded default
	if err := c.fetchPrice(ctx); err != nil {
		slog.Warn("Initial SOL price fetch failed", slog.Any("error", err))
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("SOL price polling stopped")
				return
			case <-ticker.C:
				if err := c.fetchPrice(ctx); err != nil {
					slog.Warn("SOL price fetch failed", slog.Any("error", err))
				}
			}
		}
	}()

	return nil
}

func (c *SolPriceClient) fetchPrice(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var data simplePriceResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return err
	}

	if data.Solana.USD <= 0 {
		return fmt.Errorf("non-positive SOL price in response")
	}

	newPrice := decimal.NewFromFloat(data.Solana.USD)

	c.mu.Lock()
	oldPrice := c.price
	c.price = newPrice
	c.mu.Unlock()

	if !oldPrice.Equal(newPrice) && c.onUpdate != nil {
		slog.Info("SOL price updated",
			slog.String("price", newPrice.String()),
			slog.String("old_price", oldPrice.String()),
		)
		c.onUpdate(newPrice)
	}

	return nil
}

// Stop stops the polling
func (c *SolPriceClient) Stop() {
	if c.cancel != nil {
		c.cancel()
		c.wg.Wait()
	}
}

// CurrentPrice returns the current SOL/USD price
func (c *SolPriceClient) CurrentPrice() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.price
}
