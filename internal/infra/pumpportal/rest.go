package pumpportal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pumpcap/internal/domain"

	"github.com/shopspring/decimal"
)

// TokenData is the REST market-data payload for one token. The API is
// loose about numeric encoding, decimal handles both quoted and bare
// numbers.
type TokenData struct {
	Mint        string          `json:"mint"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Description string          `json:"description"`
	ImageURI    string          `json:"image_uri"`
	MarketCap   decimal.Decimal `json:"marketCap"`
	Price       decimal.Decimal `json:"price"`
	Supply      decimal.Decimal `json:"supply"`
}

// MarketCapValue applies the same two-tier preference as the stream
// path: the direct field wins, otherwise price × supply. ok is false
// when neither yields a positive value.
func (d *TokenData) MarketCapValue() (decimal.Decimal, bool) {
	if d.MarketCap.IsPositive() {
		return d.MarketCap, true
	}
	if d.Price.IsPositive() && d.Supply.IsPositive() {
		return d.Price.Mul(d.Supply), true
	}
	return decimal.Zero, false
}

// Metadata extracts the descriptive fields for the display client.
func (d *TokenData) Metadata() domain.TokenMetadata {
	return domain.TokenMetadata{
		Name:        d.Name,
		Symbol:      d.Symbol,
		Description: d.Description,
		ImageURI:    d.ImageURI,
	}
}

// Client is the REST API client used as the fallback market-data
// source when the stream has gone silent.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new REST client. apiKey is sent as a bearer
// credential on every request.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "pumpportal_rest"),
	}
}

// FetchTokenData retrieves the current market data for a mint.
func (c *Client) FetchTokenData(ctx context.Context, mint string) (*TokenData, error) {
	u := fmt.Sprintf("%s/%s", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError("fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var data TokenData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode token data: %w", err)
	}

	c.logger.Debug("Fetched token data",
		slog.String("mint", mint),
		slog.String("market_cap", data.MarketCap.String()),
	)
	return &data, nil
}
