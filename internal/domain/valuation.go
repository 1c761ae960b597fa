package domain

// ValuationRecord is the single persisted row for the tracked token.
// Timestamp is unix milliseconds to match what the display client expects.
type ValuationRecord struct {
	Mint      string  `gorm:"primaryKey" json:"mint"`
	MarketCap float64 `json:"market_cap"`
	SolPrice  float64 `json:"sol_price"`
	Timestamp int64   `json:"timestamp"`
}

// Annotation returns the degraded-state message for this record.
// A stored value of exactly zero means no valid trade has ever been
// observed (or the token migrated off the bonding curve).
func (r *ValuationRecord) Annotation() string {
	if r.MarketCap == 0 {
		return ErrMsgNoValidTrades
	}
	return ""
}

// Snapshot is the cached view of the latest valuation, shaped exactly
// like the /api/mcap response body.
type Snapshot struct {
	Mcap      float64 `json:"mcap"`
	SolPrice  float64 `json:"solPrice"`
	Timestamp int64   `json:"timestamp"`
	Error     string  `json:"error"`
}

// TokenMetadata is the descriptive payload the fallback REST API returns
// alongside market data. Best-effort, used by the front-end.
type TokenMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	ImageURI    string `json:"image_uri,omitempty"`
	IconPath    string `json:"icon_path,omitempty"`
}

// Degraded-state messages surfaced in the JSON error field. These are
// part of the client contract, keep the wording stable.
const (
	ErrMsgNoData        = "No data yet"
	ErrMsgNoValidTrades = "No valid trades or token migrated. Using last valid MCAP."
)
