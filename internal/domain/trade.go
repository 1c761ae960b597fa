package domain

import "github.com/shopspring/decimal"

// TotalSupply is the fixed token supply used for bonding-curve valuation.
// Pump.fun mints always start with 1B tokens.
var TotalSupply = decimal.NewFromInt(1_000_000_000)

var (
	// Bonding-curve reserves arrive in raw on-chain units:
	// token reserve scaled by 1e6, SOL reserve in lamports (1e9).
	tokenDivisor = decimal.NewFromInt(1_000_000)
	solDivisor   = decimal.NewFromInt(1_000_000_000)
)

// TradeEvent is one inbound message from the trade stream. All value
// fields are optional; absent fields unmarshal to zero.
type TradeEvent struct {
	Mint                  string          `json:"mint"`
	TxType                string          `json:"txType,omitempty"`
	MarketCapSol          decimal.Decimal `json:"marketCapSol"`
	VTokensInBondingCurve decimal.Decimal `json:"vTokensInBondingCurve"`
	VSolInBondingCurve    decimal.Decimal `json:"vSolInBondingCurve"`
}

// McapStrategy derives a market-cap estimate (in quote currency) from a
// trade event. ok is false when the event lacks the fields the strategy
// needs or the result would be non-positive.
type McapStrategy func(t *TradeEvent, solPrice decimal.Decimal) (mcap decimal.Decimal, ok bool)

// mcapStrategies is ordered: the direct field wins over the derived
// bonding-curve computation.
var mcapStrategies = []McapStrategy{
	directMarketCap,
	bondingCurveMarketCap,
}

// directMarketCap converts a settlement-denominated cap straight to
// quote currency.
func directMarketCap(t *TradeEvent, solPrice decimal.Decimal) (decimal.Decimal, bool) {
	if !t.MarketCapSol.IsPositive() {
		return decimal.Zero, false
	}
	return t.MarketCapSol.Mul(solPrice), true
}

// bondingCurveMarketCap prices the token from the pooled reserve ratio:
// price-per-token = solReserve / tokenReserve, then × solPrice × supply.
func bondingCurveMarketCap(t *TradeEvent, solPrice decimal.Decimal) (decimal.Decimal, bool) {
	if !t.VTokensInBondingCurve.IsPositive() || !t.VSolInBondingCurve.IsPositive() {
		return decimal.Zero, false
	}

	tokens := t.VTokensInBondingCurve.Div(tokenDivisor)
	sol := t.VSolInBondingCurve.Div(solDivisor)
	if !tokens.IsPositive() {
		return decimal.Zero, false
	}

	perTokenSol := sol.Div(tokens)
	return perTokenSol.Mul(solPrice).Mul(TotalSupply), true
}

// DeriveMarketCap runs the strategies in order and returns the first
// positive estimate. ok is false when no strategy produced one; callers
// fall back to the last-known-good value in that case.
func DeriveMarketCap(t *TradeEvent, solPrice decimal.Decimal) (decimal.Decimal, bool) {
	for _, strategy := range mcapStrategies {
		if mcap, ok := strategy(t, solPrice); ok && mcap.IsPositive() {
			return mcap, true
		}
	}
	return decimal.Zero, false
}
