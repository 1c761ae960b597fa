package pumpportal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

const testMint = "6PNDuznRwYkr7m5r8jBhJ9cf53EYu9nx8g7yhsv8vcuu"

func TestClient_FetchTokenData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization header = %q, want bearer credential", got)
		}
		if r.URL.Path != "/"+testMint {
			t.Errorf("Request path = %q, want /%s", r.URL.Path, testMint)
		}
		w.Write([]byte(`{"mint":"` + testMint + `","name":"Test Token","symbol":"TST","image_uri":"https://cdn.test/t.png","marketCap":5000}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")

	data, err := client.FetchTokenData(context.Background(), testMint)
	if err != nil {
		t.Fatalf("FetchTokenData failed: %v", err)
	}
	if !data.MarketCap.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("MarketCap = %s, want 5000", data.MarketCap)
	}
	if data.Name != "Test Token" || data.Symbol != "TST" {
		t.Errorf("Metadata = %q/%q", data.Name, data.Symbol)
	}
}

func TestClient_FetchTokenData_QuotedNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price":"0.000005","supply":"1000000000"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")

	data, err := client.FetchTokenData(context.Background(), testMint)
	if err != nil {
		t.Fatalf("FetchTokenData failed: %v", err)
	}

	mcap, ok := data.MarketCapValue()
	if !ok {
		t.Fatal("Expected a derived market cap from quoted price and supply")
	}
	if !mcap.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("mcap = %s, want 5000", mcap)
	}
}

func TestClient_FetchTokenData_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key")

	if _, err := client.FetchTokenData(context.Background(), testMint); err == nil {
		t.Fatal("Expected an error for a 401 response")
	}
}

func TestTokenData_MarketCapValue(t *testing.T) {
	cases := []struct {
		name string
		data TokenData
		want decimal.Decimal
		ok   bool
	}{
		{
			name: "direct field",
			data: TokenData{MarketCap: decimal.NewFromInt(5000)},
			want: decimal.NewFromInt(5000),
			ok:   true,
		},
		{
			name: "price times supply",
			data: TokenData{Price: decimal.NewFromFloat(0.000005), Supply: decimal.NewFromInt(1_000_000_000)},
			want: decimal.NewFromInt(5000),
			ok:   true,
		},
		{
			name: "direct wins over derived",
			data: TokenData{
				MarketCap: decimal.NewFromInt(7000),
				Price:     decimal.NewFromFloat(0.000005),
				Supply:    decimal.NewFromInt(1_000_000_000),
			},
			want: decimal.NewFromInt(7000),
			ok:   true,
		},
		{
			name: "nothing usable",
			data: TokenData{},
			ok:   false,
		},
		{
			name: "price without supply",
			data: TokenData{Price: decimal.NewFromFloat(0.000005)},
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.data.MarketCapValue()
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && !got.Equal(tc.want) {
				t.Errorf("value = %s, want %s", got, tc.want)
			}
		})
	}
}
