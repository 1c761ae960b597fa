package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds every application setting. Secrets are overridden from
// environment variables after the YAML file is parsed.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Token struct {
		Mint string `yaml:"mint"`
	} `yaml:"token"`

	API struct {
		CoinGecko struct {
			URL             string `yaml:"url"`
			PollIntervalSec int    `yaml:"poll_interval_sec"`
		} `yaml:"coingecko"`
		PumpPortal struct {
			WSURL   string `yaml:"ws_url"`
			RestURL string `yaml:"rest_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"pumpportal"`
	} `yaml:"api"`

	Server struct {
		ListenAddr    string `yaml:"listen_addr"`
		CacheWindowMS int    `yaml:"cache_window_ms"`
	} `yaml:"server"`

	Fallback struct {
		CheckIntervalSec int `yaml:"check_interval_sec"`
		StaleAfterSec    int `yaml:"stale_after_sec"`
	} `yaml:"fallback"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills in the fixed intervals when the file omits them.
func applyDefaults(cfg *Config) {
	if cfg.API.CoinGecko.URL == "" {
		cfg.API.CoinGecko.URL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
	}
	if cfg.API.CoinGecko.PollIntervalSec <= 0 {
		cfg.API.CoinGecko.PollIntervalSec = 60
	}
	if cfg.API.PumpPortal.WSURL == "" {
		cfg.API.PumpPortal.WSURL = "wss://pumpportal.fun/api/data"
	}
	if cfg.API.PumpPortal.RestURL == "" {
		cfg.API.PumpPortal.RestURL = "https://api-v2.pump.fun/tokens"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.CacheWindowMS <= 0 {
		cfg.Server.CacheWindowMS = 5000
	}
	if cfg.Fallback.CheckIntervalSec <= 0 {
		cfg.Fallback.CheckIntervalSec = 10
	}
	if cfg.Fallback.StaleAfterSec <= 0 {
		cfg.Fallback.StaleAfterSec = 30
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Token.Mint == "" {
		return fmt.Errorf("token mint is required")
	}
	if !strings.HasPrefix(c.API.PumpPortal.WSURL, "ws://") && !strings.HasPrefix(c.API.PumpPortal.WSURL, "wss://") {
		return fmt.Errorf("invalid PumpPortal WS URL: %s", c.API.PumpPortal.WSURL)
	}
	if !strings.HasPrefix(c.API.CoinGecko.URL, "http://") && !strings.HasPrefix(c.API.CoinGecko.URL, "https://") {
		return fmt.Errorf("invalid CoinGecko URL: %s", c.API.CoinGecko.URL)
	}
	if c.Fallback.StaleAfterSec < c.Fallback.CheckIntervalSec {
		return fmt.Errorf("stale_after_sec must be >= check_interval_sec")
	}
	return nil
}

// overrideWithEnv replaces settings with environment values when present.
// The API key normally arrives this way (loaded from .env at startup).
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("PUMP_API_KEY"); key != "" {
		cfg.API.PumpPortal.APIKey = key
	}
	if mint := os.Getenv("PUMPCAP_TOKEN_MINT"); mint != "" {
		cfg.Token.Mint = mint
	}
	if addr := os.Getenv("PUMPCAP_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if path := os.Getenv("PUMPCAP_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
}
