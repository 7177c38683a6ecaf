package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"

	"github.com/mtlprog/swaproute/internal/autoslippage"
	"github.com/mtlprog/swaproute/internal/domain"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPPort    string
	DatabaseURL string
	AdminAPIKey string

	CoinGeckoURL          string
	CoinGeckoAPIKey       string
	CoinGeckoPro          bool
	CoinGeckoDelay        time.Duration
	CoinGeckoDelayWithKey time.Duration
	DexScreenerURL        string
	JupiterPriceURL       string

	LiFiURL         string
	LiFiAPIKey      string
	KyberSwapURL    string
	JupiterQuoteURL string

	EVMRPCURLs   map[domain.ChainID]string
	SolanaRPCURL string

	RouterTimeout      time.Duration
	QuoteValidity      time.Duration
	PlatformFeePercent float64
	TieThreshold       float64

	HTTPRetryMax       int
	HTTPRetryBaseDelay time.Duration

	WarmTokens   []domain.Token
	WarmInterval time.Duration

	RoutersFile string
	Routers     RouterSettings

	LogLevel  string
	LogFormat string
}

// RouterSettings is the optional YAML router file.
type RouterSettings struct {
	Routers map[domain.RouterID]RouterSetting `yaml:"routers"`
	Tiers   []autoslippage.Tier               `yaml:"slippage_tiers"`
}

// RouterSetting overrides one router. A missing Enabled means enabled.
type RouterSetting struct {
	Enabled *bool         `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
	BaseURL string        `yaml:"base_url"`
}

// IsEnabled reports whether the router should be registered.
func (s RouterSettings) IsEnabled(id domain.RouterID) bool {
	r, ok := s.Routers[id]
	if !ok || r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// BaseURL returns the configured URL for a router, or def.
func (s RouterSettings) BaseURL(id domain.RouterID, def string) string {
	if r, ok := s.Routers[id]; ok && r.BaseURL != "" {
		return r.BaseURL
	}
	return def
}

// Timeouts returns the per-router timeout overrides.
func (s RouterSettings) Timeouts() map[domain.RouterID]time.Duration {
	out := make(map[domain.RouterID]time.Duration)
	for id, r := range s.Routers {
		if r.Timeout > 0 {
			out[id] = r.Timeout
		}
	}
	return out
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		DatabaseURL:           envOrDefault("DATABASE_URL", ""),
		AdminAPIKey:           envOrDefault("ADMIN_API_KEY", ""),
		CoinGeckoURL:          envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:       envOrDefault("COINGECKO_API_KEY", ""),
		CoinGeckoPro:          envOrDefaultBool("COINGECKO_PRO", false),
		CoinGeckoDelay:        envOrDefaultDuration("COINGECKO_DELAY", 1500*time.Millisecond),
		CoinGeckoDelayWithKey: envOrDefaultDuration("COINGECKO_DELAY_WITH_KEY", 250*time.Millisecond),
		DexScreenerURL:        envOrDefault("DEXSCREENER_URL", "https://api.dexscreener.com"),
		JupiterPriceURL:       envOrDefault("JUPITER_PRICE_URL", "https://lite-api.jup.ag"),
		LiFiURL:               envOrDefault("LIFI_URL", "https://li.quest/v1"),
		LiFiAPIKey:            envOrDefault("LIFI_API_KEY", ""),
		KyberSwapURL:          envOrDefault("KYBERSWAP_URL", "https://aggregator-api.kyberswap.com"),
		JupiterQuoteURL:       envOrDefault("JUPITER_QUOTE_URL", "https://lite-api.jup.ag/swap/v1"),
		EVMRPCURLs:            parseRPCURLs(os.Getenv("EVM_RPC_URLS")),
		SolanaRPCURL:          envOrDefault("SOLANA_RPC_URL", ""),
		RouterTimeout:         envOrDefaultDuration("ROUTER_TIMEOUT", 15*time.Second),
		QuoteValidity:         envOrDefaultDuration("QUOTE_VALIDITY", 60*time.Second),
		PlatformFeePercent:    envOrDefaultFloat("PLATFORM_FEE_PERCENT", 0.25),
		TieThreshold:          envOrDefaultFloat("TIE_THRESHOLD", 0.001),
		HTTPRetryMax:          envOrDefaultInt("HTTP_RETRY_MAX", 3),
		HTTPRetryBaseDelay:    envOrDefaultDuration("HTTP_RETRY_BASE_DELAY", time.Second),
		WarmTokens:            parseTokens(os.Getenv("WARM_TOKENS")),
		WarmInterval:          envOrDefaultDuration("WARM_INTERVAL", 20*time.Second),
		RoutersFile:           envOrDefault("ROUTERS_FILE", ""),
		LogLevel:              envOrDefault("LOG_LEVEL", "info"),
		LogFormat:             envOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.RoutersFile != "" {
		settings, err := LoadRouterSettings(cfg.RoutersFile)
		if err != nil {
			slog.Warn("router settings not loaded, using defaults", "path", cfg.RoutersFile, "error", err)
		} else {
			cfg.Routers = settings
		}
	}
	return cfg
}

// LoadRouterSettings reads the YAML router file.
func LoadRouterSettings(path string) (RouterSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RouterSettings{}, fmt.Errorf("reading router settings: %w", err)
	}
	var s RouterSettings
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return RouterSettings{}, fmt.Errorf("parsing router settings: %w", err)
	}
	return s, nil
}

// parseRPCURLs parses "chainID=url,chainID=url".
func parseRPCURLs(v string) map[domain.ChainID]string {
	out := make(map[domain.ChainID]string)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, url, ok := strings.Cut(pair, "=")
		if !ok {
			slog.Warn("invalid EVM_RPC_URLS entry, skipping", "entry", pair)
			continue
		}
		chainID, err := cast.ToInt64E(strings.TrimSpace(id))
		if err != nil || !domain.ChainID(chainID).IsEVM() {
			slog.Warn("unknown EVM chain in EVM_RPC_URLS, skipping", "chain", id)
			continue
		}
		out[domain.ChainID(chainID)] = strings.TrimSpace(url)
	}
	return out
}

// parseTokens parses "chainID:address,chainID:address".
func parseTokens(v string) []domain.Token {
	var out []domain.Token
	for _, entry := range strings.Split(v, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, addr, ok := strings.Cut(entry, ":")
		if !ok {
			slog.Warn("invalid WARM_TOKENS entry, skipping", "entry", entry)
			continue
		}
		chainID, err := domain.ParseChainID(id)
		if err != nil || !domain.ValidAddress(chainID, addr) {
			slog.Warn("invalid WARM_TOKENS entry, skipping", "entry", entry)
			continue
		}
		out = append(out, domain.Token{ChainID: chainID, Address: addr})
	}
	return out
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := cast.ToFloat64E(v)
		if err != nil || f < 0 {
			slog.Warn("invalid number env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			slog.Warn("invalid boolean env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return b
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
