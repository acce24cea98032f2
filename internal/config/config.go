// Package config loads worker configuration from the environment (and an
// optional .env file via godotenv): DB connection info, which streams and
// which market-data categories to store, and which embedding backend to use.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

const (
	defaultTokenURL     = "https://be.broker.ru/trade-api-keycloak/realms/tradeapi/protocol/openid-connect/token"
	defaultClientID     = "trade-api-read"
	defaultCandleFrame  = "M1"
	defaultLLMMCPURL    = "http://llmcore:8080"
	defaultOllamaURL    = "http://127.0.0.1:11434"
	defaultOllamaModel  = "nomic-embed-text"
	defaultJanitorEvery = 300
	defaultJanitorStale = 900
	defaultHealthPort   = 8090
)

// Config is the fully resolved worker configuration.
type Config struct {
	RefreshToken string
	ClientID     string
	TokenURL     string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBMarket   string
	DBPrivate  string
	DBSSLMode  string

	StreamMarket    bool
	StreamPortfolio bool
	StreamOrders    bool
	StreamLimits    bool
	StreamMarginal  bool

	StoreOrderbook  bool
	StoreQuotes     bool
	StoreLastTrades bool
	StoreCandles    bool

	SubscribeInstruments []domain.Instrument
	UseDBInstruments     bool
	CandleTimeFrame      string

	OllamaBaseURL    string
	OllamaEmbedModel string

	LLMBackend               string
	LLMMCPBaseURL            string
	LLMMCPProvider           string
	LLMBackendFallbackOllama bool
	LLMBackendTimeoutSec     int

	JanitorInterval time.Duration
	JanitorStale    time.Duration

	HealthPort int
	LogLevel   string
}

// Load reads configuration from the environment. A missing .env file is not
// an error; godotenv.Load just has nothing to contribute in that case.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RefreshToken: getEnv("BCS_REFRESH_TOKEN", ""),
		ClientID:     getEnv("BCS_CLIENT_ID", defaultClientID),
		TokenURL:     getEnv("BCS_TOKEN_URL", defaultTokenURL),

		DBHost:     getEnv("BCS_DB_HOST", "127.0.0.1"),
		DBPort:     getEnvInt("BCS_DB_PORT", 5433),
		DBUser:     getEnv("BCS_DB_USER", "bcs"),
		DBPassword: getEnv("BCS_DB_PASSWORD", "bcs_secret"),
		DBMarket:   getEnv("BCS_DB_MARKET", "bcs_market"),
		DBPrivate:  getEnv("BCS_DB_PRIVATE", "bcs_private"),
		DBSSLMode:  getEnv("BCS_DB_SSLMODE", "disable"),

		StreamMarket:    getEnvBool("BCS_STREAM_MARKET", true),
		StreamPortfolio: getEnvBool("BCS_STREAM_PORTFOLIO", false),
		StreamOrders:    getEnvBool("BCS_STREAM_ORDERS", false),
		StreamLimits:    getEnvBool("BCS_STREAM_LIMITS", false),
		StreamMarginal:  getEnvBool("BCS_STREAM_MARGINAL", false),

		StoreOrderbook:  getEnvBool("BCS_STORE_ORDERBOOK", true),
		StoreQuotes:     getEnvBool("BCS_STORE_QUOTES", true),
		StoreLastTrades: getEnvBool("BCS_STORE_LAST_TRADES", true),
		StoreCandles:    getEnvBool("BCS_STORE_CANDLES", true),

		SubscribeInstruments: parseInstruments(getEnv("BCS_SUBSCRIBE_INSTRUMENTS", "")),
		UseDBInstruments:     getEnvBool("BCS_USE_DB_INSTRUMENTS", false),
		CandleTimeFrame:      getEnv("BCS_CANDLE_TIMEFRAME", defaultCandleFrame),

		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", defaultOllamaURL),
		OllamaEmbedModel: getEnv("OLLAMA_EMBED_MODEL", defaultOllamaModel),

		LLMBackend:               getEnv("LLM_BACKEND", "llm_mcp"),
		LLMMCPBaseURL:            getEnv("LLM_MCP_BASE_URL", defaultLLMMCPURL),
		LLMMCPProvider:           getEnv("LLM_MCP_PROVIDER", "auto"),
		LLMBackendFallbackOllama: getEnvBool("LLM_BACKEND_FALLBACK_OLLAMA", true),
		LLMBackendTimeoutSec:     getEnvInt("LLM_BACKEND_TIMEOUT_SEC", 30),

		JanitorInterval: time.Duration(getEnvInt("EMBEDDING_JANITOR_INTERVAL_SEC", defaultJanitorEvery)) * time.Second,
		JanitorStale:    time.Duration(getEnvInt("EMBEDDING_JANITOR_STALE_SEC", defaultJanitorStale)) * time.Second,

		HealthPort: getEnvInt("HEALTH_PORT", defaultHealthPort),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}

	cfg.LLMBackend = strings.ToLower(strings.TrimSpace(cfg.LLMBackend))
	if cfg.LLMBackend != "llm_mcp" && cfg.LLMBackend != "ollama" {
		cfg.LLMBackend = "llm_mcp"
	}
	cfg.LLMMCPProvider = strings.ToLower(strings.TrimSpace(cfg.LLMMCPProvider))
	if cfg.LLMMCPProvider != "auto" && cfg.LLMMCPProvider != "ollama" {
		cfg.LLMMCPProvider = "auto"
	}

	return cfg, nil
}

// parseInstruments parses "class_code:ticker,class_code:ticker" pairs,
// silently skipping malformed entries.
func parseInstruments(raw string) []domain.Instrument {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []domain.Instrument
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		classCode, ticker, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		out = append(out, domain.Instrument{
			Ticker:    strings.TrimSpace(ticker),
			ClassCode: strings.TrimSpace(classCode),
		})
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
