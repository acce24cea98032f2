package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		original, had := os.LookupEnv(k)
		os.Setenv(k, v)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, original)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	withEnv(t, map[string]string{"BCS_REFRESH_TOKEN": ""})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "trade-api-read", cfg.ClientID)
	assert.Equal(t, "M1", cfg.CandleTimeFrame)
	assert.True(t, cfg.StreamMarket)
	assert.False(t, cfg.StreamPortfolio)
	assert.Equal(t, "llm_mcp", cfg.LLMBackend)
	assert.True(t, cfg.LLMBackendFallbackOllama)
	assert.Equal(t, 30, cfg.LLMBackendTimeoutSec)
}

func TestLoad_ParsesSubscribeInstruments(t *testing.T) {
	withEnv(t, map[string]string{
		"BCS_SUBSCRIBE_INSTRUMENTS": "TQBR:SBER, TQBR:GAZP ,bad-entry,SPBFUT:SiZ4",
	})

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.SubscribeInstruments, 3)
	assert.Equal(t, "SBER", cfg.SubscribeInstruments[0].Ticker)
	assert.Equal(t, "TQBR", cfg.SubscribeInstruments[0].ClassCode)
	assert.Equal(t, "GAZP", cfg.SubscribeInstruments[1].Ticker)
	assert.Equal(t, "SiZ4", cfg.SubscribeInstruments[2].Ticker)
	assert.Equal(t, "SPBFUT", cfg.SubscribeInstruments[2].ClassCode)
}

func TestLoad_NormalizesLLMBackend(t *testing.T) {
	withEnv(t, map[string]string{"LLM_BACKEND": "Weird"})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "llm_mcp", cfg.LLMBackend)
}

func TestLoad_KeepsOllamaBackend(t *testing.T) {
	withEnv(t, map[string]string{"LLM_BACKEND": "OLLAMA"})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLMBackend)
}
