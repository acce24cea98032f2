// Command worker runs the BCS ingestion worker: it authenticates against
// the trading API, pulls market/account websocket feeds into Postgres, and
// pumps queued text through an embedding backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/auth"
	"github.com/bcsmcp/ingestion-worker/internal/config"
	"github.com/bcsmcp/ingestion-worker/internal/domain"
	"github.com/bcsmcp/ingestion-worker/internal/embedding"
	"github.com/bcsmcp/ingestion-worker/internal/health"
	"github.com/bcsmcp/ingestion-worker/internal/logging"
	"github.com/bcsmcp/ingestion-worker/internal/store"
	"github.com/bcsmcp/ingestion-worker/internal/stream"
	"github.com/bcsmcp/ingestion-worker/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logging.Setup(cfg.LogLevel)
	log.Info().Msg("starting ingestion worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	marketDB, err := store.OpenPool(store.PoolConfig{
		Host: cfg.DBHost, Port: cfg.DBPort, User: cfg.DBUser, Password: cfg.DBPassword,
		DBName: cfg.DBMarket, SSLMode: cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open market db pool")
	}
	defer marketDB.Close()

	privateDB, err := store.OpenPool(store.PoolConfig{
		Host: cfg.DBHost, Port: cfg.DBPort, User: cfg.DBUser, Password: cfg.DBPassword,
		DBName: cfg.DBPrivate, SSLMode: cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open private db pool")
	}
	defer privateDB.Close()

	marketStore := store.NewMarketStore(marketDB)
	privateStore := store.NewPrivateStore(privateDB)
	embeddingStore := store.NewEmbeddingStore(privateDB)

	authenticator := auth.New(cfg.TokenURL, cfg.ClientID, cfg.RefreshToken, nil, logging.Named(log, "auth"))

	instruments, err := resolveInstruments(ctx, cfg, privateStore, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve instruments")
	}

	streams := buildStreams(cfg, authenticator, marketStore, privateStore, instruments, log)

	backend := embedding.NewBackend(embedding.BackendConfig{
		Backend:           cfg.LLMBackend,
		LLMMCPBaseURL:     cfg.LLMMCPBaseURL,
		LLMMCPProvider:    cfg.LLMMCPProvider,
		FallbackToOllama:  cfg.LLMBackendFallbackOllama,
		BackendTimeoutSec: cfg.LLMBackendTimeoutSec,
		OllamaBaseURL:     cfg.OllamaBaseURL,
		OllamaEmbedModel:  cfg.OllamaEmbedModel,
	}, nil)

	pump := embedding.NewPump(embeddingStore, backend, logging.Named(log, "embedding_pump"))
	janitor := embedding.NewJanitor(embeddingStore, cfg.JanitorStale, log)

	healthSrv := health.New(cfg.HealthPort, marketDB, privateDB, log)

	sup := supervisor.New(cfg, log, streams, pump, janitor, healthSrv)
	if err := sup.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("supervisor exited with error")
	}

	log.Info().Msg("ingestion worker stopped")
}

func resolveInstruments(ctx context.Context, cfg *config.Config, instrumentSource domain.InstrumentSource, log zerolog.Logger) ([]domain.Instrument, error) {
	if !cfg.UseDBInstruments {
		return cfg.SubscribeInstruments, nil
	}
	instruments, err := instrumentSource.SelectedAssets(ctx)
	if err != nil {
		return nil, err
	}
	if len(instruments) == 0 {
		log.Warn().Msg("no instruments in selected_assets; falling back to env list")
		return cfg.SubscribeInstruments, nil
	}
	return instruments, nil
}

func buildStreams(cfg *config.Config, authenticator domain.TokenSource, marketStore *store.MarketStore, privateStore *store.PrivateStore, instruments []domain.Instrument, log zerolog.Logger) supervisor.Streams {
	var streams supervisor.Streams

	if cfg.RefreshToken == "" {
		log.Warn().Msg("refresh token empty; streams disabled, embedding pump continues")
		return streams
	}

	if cfg.StreamMarket {
		spec := domain.SubscriptionSpec{
			Orderbook:       cfg.StoreOrderbook,
			Quotes:          cfg.StoreQuotes,
			LastTrades:      cfg.StoreLastTrades,
			Candles:         cfg.StoreCandles,
			CandleTimeFrame: cfg.CandleTimeFrame,
		}
		streams.Market = stream.NewMarketStream(authenticator, marketStore, instruments, spec, logging.Named(log, "market_stream"))
	}
	if cfg.StreamPortfolio {
		streams.Portfolio = stream.NewPortfolioStream(authenticator, privateStore, logging.Named(log, "portfolio_stream"))
	}
	if cfg.StreamOrders {
		streams.Orders = stream.NewOrdersStream(authenticator, privateStore, logging.Named(log, "orders_stream"))
	}
	if cfg.StreamLimits {
		streams.Limits = stream.NewLimitsStream(authenticator, privateStore, logging.Named(log, "limits_stream"))
	}
	if cfg.StreamMarginal {
		streams.Marginal = stream.NewMarginalStream(authenticator, privateStore, logging.Named(log, "marginal_stream"))
	}

	return streams
}
