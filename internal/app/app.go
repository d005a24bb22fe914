// Package app wires configuration, storage, upstream clients and domain
// services into a running application.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/fihub/internal/cache"
	"github.com/bobmcallan/fihub/internal/clients/alphavantage"
	"github.com/bobmcallan/fihub/internal/clients/binance"
	"github.com/bobmcallan/fihub/internal/clients/gemini"
	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
	"github.com/bobmcallan/fihub/internal/services/broker"
	"github.com/bobmcallan/fihub/internal/services/correlation"
	"github.com/bobmcallan/fihub/internal/services/indicator"
	"github.com/bobmcallan/fihub/internal/services/market"
	"github.com/bobmcallan/fihub/internal/services/options"
	"github.com/bobmcallan/fihub/internal/services/stock"
	"github.com/bobmcallan/fihub/internal/services/technical"
	"github.com/bobmcallan/fihub/internal/services/transcript"
	"github.com/bobmcallan/fihub/internal/storage"
)

// geminiKeyName is the env lookup name for the Gemini key. Nothing sets it
// at runtime, so it resolves from the environment or config only.
const geminiKeyName = "gemini_api_key"

// App holds all initialized services, clients and storage.
type App struct {
	Config  *common.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager

	APIKey             *common.APIKey
	BinanceCredentials *binance.Credentials

	AlphaVantageClient *alphavantage.Client
	BinanceClient      *binance.Client
	GeminiClient       *gemini.Client

	StockService       interfaces.StockService
	IndicatorService   interfaces.IndicatorService
	TechnicalService   interfaces.TechnicalService
	OptionsService     interfaces.OptionsService
	CorrelationService interfaces.CorrelationService
	MarketService      interfaces.MarketService
	TranscriptService  interfaces.TranscriptService
	BrokerService      interfaces.BrokerService

	Scheduler   *Scheduler
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, FIHUB_CONFIG, the binary
// directory and finally config/fihub.toml.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("FIHUB_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "fihub.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/fihub.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes the application.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return New(config, common.NewLoggerFromConfig(config.Logging))
}

// New initializes storage, clients and services from an already loaded config.
func New(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()
	ctx := context.Background()

	storageManager, err := storage.NewStorageManager(logger, config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// The Alpha Vantage key resolves from the environment, then the last
	// value set at runtime, then config
	kv := storageManager.KeyValueStore()
	avCfg := config.Clients.AlphaVantage
	avKey, err := common.ResolveAPIKey(ctx, kv, market.APIKeyStoreKey, avCfg.APIKey)
	if err != nil {
		logger.Warn().Msg("Alpha Vantage API key not configured - upstream requests will be rejected")
	}
	apiKey := common.NewAPIKey(avKey)
	avClient := alphavantage.NewClient(apiKey,
		alphavantage.WithBaseURL(avCfg.BaseURL),
		alphavantage.WithLogger(logger),
		alphavantage.WithRateLimit(avCfg.RateLimit),
		alphavantage.WithTimeout(avCfg.GetTimeout()),
	)

	bnCfg := config.Clients.Binance
	bnCreds := binance.NewCredentials(bnCfg.APIKey, bnCfg.APISecret)
	bnClient := binance.NewClient(bnCreds,
		binance.WithBaseURL(bnCfg.BaseURL),
		binance.WithLogger(logger),
		binance.WithRateLimit(bnCfg.RateLimit),
		binance.WithTimeout(bnCfg.GetTimeout()),
	)

	// Analysis stays nil without a key so services see a nil interface
	var geminiClient *gemini.Client
	var analysis interfaces.AnalysisClient
	gmCfg := config.Clients.Gemini
	if gmKey, _ := common.ResolveAPIKey(ctx, nil, geminiKeyName, gmCfg.APIKey); gmKey != "" {
		geminiClient, err = gemini.NewClient(ctx, gmKey,
			gemini.WithLogger(logger),
			gemini.WithModel(gmCfg.Model),
			gemini.WithMaxAttempts(gmCfg.MaxAttempts),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
			geminiClient = nil
		} else {
			analysis = geminiClient
		}
	} else {
		logger.Warn().Msg("Gemini API key not configured - earnings analysis will omit generated summaries")
	}

	cacheCfg := config.Cache
	marketService := market.NewService(avClient, apiKey, kv, cacheCfg, logger)

	a := &App{
		Config:             config,
		Logger:             logger,
		Storage:            storageManager,
		APIKey:             apiKey,
		BinanceCredentials: bnCreds,
		AlphaVantageClient: avClient,
		BinanceClient:      bnClient,
		GeminiClient:       geminiClient,
		StockService:       stock.NewService(avClient, cacheCfg, logger),
		IndicatorService:   indicator.NewService(avClient, cacheCfg, logger),
		TechnicalService:   technical.NewService(avClient, cacheCfg, logger),
		OptionsService:     options.NewService(avClient, storageManager.OptionsStore(), cacheCfg, logger),
		CorrelationService: correlation.NewService(avClient, cacheCfg, logger),
		MarketService:      marketService,
		TranscriptService:  transcript.NewService(avClient, analysis, logger),
		BrokerService:      broker.NewService(bnClient, bnCreds, bnCfg.AllowedIPs, logger),
		StartupTime:        startupStart,
	}

	a.Scheduler, err = NewScheduler(config.Scheduler, a.Purgers(), a.MarketService, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Purgers returns every configured service that owns a TTL cache
func (a *App) Purgers() []interfaces.Purger {
	candidates := []interfaces.Purger{
		a.StockService,
		a.IndicatorService,
		a.TechnicalService,
		a.OptionsService,
		a.CorrelationService,
		a.MarketService,
	}
	out := make([]interfaces.Purger, 0, len(candidates))
	for _, p := range candidates {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// CacheStats reports activity for every service cache
func (a *App) CacheStats() []cache.Stats {
	var stats []cache.Stats
	for _, p := range a.Purgers() {
		stats = append(stats, p.CacheStats()...)
	}
	return stats
}

// StartBackgroundJobs starts the cron scheduler
func (a *App) StartBackgroundJobs() {
	a.Scheduler.Start()
}

// Close stops background jobs and releases clients and storage
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.GeminiClient != nil {
		a.GeminiClient.Close()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}
