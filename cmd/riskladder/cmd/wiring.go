package cmd

import (
	"errors"
	"log/slog"

	"github.com/songzhibin97/riskladder/internal/configs"
	"github.com/songzhibin97/riskladder/internal/data/collector"
	"github.com/songzhibin97/riskladder/internal/data/collector/binance"
	"github.com/songzhibin97/riskladder/internal/regime"
	"github.com/songzhibin97/riskladder/internal/regime/llm"
	binanceTrading "github.com/songzhibin97/riskladder/internal/trading/binance"
	"github.com/songzhibin97/riskladder/internal/utils/request"
)

var errNoExchangeKeys = errors.New("exchange_config.api_key and exchange_config.secret_key are required")

// newCollector tries the plain REST source first, then the futures SDK client.
// Klines and ticker prices are public, so the SDK client works without keys.
func newCollector(cfg *configs.Config, logger *slog.Logger) *collector.MultiSourceCollector {
	ex := cfg.ExchangeConfig
	sdk := binanceTrading.NewFuturesClient(ex.APIKey, ex.SecretKey, logger, ex.Debug)

	return collector.NewMultiSourceCollector([]collector.DataSource{
		binance.NewBinanceDataSourceWithClient(request.New(ex.Proxy)),
		collector.NewExchangeSource("binance-futures", sdk),
	}, logger)
}

// futuresClient returns a signed futures client, or errNoExchangeKeys
func futuresClient(cfg *configs.Config, logger *slog.Logger) (*binanceTrading.FuturesClient, error) {
	ex := cfg.ExchangeConfig
	if ex.APIKey == "" || ex.SecretKey == "" {
		return nil, errNoExchangeKeys
	}
	return binanceTrading.NewFuturesClient(ex.APIKey, ex.SecretKey, logger, ex.Debug), nil
}

// newDetector returns the indicator detector, wrapped by the model when regime.source is llm
func newDetector(cfg *configs.Config, logger *slog.Logger) (regime.Detector, *regime.IndicatorDetector) {
	indicator := regime.NewIndicatorDetector()
	if cfg.Regime.Source != configs.RegimeSourceLLM {
		return indicator, indicator
	}

	return llm.New(llm.Config{
		Provider: cfg.AIConfig.Provider,
		APIKey:   cfg.AIConfig.APIKey,
		Model:    cfg.AIConfig.ModelType,
		BaseURL:  cfg.AIConfig.BaseURL,
		Timeout:  cfg.AIConfig.TimeoutDuration(),
	}, indicator, logger), indicator
}
