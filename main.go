package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantline/signal-engine/internal/config"
	"github.com/quantline/signal-engine/internal/entity"
	"github.com/quantline/signal-engine/internal/repo"
	"github.com/quantline/signal-engine/internal/schedule"
	"github.com/quantline/signal-engine/internal/service/indicator"
	"github.com/quantline/signal-engine/internal/service/llm"
	"github.com/quantline/signal-engine/internal/service/llm/gemini"
	"github.com/quantline/signal-engine/internal/service/oracle"
	"github.com/quantline/signal-engine/internal/service/pricing"
	signalsvc "github.com/quantline/signal-engine/internal/service/signal"
	"github.com/quantline/signal-engine/ioc"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper() {

	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}

}

func main() {
	initViper()

	cfg, err := config.FromViper()
	if err != nil {
		panic(err)
	}

	db := ioc.InitDB()
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	signalRepo := repo.NewSignalRepo(db)
	bindingRepo := repo.NewBindingRepo(db)
	cooldowns := signalsvc.NewCooldownManager(bindingRepo)

	httpCli := &http.Client{Timeout: 10 * time.Second}
	bian := ioc.InitBinanceCli()

	breaker := pricing.NewBreakerRegistry(cfg.BreakerFailures, cfg.BreakerOpenFor)
	prices := pricing.NewAggregator([]pricing.Provider{
		pricing.NewBinanceProvider(bian),
		pricing.NewCryptoCompareProvider(httpCli),
		pricing.NewYahooProvider(httpCli),
		pricing.NewCoinGeckoProvider(httpCli),
		pricing.NewDIAProvider(httpCli),
	}, pricing.WithBreaker(breaker), pricing.WithCacheTTL(cfg.PriceCacheTTL))

	snapshots := indicator.NewCachingProvider(map[entity.Market]indicator.KlineSource{
		entity.MarketCrypto: indicator.NewBinanceKlineSource(bian),
		entity.MarketForex:  indicator.NewYahooKlineSource(httpCli),
	}, indicator.WithTTL(cfg.IndicatorCacheTTL))

	var llmSvc llm.Service
	if geminiCli := ioc.InitGeminiCli(); geminiCli != nil {
		llmSvc = gemini.NewService(geminiCli)
	}
	oracleSvc := oracle.New(llmSvc, oracle.WithCacheTTL(cfg.OracleCacheTTL))

	var sentiment signalsvc.SentimentService = signalsvc.NeutralSentiment{}
	if token := viper.GetString("news.cryptopanic.token"); token != "" {
		sentiment = signalsvc.NewCryptoPanicSentiment(httpCli, token,
			signalsvc.WithSentimentTTL(cfg.SentimentCacheTTL))
	}

	notifier := ioc.InitNotifier()

	universes := map[entity.Market]signalsvc.Universe{
		entity.MarketCrypto: signalsvc.NewCryptoCompareUniverse(httpCli,
			viper.GetString("news.cryptocompare.api_key"), 30),
		entity.MarketForex: signalsvc.StaticUniverse(signalsvc.DefaultForexPairs),
	}

	scanner := signalsvc.NewScanner(cfg, signalRepo, bindingRepo, cooldowns,
		prices, snapshots, sentiment, oracleSvc, notifier, universes)
	monitor := signalsvc.NewMonitor(cfg, signalRepo, bindingRepo, cooldowns,
		prices, oracleSvc, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanRunner := schedule.NewRunner(scanner, cfg.ScanInterval)
	monitorRunner := schedule.NewRunner(monitor, cfg.MonitorInterval)
	scanRunner.Start(ctx)
	monitorRunner.Start(ctx)
	slog.Info("signal engine started",
		"scan_interval", cfg.ScanInterval, "monitor_interval", cfg.MonitorInterval)

	<-ctx.Done()
	scanRunner.Stop()
	monitorRunner.Stop()
	slog.Info("signal engine stopped")
}
