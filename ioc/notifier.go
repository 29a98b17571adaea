package ioc

import (
	"log/slog"

	"github.com/quantline/signal-engine/internal/service/notification"
	"github.com/quantline/signal-engine/internal/service/notification/telegram"
	"github.com/spf13/viper"
)

// InitNotifier falls back to console delivery when no telegram token is set.
func InitNotifier() notification.Notifier {
	type Config struct {
		Token string `mapstructure:"token"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("notify.telegram", &cfg); err != nil {
		panic(err)
	}

	if cfg.Token == "" {
		slog.Warn("no telegram token configured, signals go to the console")
		return notification.NewConsoleNotifier()
	}

	notifier, err := telegram.New(cfg.Token)
	if err != nil {
		panic(err)
	}
	return notifier
}
