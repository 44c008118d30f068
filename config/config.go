package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はプロセス全体の設定。環境変数から読み込む。
type Config struct {
	Addr            string        `env:"MERC_LOBBY_ADDR" envDefault:":8000"`
	LogLevel        string        `env:"MERC_LOBBY_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"MERC_LOBBY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// FromEnv は環境変数を読み込んで設定を返す。
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Level は LogLevel 文字列を slog のレベルに変換する。未知の値は info。
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
