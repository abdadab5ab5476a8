package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"nwuledger/internal/ledger"
)

// Config holds the daemon configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// Admin is the genesis admin identity, granted on first run.
	Admin ledger.Identity

	// Treasury receives submission fees.
	Treasury ledger.Identity

	// MaxCertificateSupply caps certificate minting.
	MaxCertificateSupply uint64

	// LogLevel is the minimum slog level.
	LogLevel slog.Level
}

// loadConfig merges config file values with command-line flags.
// Flags win over the file; the file wins over defaults.
func loadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("dataPath", "./data")
	v.SetDefault("httpAddress", ":8080")
	v.SetDefault("admin", "admin")
	v.SetDefault("treasury", "treasury")
	v.SetDefault("maxCertificateSupply", uint64(ledger.MaxCertificateSupply))
	v.SetDefault("logLevel", "info")

	var configPath string
	flag.StringVar(&configPath, "config", "", "Config file path (yaml)")

	data := flag.String("data", "", "Data directory path")
	httpAddr := flag.String("http", "", "HTTP API address")
	admin := flag.String("admin", "", "Genesis admin identity")
	treasury := flag.String("treasury", "", "Treasury identity for submission fees")
	maxSupply := flag.Uint64("max-certificates", 0, "Certificate supply cap")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	if configPath != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if *data != "" {
		v.Set("dataPath", *data)
	}
	if *httpAddr != "" {
		v.Set("httpAddress", *httpAddr)
	}
	if *admin != "" {
		v.Set("admin", *admin)
	}
	if *treasury != "" {
		v.Set("treasury", *treasury)
	}
	if *maxSupply != 0 {
		v.Set("maxCertificateSupply", *maxSupply)
	}
	if *logLevel != "" {
		v.Set("logLevel", *logLevel)
	}

	cfg := &Config{
		DataPath:             v.GetString("dataPath"),
		HTTPAddress:          v.GetString("httpAddress"),
		Admin:                ledger.Identity(v.GetString("admin")),
		Treasury:             ledger.Identity(v.GetString("treasury")),
		MaxCertificateSupply: v.GetUint64("maxCertificateSupply"),
		LogLevel:             parseLevel(v.GetString("logLevel")),
	}

	if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseLevel maps a level name to a slog level, defaulting to info.
func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
