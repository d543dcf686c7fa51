package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultEnv            = "dev"
	defaultDBPath         = "./dev.db"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	defaultSourceWH       = "Stores"
	defaultFinishedGoods  = "Finished Goods"
	defaultScrapWarehouse = "Scrap"
)

var (
	defaultWastePercent = decimal.NewFromInt(5)
	defaultProfitMargin = decimal.NewFromInt(25)
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env       string
	DBPath    string
	Port      string
	LogLevel  string
	LogFormat string

	DefaultWastePercent decimal.Decimal
	DefaultProfitMargin decimal.Decimal

	Warehouses Warehouses
}

// Warehouses names the stock locations used by production stock entries.
type Warehouses struct {
	Source        string
	FinishedGoods string
	Scrap         string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		Env:       getenv("APP_ENV", defaultEnv),
		DBPath:    getenv("DB_PATH", defaultDBPath),
		Port:      getenv("PORT", defaultPort),
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", defaultLogLevel)),
		LogFormat: strings.ToLower(getenv("LOG_FORMAT", defaultLogFormat)),

		DefaultWastePercent: getPercent("DEFAULT_WASTE_PERCENT", defaultWastePercent),
		DefaultProfitMargin: getPercent("DEFAULT_PROFIT_MARGIN", defaultProfitMargin),

		Warehouses: Warehouses{
			Source:        getenv("SOURCE_WAREHOUSE", defaultSourceWH),
			FinishedGoods: getenv("FG_WAREHOUSE", defaultFinishedGoods),
			Scrap:         getenv("SCRAP_WAREHOUSE", defaultScrapWarehouse),
		},
	}

	return cfg
}

// IsDev reports whether the app runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "development"
}

// loadDotEnv loads KEY=VALUE pairs from a dotenv file into the process
// environment. A missing file is not an error and existing variables are
// never overwritten.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getPercent(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() || v.GreaterThan(decimal.NewFromInt(100)) {
		slog.Warn("ignoring invalid percentage", "key", key, "value", raw, "default", fallback.String())
		return fallback
	}
	return v
}
