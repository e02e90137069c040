package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port          string
	Environment   string
	APIKey        string
	AdminUsername string
	AdminPassword string

	// 起動時に読み込む売上データ（空なら /upload 待ち）
	SalesDataPath string

	// 再購入ラベルのしきい値（注文数と売上額の両方を超えたら再購入とみなす）
	RepurchaseOrdersThreshold int
	RepurchaseSalesThreshold  float64

	// 予測・学習のパラメータ
	ForecastHorizonYears int
	TrainSplit           float64
	RandomSeed           int64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		APIKey:        getEnv("API_KEY", "default_secret_key"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
		SalesDataPath: getEnv("SALES_DATA_PATH", ""),

		RepurchaseOrdersThreshold: getEnvInt("REPURCHASE_ORDERS_THRESHOLD", 5),
		RepurchaseSalesThreshold:  getEnvFloat("REPURCHASE_SALES_THRESHOLD", 2000),

		ForecastHorizonYears: getEnvInt("FORECAST_HORIZON_YEARS", 4),
		TrainSplit:           getEnvFloat("TRAIN_SPLIT", 0.8),
		RandomSeed:           int64(getEnvInt("RANDOM_SEED", 42)),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
