package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override the tx section. They match the names
// the gateway injects into each invocation.
const (
	EnvAPIURL           = "TX_API_URL"
	EnvPreConvertBucket = "TX_PRE_CONVERT_BUCKET"
	EnvCDNBucket        = "TX_CDN_BUCKET"
	EnvGogsURL          = "TX_GOGS_URL"
	EnvGogsUserToken    = "TX_GOGS_USER_TOKEN"
	EnvSourceURLBase    = "TX_SOURCE_URL_BASE"

	EnvStorageBackend   = "TX_STORAGE_BACKEND"
	EnvStorageEndpoint  = "TX_STORAGE_ENDPOINT"
	EnvStorageRegion    = "TX_STORAGE_REGION"
	EnvStorageAccessKey = "TX_STORAGE_ACCESS_KEY"
	EnvStorageSecretKey = "TX_STORAGE_SECRET_KEY"
	EnvStorageUseSSL    = "TX_STORAGE_USE_SSL"
	EnvStorageRoot      = "TX_STORAGE_ROOT"

	EnvNATSURL = "TX_NATS_URL"
)

// loadEnvFiles loads .env and .env.local if present. Existing process
// environment variables are not overwritten.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			slog.Warn("Failed to load env file", slog.String("path", envPath), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment variables", slog.String("path", envPath))
	}
}

func applyEnvOverrides(cfg *Config) {
	setFromEnv(&cfg.TX.APIURL, EnvAPIURL)
	setFromEnv(&cfg.TX.PreConvertBucket, EnvPreConvertBucket)
	setFromEnv(&cfg.TX.CDNBucket, EnvCDNBucket)
	setFromEnv(&cfg.TX.GogsURL, EnvGogsURL)
	setFromEnv(&cfg.TX.GogsUserToken, EnvGogsUserToken)
	setFromEnv(&cfg.TX.SourceURLBase, EnvSourceURLBase)

	if v := os.Getenv(EnvStorageBackend); v != "" {
		cfg.Storage.Backend = StorageBackend(v)
	}
	setFromEnv(&cfg.Storage.Endpoint, EnvStorageEndpoint)
	setFromEnv(&cfg.Storage.Region, EnvStorageRegion)
	setFromEnv(&cfg.Storage.AccessKey, EnvStorageAccessKey)
	setFromEnv(&cfg.Storage.SecretKey, EnvStorageSecretKey)
	setFromEnv(&cfg.Storage.Root, EnvStorageRoot)
	if v := os.Getenv(EnvStorageUseSSL); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Storage.UseSSL = b
		}
	}

	if v := os.Getenv(EnvNATSURL); v != "" {
		cfg.Notify.NATSURL = v
		cfg.Notify.Enabled = true
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
