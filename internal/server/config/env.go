package config

import (
	"os"

	"github.com/joho/godotenv"
)

// parseEnv overlays secrets and connection settings from the environment.
// A .env file in the working directory is loaded first when present, so
// local development does not require exporting variables by hand. Only
// variables that are actually set override the current values.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setIfPresent := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setIfPresent("SNAPVAULT_ENDPOINT_ADDR", &config.EndpointAddr)
	setIfPresent("SNAPVAULT_DATABASE_DSN", &config.DatabaseDSN)
	setIfPresent("SNAPVAULT_SECRET_KEY", &config.SecretKey)
	setIfPresent("SNAPVAULT_BLOB_BACKEND", &config.BlobBackend)
	setIfPresent("SNAPVAULT_BOT_API_BASE_URL", &config.BotAPIBaseURL)
	setIfPresent("SNAPVAULT_BOT_TOKEN", &config.BotAPIToken)
	setIfPresent("SNAPVAULT_BOT_CHAT_ID", &config.BotAPIChatID)
	setIfPresent("SNAPVAULT_S3_ROOT_USER", &config.S3RootUser)
	setIfPresent("SNAPVAULT_S3_ROOT_PASSWORD", &config.S3RootPassword)
	setIfPresent("SNAPVAULT_S3_BUCKET", &config.S3Bucket)
	setIfPresent("SNAPVAULT_S3_REGION", &config.S3Region)
	setIfPresent("SNAPVAULT_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
}
