package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/snapvault/internal/flagx"
	"github.com/dmitrijs2005/snapvault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "30s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration"`
	AllowedOrigins               []string       `json:"allowed_origins"`
	BlobBackend                  string         `json:"blob_backend"`
	BotAPIBaseURL                string         `json:"bot_api_base_url"`
	BotAPIToken                  string         `json:"bot_api_token"`
	BotAPIChatID                 string         `json:"bot_api_chat_id"`
	MaxAssetSizeBytes            int64          `json:"max_asset_size_bytes"`
	TransferTimeout              timex.Duration `json:"transfer_timeout"`
	ExportConcurrency            int            `json:"export_concurrency"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.SessionTokenValidityDuration = time.Duration(c.SessionTokenValidityDuration.Duration)
	config.AllowedOrigins = c.AllowedOrigins
	config.BlobBackend = c.BlobBackend
	config.BotAPIBaseURL = c.BotAPIBaseURL
	config.BotAPIToken = c.BotAPIToken
	config.BotAPIChatID = c.BotAPIChatID
	config.MaxAssetSizeBytes = c.MaxAssetSizeBytes
	config.TransferTimeout = time.Duration(c.TransferTimeout.Duration)
	config.ExportConcurrency = c.ExportConcurrency
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
