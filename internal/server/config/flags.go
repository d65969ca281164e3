package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/snapvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret key
//	-t int      session token validity, minutes
//	-o string   comma-separated CORS origin patterns
//	-k string   blob backend, "botapi" or "s3"
//	-m int      max asset size, megabytes
//	-w int      transfer timeout, seconds
//	-x int      export fetch concurrency
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to time.Duration.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-o", "-k", "-m", "-w", "-x", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTokenValidityDuration := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session_token_validity_duration (in minutes)")
	allowedOrigins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "allowed CORS origins (comma-separated)")

	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend (botapi or s3)")
	maxAssetSizeMB := fs.Int64("m", config.MaxAssetSizeBytes>>20, "max asset size (in megabytes)")
	transferTimeout := fs.Int("w", int(config.TransferTimeout.Seconds()), "transfer timeout (in seconds)")
	fs.IntVar(&config.ExportConcurrency, "x", config.ExportConcurrency, "export fetch concurrency")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTokenValidityDuration = time.Duration(*sessionTokenValidityDuration) * time.Minute
	config.AllowedOrigins = strings.Split(*allowedOrigins, ",")
	config.MaxAssetSizeBytes = *maxAssetSizeMB << 20
	config.TransferTimeout = time.Duration(*transferTimeout) * time.Second
}
