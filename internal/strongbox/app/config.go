package app

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/blob"
	vaultmail "github.com/aussiebroadwan/strongbox/internal/strongbox/mail"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/service"
	"github.com/aussiebroadwan/strongbox/pkg/cryptox"
	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
	"github.com/joho/godotenv"
)

// EnvFileVar names the variable pointing at an optional .env file.
const EnvFileVar = "STRONGBOX_ENV_FILE"

type Config struct {
	Env                 string        // dev, test, prod (default: dev)
	LogLevel            string        // debug, info, warn, error (default: info)
	LogFormat           string        // json, text (default: json)
	Port                int           // HTTP port (default: 8080)
	ShutdownGracePeriod time.Duration // graceful shutdown timeout (default: 10s)

	DatabaseFile  string // SQLite database path (default: strongbox.db)
	PepperFile    string // password pepper file (default: pepper)
	MasterKeyPath string // optional master key file; VAULT_MASTER_KEY is the fallback

	Issuer         string        // token issuer and OTP label (default: strongbox)
	KeyStorageMode string        // ephemeral, persistent (default: ephemeral)
	NumKeys        int           // signing keys to keep active (default: 3)
	KeyLifetime    time.Duration // persistent signing key lifetime (default: 90 days)
	AccessTokenTTL time.Duration // session token lifetime (default: 30m)
	OTPTTL         time.Duration // one-time code lifetime (default: 10m)
	ResetTokenTTL  time.Duration // password reset token lifetime (default: 10m)
	ResetURL       string        // optional front-end reset page

	MailDriver  string // log, smtp (default: log)
	MailTimeout time.Duration
	SMTP        vaultmail.SMTPConfig

	Blob           blob.Config
	BlobRetries    int
	MaxUploadBytes int64
	KDF            cryptox.KDFParams

	LinkMaxHours         int
	LinkRetention        time.Duration
	SessionRetention     time.Duration
	HousekeepingInterval time.Duration

	AllowedOrigins []string
	CookieSecure   bool
	PublicBaseURL  string
}

// LoadConfig reads the environment, after overlaying the .env file named by
// STRONGBOX_ENV_FILE (default .env) when it exists. Variables already set
// win over the file.
func LoadConfig() (Config, error) {
	envFile := getEnvOrDefault(EnvFileVar, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	cfg := Config{
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		DatabaseFile:  getEnvOrDefault("DATABASE_FILE", "strongbox.db"),
		PepperFile:    getEnvOrDefault("PEPPER_FILE", "pepper"),
		MasterKeyPath: os.Getenv("VAULT_MASTER_KEY_PATH"),

		Issuer:         getEnvOrDefault("TOKEN_ISSUER", "strongbox"),
		KeyStorageMode: getEnvOrDefault("KEY_STORAGE_MODE", "ephemeral"),
		NumKeys:        getEnvIntOrDefault("NUM_KEYS", 3),
		KeyLifetime:    getEnvDurationOrDefault("KEY_LIFETIME", 90*24*time.Hour),
		AccessTokenTTL: getEnvDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		OTPTTL:         getEnvDurationOrDefault("OTP_TTL", service.DefaultOTPTTL),
		ResetTokenTTL:  getEnvDurationOrDefault("RESET_TOKEN_TTL", service.DefaultResetTTL),
		ResetURL:       os.Getenv("RESET_URL"),

		MailDriver:  getEnvOrDefault("MAIL_DRIVER", "log"),
		MailTimeout: getEnvDurationOrDefault("MAIL_TIMEOUT", 10*time.Second),
		SMTP: vaultmail.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvIntOrDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvOrDefault("MAIL_FROM", "strongbox@localhost"),
		},

		Blob: blob.Config{
			Driver: getEnvOrDefault("BLOB_DRIVER", blob.DriverFileSystem),
			Dir:    getEnvOrDefault("BLOB_DIR", "blobs"),
			S3: blob.S3Config{
				Endpoint:     os.Getenv("S3_ENDPOINT"),
				Bucket:       os.Getenv("S3_BUCKET"),
				Region:       getEnvOrDefault("S3_REGION", "us-east-1"),
				AccessKey:    os.Getenv("S3_ACCESS_KEY"),
				SecretKey:    os.Getenv("S3_SECRET_KEY"),
				UsePathStyle: getEnvBoolOrDefault("S3_USE_PATH_STYLE", false),
			},
		},
		BlobRetries:    getEnvIntOrDefault("BLOB_RETRIES", service.DefaultBlobRetries),
		MaxUploadBytes: int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", service.DefaultMaxUploadBytes)),

		LinkMaxHours:         getEnvIntOrDefault("LINK_MAX_HOURS", service.DefaultLinkMaxHours),
		LinkRetention:        getEnvDurationOrDefault("LINK_RETENTION", service.DefaultLinkRetention),
		SessionRetention:     getEnvDurationOrDefault("SESSION_RETENTION", service.DefaultSessionRetention),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", service.DefaultHousekeepingInterval),

		AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		CookieSecure:   getEnvBoolOrDefault("COOKIE_SECURE", true),
		PublicBaseURL:  os.Getenv("PUBLIC_BASE_URL"),
	}

	kdf, err := kdfFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.KDF = kdf

	return cfg, nil
}

// kdfFromEnv reads the Argon2id work factors, rejecting values that would
// not fit their field before they are narrowed.
func kdfFromEnv() (cryptox.KDFParams, error) {
	def := cryptox.DefaultKDFParams
	memory := getEnvIntOrDefault("KDF_MEMORY_KIB", int(def.Memory))
	iterations := getEnvIntOrDefault("KDF_ITERATIONS", int(def.Iterations))
	parallelism := getEnvIntOrDefault("KDF_PARALLELISM", int(def.Parallelism))

	switch {
	case memory < 0 || memory > math.MaxUint32:
		return cryptox.KDFParams{}, fmt.Errorf("KDF_MEMORY_KIB %d out of range", memory)
	case iterations < 0 || iterations > math.MaxUint32:
		return cryptox.KDFParams{}, fmt.Errorf("KDF_ITERATIONS %d out of range", iterations)
	case parallelism < 0 || parallelism > math.MaxUint8:
		return cryptox.KDFParams{}, fmt.Errorf("KDF_PARALLELISM %d out of range", parallelism)
	}

	p := cryptox.KDFParams{
		Memory:      uint32(memory),
		Iterations:  uint32(iterations),
		Parallelism: uint8(parallelism),
	}
	if err := p.Validate(); err != nil {
		return cryptox.KDFParams{}, err
	}
	return p, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

// splitList parses a comma separated list, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
