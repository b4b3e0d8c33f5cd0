package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv    string
	LogLevel  string
	DBPath    string
	OutputDir string

	AdminUsername string
	AdminPassword string
	// Credentials the CLI logs in with.
	SessionUsername string
	SessionPassword string

	PexelsAPIBaseURL   string
	PexelsAPIKey       string
	PexelsRateLimitRPS int
	PexelsTimeoutMs    int
	PexelsPerPage      int
	PhotoHostPrefix    string
	PhotoMaxBytes      int64
	DownloadTimeoutMs  int

	StorageBackend string
	StorageDir     string
	S3BucketPrefix string
	S3Endpoint     string
	AWSRegion      string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	ReceiptListenerProvider    string
	ReceiptListenerLabel       string
	ReceiptListenerIntervalSec int
	ReceiptListenerFetchMax    int

	// Mailbox messages count as receipts only when they match these.
	ReceiptSenders           []string
	ReceiptSubjectKeywords   []string
	ReceiptRequireAttachment bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		PexelsAPIBaseURL:   getEnv("PEXELS_API_BASE_URL", "https://api.pexels.com/v1"),
		PexelsAPIKey:       getEnv("PEXELS_API_KEY", ""),
		PexelsRateLimitRPS: getEnvInt("PEXELS_RATE_LIMIT_RPS", 2),
		PexelsTimeoutMs:    getEnvInt("PEXELS_TIMEOUT_MS", 10000),
		PexelsPerPage:      getEnvInt("PEXELS_PER_PAGE", 3),
		PhotoHostPrefix:    getEnv("PHOTO_HOST_PREFIX", "https://images.pexels.com"),
		PhotoMaxBytes:      int64(getEnvInt("PHOTO_MAX_BYTES", 10<<20)),
		DownloadTimeoutMs:  getEnvInt("PHOTO_DOWNLOAD_TIMEOUT_MS", 30000),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", "fs")),
		StorageDir:     getEnv("STORAGE_DIR", filepath.Join(cwd, "data", "objects")),
		S3BucketPrefix: getEnv("S3_BUCKET_PREFIX", ""),
		S3Endpoint:     getEnv("AWS_S3_ENDPOINT", ""),
		AWSRegion:      getEnv("AWS_REGION", ""),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		ReceiptListenerProvider:    getEnv("RECEIPT_LISTENER_PROVIDER", "imap"),
		ReceiptListenerLabel:       getEnv("RECEIPT_LISTENER_LABEL", "INBOX"),
		ReceiptListenerIntervalSec: getEnvInt("RECEIPT_LISTENER_INTERVAL_SEC", 60),
		ReceiptListenerFetchMax:    getEnvInt("RECEIPT_LISTENER_FETCH_MAX", 20),

		ReceiptSenders:           getEnvList("RECEIPT_SENDERS", nil),
		ReceiptSubjectKeywords:   getEnvList("RECEIPT_SUBJECT_KEYWORDS", []string{"comprovante", "pix", "doa", "transfer"}),
		ReceiptRequireAttachment: getEnvBool("RECEIPT_REQUIRE_ATTACHMENT", true),
	}

	cfg.SessionUsername = getEnv("DOACOES_USER", cfg.AdminUsername)
	cfg.SessionPassword = getEnv("DOACOES_PASSWORD", "")

	switch cfg.StorageBackend {
	case "fs", "s3":
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_BACKEND: %s", cfg.StorageBackend)
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvList splits a comma-separated value, dropping blank entries.
func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
