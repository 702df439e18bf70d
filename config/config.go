package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultSourceURL = "https://www.cmegroup.com/delivery_reports/Silver_stocks.xls"

// MaxHistoryLimit is the longest history retained; HISTORY_LIMIT may only
// shorten it.
const MaxHistoryLimit = 120

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SourceURL      string
	UserAgent      string
	HTTPTimeout    time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration

	BrowserWarmup    bool
	BrowserWarmupURL string
	ChromeBin        string

	HeaderScanRows int
	DateScanRows   int
	MatchersPath   string
	ColumnRules    []ColumnRule

	HistoryBackend string
	HistoryPath    string
	HistoryLimit   int
	CSVOutputPath  string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ListenAddr string
	LogLevel   string
}

// Load reads the .env file, then the environment, and finally the optional
// column-matcher overrides referenced by MATCHERS_PATH.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		SourceURL: getEnv("CME_XLS_URL", DefaultSourceURL),
		UserAgent: getEnv("USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		HTTPTimeout:    time.Duration(getEnvInt("HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay: time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 2000)) * time.Millisecond,

		BrowserWarmup:    getEnvBool("BROWSER_WARMUP", false),
		BrowserWarmupURL: getEnv("BROWSER_WARMUP_URL", "https://www.cmegroup.com/"),
		ChromeBin:        getEnv("CHROME_BIN", ""),

		HeaderScanRows: getEnvInt("HEADER_SCAN_ROWS", 120),
		DateScanRows:   getEnvInt("DATE_SCAN_ROWS", 40),
		MatchersPath:   getEnv("MATCHERS_PATH", ""),

		HistoryBackend: strings.ToLower(getEnv("HISTORY_BACKEND", "file")),
		HistoryPath:    getEnv("HISTORY_PATH", "./public/data/history.json"),
		HistoryLimit:   getEnvInt("HISTORY_LIMIT", MaxHistoryLimit),
		CSVOutputPath:  getEnv("CSV_OUTPUT_PATH", "./output/history.csv"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "stocks"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "stocks123"),
		PostgresDB:       getEnv("POSTGRES_DB", "warehouse_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}

	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > MaxHistoryLimit {
		log.Printf("[config] HISTORY_LIMIT=%d out of range, using %d", cfg.HistoryLimit, MaxHistoryLimit)
		cfg.HistoryLimit = MaxHistoryLimit
	}

	cfg.ColumnRules = DefaultColumnRules()
	if cfg.MatchersPath != "" {
		rules, err := LoadColumnRules(cfg.MatchersPath)
		if err != nil {
			return nil, err
		}
		cfg.ColumnRules = rules
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
