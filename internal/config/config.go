// Package config loads the engine's full configuration surface from the
// environment, per spec.md §6, mirroring the teacher's requireEnv /
// getEnvOrDefault split between secrets (fatal if missing) and tunables
// (safe defaults).
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rawblock/snipe-engine/internal/ingest"
	"github.com/rawblock/snipe-engine/internal/position"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/internal/rug"
	"github.com/rawblock/snipe-engine/pkg/models"
)

// LoadDotEnv loads a .env file if present. Missing files are not an error;
// real deployments set the environment directly.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("[Config] no .env file found, reading from process environment")
	}
}

// Config is the fully parsed configuration surface.
type Config struct {
	Port string

	DatabaseURL string

	PoolSource  ingest.Source
	PushEndpoint string
	PushToken   string

	OrderCacheTTL    time.Duration
	FeeCacheTTL      time.Duration
	HoneypotCacheTTL time.Duration

	MaxWalletsPerUser int

	PositionMonitorInterval time.Duration

	RugMonitorInterval     time.Duration
	RugLiqDropPct          float64
	RugSupplyUpPct         float64
	RugHolderDumpPct       float64
	RugTopHoldersN         int
	EmergencyExitSlippagePct float64
	EmergencyExitRetries     int

	ExitSlippageBps     int
	ExitPriorityFeeMode models.PriorityFeeMode

	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration
	BreakerMonitoringPeriod time.Duration

	AllowedOrigins string
	APIAuthToken   string

	MaxConcurrentSnipesPerUser int
	PostExitCooldown           time.Duration

	WebhookURL         string
	WebhookMinSeverity string
}

// Load reads every configuration value named in spec.md §6. Secrets that
// have no safe default (DATABASE_URL) are read with requireEnv and exit the
// process if missing; everything else falls back to getEnvOrDefault.
func Load() Config {
	return Config{
		Port: getEnvOrDefault("PORT", "8080"),

		DatabaseURL: requireEnv("DATABASE_URL"),

		PoolSource:   ingest.Source(getEnvOrDefault("POOL_SOURCE", string(ingest.SourcePush))),
		PushEndpoint: getEnvOrDefault("PUSH_ENDPOINT", ""),
		PushToken:    getEnvOrDefault("PUSH_TOKEN", ""),

		OrderCacheTTL:    seconds("ORDER_CACHE_TTL_SECONDS", 30),
		FeeCacheTTL:      seconds("FEE_CACHE_TTL_SECONDS", 10),
		HoneypotCacheTTL: seconds("HONEYPOT_CACHE_TTL_SECONDS", 3600),

		MaxWalletsPerUser: intOrDefault("MAX_WALLETS_PER_USER", 5),

		PositionMonitorInterval: millis("POSITION_MONITOR_INTERVAL_MS", int64(position.DefaultConfig().Interval/time.Millisecond)),

		RugMonitorInterval:       millis("RUG_MONITOR_INTERVAL_MS", int64(rug.DefaultConfig().Interval/time.Millisecond)),
		RugLiqDropPct:            floatOrDefault("RUG_LIQ_DROP_PCT", rug.DefaultConfig().LiqDropPct),
		RugSupplyUpPct:           floatOrDefault("RUG_SUPPLY_UP_PCT", rug.DefaultConfig().SupplyUpPct),
		RugHolderDumpPct:         floatOrDefault("RUG_HOLDER_DUMP_PCT", rug.DefaultConfig().HolderDumpPct),
		RugTopHoldersN:           intOrDefault("TOP_HOLDERS_N", rug.DefaultConfig().TopHoldersN),
		EmergencyExitSlippagePct: floatOrDefault("EMERGENCY_EXIT_SLIPPAGE_PCT", rug.DefaultConfig().EmergencyExitSlippagePct),
		EmergencyExitRetries:     intOrDefault("EMERGENCY_EXIT_RETRIES", rug.DefaultConfig().EmergencyExitRetries),

		ExitSlippageBps:     intOrDefault("EXIT_SLIPPAGE_BPS", 100),
		ExitPriorityFeeMode: models.PriorityFeeMode(getEnvOrDefault("EXIT_PRIORITY_FEE_MODE", string(models.FeeModeMedium))),

		BreakerFailureThreshold: intOrDefault("FAILURE_THRESHOLD", rpc.DefaultBreakerConfig().FailureThreshold),
		BreakerSuccessThreshold: intOrDefault("SUCCESS_THRESHOLD", rpc.DefaultBreakerConfig().SuccessThreshold),
		BreakerTimeout:          millis("TIMEOUT_MS", int64(rpc.DefaultBreakerConfig().Timeout/time.Millisecond)),
		BreakerMonitoringPeriod: millis("MONITORING_PERIOD_MS", int64(rpc.DefaultBreakerConfig().MonitoringPeriod/time.Millisecond)),

		AllowedOrigins: getEnvOrDefault("ALLOWED_ORIGINS", "*"),
		APIAuthToken:   getEnvOrDefault("API_AUTH_TOKEN", ""),

		MaxConcurrentSnipesPerUser: intOrDefault("MAX_CONCURRENT_SNIPES_PER_USER", 3),
		PostExitCooldown:           seconds("POST_EXIT_COOLDOWN_SECONDS", 60),

		WebhookURL:         getEnvOrDefault("ALERT_WEBHOOK_URL", ""),
		WebhookMinSeverity: getEnvOrDefault("ALERT_WEBHOOK_MIN_SEVERITY", "high"),
	}
}

// requireEnv reads a required environment variable and exits if it is not
// set, preventing the binary from starting with missing critical config.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// GetEnvOrDefault exposes getEnvOrDefault for callers outside this package
// that need one-off endpoint settings not worth adding to Config, such as
// the composition root's external service base URLs.
func GetEnvOrDefault(key, fallback string) string {
	return getEnvOrDefault(key, fallback)
}

// getEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intOrDefault(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("[Config] invalid int for %s=%q, using default %d", key, val, fallback)
		return fallback
	}
	return n
}

func floatOrDefault(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Printf("[Config] invalid float for %s=%q, using default %.2f", key, val, fallback)
		return fallback
	}
	return f
}

func seconds(key string, fallbackSeconds int64) time.Duration {
	return time.Duration(intOrDefault(key, int(fallbackSeconds))) * time.Second
}

func millis(key string, fallbackMillis int64) time.Duration {
	return time.Duration(intOrDefault(key, int(fallbackMillis))) * time.Millisecond
}
