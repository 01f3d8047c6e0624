package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress           string
	DatabaseURI          string
	GatewaySecretKey     string
	GatewayWebhookSecret string
	NotificationAddress  string
	TokenSecret          string
	Currency             string
	CheckoutSuccessURL   string
	CheckoutCancelURL    string
	MinChargeAmount      int64
	GatewayTimeout       time.Duration
	LockTimeout          time.Duration
	CleanupInterval      time.Duration
	StaleAfter           time.Duration
	WorkerPoolSize       int
	CleanupBatch         int
	ShutdownTimeout      time.Duration
}

const (
	defaultRunAddress      = ":8080"
	defaultTokenSecret     = "change-me-in-production"
	defaultCurrency        = "usd"
	defaultMinCharge       = 50
	defaultGatewayTimeout  = 10 * time.Second
	defaultLockTimeout     = 30 * time.Second
	defaultCleanupInterval = 10 * time.Minute
	defaultStaleAfter      = 24 * time.Hour
	defaultWorkerPoolSize  = 4
	defaultCleanupBatch    = 32
	defaultShutdownTimeout = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:           getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:          getString(lookup, "DATABASE_URI", ""),
		GatewaySecretKey:     getString(lookup, "GATEWAY_SECRET_KEY", ""),
		GatewayWebhookSecret: getString(lookup, "GATEWAY_WEBHOOK_SECRET", ""),
		NotificationAddress:  getString(lookup, "NOTIFICATION_ADDRESS", ""),
		TokenSecret:          getString(lookup, "TOKEN_SECRET", defaultTokenSecret),
		Currency:             getString(lookup, "CHECKOUT_CURRENCY", defaultCurrency),
		CheckoutSuccessURL:   getString(lookup, "CHECKOUT_SUCCESS_URL", ""),
		CheckoutCancelURL:    getString(lookup, "CHECKOUT_CANCEL_URL", ""),
		MinChargeAmount:      getInt64(lookup, "MIN_CHARGE_AMOUNT", defaultMinCharge),
		GatewayTimeout:       getDuration(lookup, "GATEWAY_TIMEOUT", defaultGatewayTimeout),
		LockTimeout:          getDuration(lookup, "LOCK_TIMEOUT", defaultLockTimeout),
		CleanupInterval:      getDuration(lookup, "CLEANUP_INTERVAL", defaultCleanupInterval),
		StaleAfter:           getDuration(lookup, "STALE_AFTER", defaultStaleAfter),
		WorkerPoolSize:       getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		CleanupBatch:         getInt(lookup, "CLEANUP_BATCH_SIZE", defaultCleanupBatch),
		ShutdownTimeout:      getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	fs := flag.NewFlagSet("coursepay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		gatewayTimeoutStr  = cfg.GatewayTimeout.String()
		lockTimeoutStr     = cfg.LockTimeout.String()
		cleanupIntervalStr = cfg.CleanupInterval.String()
		staleAfterStr      = cfg.StaleAfter.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.GatewaySecretKey, "gateway-key", cfg.GatewaySecretKey, "Payment gateway secret key")
	fs.StringVar(&cfg.GatewayWebhookSecret, "webhook-secret", cfg.GatewayWebhookSecret, "Payment gateway webhook signing secret")
	fs.StringVar(&cfg.NotificationAddress, "n", cfg.NotificationAddress, "Notification service base URL")
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Secret for signing auth tokens")
	fs.StringVar(&cfg.Currency, "currency", cfg.Currency, "Checkout currency code")
	fs.StringVar(&cfg.CheckoutSuccessURL, "success-url", cfg.CheckoutSuccessURL, "Redirect URL after successful payment")
	fs.StringVar(&cfg.CheckoutCancelURL, "cancel-url", cfg.CheckoutCancelURL, "Redirect URL after canceled payment")
	fs.Int64Var(&cfg.MinChargeAmount, "min-charge", cfg.MinChargeAmount, "Minimum chargeable amount in minor units")
	fs.StringVar(&gatewayTimeoutStr, "gateway-timeout", gatewayTimeoutStr, "Per-request payment gateway call timeout")
	fs.StringVar(&lockTimeoutStr, "lock-timeout", lockTimeoutStr, "Named lock acquisition timeout")
	fs.StringVar(&cleanupIntervalStr, "cleanup-interval", cleanupIntervalStr, "Interval between stale purchase sweeps")
	fs.StringVar(&staleAfterStr, "stale-after", staleAfterStr, "Age after which a pending purchase is stale")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent cleanup workers")
	fs.IntVar(&cfg.CleanupBatch, "cleanup-batch", cfg.CleanupBatch, "Maximum purchases per cleanup sweep")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.GatewayTimeout, err = time.ParseDuration(gatewayTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid gateway timeout: %w", err)
	}

	if cfg.LockTimeout, err = time.ParseDuration(lockTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid lock timeout: %w", err)
	}

	if cfg.CleanupInterval, err = time.ParseDuration(cleanupIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid cleanup interval: %w", err)
	}

	if cfg.StaleAfter, err = time.ParseDuration(staleAfterStr); err != nil {
		return nil, fmt.Errorf("invalid stale-after duration: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("TOKEN_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read token secret file: %w", err)
		}
		cfg.TokenSecret = string(content)
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.CleanupBatch <= 0 {
		cfg.CleanupBatch = defaultCleanupBatch
	}

	if cfg.MinChargeAmount < 0 {
		cfg.MinChargeAmount = defaultMinCharge
	}

	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}

	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}

	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}

	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.GatewaySecretKey == "" {
		return nil, fmt.Errorf("gateway secret key must be provided")
	}

	if cfg.GatewayWebhookSecret == "" {
		return nil, fmt.Errorf("gateway webhook secret must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getInt64(lookup envLookup, key string, def int64) int64 {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
