// Package config loads RideLedger's runtime configuration via
// github.com/spf13/viper from environment variables and an optional
// config file, exposing exactly the fields spec §6 names plus the
// command timeout and retry tuning of spec §5.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is RideLedger's runtime configuration.
type Config struct {
	// ConnectionString is the store's DSN (sqlite file path or
	// postgres connection string).
	ConnectionString string

	// TenantClaim and UserClaim name the JWT claims a presentation
	// layer reads to build a tenantctx.Context before calling into
	// rideledger.Service (spec §4.8/§6).
	TenantClaim string
	UserClaim   string

	// DefaultCurrency is used when a caller does not specify one for
	// a brand-new account.
	DefaultCurrency string

	// CommandTimeout bounds a single UnitOfWork attempt (spec §5).
	CommandTimeout time.Duration

	// RetryMaxAttempts bounds store.RetryPolicy's retry budget (spec §5).
	RetryMaxAttempts uint
}

func defaults(v *viper.Viper) {
	v.SetDefault("tenant_claim", "tenant_id")
	v.SetDefault("user_claim", "sub")
	v.SetDefault("default_currency", "USD")
	v.SetDefault("command_timeout", "30s")
	v.SetDefault("retry_max_attempts", 3)
}

// Load reads configuration from the environment (prefixed
// RIDELEDGER_) and, if present, a config file named by configPath. An
// empty configPath skips the file and relies on environment/defaults
// alone.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("RIDELEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		ConnectionString: v.GetString("connection_string"),
		TenantClaim:      v.GetString("tenant_claim"),
		UserClaim:        v.GetString("user_claim"),
		DefaultCurrency:  strings.ToUpper(v.GetString("default_currency")),
		CommandTimeout:   v.GetDuration("command_timeout"),
		RetryMaxAttempts: uint(v.GetUint32("retry_max_attempts")),
	}

	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("config: connection_string is required (set RIDELEDGER_CONNECTION_STRING)")
	}

	return cfg, nil
}
