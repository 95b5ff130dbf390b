// Package config loads matchd's environment-driven configuration with
// viper, returning a validated Config struct once at startup.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds every environment-driven setting matchd reads at
// startup. There is no config file or CLI-flag surface — only
// environment variables, each with a default.
type Config struct {
	// Port is the TCP port the trading protocol listens on.
	Port int
	// AdminPort serves /healthz and /metrics, separate from the
	// trading protocol.
	AdminPort int
	// BinaryProtocol selects the binary framing when true, the
	// text/JSON framing when false.
	BinaryProtocol bool
	// MulticastAddr and MulticastPort enable market-data publication
	// when MulticastAddr is non-empty.
	MulticastAddr string
	MulticastPort int
	// LogLevel is one of debug/info/warn/error.
	LogLevel string
	// PoolBlockBytes and PoolMaxBlocks size the order allocator.
	PoolBlockBytes int
	PoolMaxBlocks  int
	// SeedBalance is the cash balance a newly joined user starts with.
	SeedBalance float64
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("matchd")
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("admin_port", 9090)
	v.SetDefault("binary_protocol", true)
	v.SetDefault("multicast_addr", "")
	v.SetDefault("multicast_port", 9999)
	v.SetDefault("log_level", "info")
	v.SetDefault("pool_block_bytes", 0) // 0 => package default
	v.SetDefault("pool_max_blocks", 0)  // 0 => package default
	v.SetDefault("seed_balance", 10_000.0)

	cfg := &Config{
		Port:           v.GetInt("port"),
		AdminPort:      v.GetInt("admin_port"),
		BinaryProtocol: v.GetBool("binary_protocol"),
		MulticastAddr:  v.GetString("multicast_addr"),
		MulticastPort:  v.GetInt("multicast_port"),
		LogLevel:       v.GetString("log_level"),
		PoolBlockBytes: v.GetInt("pool_block_bytes"),
		PoolMaxBlocks:  v.GetInt("pool_max_blocks"),
		SeedBalance:    v.GetFloat64("seed_balance"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: invalid MATCHD_PORT %d", cfg.Port)
	}
	if cfg.AdminPort <= 0 || cfg.AdminPort > 65535 {
		return nil, fmt.Errorf("config: invalid MATCHD_ADMIN_PORT %d", cfg.AdminPort)
	}
	if cfg.SeedBalance < 0 {
		return nil, fmt.Errorf("config: invalid MATCHD_SEED_BALANCE %v", cfg.SeedBalance)
	}

	return cfg, nil
}
