package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Env                string
	LocalStackEndpoint string
	Engine             EngineConfig
	Custody            CustodyConfig
	Redis              RedisConfig
}

// EngineConfig holds matching-engine settings.
type EngineConfig struct {
	Addr             string
	SettleIntervalMS int
	MirrorOrders     bool
}

// CustodyConfig holds custody operator key settings. In production the
// operator key arrives as a KMS ciphertext; in development it is derived
// from DevOperatorSeed.
type CustodyConfig struct {
	KMSKeyID        string
	AWSRegion       string
	OperatorKeyB64  string // base64 KMS ciphertext of the operator key
	DevOperatorSeed string
}

// RedisConfig holds Redis connection settings for the order mirror.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment variables prefixed with CROSSLANE_.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CROSSLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("env", "development")

	// Engine defaults
	v.SetDefault("engine.addr", "localhost:8540")
	v.SetDefault("engine.settle_interval_ms", 250)
	v.SetDefault("engine.mirror_orders", false)

	// Custody defaults
	v.SetDefault("custody.aws_region", "us-east-1")
	v.SetDefault("custody.dev_operator_seed", "crosslane-dev-operator")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	cfg := &Config{}

	cfg.Env = v.GetString("env")
	cfg.LocalStackEndpoint = v.GetString("localstack_endpoint")

	cfg.Engine = EngineConfig{
		Addr:             v.GetString("engine.addr"),
		SettleIntervalMS: v.GetInt("engine.settle_interval_ms"),
		MirrorOrders:     v.GetBool("engine.mirror_orders"),
	}

	cfg.Custody = CustodyConfig{
		KMSKeyID:        v.GetString("custody.kms_key_id"),
		AWSRegion:       v.GetString("custody.aws_region"),
		OperatorKeyB64:  v.GetString("custody.operator_key_b64"),
		DevOperatorSeed: v.GetString("custody.dev_operator_seed"),
	}

	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}

	return cfg, nil
}
