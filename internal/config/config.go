// Package config loads the job process's ambient configuration (logging,
// metrics, health, heartbeat tuning) the way core/config does for the rest
// of plantd: viper-backed, YAML on disk, environment overrides, a typed
// struct decoded via mapstructure.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LokiConfig configures the optional Loki logging hook, mirroring
// core/config.LokiConfig.
type LokiConfig struct {
	Address string            `mapstructure:"address"`
	Labels  map[string]string `mapstructure:"labels"`
}

// LogConfig configures logrus output, mirroring core/config.LogConfig.
type LogConfig struct {
	Formatter string     `mapstructure:"formatter"`
	Level     string     `mapstructure:"level"`
	Loki      LokiConfig `mapstructure:"loki"`
}

// JobConfig is the job process's full configuration surface. Only
// WorkerAddress and MasterAddress are required; everything else has a
// sensible default applied by Load.
type JobConfig struct {
	WorkerAddress string `mapstructure:"worker_address"`
	MasterAddress string `mapstructure:"master_address"`
	BindHost      string `mapstructure:"bind_host"`

	ClientHeartbeatTimeout time.Duration `mapstructure:"client_heartbeat_timeout"`
	WorkerHeartbeatTimeout time.Duration `mapstructure:"worker_heartbeat_timeout"`

	MetricsAddress string `mapstructure:"metrics_address"`
	HealthAddress  string `mapstructure:"health_address"`

	Log LogConfig `mapstructure:"log"`
}

// defaults mirrors core/config's pattern of seeding viper before a config
// file is read, so every field is sane even with no file present at all.
func defaults(v *viper.Viper) {
	v.SetDefault("bind_host", "0.0.0.0")
	v.SetDefault("client_heartbeat_timeout", 5*time.Second)
	v.SetDefault("worker_heartbeat_timeout", 10*time.Second)
	v.SetDefault("metrics_address", "127.0.0.1:9610")
	v.SetDefault("health_address", "127.0.0.1:9611")
	v.SetDefault("log.formatter", "text")
	v.SetDefault("log.level", "info")
}

// Load reads job configuration from an optional file path plus the
// PLANTD_JOB_* environment namespace, following core/config.LoadConfig's
// name-plus-struct convention (see client/cmd/cli.go's initConfig for the
// call-site shape this mirrors).
func Load(path string) (*JobConfig, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("plantd_job")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg JobConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}
