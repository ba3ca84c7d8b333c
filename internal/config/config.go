package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "ETLDEMO_"

type HTTPConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// Config is the service configuration. Pipeline points at an optional
// pipeline YAML (source driver + sinks); empty means static source, no sinks.
type Config struct {
	HTTP            HTTPConfig    `koanf:"http"`
	GRPCPort        int           `koanf:"grpc_port"`
	MetricsPort     int           `koanf:"metrics_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Pipeline        string        `koanf:"pipeline"`
	Log             LogConfig     `koanf:"log"`
}

// Load merges YAML (if present) with env-vars
// (prefix `ETLDEMO_`, `__` separates nested keys: ETLDEMO_HTTP__ADDR).
// A relative pipeline path is resolved against the config file's directory.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Config{}, fmt.Errorf("config schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("config decode: %w", err)
	}
	applyDefaults(&cfg)
	if cfg.Pipeline != "" && path != "" && !filepath.IsAbs(cfg.Pipeline) {
		cfg.Pipeline = filepath.Join(filepath.Dir(path), cfg.Pipeline)
	}
	return cfg, nil
}

// envAliases maps flat variable names onto nested keys.
var envAliases = map[string]string{
	"log_level": "log.level",
	"log_json":  "log.json",
}

func envKey(s string) string {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	if a, ok := envAliases[k]; ok {
		return a
	}
	return k
}

func applyDefaults(c *Config) {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":5000"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 10 * time.Second
	}
	if c.GRPCPort == 0 {
		c.GRPCPort = 7070
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 9100
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
