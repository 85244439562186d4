// Package config loads service configuration from defaults, YAML and environment
// variables with koanf.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const defaultConfigFile = "config.yaml"

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. config.yaml and config.<env>.yaml, when present
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if err := loadOptionalFile(k, defaultConfigFile); err != nil {
			return err
		}
		if env := k.String("app.env"); env != "" {
			return loadOptionalFile(k, fmt.Sprintf("config.%s.yaml", env))
		}
		return nil
	})
}

// LoadFile loads configuration from the YAML file at path, which must exist.
func LoadFile(path string) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		return nil
	})
}

// LoadBytes loads configuration from in-memory YAML, for embedded or test configuration.
func LoadBytes(data []byte) (*Config, error) {
	return load(func(k *koanf.Koanf) error {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to parse yaml: %w", err)
		}
		return nil
	})
}

func load(loadYAML func(*koanf.Koanf) error) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadYAML(k); err != nil {
		return nil, err
	}

	// Environment variables override everything: TENANCY_COLUMN -> tenancy.column
	if err := k.Load(envprovider.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadOptionalFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "tenantguard",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,

		"server.host": "0.0.0.0",
		"server.port": 8080,

		"log.level":  "info",
		"log.pretty": false,

		"tenancy.column":        "tenant_id",
		"tenancy.sentinel":      -1,
		"tenancy.header.tenant": "X-Tenant-ID",
		"tenancy.header.user":   "X-User-ID",
		"tenancy.ignore.tables": []string{
			"sys_tenant",
			"sys_tenant_package",
			"sys_dict_type",
			"sys_dict_data",
			"sys_config",
			"sys_menu",
			"sys_job",
			"sys_oper_log",
		},
		"tenancy.ignore.prefixes": []string{"temp_", "tmp_", "cache_"},

		"executor.workers":        8,
		"executor.queue":          256,
		"executor.rejectwhenfull": false,

		"directory.ttl":        "5m",
		"directory.maxsize":    1000,
		"directory.stalegrace": "30m",

		// Database defaults not provided for deterministic behavior
		// Database will only be enabled when explicitly configured
		"database.port":           5432,
		"database.session.prefix": "app",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
