// Package config loads client settings from defaults, YAML files and
// environment variables, and assembles ready-to-use clients from them.
//
// Every source may scope settings under the client name, so one file or
// environment can configure several clients side by side:
//
//	github:
//	  base_url: https://api.github.com
//	  storage:
//	    backend: file
//	    dir: /var/lib/clients
//
// Environment variables use the RC_ prefix with "__" as the key
// separator: RC_GITHUB__BASE_URL, RC_GITHUB__STORAGE__BACKEND.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RC_"

// Load loads configuration for the named client with priority:
// 1. Environment variables (highest priority)
// 2. The first existing YAML file among paths
// 3. Default values (lowest priority)
//
// When no paths are given, "<name>.yaml" is tried in the working directory
// and then in the user's home directory. A missing file is not an error;
// defaults and environment variables alone make a valid configuration.
func Load(name string, paths ...string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if len(paths) == 0 {
		paths = defaultPaths(name)
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		if err := mergeScoped(k, fk, name); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", path, err)
		}
		break
	}

	if err := loadEnv(k, name); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return finish(k)
}

// LoadBytes loads configuration for the named client from in-memory YAML
// on top of the defaults. Environment variables are not consulted, which
// keeps it deterministic for tests and embedded configuration.
func LoadBytes(name string, data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	rk := koanf.New(".")
	if err := rk.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := mergeScoped(k, rk, name); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	return finish(k)
}

// mergeScoped merges src into dst. When src has a section matching the
// client name, only that section is merged; otherwise the whole source
// applies, so single-client files need no wrapping.
func mergeScoped(dst, src *koanf.Koanf, name string) error {
	if name != "" && src.Exists(name) {
		src = src.Cut(name)
	}
	return dst.Merge(src)
}

// loadEnv merges RC_-prefixed environment variables scoped to the client
// name. RC_GITHUB__STORAGE__BACKEND becomes storage.backend for the
// client named "github"; variables for other names are ignored.
func loadEnv(k *koanf.Koanf, name string) error {
	ek := koanf.New(".")
	err := ek.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			return strings.ReplaceAll(key, "__", "."), value
		},
	}), nil)
	if err != nil {
		return err
	}
	if name == "" || !ek.Exists(name) {
		return nil
	}
	return k.Merge(ek.Cut(name))
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Keep the koanf instance for raw access to keys outside the struct.
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"timeout":            "30s",
		"expect_status":      []int{200},
		"json_content_types": []string{"application/json"},
		"debug_level":        4,
		"warn_elapsed":       "5s",
		"temporary_retries":  1,
		"tls_verify":         true,
		"auto_authenticate":  true,

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

func defaultPaths(name string) []string {
	paths := []string{name + ".yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, name+".yaml"))
	}
	return paths
}
