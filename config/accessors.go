package config

import "time"

// Raw accessors reach any key from the loaded sources, including keys
// outside the typed Config fields. APIs often need ad-hoc settings
// (endpoint quirks, feature switches) that don't warrant a struct field.

// Exists reports whether key is present in any loaded source.
func (c *Config) Exists(key string) bool {
	return c != nil && c.k != nil && c.k.Exists(key)
}

// GetString returns the string at key, or the optional default when the
// key is absent.
func (c *Config) GetString(key string, defaultVal ...string) string {
	if !c.Exists(key) {
		return optionalDefault("", defaultVal...)
	}
	return c.k.String(key)
}

// GetInt returns the int at key, or the optional default when the key is
// absent.
func (c *Config) GetInt(key string, defaultVal ...int) int {
	if !c.Exists(key) {
		return optionalDefault(0, defaultVal...)
	}
	return c.k.Int(key)
}

// GetBool returns the bool at key, or the optional default when the key
// is absent.
func (c *Config) GetBool(key string, defaultVal ...bool) bool {
	if !c.Exists(key) {
		return optionalDefault(false, defaultVal...)
	}
	return c.k.Bool(key)
}

// GetDuration returns the duration at key, or the optional default when
// the key is absent.
func (c *Config) GetDuration(key string, defaultVal ...time.Duration) time.Duration {
	if !c.Exists(key) {
		return optionalDefault(0, defaultVal...)
	}
	return c.k.Duration(key)
}

// GetStrings returns the string slice at key, nil when the key is absent.
func (c *Config) GetStrings(key string) []string {
	if !c.Exists(key) {
		return nil
	}
	return c.k.Strings(key)
}

// Raw returns a copy of the entire merged configuration map.
func (c *Config) Raw() map[string]any {
	if c == nil || c.k == nil {
		return nil
	}
	return c.k.Raw()
}

func optionalDefault[T any](zero T, defaultVal ...T) T {
	if len(defaultVal) > 0 {
		return defaultVal[0]
	}
	return zero
}
