package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

// configValidator reports fields by their koanf key so errors read like
// the configuration file.
func configValidator() *validator.Validate {
	vldOnce.Do(func() {
		vld = validator.New()
		vld.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return vld
}

// Validate checks cfg against the declared constraints plus the
// backend-specific storage requirements. Load and LoadBytes call it
// automatically.
func Validate(cfg *Config) error {
	if err := configValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %q failed %q validation", fieldPath(fe), fe.Tag())
		}
		return err
	}
	return validateStorage(&cfg.Storage)
}

// validateStorage checks only what must be known up front. The redis
// backend fills defaults and validates the rest when the store connects.
func validateStorage(cfg *StorageConfig) error {
	switch cfg.Backend {
	case BackendFile:
		if cfg.Dir == "" {
			return errors.New("storage.dir is required for the file backend")
		}
	case BackendRedis:
		if cfg.Redis.Host == "" {
			return errors.New("storage.redis.host is required for the redis backend")
		}
	}
	return nil
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
