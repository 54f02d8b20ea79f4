package config

import (
	"context"
	"fmt"

	"github.com/vgavro/requests-client/client"
	"github.com/vgavro/requests-client/logger"
	"github.com/vgavro/requests-client/storage"
	redisstore "github.com/vgavro/requests-client/storage/redis"
)

// BuildClient assembles a ready client named name from cfg: logger,
// storage backend and every pipeline setting, injected explicitly.
func BuildClient(ctx context.Context, name string, cfg *Config) (*client.Client, error) {
	return BuildClientWithLogger(ctx, name, cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty))
}

// BuildClientWithLogger is BuildClient with a caller-supplied logger, for
// embedding into applications that already have one.
func BuildClientWithLogger(ctx context.Context, name string, cfg *Config, log logger.Logger) (*client.Client, error) {
	store, err := BuildStorage(name, cfg)
	if err != nil {
		return nil, err
	}

	b := client.NewBuilder(log).
		WithName(name).
		WithBaseURL(cfg.BaseURL).
		WithTimeout(cfg.Timeout).
		WithDebugLevel(cfg.DebugLevel).
		WithRequestWait(cfg.RequestWait, cfg.RequestWaitWithResponseTime).
		WithWarnElapsed(cfg.WarnElapsed).
		WithRatelimitRetries(cfg.RatelimitRetries, cfg.RatelimitWait).
		WithTemporaryRetries(cfg.TemporaryRetries, cfg.TemporaryWait).
		WithTLSVerify(cfg.TLSVerify).
		WithFollowRedirects(cfg.FollowRedirects).
		WithAuthIdent(cfg.AuthIdent).
		WithAutoAuthenticate(cfg.AutoAuthenticate)

	if len(cfg.ExpectStatus) > 0 {
		b = b.WithExpectStatus(cfg.ExpectStatus...)
	}
	if len(cfg.JSONContentTypes) > 0 {
		b = b.WithJSONContentTypes(cfg.JSONContentTypes...)
	}
	if cfg.Proxy != "" {
		b = b.WithProxy(cfg.Proxy)
	}
	for key, value := range cfg.Headers {
		b = b.WithDefaultHeader(key, value)
	}
	if cfg.BasicAuth.Username != "" || cfg.BasicAuth.Password != "" {
		b = b.WithBasicAuth(cfg.BasicAuth.Username, cfg.BasicAuth.Password)
	}
	if cfg.RateLimit > 0 {
		b = b.WithRateLimit(cfg.RateLimit, cfg.RateBurst)
	}
	if cfg.TraceHeader != "" {
		b = b.WithTraceHeader(cfg.TraceHeader)
	}
	if store != nil {
		b = b.WithStateStore(store)
	}

	return b.Build(ctx)
}

// BuildStorage constructs the configured state store, nil when no backend
// is selected. Keys are namespaced under the storage prefix, which
// defaults to the client name.
func BuildStorage(name string, cfg *Config) (storage.Storage, error) {
	var store storage.Storage

	switch cfg.Storage.Backend {
	case "":
		return nil, nil
	case BackendFile:
		fs, err := storage.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to build file storage: %w", err)
		}
		store = fs
	case BackendRedis:
		rs, err := redisstore.NewStore(&cfg.Storage.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to build redis storage: %w", err)
		}
		store = rs
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	prefix := cfg.Storage.Prefix
	if prefix == "" {
		prefix = name
	}
	if prefix != "" {
		store = storage.NewPrefixed(store, prefix+":")
	}

	return store, nil
}
