package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/vgavro/requests-client/storage/redis"
)

// Storage backend identifiers.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config holds every tunable of a client in one flat structure, populated
// from defaults, an optional YAML file and RC_-prefixed environment
// variables. Zero values fall back to the loader defaults, so a Config
// built by hand should go through Load or LoadBytes instead.
type Config struct {
	// BaseURL is prepended to relative request URLs.
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`

	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`

	// ExpectStatus lists the status codes accepted by default. Codes 1-9
	// are wildcards for whole ranges (2 accepts any 2xx).
	ExpectStatus []int `koanf:"expect_status"`

	// JSONContentTypes lists content types decoded as JSON.
	JSONContentTypes []string `koanf:"json_content_types"`

	// DebugLevel controls request/response logging verbosity (0-5).
	DebugLevel int `koanf:"debug_level" validate:"min=0,max=5"`

	// RequestWait spaces out consecutive requests. When
	// RequestWaitWithResponseTime is set, the pause is measured from
	// response completion instead of send start.
	RequestWait                 time.Duration `koanf:"request_wait" validate:"min=0"`
	RequestWaitWithResponseTime bool          `koanf:"request_wait_with_response_time"`

	// WarnElapsed logs a warning when a request takes longer than this.
	WarnElapsed time.Duration `koanf:"warn_elapsed" validate:"min=0"`

	// RatelimitRetries and RatelimitWait control retries after 429-style
	// responses. RatelimitWait is the fallback when the server does not
	// say how long to wait.
	RatelimitRetries int           `koanf:"ratelimit_retries" validate:"min=0"`
	RatelimitWait    time.Duration `koanf:"ratelimit_wait" validate:"min=0"`

	// TemporaryRetries and TemporaryWait control retries of transient
	// failures. Zero wait retries immediately.
	TemporaryRetries int           `koanf:"temporary_retries" validate:"min=0"`
	TemporaryWait    time.Duration `koanf:"temporary_wait" validate:"min=0"`

	// Proxy routes traffic through the given URL when set.
	Proxy string `koanf:"proxy" validate:"omitempty,url"`

	// TLSVerify toggles certificate verification.
	TLSVerify bool `koanf:"tls_verify"`

	// FollowRedirects toggles automatic redirect handling.
	FollowRedirects bool `koanf:"follow_redirects"`

	// Headers are sent with every request.
	Headers map[string]string `koanf:"headers"`

	// BasicAuth enables HTTP basic auth when a username or password is set.
	BasicAuth BasicAuthConfig `koanf:"basic_auth"`

	// RateLimit caps outgoing requests per second; zero disables the
	// limiter. RateBurst allows short bursts above the sustained rate.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`
	RateBurst int     `koanf:"rate_burst" validate:"min=0"`

	// TraceHeader carries a per-request trace ID when set.
	TraceHeader string `koanf:"trace_header"`

	// AuthIdent namespaces persisted session state, for several accounts
	// sharing one store.
	AuthIdent string `koanf:"auth_ident"`

	// AutoAuthenticate authenticates lazily on the first request that
	// needs it.
	AutoAuthenticate bool `koanf:"auto_authenticate"`

	// Storage selects where session state is persisted.
	Storage StorageConfig `koanf:"storage"`

	// Log configures the client logger built by BuildClient.
	Log LogConfig `koanf:"log"`

	k *koanf.Koanf
}

// BasicAuthConfig holds HTTP basic auth credentials.
type BasicAuthConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// StorageConfig selects and configures the session state backend. An empty
// Backend leaves the client stateless.
type StorageConfig struct {
	Backend string `koanf:"backend" validate:"omitempty,oneof=file redis"`

	// Prefix namespaces keys in the store. Defaults to the client name.
	Prefix string `koanf:"prefix"`

	// Dir is the state directory for the file backend.
	Dir string `koanf:"dir"`

	// Redis configures the redis backend. Validated only when selected.
	Redis redis.Config `koanf:"redis" validate:"-"`
}

// LogConfig configures the logger used by BuildClient.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
}
