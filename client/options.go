package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vgavro/requests-client/logger"
	"github.com/vgavro/requests-client/storage"
)

const (
	// DefaultTimeout is the default request timeout duration.
	DefaultTimeout = 30 * time.Second

	// DefaultDebugLevel enables sleep and init logging but not request dumps.
	DefaultDebugLevel = 4

	// DefaultWarnElapsed is the elapsed-time threshold for slow-request warnings.
	DefaultWarnElapsed = 5 * time.Second

	// DefaultTemporaryRetries is the default temporary-error retry budget.
	DefaultTemporaryRetries = 1
)

// Doer executes a single HTTP request. *http.Client satisfies it; tests and
// embedders can substitute their own transport.
type Doer interface {
	Do(req *nethttp.Request) (*nethttp.Response, error)
}

// Config holds the client configuration assembled by the Builder.
type Config struct {
	Name    string
	BaseURL string
	Timeout time.Duration

	ExpectStatus     StatusSpec
	JSONContentTypes []string
	DebugLevel       int

	RequestWait                 time.Duration
	RequestWaitWithResponseTime bool
	WarnElapsed                 time.Duration

	RatelimitRetries int
	RatelimitWait    time.Duration
	TemporaryRetries int
	TemporaryWait    time.Duration
	BackoffFactory   BackoffFactory

	ErrorProcessors []Processor

	ProxyURL        string
	TLSVerify       bool
	FollowRedirects bool
	DefaultHeaders  map[string]string
	BasicAuth       *BasicAuth

	RateLimit float64
	RateBurst int

	TraceHeader      string
	TraceIDGenerator func() string

	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor

	HTTPClient Doer
	Clock      Clock

	Authenticator    Authenticator
	AuthRecoverer    AuthRecoverer
	AuthIdent        string
	AutoAuthenticate bool

	StateStore storage.Storage
	StateHooks StateHooks
}

// Builder provides a fluent interface for configuring the client.
type Builder struct {
	config *Config
	logger logger.Logger
}

// NewBuilder creates a client builder with defaults: 30s timeout, expect
// status 200, no retries beyond one temporary retry, redirects not followed.
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:          DefaultTimeout,
			ExpectStatus:     StatusSpec{nethttp.StatusOK},
			JSONContentTypes: []string{"application/json"},
			DebugLevel:       DefaultDebugLevel,
			WarnElapsed:      DefaultWarnElapsed,
			TemporaryRetries: DefaultTemporaryRetries,
			TLSVerify:        true,
			AutoAuthenticate: true,
			DefaultHeaders:   make(map[string]string),
		},
		logger: log,
	}
}

// WithName sets the client name used in logs and telemetry attributes.
func (b *Builder) WithName(name string) *Builder {
	b.config.Name = name
	return b
}

// WithBaseURL sets the base URL joined with scheme-less request URLs.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the request timeout. Zero disables the timeout.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithExpectStatus sets the default expected statuses. No arguments accepts
// every status.
func (b *Builder) WithExpectStatus(statuses ...int) *Builder {
	b.config.ExpectStatus = StatusSpec(statuses)
	return b
}

// WithJSONContentTypes sets the content types that trigger JSON decoding.
func (b *Builder) WithJSONContentTypes(types ...string) *Builder {
	b.config.JSONContentTypes = types
	return b
}

// WithDebugLevel sets log verbosity from 1 to 5. Level 4 logs sleeps and
// initialization, level 5 dumps requests and responses.
func (b *Builder) WithDebugLevel(level int) *Builder {
	b.config.DebugLevel = level
	return b
}

// WithRequestWait sets the minimum delay between requests. When
// withResponseTime is true the delay is measured from response completion
// instead of send start.
func (b *Builder) WithRequestWait(wait time.Duration, withResponseTime bool) *Builder {
	b.config.RequestWait = wait
	b.config.RequestWaitWithResponseTime = withResponseTime
	return b
}

// WithWarnElapsed sets the elapsed-time threshold for slow-request warnings.
func (b *Builder) WithWarnElapsed(threshold time.Duration) *Builder {
	b.config.WarnElapsed = threshold
	return b
}

// WithRatelimitRetries sets the ratelimit retry budget and the default wait
// between attempts.
func (b *Builder) WithRatelimitRetries(retries int, wait time.Duration) *Builder {
	b.config.RatelimitRetries = retries
	b.config.RatelimitWait = wait
	return b
}

// WithTemporaryRetries sets the temporary-error retry budget and the default
// wait between attempts.
func (b *Builder) WithTemporaryRetries(retries int, wait time.Duration) *Builder {
	b.config.TemporaryRetries = retries
	b.config.TemporaryWait = wait
	return b
}

// WithBackoffFactory replaces the constant waits with a custom per-lane
// backoff policy. The error's own positive Wait still takes precedence.
func (b *Builder) WithBackoffFactory(factory BackoffFactory) *Builder {
	b.config.BackoffFactory = factory
	return b
}

// WithErrorProcessors appends client-wide error processors, run on every
// error each attempt raises.
func (b *Builder) WithErrorProcessors(processors ...Processor) *Builder {
	b.config.ErrorProcessors = append(b.config.ErrorProcessors, processors...)
	return b
}

// WithProxy routes requests through the given proxy URL.
func (b *Builder) WithProxy(proxyURL string) *Builder {
	b.config.ProxyURL = proxyURL
	return b
}

// WithTLSVerify toggles TLS certificate verification.
func (b *Builder) WithTLSVerify(verify bool) *Builder {
	b.config.TLSVerify = verify
	return b
}

// WithFollowRedirects sets the default redirect policy. Requests can
// override it individually.
func (b *Builder) WithFollowRedirects(follow bool) *Builder {
	b.config.FollowRedirects = follow
	return b
}

// WithDefaultHeader adds a header sent with every request.
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithBasicAuth sets basic authentication credentials.
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{Username: username, Password: password}
	return b
}

// WithRateLimit caps outgoing requests per second with the given burst.
func (b *Builder) WithRateLimit(perSecond float64, burst int) *Builder {
	b.config.RateLimit = perSecond
	b.config.RateBurst = burst
	return b
}

// WithClock injects the time source used for waits and timing.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.config.Clock = clock
	return b
}

// WithHTTPClient replaces the built transport. Timeout, proxy, TLS and
// redirect settings then belong to the supplied Doer.
func (b *Builder) WithHTTPClient(doer Doer) *Builder {
	b.config.HTTPClient = doer
	return b
}

// WithRequestInterceptor adds a request interceptor.
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor.
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithTraceHeader injects a generated trace id into every request under the
// given header name.
func (b *Builder) WithTraceHeader(name string) *Builder {
	b.config.TraceHeader = name
	return b
}

// WithTraceIDGenerator replaces the default uuid trace id generator.
func (b *Builder) WithTraceIDGenerator(gen func() string) *Builder {
	b.config.TraceIDGenerator = gen
	return b
}

// WithAuth sets the authenticator. If it also implements AuthRecoverer it
// recovers auth-required failures.
func (b *Builder) WithAuth(auth Authenticator) *Builder {
	b.config.Authenticator = auth
	return b
}

// WithAuthRecoverer sets a dedicated recoverer for auth-required failures.
func (b *Builder) WithAuthRecoverer(recoverer AuthRecoverer) *Builder {
	b.config.AuthRecoverer = recoverer
	return b
}

// WithAuthIdent sets the account identity used for logging and state keys.
func (b *Builder) WithAuthIdent(ident string) *Builder {
	b.config.AuthIdent = ident
	return b
}

// WithAutoAuthenticate toggles authenticating before the first guarded
// operation.
func (b *Builder) WithAutoAuthenticate(auto bool) *Builder {
	b.config.AutoAuthenticate = auto
	return b
}

// WithStateStore persists session state keyed by the auth ident.
func (b *Builder) WithStateStore(store storage.Storage) *Builder {
	b.config.StateStore = store
	return b
}

// WithStateHooks registers callbacks invoked around state save and load.
func (b *Builder) WithStateHooks(hooks StateHooks) *Builder {
	b.config.StateHooks = hooks
	return b
}

// Build assembles the client and loads persisted session state when a state
// store and auth ident are configured.
func (b *Builder) Build(ctx context.Context) (*Client, error) {
	cfg := b.config

	log := b.logger
	if log == nil {
		log = logger.Noop()
	}
	if cfg.Name != "" {
		log = log.WithFields(map[string]any{"client": cfg.Name})
	}
	if cfg.AuthIdent != "" {
		log = log.WithEntity(cfg.AuthIdent)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport, err := buildTransport(cfg)
		if err != nil {
			return nil, err
		}
		httpClient = &nethttp.Client{
			Timeout:       cfg.Timeout,
			Transport:     transport,
			CheckRedirect: checkRedirect,
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}

	gen := cfg.TraceIDGenerator
	if gen == nil {
		gen = uuid.NewString
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	recoverer := cfg.AuthRecoverer
	if recoverer == nil {
		if r, ok := cfg.Authenticator.(AuthRecoverer); ok {
			recoverer = r
		}
	}

	c := &Client{
		config:               cfg,
		log:                  log,
		http:                 httpClient,
		clock:                clock,
		limiter:              limiter,
		traceIDGen:           gen,
		store:                cfg.StateStore,
		auth:                 cfg.Authenticator,
		recoverer:            recoverer,
		hooks:                cfg.StateHooks,
		requestInterceptors:  cfg.RequestInterceptors,
		responseInterceptors: cfg.ResponseInterceptors,
		authIdent:            cfg.AuthIdent,
	}

	if c.store != nil && c.authIdent != "" {
		if _, err := c.loadState(ctx); err != nil {
			return nil, err
		}
	}

	if cfg.DebugLevel >= 4 {
		c.log.Debug().
			Str("base_url", cfg.BaseURL).
			Dur("timeout", cfg.Timeout).
			Int("ratelimit_retries", cfg.RatelimitRetries).
			Int("temporary_retries", cfg.TemporaryRetries).
			Msg("Client initialized")
	}
	return c, nil
}

func buildTransport(cfg *Config) (*nethttp.Transport, error) {
	transport, ok := nethttp.DefaultTransport.(*nethttp.Transport)
	if ok {
		transport = transport.Clone()
	} else {
		transport = &nethttp.Transport{}
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = nethttp.ProxyURL(proxyURL)
	}

	if !cfg.TLSVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-out via WithTLSVerify(false)
		} else {
			transport.TLSClientConfig = transport.TLSClientConfig.Clone()
			transport.TLSClientConfig.InsecureSkipVerify = true
		}
	}
	return transport, nil
}

// checkRedirect follows redirects only when the request context asks for it,
// mirroring the stdlib's 10-hop cap. The default is to return the redirect
// response as-is.
func checkRedirect(req *nethttp.Request, via []*nethttp.Request) error {
	if follow, ok := req.Context().Value(followRedirectsKey).(bool); ok && follow {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
	return nethttp.ErrUseLastResponse
}
