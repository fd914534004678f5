package goAuthClient

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/MrEthical07/goAuthClient/cache"
	"github.com/MrEthical07/goAuthClient/cookies"
	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/internal/clock"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/MrEthical07/goAuthClient/schedule"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single-use.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config     Config
	httpClient *http.Client
	jar        http.CookieJar
	clock      Clock
	logger     *zap.Logger
	redis      redis.UniversalClient
	stateCache cache.Cache
	auditSink  AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets Config.BaseURL.
func (b *Builder) WithBaseURL(base string) *Builder {
	b.config.BaseURL = base
	return b
}

// WithHTTPClient sets the client used for every request. The Engine copies it
// and installs its own cookie jar when the client has none.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithCookieJar sets the jar holding the session cookies. It takes precedence
// over the HTTP client's jar.
func (b *Builder) WithCookieJar(jar http.CookieJar) *Builder {
	b.jar = jar
	return b
}

// WithClock injects the time source. Nil means the wall clock.
func (b *Builder) WithClock(clk Clock) *Builder {
	b.clock = clk
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithRedis backs the snapshot cache with Redis instead of process memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStateCache installs a custom snapshot cache. It takes precedence over WithRedis.
func (b *Builder) WithStateCache(c cache.Cache) *Builder {
	b.stateCache = c
	return b
}

// WithAuditSink sets where lifecycle events go when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the call latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine. No network
// I/O happens until Init or an explicit operation is called.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse BaseURL: %w", err)
	}

	// -------- HTTP CLIENT / COOKIES --------
	var hc http.Client
	if b.httpClient != nil {
		hc = *b.httpClient
	}
	switch {
	case b.jar != nil:
		hc.Jar = b.jar
	case hc.Jar == nil:
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}

	clk := b.clock
	if clk == nil {
		clk = clock.Real{}
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:  cloneConfig(cfg),
		base:    base,
		http:    &hc,
		cookies: cookies.NewBridge(hc.Jar, base),
		clock:   clk,
		logger:  logger.Named("goAuthClient"),
	}

	// -------- SESSION / SCHEDULER --------
	engine.session = session.NewStore(clk, cfg.Session.ExpirySafetyBuffer)
	engine.scheduler = schedule.New(clk, cfg.Refresh.ProactiveBuffer, engine.onProactiveRefresh)
	engine.session.BindScheduler(engine.scheduler)
	engine.session.OnReconcile(engine.onReconcile)

	engine.refresher = refresh.New(engine.http, engine.endpoint(cfg.Endpoints.Refresh), cfg.Session.DefaultExpiresIn)

	// -------- SNAPSHOT CACHE --------
	switch {
	case b.stateCache != nil:
		engine.cache = b.stateCache
	case !cfg.Cache.Enabled:
	case b.redis != nil:
		engine.cache = cache.NewRedis(b.redis, cfg.Cache.RedisPrefix, cfg.Cache.TTL, clk)
	default:
		engine.cache = cache.NewMemory(clk, cfg.Cache.TTL)
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
