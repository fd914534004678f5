package goAuthClient

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config describes an Engine. Obtain one from [DefaultConfig], adjust it, and
// pass it to [Builder.WithConfig].
type Config struct {
	BaseURL   string
	Endpoints EndpointsConfig
	Session   SessionConfig
	Refresh   RefreshConfig
	Bootstrap BootstrapConfig
	Caller    CallerConfig
	Cache     CacheConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
ENDPOINTS CONFIG
====================================
*/

// EndpointsConfig holds identity-service paths relative to BaseURL.
type EndpointsConfig struct {
	RequestOTP string
	VerifyOTP  string
	Refresh    string
	Logout     string
	// FunctionPrefix is joined with the function name for ExecuteFunction.
	FunctionPrefix string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls token validity.
type SessionConfig struct {
	// ExpirySafetyBuffer is subtracted from the token expiry when deciding
	// whether the token is still valid.
	ExpirySafetyBuffer time.Duration
	// DefaultExpiresIn applies when a token response omits expires_in.
	DefaultExpiresIn time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls the proactive refresh timer.
type RefreshConfig struct {
	// ProactiveBuffer is how long before expiry the timer fires.
	ProactiveBuffer time.Duration
}

/*
====================================
BOOTSTRAP CONFIG
====================================
*/

// BootstrapConfig controls session restoration at Init.
type BootstrapConfig struct {
	SettleDelay time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

/*
====================================
CALLER CONFIG
====================================
*/

// CallerConfig controls authenticated calls and logout.
type CallerConfig struct {
	Timeout       time.Duration
	LogoutTimeout time.Duration
	// CoalesceReauth shares one refresh between concurrent calls that hit 401.
	CoalesceReauth bool
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the authenticated-state snapshot cache.
type CacheConfig struct {
	Enabled     bool
	TTL         time.Duration
	RedisPrefix string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. BaseURL is left empty and must be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Endpoints: EndpointsConfig{
			RequestOTP:     "/auth/request-otp",
			VerifyOTP:      "/auth/verify-otp",
			Refresh:        "/auth/refresh",
			Logout:         "/auth/logout",
			FunctionPrefix: "/api/function/",
		},
		Session: SessionConfig{
			ExpirySafetyBuffer: 60 * time.Second,
			DefaultExpiresIn:   21600 * time.Second,
		},
		Refresh: RefreshConfig{
			ProactiveBuffer: 5 * time.Minute,
		},
		Bootstrap: BootstrapConfig{
			SettleDelay: 100 * time.Millisecond,
			MaxAttempts: 3,
			Backoff:     time.Second,
		},
		Caller: CallerConfig{
			Timeout:        30 * time.Second,
			LogoutTimeout:  5 * time.Second,
			CoalesceReauth: false,
		},
		Cache: CacheConfig{
			Enabled:     true,
			TTL:         5 * time.Minute,
			RedisPrefix: "acs",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// Base URL
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("BaseURL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.New("BaseURL is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("BaseURL scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("BaseURL must include a host")
	}

	// Endpoints
	endpoints := []struct{ name, path string }{
		{"RequestOTP", c.Endpoints.RequestOTP},
		{"VerifyOTP", c.Endpoints.VerifyOTP},
		{"Refresh", c.Endpoints.Refresh},
		{"Logout", c.Endpoints.Logout},
		{"FunctionPrefix", c.Endpoints.FunctionPrefix},
	}
	for _, ep := range endpoints {
		if !strings.HasPrefix(ep.path, "/") {
			return errors.New("Endpoints " + ep.name + " must start with /")
		}
	}
	if !strings.HasSuffix(c.Endpoints.FunctionPrefix, "/") {
		return errors.New("Endpoints FunctionPrefix must end with /")
	}

	// Session
	if c.Session.ExpirySafetyBuffer < 0 {
		return errors.New("Session ExpirySafetyBuffer must be >= 0")
	}
	if c.Session.DefaultExpiresIn <= 0 {
		return errors.New("Session DefaultExpiresIn must be > 0")
	}

	// Refresh
	if c.Refresh.ProactiveBuffer <= 0 {
		return errors.New("Refresh ProactiveBuffer must be > 0")
	}
	if c.Refresh.ProactiveBuffer <= c.Session.ExpirySafetyBuffer {
		return errors.New("Refresh ProactiveBuffer must exceed Session ExpirySafetyBuffer")
	}

	// Bootstrap
	if c.Bootstrap.SettleDelay < 0 {
		return errors.New("Bootstrap SettleDelay must be >= 0")
	}
	if c.Bootstrap.MaxAttempts < 1 || c.Bootstrap.MaxAttempts > 10 {
		return errors.New("Bootstrap MaxAttempts must be in [1,10]")
	}
	if c.Bootstrap.Backoff < 0 {
		return errors.New("Bootstrap Backoff must be >= 0")
	}

	// Caller
	if c.Caller.Timeout <= 0 {
		return errors.New("Caller Timeout must be > 0")
	}
	if c.Caller.LogoutTimeout <= 0 {
		return errors.New("Caller LogoutTimeout must be > 0")
	}

	// Cache
	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			return errors.New("Cache TTL must be > 0 when enabled")
		}
		if strings.TrimSpace(c.Cache.RedisPrefix) == "" {
			return errors.New("Cache RedisPrefix must not be blank when enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
