package authcore

import (
	"errors"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token    TokenConfig
	Surfaces map[Surface]SurfaceTTL
	Session  SessionConfig
	Reaper   ReaperConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by authcore APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// SurfaceTTL holds the per-surface token lifetimes. Access TTLs bound the
// revocation exposure window; refresh TTLs bound how long an idle device
// stays signed in.
type SurfaceTTL struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by authcore APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string
	// Retention is how long revoked sessions and refresh records remain
	// readable for reuse detection and audit before Redis expires them.
	Retention time.Duration
}

/*
====================================
REAPER CONFIG
====================================
*/

// ReaperConfig defines a public type used by authcore APIs.
//
// ReaperConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ReaperConfig struct {
	Enabled   bool
	Interval  time.Duration
	ScanBatch int64
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Signing keys are not
// included; callers must set Token.PrivateKey and Token.PublicKey (or
// VerifyKeys) before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod: "ed25519",
			Issuer:        "authcore",
		},
		Surfaces: map[Surface]SurfaceTTL{
			SurfaceAdmin:         {AccessTTL: 15 * time.Minute, RefreshTTL: 7 * 24 * time.Hour},
			SurfaceSalonOwner:    {AccessTTL: 15 * time.Minute, RefreshTTL: 30 * 24 * time.Hour},
			SurfaceSalonEmployee: {AccessTTL: 10 * time.Minute, RefreshTTL: 14 * 24 * time.Hour},
		},
		Session: SessionConfig{
			RedisPrefix: "ac",
			Retention:   30 * 24 * time.Hour,
		},
		Reaper: ReaperConfig{
			Enabled:   false,
			Interval:  10 * time.Minute,
			ScanBatch: 256,
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
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	if cfg.Token.VerifyKeys != nil {
		out.Token.VerifyKeys = make(map[string][]byte, len(cfg.Token.VerifyKeys))
		for kid, key := range cfg.Token.VerifyKeys {
			out.Token.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	if cfg.Surfaces != nil {
		out.Surfaces = make(map[Surface]SurfaceTTL, len(cfg.Surfaces))
		for surface, ttl := range cfg.Surfaces {
			out.Surfaces[surface] = ttl
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Token
	if c.Token.SigningMethod != "ed25519" && c.Token.SigningMethod != "hs256" {
		return errors.New("unsupported token signing method")
	}
	if c.Token.SigningMethod == "ed25519" && len(c.Token.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.Token.SigningMethod == "ed25519" && len(c.Token.PublicKey) == 0 && len(c.Token.VerifyKeys) == 0 {
		return errors.New("ed25519 requires PublicKey or VerifyKeys")
	}
	if c.Token.SigningMethod == "hs256" && len(c.Token.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Surfaces: every defined surface needs both TTLs so a token request
	// can never fall back to an implicit lifetime.
	if len(c.Surfaces) == 0 {
		return errors.New("Surfaces must not be empty")
	}
	var maxRefreshTTL time.Duration
	for _, surface := range AllSurfaces() {
		ttl, ok := c.Surfaces[surface]
		if !ok {
			return errors.New("Surfaces is missing an entry for " + string(surface))
		}
		if ttl.AccessTTL <= 0 {
			return errors.New("AccessTTL must be > 0 for " + string(surface))
		}
		if ttl.RefreshTTL <= 0 {
			return errors.New("RefreshTTL must be > 0 for " + string(surface))
		}
		if ttl.AccessTTL >= ttl.RefreshTTL {
			return errors.New("AccessTTL must be < RefreshTTL for " + string(surface))
		}
		if ttl.RefreshTTL > maxRefreshTTL {
			maxRefreshTTL = ttl.RefreshTTL
		}
	}
	for surface := range c.Surfaces {
		if !surface.Valid() {
			return errors.New("Surfaces contains unknown surface " + string(surface))
		}
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.Retention <= 0 {
		return errors.New("Session Retention must be > 0")
	}
	if c.Session.Retention < maxRefreshTTL {
		return errors.New("Session Retention must cover the longest RefreshTTL")
	}

	// Reaper
	if c.Reaper.Enabled {
		if c.Reaper.Interval <= 0 {
			return errors.New("Reaper Interval must be > 0")
		}
		if c.Reaper.ScanBatch <= 0 {
			return errors.New("Reaper ScanBatch must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
