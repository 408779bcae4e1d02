package authcore

import (
	"testing"
	"time"
)

func TestConfigValidateTable(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "default with keys",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "leeway valid",
			mutate: func(c *Config) {
				c.Token.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "leeway too large",
			mutate: func(c *Config) {
				c.Token.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "signing method invalid",
			mutate: func(c *Config) {
				c.Token.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "hs256 with shared secret",
			mutate: func(c *Config) {
				c.Token.SigningMethod = "hs256"
				c.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
				c.Token.PublicKey = nil
			},
			wantValid: true,
		},
		{
			name: "ed25519 missing private key",
			mutate: func(c *Config) {
				c.Token.PrivateKey = nil
			},
			wantValid: false,
		},
		{
			name: "ed25519 missing verify material",
			mutate: func(c *Config) {
				c.Token.PublicKey = nil
				c.Token.VerifyKeys = nil
			},
			wantValid: false,
		},
		{
			name: "surfaces empty",
			mutate: func(c *Config) {
				c.Surfaces = nil
			},
			wantValid: false,
		},
		{
			name: "surface entry missing",
			mutate: func(c *Config) {
				delete(c.Surfaces, SurfaceSalonEmployee)
			},
			wantValid: false,
		},
		{
			name: "surface unknown",
			mutate: func(c *Config) {
				c.Surfaces[Surface("KIOSK")] = SurfaceTTL{AccessTTL: time.Minute, RefreshTTL: time.Hour}
			},
			wantValid: false,
		},
		{
			name: "access ttl zero",
			mutate: func(c *Config) {
				c.Surfaces[SurfaceAdmin] = SurfaceTTL{AccessTTL: 0, RefreshTTL: time.Hour}
			},
			wantValid: false,
		},
		{
			name: "access ttl not below refresh ttl",
			mutate: func(c *Config) {
				c.Surfaces[SurfaceAdmin] = SurfaceTTL{AccessTTL: time.Hour, RefreshTTL: time.Hour}
			},
			wantValid: false,
		},
		{
			name: "redis prefix empty",
			mutate: func(c *Config) {
				c.Session.RedisPrefix = ""
			},
			wantValid: false,
		},
		{
			name: "retention zero",
			mutate: func(c *Config) {
				c.Session.Retention = 0
			},
			wantValid: false,
		},
		{
			name: "retention below longest refresh ttl",
			mutate: func(c *Config) {
				c.Session.Retention = time.Hour
			},
			wantValid: false,
		},
		{
			name: "reaper enabled without interval",
			mutate: func(c *Config) {
				c.Reaper.Enabled = true
				c.Reaper.Interval = 0
			},
			wantValid: false,
		},
		{
			name: "reaper enabled without batch",
			mutate: func(c *Config) {
				c.Reaper.Enabled = true
				c.Reaper.ScanBatch = 0
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestCloneConfigIsolatesCallerMutation(t *testing.T) {
	cfg := testConfig(t)
	cfg.Token.VerifyKeys = map[string][]byte{"k1": cfg.Token.PublicKey}

	clone := cloneConfig(cfg)

	cfg.Surfaces[SurfaceAdmin] = SurfaceTTL{AccessTTL: time.Second, RefreshTTL: time.Minute}
	cfg.Token.PrivateKey[0] ^= 0xFF
	cfg.Token.VerifyKeys["k2"] = []byte("extra")

	if clone.Surfaces[SurfaceAdmin].AccessTTL == time.Second {
		t.Fatal("clone shares Surfaces map with caller")
	}
	if clone.Token.PrivateKey[0] == cfg.Token.PrivateKey[0] {
		t.Fatal("clone shares PrivateKey with caller")
	}
	if _, ok := clone.Token.VerifyKeys["k2"]; ok {
		t.Fatal("clone shares VerifyKeys map with caller")
	}
}

func TestDefaultConfigCoversAllSurfaces(t *testing.T) {
	cfg := DefaultConfig()
	for _, surface := range AllSurfaces() {
		ttl, ok := cfg.Surfaces[surface]
		if !ok {
			t.Fatalf("default config missing surface %s", surface)
		}
		if ttl.AccessTTL <= 0 || ttl.RefreshTTL <= ttl.AccessTTL {
			t.Fatalf("surface %s has implausible TTLs: %+v", surface, ttl)
		}
	}
	if cfg.Session.Retention <= 0 {
		t.Fatal("default retention must be positive")
	}
}
