package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	authcore "github.com/salonkit/authcore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newGuardTestService(t *testing.T) *authcore.Service {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	cfg := authcore.DefaultConfig()
	cfg.Token.PrivateKey = priv
	cfg.Token.PublicKey = pub

	service, err := authcore.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	t.Cleanup(func() {
		service.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return service
}

func guardedEcho(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := PayloadFromContext(r.Context())
		if !ok {
			t.Fatal("payload missing from guarded request context")
		}
		w.Header().Set("X-User-ID", payload.UserID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardAcceptsValidBearer(t *testing.T) {
	service := newGuardTestService(t)

	pair, err := service.Authenticate(context.Background(), "u1", authcore.SurfaceSalonOwner)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	handler := Guard(service)(guardedEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-User-ID") != "u1" {
		t.Fatalf("expected payload injected, got %q", rec.Header().Get("X-User-ID"))
	}
}

func TestGuardRejectionsAreBare401s(t *testing.T) {
	service := newGuardTestService(t)

	handler := Guard(service)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for rejected requests")
	}))

	headers := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic dXNlcjpwYXNz",
		"empty bearer":   "Bearer ",
		"garbage token":  "Bearer not-a-jwt",
	}
	for name, value := range headers {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if value != "" {
			req.Header.Set("Authorization", value)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestRequireSurfaceDistinguishes401From403(t *testing.T) {
	service := newGuardTestService(t)
	ctx := context.Background()

	ownerPair, err := service.Authenticate(ctx, "u1", authcore.SurfaceSalonOwner)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	adminPair, err := service.Authenticate(ctx, "u2", authcore.SurfaceAdmin)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	handler := RequireSurface(service, authcore.SurfaceAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"admin token", adminPair.AccessToken, http.StatusOK},
		{"owner token", ownerPair.AccessToken, http.StatusForbidden},
		{"no token", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}
