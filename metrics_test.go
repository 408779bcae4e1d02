package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestMetricsCountersTrackLifecycle(t *testing.T) {
	service, _ := newTestService(t, testConfig(t))
	ctx := context.Background()

	pair, err := service.Authenticate(ctx, "u1", SurfaceSalonOwner)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if _, err := service.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := service.Authenticate(ctx, "", SurfaceAdmin); !errors.Is(err, ErrUserIDRequired) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if _, err := service.Authorize(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	snap := service.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricAuthenticateSuccess: 1,
		MetricAuthenticateFailure: 1,
		MetricSessionCreated:      1,
		MetricRefreshSuccess:      1,
		MetricAccessIssued:        2,
		MetricAccessRejected:      1,
	}
	for id, want := range expect {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("metric %d: expected %d, got %d", id, want, got)
		}
	}
}

func TestMetricsDisabledSnapshotEmpty(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	service, err := New().WithConfig(testConfig(t)).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer service.Close()

	if _, err := service.Authenticate(context.Background(), "u1", SurfaceAdmin); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	snap := service.MetricsSnapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot when disabled, got %+v", snap)
	}
}

func TestMetricsLatencyHistogramObserved(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	service, err := New().
		WithConfig(testConfig(t)).
		WithRedis(rdb).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer service.Close()

	ctx := context.Background()
	pair, err := service.Authenticate(ctx, "u1", SurfaceAdmin)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := service.Authorize(ctx, pair.AccessToken); err != nil {
			t.Fatalf("Authorize failed: %v", err)
		}
	}

	snap := service.MetricsSnapshot()
	buckets, ok := snap.Histograms[MetricAuthorizeLatency]
	if !ok {
		t.Fatal("expected authorize latency histogram")
	}
	var total uint64
	for _, v := range buckets {
		total += v
	}
	if total != 5 {
		t.Fatalf("expected 5 observations, got %d", total)
	}
}
