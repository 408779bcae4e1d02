package authcore

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// countingSink records how many events reach it, nothing else.
type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

func newAuditTestService(t *testing.T, sink AuditSink) *Service {
	t.Helper()

	mr, rdb := newTestRedis(t)
	service, err := New().
		WithConfig(testConfig(t)).
		WithRedis(rdb).
		WithAuditSink(sink).
		Build()
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

func collectEvent(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sink.Events():
			if event.EventType == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
		}
	}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	sink := &countingSink{}
	cfg := testConfig(t)

	// WithAuditSink force-enables audit, so set the sink after WithConfig
	// and flip Enabled back off to model a configured-but-disabled install.
	builder := New().WithConfig(cfg).WithRedis(rdb).WithAuditSink(sink)
	builder.config.Audit.Enabled = false

	service, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer service.Close()

	if _, err := service.Authenticate(context.Background(), "u1", SurfaceAdmin); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
	if service.AuditDropped() != 0 {
		t.Fatalf("disabled audit must not count drops, got %d", service.AuditDropped())
	}
}

func TestAuditAuthenticateSuccessEvent(t *testing.T) {
	sink := NewChannelSink(16)
	service := newAuditTestService(t, sink)

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	ctx = WithUserAgent(ctx, "audit-agent")

	pair, err := service.Authenticate(ctx, "u1", SurfaceSalonOwner)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	event := collectEvent(t, sink, "authenticate_success")
	if !event.Success {
		t.Fatal("expected success event")
	}
	if event.UserID != "u1" || event.SessionID != pair.SessionID {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Surface != string(SurfaceSalonOwner) {
		t.Fatalf("expected surface recorded, got %q", event.Surface)
	}
	if event.IP != "203.0.113.9" {
		t.Fatalf("expected client IP recorded, got %q", event.IP)
	}
	if event.Metadata["user_agent"] != "audit-agent" {
		t.Fatalf("expected user agent metadata, got %+v", event.Metadata)
	}
}

func TestAuditReuseEventCarriesErrorCode(t *testing.T) {
	sink := NewChannelSink(32)
	service := newAuditTestService(t, sink)
	ctx := context.Background()

	pair, err := service.Authenticate(ctx, "u1", SurfaceAdmin)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if _, err := service.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := service.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatal("expected reuse error")
	}

	event := collectEvent(t, sink, "refresh_reuse_detected")
	if event.Success {
		t.Fatal("expected failure event")
	}
	if event.SessionID != pair.SessionID {
		t.Fatalf("expected session id, got %q", event.SessionID)
	}
	if event.Error != "refresh_reuse" {
		t.Fatalf("expected sanitized error code, got %q", event.Error)
	}
}

func TestAuditEventsNeverCarryTokenMaterial(t *testing.T) {
	sink := NewChannelSink(64)
	service := newAuditTestService(t, sink)
	ctx := context.Background()

	pair, err := service.Authenticate(ctx, "u1", SurfaceSalonOwner)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if err := service.Logout(ctx, pair.SessionID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	_, _ = service.Refresh(ctx, pair.RefreshToken)

	service.Close()

	for {
		select {
		case event := <-sink.Events():
			for _, field := range []string{event.Error, event.EventType} {
				if field == pair.RefreshToken || field == pair.AccessToken {
					t.Fatalf("token material leaked into audit event: %+v", event)
				}
			}
			for _, v := range event.Metadata {
				if v == pair.RefreshToken || v == pair.AccessToken {
					t.Fatalf("token material leaked into metadata: %+v", event)
				}
			}
		default:
			return
		}
	}
}

func TestAuditDropCounting(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	blocked := make(chan struct{})
	sink := &blockingSink{gate: blocked}

	cfg := testConfig(t)
	cfg.Audit.BufferSize = 1
	cfg.Audit.DropIfFull = true

	service, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, _ = service.Authenticate(ctx, "u1", SurfaceAdmin)
	}

	if service.AuditDropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}

	close(blocked)
	service.Close()
}

type blockingSink struct {
	gate chan struct{}
}

func (s *blockingSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}
