package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newTestSession(id, userID string) *Session {
	now := time.Now().UnixMilli()
	return &Session{
		ID:          id,
		UserID:      userID,
		Surface:     "SALON_OWNER",
		CreatedByIP: "198.51.100.7",
		UserAgent:   "test-agent",
		CreatedAt:   now,
		LastUsedAt:  now,
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")
	ctx := context.Background()

	sess := newTestSession("sid-1", "user-1")
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ID != "sid-1" || got.UserID != "user-1" || got.Surface != "SALON_OWNER" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.IsActive() {
		t.Fatal("fresh session should be active")
	}
}

func TestStoreGetMissing(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStoreGetCorruptBlob(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")

	mr.Set("ac:s:bad", "not-a-session")

	_, err := store.Get(context.Background(), "bad")
	if !errors.Is(err, ErrSessionCorrupt) {
		t.Fatalf("expected ErrSessionCorrupt, got %v", err)
	}
}

func TestStoreTouchUpdatesLastUsedAt(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")
	ctx := context.Background()

	sess := newTestSession("sid-2", "user-1")
	sess.LastUsedAt = 1000
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	at := time.Now()
	if err := store.Touch(ctx, "sid-2", at); err != nil {
		t.Fatalf("touch failed: %v", err)
	}

	got, err := store.Get(ctx, "sid-2")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.LastUsedAt != at.UnixMilli() {
		t.Fatalf("lastUsedAt not updated: got %d want %d", got.LastUsedAt, at.UnixMilli())
	}
	if got.UserID != sess.UserID || got.UserAgent != sess.UserAgent {
		t.Fatalf("touch corrupted other fields: %+v", got)
	}

	if ttl := mr.TTL("ac:s:sid-2"); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("touch should preserve TTL, got %v", ttl)
	}
}

func TestStoreTouchRevokedSession(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")
	ctx := context.Background()

	sess := newTestSession("sid-3", "user-1")
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := store.Revoke(ctx, "sid-3", "logout", time.Now()); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	err := store.Touch(ctx, "sid-3", time.Now())
	if !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestStoreTouchMissingSession(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")

	err := store.Touch(context.Background(), "ghost", time.Now())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStoreRevokeIsTerminalAndIdempotent(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")
	ctx := context.Background()

	sess := newTestSession("sid-4", "user-1")
	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	at := time.Now()
	revoked, err := store.Revoke(ctx, "sid-4", "security-revoked", at)
	if err != nil || !revoked {
		t.Fatalf("first revoke: revoked=%v err=%v", revoked, err)
	}

	revoked, err = store.Revoke(ctx, "sid-4", "logout", at.Add(time.Minute))
	if err != nil {
		t.Fatalf("second revoke returned error: %v", err)
	}
	if revoked {
		t.Fatal("second revoke should be a no-op")
	}

	got, err := store.Get(ctx, "sid-4")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.RevokedAt != at.UnixMilli() || got.RevokedReason != "security-revoked" {
		t.Fatalf("second revoke must not overwrite first: %+v", got)
	}
}

func TestStoreRevokeMissingSession(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")

	revoked, err := store.Revoke(context.Background(), "ghost", "logout", time.Now())
	if err != nil {
		t.Fatalf("revoke of missing session should not error: %v", err)
	}
	if revoked {
		t.Fatal("revoke of missing session should report false")
	}
}

func TestStoreSessionIDsForUser(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")
	ctx := context.Background()

	for _, id := range []string{"sid-a", "sid-b"} {
		if err := store.Save(ctx, newTestSession(id, "user-9"), time.Hour); err != nil {
			t.Fatalf("save %s failed: %v", id, err)
		}
	}
	if err := store.Save(ctx, newTestSession("sid-c", "other-user"), time.Hour); err != nil {
		t.Fatalf("save sid-c failed: %v", err)
	}

	ids, err := store.SessionIDsForUser(ctx, "user-9")
	if err != nil {
		t.Fatalf("SessionIDsForUser failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 sessions, got %v", ids)
	}
	for _, id := range ids {
		if id != "sid-a" && id != "sid-b" {
			t.Fatalf("unexpected session id %q", id)
		}
	}
}

func TestStoreScanWalksAllSessions(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")
	ctx := context.Background()

	want := map[string]bool{"sid-1": false, "sid-2": false, "sid-3": false}
	for id := range want {
		if err := store.Save(ctx, newTestSession(id, "user-1"), time.Hour); err != nil {
			t.Fatalf("save %s failed: %v", id, err)
		}
	}

	var cursor uint64
	for {
		ids, next, err := store.Scan(ctx, cursor, 2)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		for _, id := range ids {
			if _, ok := want[id]; !ok {
				t.Fatalf("scan returned unexpected id %q", id)
			}
			want[id] = true
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	for id, seen := range want {
		if !seen {
			t.Fatalf("scan missed session %q", id)
		}
	}
}

func TestStoreRedisUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	store := NewStore(rdb, "ac")
	mr.Close()

	err := store.Save(context.Background(), newTestSession("sid-x", "user-1"), time.Hour)
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
