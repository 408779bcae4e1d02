package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when a Redis round trip fails at the
// transport level.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when the requested session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionRevoked is returned when a touch targets a revoked session.
var ErrSessionRevoked = errors.New("session revoked")

// ErrSessionCorrupt is returned when a stored session blob fails to parse.
var ErrSessionCorrupt = errors.New("session corrupt")

const (
	mutateStatusNotFound       int64 = 0
	mutateStatusOK             int64 = 1
	mutateStatusAlreadyRevoked int64 = 2
	mutateStatusInvalidBlob    int64 = 4
)

// luaBlobHelpers parses the v1 session blob far enough to locate the
// timestamp block. Must stay in sync with encoder.go.
const luaBlobHelpers = `
local function read_be64(s, i)
  local b1 = string.byte(s, i)
  local b2 = string.byte(s, i + 1)
  local b3 = string.byte(s, i + 2)
  local b4 = string.byte(s, i + 3)
  local b5 = string.byte(s, i + 4)
  local b6 = string.byte(s, i + 5)
  local b7 = string.byte(s, i + 6)
  local b8 = string.byte(s, i + 7)
  if not b8 then
    return nil
  end
  return ((((((((b1 * 256) + b2) * 256 + b3) * 256 + b4) * 256 + b5) * 256 + b6) * 256 + b7) * 256 + b8)
end

local function ts_offset(data)
  local version = string.byte(data, 1)
  if version ~= 1 then
    return nil
  end
  local idx = 2
  for i = 1, 4 do
    local len = string.byte(data, idx)
    if not len then
      return nil
    end
    idx = idx + 1 + len
  end
  if #data < idx + 24 then
    return nil
  end
  return idx
end
`

const touchSessionScript = luaBlobHelpers + `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
local off = ts_offset(data)
if not off then
  return 4
end
local revoked_at = read_be64(data, off + 16)
if not revoked_at then
  return 4
end
if revoked_at ~= 0 then
  return 2
end
local updated = string.sub(data, 1, off + 7) .. ARGV[1] .. string.sub(data, off + 16)
local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
  redis.call("SET", KEYS[1], updated, "PX", ttl)
else
  redis.call("SET", KEYS[1], updated)
end
return 1
`

var touchSessionLua = redis.NewScript(touchSessionScript)

const revokeSessionScript = luaBlobHelpers + `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
local off = ts_offset(data)
if not off then
  return 4
end
local revoked_at = read_be64(data, off + 16)
if not revoked_at then
  return 4
end
if revoked_at ~= 0 then
  return 2
end
local updated = string.sub(data, 1, off + 15) .. ARGV[1] .. string.char(#ARGV[2]) .. ARGV[2]
local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
  redis.call("SET", KEYS[1], updated, "PX", ttl)
else
  redis.call("SET", KEYS[1], updated)
end
return 1
`

var revokeSessionLua = redis.NewScript(revokeSessionScript)

// Store persists sessions in Redis. Session mutations (touch, revoke) run
// as server-side scripts so concurrent writers never resurrect a revoked
// session or lose a timestamp update.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewStore creates a session store using the given key prefix.
func NewStore(client redis.UniversalClient, keyPrefix string) *Store {
	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *Store) sessionKey(id string) string {
	return s.keyPrefix + ":s:" + id
}

func (s *Store) userKey(userID string) string {
	return s.keyPrefix + ":u:" + userID
}

// Save writes the session blob and registers the session in the owning
// user's index. ttl bounds how long the record survives, including the
// post-revocation retention window.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	blob, err := Encode(sess)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(sess.ID), blob, ttl)
		pipe.SAdd(ctx, s.userKey(sess.UserID), sess.ID)
		pipe.Expire(ctx, s.userKey(sess.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get loads a session by ID.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	sess.ID = id

	return sess, nil
}

// Touch bumps LastUsedAt without changing the key TTL. Touching a revoked
// session fails with [ErrSessionRevoked]; revocation stays terminal.
func (s *Store) Touch(ctx context.Context, id string, at time.Time) error {
	status, err := touchSessionLua.Run(ctx, s.client,
		[]string{s.sessionKey(id)},
		packBE64(at.UnixMilli()),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case mutateStatusOK:
		return nil
	case mutateStatusNotFound:
		return ErrSessionNotFound
	case mutateStatusAlreadyRevoked:
		return ErrSessionRevoked
	default:
		return ErrSessionCorrupt
	}
}

// Revoke marks the session revoked with the given reason. It reports true
// only for the call that performed the transition; revoking an absent or
// already-revoked session is a no-op, not an error.
func (s *Store) Revoke(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	if len(reason) > 255 {
		return false, errors.New("revoke reason too long")
	}

	status, err := revokeSessionLua.Run(ctx, s.client,
		[]string{s.sessionKey(id)},
		packBE64(at.UnixMilli()),
		reason,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case mutateStatusOK:
		return true, nil
	case mutateStatusNotFound, mutateStatusAlreadyRevoked:
		return false, nil
	default:
		return false, ErrSessionCorrupt
	}
}

// SessionIDsForUser returns every session ID still indexed for the user,
// including revoked sessions inside the retention window.
func (s *Store) SessionIDsForUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Scan walks session keys in batches for background sweeps. It returns the
// session IDs found and the cursor for the next call; a zero next cursor
// means the walk is complete.
func (s *Store) Scan(ctx context.Context, cursor uint64, count int64) ([]string, uint64, error) {
	keys, next, err := s.client.Scan(ctx, cursor, s.keyPrefix+":s:*", count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	ids := make([]string, 0, len(keys))
	prefix := s.keyPrefix + ":s:"
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, prefix))
	}

	return ids, next, nil
}

func packBE64(v int64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return string(buf[:])
}
