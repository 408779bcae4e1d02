package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when a Redis round trip fails at the
// transport level.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrTokenNotFound is returned when no record exists for a digest.
var ErrTokenNotFound = errors.New("refresh token not found")

// ErrTokenExpired is returned when the presented record is past its expiry.
var ErrTokenExpired = errors.New("refresh token expired")

// ErrTokenRevoked is returned when the presented record was revoked for a
// reason other than rotation (logout, security revocation, cleanup).
var ErrTokenRevoked = errors.New("refresh token revoked")

// ErrTokenAlreadyRotated is returned when the presented record has already
// been claimed by a rotation. This is the reuse signal: a legitimate client
// holds the successor, so whoever replayed this token is stale or hostile.
var ErrTokenAlreadyRotated = errors.New("refresh token already rotated")

// ErrRecordCorrupt is returned when a stored record fails to parse.
var ErrRecordCorrupt = errors.New("refresh record corrupt")

const (
	rotateStatusNotFound int64 = 0
	rotateStatusExpired  int64 = 1
	rotateStatusClaimed  int64 = 2
	rotateStatusRotated  int64 = 3
)

// rotateScript claims the presented record and creates its successor in one
// atomic step. Either both happen or neither does, so a crash mid-rotation
// can never leave a session with zero live tokens and a claimed record
// always names its successor.
const rotateScript = `
local old = KEYS[1]
if redis.call("EXISTS", old) == 0 then
  return {0, ""}
end
local rat = redis.call("HGET", old, "rat")
if rat and rat ~= "" then
  local rsn = redis.call("HGET", old, "rsn") or ""
  return {2, rsn}
end
local exp = tonumber(redis.call("HGET", old, "exp") or "0")
if exp <= tonumber(ARGV[1]) then
  redis.call("HSET", old, "rat", ARGV[1], "rsn", "expired-cleanup")
  return {1, ""}
end
redis.call("HSET", old, "rat", ARGV[1], "rsn", "rotated", "rby", ARGV[3])
redis.call("HSET", KEYS[2],
  "id", ARGV[4],
  "uid", ARGV[5],
  "sid", ARGV[6],
  "sf", ARGV[7],
  "exp", ARGV[8],
  "cat", ARGV[1],
  "ip", ARGV[9])
redis.call("PEXPIRE", KEYS[2], tonumber(ARGV[2]))
redis.call("SADD", KEYS[3], ARGV[3])
if redis.call("PTTL", KEYS[3]) < tonumber(ARGV[2]) then
  redis.call("PEXPIRE", KEYS[3], tonumber(ARGV[2]))
end
return {3, ""}
`

var rotateLua = redis.NewScript(rotateScript)

// revokeSessionTokensScript stamps every still-live record in a session's
// index. Already-revoked records keep their original reason and timestamp.
const revokeSessionTokensScript = `
local members = redis.call("SMEMBERS", KEYS[1])
local count = 0
for i = 1, #members do
  local key = ARGV[3] .. members[i]
  if redis.call("EXISTS", key) == 1 then
    local rat = redis.call("HGET", key, "rat")
    if not rat or rat == "" then
      redis.call("HSET", key, "rat", ARGV[1], "rsn", ARGV[2])
      count = count + 1
    end
  end
end
return count
`

var revokeSessionTokensLua = redis.NewScript(revokeSessionTokensScript)

// stampExpiredScript revokes a record only when it is both unclaimed and
// past expiry, so sweeps never race a concurrent rotation.
const stampExpiredScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local rat = redis.call("HGET", KEYS[1], "rat")
if rat and rat ~= "" then
  return 0
end
local exp = tonumber(redis.call("HGET", KEYS[1], "exp") or "0")
if exp > tonumber(ARGV[1]) then
  return 0
end
redis.call("HSET", KEYS[1], "rat", ARGV[1], "rsn", "expired-cleanup")
return 1
`

var stampExpiredLua = redis.NewScript(stampExpiredScript)

// Store persists refresh token records in Redis, keyed by token digest.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewStore creates a refresh record store using the given key prefix.
func NewStore(client redis.UniversalClient, keyPrefix string) *Store {
	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *Store) recordKey(hashHex string) string {
	return s.keyPrefix + ":r:" + hashHex
}

func (s *Store) recordKeyPrefix() string {
	return s.keyPrefix + ":r:"
}

func (s *Store) sessionIndexKey(sessionID string) string {
	return s.keyPrefix + ":sx:" + sessionID
}

// recordTTL bounds how long a record key survives: its remaining lifetime
// plus the retention window, so revoked records stay visible for reuse
// detection and audit before Redis expires them.
func recordTTL(rec *Record, now time.Time, retention time.Duration) time.Duration {
	remaining := time.Duration(rec.ExpiresAt-now.UnixMilli()) * time.Millisecond
	if remaining < 0 {
		remaining = 0
	}
	return remaining + retention
}

// Save writes a fresh record and registers it in the session index. Used
// for the first token of a chain; successors are created by [Store.Rotate].
func (s *Store) Save(ctx context.Context, rec *Record, now time.Time, retention time.Duration) error {
	ttl := recordTTL(rec, now, retention)
	key := s.recordKey(rec.TokenHashHex)
	indexKey := s.sessionIndexKey(rec.SessionID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", rec.ID,
			"uid", rec.UserID,
			"sid", rec.SessionID,
			"sf", rec.Surface,
			"exp", strconv.FormatInt(rec.ExpiresAt, 10),
			"cat", strconv.FormatInt(rec.CreatedAt, 10),
			"ip", rec.CreatedByIP,
		)
		pipe.PExpire(ctx, key, ttl)
		pipe.SAdd(ctx, indexKey, rec.TokenHashHex)
		pipe.PExpire(ctx, indexKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// GetByHashHex loads the record stored under a token digest.
func (s *Store) GetByHashHex(ctx context.Context, hashHex string) (*Record, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(hashHex)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrTokenNotFound
	}

	return parseRecord(hashHex, fields)
}

// Rotate atomically claims the record under presentedHashHex and creates
// next as its successor. Exactly one concurrent caller succeeds; the rest
// observe [ErrTokenAlreadyRotated]. A claim against a record revoked for
// any reason other than rotation returns [ErrTokenRevoked] instead, and an
// expired record is stamped and reported as [ErrTokenExpired].
func (s *Store) Rotate(ctx context.Context, presentedHashHex string, next *Record, now time.Time, retention time.Duration) error {
	res, err := rotateLua.Run(ctx, s.client,
		[]string{
			s.recordKey(presentedHashHex),
			s.recordKey(next.TokenHashHex),
			s.sessionIndexKey(next.SessionID),
		},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(recordTTL(next, now, retention).Milliseconds(), 10),
		next.TokenHashHex,
		next.ID,
		next.UserID,
		next.SessionID,
		next.Surface,
		strconv.FormatInt(next.ExpiresAt, 10),
		next.CreatedByIP,
	).Slice()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) < 2 {
		return fmt.Errorf("%w: unexpected rotate reply %v", ErrRecordCorrupt, res)
	}

	status, ok := res[0].(int64)
	if !ok {
		return fmt.Errorf("%w: unexpected rotate status %v", ErrRecordCorrupt, res[0])
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrTokenNotFound
	case rotateStatusExpired:
		return ErrTokenExpired
	case rotateStatusClaimed:
		reason, _ := res[1].(string)
		if reason == ReasonRotated {
			return ErrTokenAlreadyRotated
		}
		return ErrTokenRevoked
	default:
		return fmt.Errorf("%w: unexpected rotate status %d", ErrRecordCorrupt, status)
	}
}

// RevokeAllForSession stamps every live record in the session's chain with
// the given reason and reports how many transitioned. Safe to call on
// sessions with no live tokens; that is how idempotent logout and sweep
// repair stay cheap.
func (s *Store) RevokeAllForSession(ctx context.Context, sessionID, reason string, at time.Time) (int, error) {
	count, err := revokeSessionTokensLua.Run(ctx, s.client,
		[]string{s.sessionIndexKey(sessionID)},
		strconv.FormatInt(at.UnixMilli(), 10),
		reason,
		s.recordKeyPrefix(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return int(count), nil
}

// StampExpired marks a record expired-cleanup when it is unclaimed and past
// expiry. Reports whether the record transitioned.
func (s *Store) StampExpired(ctx context.Context, hashHex string, at time.Time) (bool, error) {
	stamped, err := stampExpiredLua.Run(ctx, s.client,
		[]string{s.recordKey(hashHex)},
		strconv.FormatInt(at.UnixMilli(), 10),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return stamped == 1, nil
}

// Delete removes a record and its index entry. Used by retention sweeps
// once a revoked record is past the retention window.
func (s *Store) Delete(ctx context.Context, hashHex, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(hashHex))
		pipe.SRem(ctx, s.sessionIndexKey(sessionID), hashHex)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Scan walks record keys in batches for background sweeps, returning token
// digests and the next cursor. A zero next cursor ends the walk.
func (s *Store) Scan(ctx context.Context, cursor uint64, count int64) ([]string, uint64, error) {
	keys, next, err := s.client.Scan(ctx, cursor, s.recordKeyPrefix()+"*", count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	hashes := make([]string, 0, len(keys))
	prefix := s.recordKeyPrefix()
	for _, key := range keys {
		hashes = append(hashes, strings.TrimPrefix(key, prefix))
	}

	return hashes, next, nil
}

func parseRecord(hashHex string, fields map[string]string) (*Record, error) {
	rec := &Record{
		ID:             fields["id"],
		UserID:         fields["uid"],
		SessionID:      fields["sid"],
		Surface:        fields["sf"],
		TokenHashHex:   hashHex,
		CreatedByIP:    fields["ip"],
		RevokedReason:  fields["rsn"],
		ReplacedByHash: fields["rby"],
	}
	if rec.UserID == "" || rec.SessionID == "" {
		return nil, fmt.Errorf("%w: missing ownership fields", ErrRecordCorrupt)
	}

	var err error
	rec.ExpiresAt, err = strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad exp: %v", ErrRecordCorrupt, err)
	}
	rec.CreatedAt, err = strconv.ParseInt(fields["cat"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad cat: %v", ErrRecordCorrupt, err)
	}
	if raw, ok := fields["rat"]; ok && raw != "" {
		rec.RevokedAt, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad rat: %v", ErrRecordCorrupt, err)
		}
	}

	return rec, nil
}
