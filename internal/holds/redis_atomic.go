package holds

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gatepass/internal/shared/constants"
)

// AtomicRedisOperations maintains the live hold mirror in Redis. Postgres
// is the durable ground truth; the mirror exists so seat-map reads see
// in-flight holds without touching the database, and so the key TTL tracks
// the hold's expiry for free.
type AtomicRedisOperations struct {
	redis *redis.Client
}

func NewAtomicRedisOperations(redisClient *redis.Client) *AtomicRedisOperations {
	return &AtomicRedisOperations{
		redis: redisClient,
	}
}

// Lua script for mirroring a new hold. All-or-nothing: if any unit already
// carries a live claim the whole mirror write is refused. A refusal is
// logged and tolerated by the caller; the Postgres row it mirrors stays
// the ground truth and the sweeper reconciles any divergence.
const luaMirrorHold = `
-- KEYS[1] = hold key
-- KEYS[2] = hold units key
-- ARGV[1] = session_id
-- ARGV[2] = show_id
-- ARGV[3] = hold_id
-- ARGV[4] = ttl_seconds
-- ARGV[5..N] = unit_ids

local session_id = ARGV[1]
local show_id = ARGV[2]
local hold_id = ARGV[3]
local ttl = tonumber(ARGV[4])
local prefix = "gatepass:unit_hold:"

-- Refuse if any unit is already claimed
for i = 5, #ARGV do
    if redis.call("EXISTS", prefix .. ARGV[i]) == 1 then
        return {0, ARGV[i]}
    end
end

redis.call("HSET", KEYS[1],
    "session_id", session_id,
    "show_id", show_id,
    "unit_count", #ARGV - 4
)
redis.call("EXPIRE", KEYS[1], ttl)

local claim = session_id .. ":" .. hold_id
for i = 5, #ARGV do
    redis.call("SETEX", prefix .. ARGV[i], ttl, claim)
    redis.call("SADD", KEYS[2], ARGV[i])
end
redis.call("EXPIRE", KEYS[2], ttl)

return {1, "ok"}
`

// Lua script for extending a mirrored hold's TTL across all its keys
const luaRenewHold = `
-- KEYS[1] = hold key
-- KEYS[2] = hold units key
-- ARGV[1] = ttl_seconds

local ttl = tonumber(ARGV[1])
local prefix = "gatepass:unit_hold:"

if redis.call("EXISTS", KEYS[1]) == 0 then
    return {0, "hold_not_found"}
end

redis.call("EXPIRE", KEYS[1], ttl)

local unit_ids = redis.call("SMEMBERS", KEYS[2])
for i = 1, #unit_ids do
    redis.call("EXPIRE", prefix .. unit_ids[i], ttl)
end
redis.call("EXPIRE", KEYS[2], ttl)

return {1, #unit_ids}
`

// Lua script for dropping a mirrored hold (release, convert or expire)
const luaDropHold = `
-- KEYS[1] = hold key
-- KEYS[2] = hold units key

local prefix = "gatepass:unit_hold:"

local unit_ids = redis.call("SMEMBERS", KEYS[2])
for i = 1, #unit_ids do
    redis.call("DEL", prefix .. unit_ids[i])
end

redis.call("DEL", KEYS[1])
redis.call("DEL", KEYS[2])

return {1, #unit_ids}
`

// MirrorHold writes the live claim for a hold and its units
func (a *AtomicRedisOperations) MirrorHold(ctx context.Context, hold *Hold, unitIDs []uuid.UUID, ttl time.Duration) error {
	if a.redis == nil {
		return nil
	}

	keys := []string{
		constants.HoldKey(hold.ID.String()),
		constants.HoldUnitsKey(hold.ID.String()),
	}
	args := []interface{}{
		hold.SessionID,
		hold.ShowID.String(),
		hold.ID.String(),
		strconv.Itoa(int(ttl.Seconds())),
	}
	for _, unitID := range unitIDs {
		args = append(args, unitID.String())
	}

	result, err := a.eval(ctx, luaMirrorHold, keys, args...)
	if err != nil {
		return fmt.Errorf("failed to mirror hold: %w", err)
	}

	success, detail := parseScriptResult(result)
	if !success {
		return fmt.Errorf("unit already claimed in mirror: %s", detail)
	}
	return nil
}

// RenewMirror extends the TTL on every key belonging to a hold
func (a *AtomicRedisOperations) RenewMirror(ctx context.Context, holdID string, ttl time.Duration) error {
	if a.redis == nil {
		return nil
	}

	keys := []string{
		constants.HoldKey(holdID),
		constants.HoldUnitsKey(holdID),
	}

	result, err := a.eval(ctx, luaRenewHold, keys, strconv.Itoa(int(ttl.Seconds())))
	if err != nil {
		return fmt.Errorf("failed to renew hold mirror: %w", err)
	}

	// A missing mirror is not fatal: the keys may have expired moments
	// before a renew that Postgres still accepted.
	if success, _ := parseScriptResult(result); !success {
		return nil
	}
	return nil
}

// DropMirror removes all mirror keys for a hold. Idempotent.
func (a *AtomicRedisOperations) DropMirror(ctx context.Context, holdID string) error {
	if a.redis == nil {
		return nil
	}

	keys := []string{
		constants.HoldKey(holdID),
		constants.HoldUnitsKey(holdID),
	}

	if _, err := a.eval(ctx, luaDropHold, keys); err != nil {
		return fmt.Errorf("failed to drop hold mirror: %w", err)
	}
	return nil
}

// PreloadScripts loads the Lua scripts into Redis at startup
func (a *AtomicRedisOperations) PreloadScripts(ctx context.Context) error {
	if a.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	for _, script := range []string{luaMirrorHold, luaRenewHold, luaDropHold} {
		if _, err := a.redis.ScriptLoad(ctx, script).Result(); err != nil {
			return fmt.Errorf("failed to load hold mirror script: %w", err)
		}
	}
	return nil
}

func (a *AtomicRedisOperations) eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	result, err := a.redis.EvalSha(ctx, script, keys, args...).Result()
	if err != nil {
		// Script not loaded yet; fall back to plain EVAL
		result, err = a.redis.Eval(ctx, script, keys, args...).Result()
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func parseScriptResult(result interface{}) (bool, string) {
	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, "unexpected script result"
	}
	success, ok := values[0].(int64)
	if !ok {
		return false, "invalid success flag"
	}
	detail := ""
	if s, ok := values[1].(string); ok {
		detail = s
	}
	return success == 1, detail
}
