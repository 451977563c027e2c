package cache

import (
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// key names definition
// key names in lua scripts must follow these formats
const (
	ShowingSeatKey          = "showing:%d:seat:%s"          // value is the holding reservation's public id
	PromotionUsesKey        = "promotion:%s:uses"           // '%s' is the promotion code
	PromotionReservationKey = "promotion:%s:reservation:%s" // marks a reservation's committed use of a code
)

func MakeSeatKey(showingID uint, seatCode string) string {
	return fmt.Sprintf(ShowingSeatKey, showingID, seatCode)
}

func MakePromotionUsesKey(code string) string {
	return fmt.Sprintf(PromotionUsesKey, code)
}

func MakePromotionReservationKey(code, reservationID string) string {
	return fmt.Sprintf(PromotionReservationKey, code, reservationID)
}

// errors
var (
	// ErrHoldLost means a claim no longer belongs to the reservation,
	// typically because the hold TTL elapsed.
	ErrHoldLost = errors.New("seat hold no longer owned by reservation")

	// ErrPromotionExhausted means the usage cap was hit before this
	// reservation could commit its use.
	ErrPromotionExhausted = errors.New("promotion usage cap exhausted")
)

// lua scripts

// claimSeatsScript is the mandatory atomic region of seat booking: a single
// test-and-set across the full requested seat set. Either every key is set
// to the reservation id with the hold TTL, or nothing is written and the
// indices of the conflicting keys are returned.
var claimSeatsScript = redis.NewScript(`
	-- KEYS    = seat keys for the requested seats
	-- ARGV[1] = reservation public id
	-- ARGV[2] = hold ttl in milliseconds

	local conflicts = {}
	for i = 1, #KEYS do
		local owner = redis.call("GET", KEYS[i])
		if owner and owner ~= ARGV[1] then
			conflicts[#conflicts + 1] = i
		end
	end
	if #conflicts > 0 then
		return conflicts
	end

	for i = 1, #KEYS do
		redis.call("SET", KEYS[i], ARGV[1], "PX", ARGV[2])
	end
	return {}
`)

// persistSeatsScript upgrades a hold into a permanent claim on confirm.
// All keys must still be owned by the reservation; an expired hold returns
// -1 and persists nothing.
var persistSeatsScript = redis.NewScript(`
	-- KEYS    = seat keys
	-- ARGV[1] = reservation public id

	for i = 1, #KEYS do
		if redis.call("GET", KEYS[i]) ~= ARGV[1] then
			return -1
		end
	end
	for i = 1, #KEYS do
		redis.call("PERSIST", KEYS[i])
	end
	return 1
`)

// releaseSeatsScript deletes only the keys still owned by the reservation,
// so releasing after a TTL expiry (and a rival's reclaim) is harmless.
var releaseSeatsScript = redis.NewScript(`
	-- KEYS    = seat keys
	-- ARGV[1] = reservation public id

	for i = 1, #KEYS do
		if redis.call("GET", KEYS[i]) == ARGV[1] then
			redis.call("DEL", KEYS[i])
		end
	end
	return 1
`)

// usePromotionScript is the second atomic region: cap check and increment
// in one step, guarded by a per-reservation marker so a use is never
// counted twice for the same reservation.
var usePromotionScript = redis.NewScript(`
	-- KEYS[1] = promotion:{code}:uses
	-- KEYS[2] = promotion:{code}:reservation:{id}
	-- ARGV[1] = max uses (0 = unlimited)

	if redis.call("EXISTS", KEYS[2]) == 1 then
		return 1
	end

	local max = tonumber(ARGV[1])
	if max > 0 then
		local uses = tonumber(redis.call("GET", KEYS[1]) or "0")
		if uses >= max then
			return -1
		end
	end

	redis.call("INCR", KEYS[1])
	redis.call("SET", KEYS[2], "1")
	return 1
`)

// releasePromotionUseScript compensates a committed use when the confirm
// that claimed it fails later in the same operation. The marker guards
// against double decrement.
var releasePromotionUseScript = redis.NewScript(`
	-- KEYS[1] = promotion:{code}:uses
	-- KEYS[2] = promotion:{code}:reservation:{id}

	if redis.call("EXISTS", KEYS[2]) == 0 then
		return 0
	end
	redis.call("DEL", KEYS[2])
	if tonumber(redis.call("GET", KEYS[1]) or "0") > 0 then
		redis.call("DECR", KEYS[1])
	end
	return 1
`)

// initUsageScript seeds counters from the durable copy without ever
/// lowering one: the cache may be ahead when a durable bump failed before a
// restart, and the higher value is the true usage.
var initUsageScript = redis.NewScript(`
	-- ARGV: key1 value1 key2 value2 ...
	for i = 1, #ARGV, 2 do
		local current = tonumber(redis.call("GET", ARGV[i]) or "0")
		local seeded = tonumber(ARGV[i + 1])
		if seeded > current then
			redis.call("SET", ARGV[i], seeded)
		end
	end
	return #ARGV / 2
`)
