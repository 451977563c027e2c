package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var ctx = context.Background()

type RedisCache struct {
	Client *redis.Client
}

func NewRedisCache(url string) (*RedisCache, error) {
	client := redis.NewClient(
		&redis.Options{
			Addr:     url,
			Password: "",
			DB:       0,
		},
	)
	redisCache := &RedisCache{Client: client}

	return redisCache, nil
}

// InitPromotionUsage seeds the usage counters from the durable records so
// cap checks survive restarts. A counter the cache already advanced past
// the durable copy is left alone.
func (r *RedisCache) InitPromotionUsage(usesByCode map[string]int) error {
	if len(usesByCode) == 0 {
		return nil
	}
	args := make([]any, 0, len(usesByCode)*2)
	for code, uses := range usesByCode {
		args = append(args, MakePromotionUsesKey(code), uses)
	}
	_, err := initUsageScript.Run(ctx, r.Client, []string{}, args...).Result()
	return err
}

/*
* seat claims of a showing
 */

// ClaimSeats atomically claims every requested seat for the reservation
// with the hold TTL, or claims nothing. The returned slice holds the seat
// codes already owned by other reservations; it is empty on success.
func (r *RedisCache) ClaimSeats(showingID uint, reservationID string, seatCodes []string, holdTTL time.Duration) ([]string, error) {
	keys := seatKeys(showingID, seatCodes)
	res, err := claimSeatsScript.Run(ctx, r.Client, keys, reservationID, holdTTL.Milliseconds()).Result()
	if err != nil {
		return nil, err
	}
	indices, ok := res.([]interface{})
	if !ok || len(indices) == 0 {
		return nil, nil
	}
	conflicts := make([]string, 0, len(indices))
	for _, idx := range indices {
		if i, ok := idx.(int64); ok && i >= 1 && int(i) <= len(seatCodes) {
			conflicts = append(conflicts, seatCodes[i-1])
		}
	}
	return conflicts, nil
}

// PersistSeats makes the reservation's held seats permanent. Returns
// ErrHoldLost when any claim has already lapsed.
func (r *RedisCache) PersistSeats(showingID uint, reservationID string, seatCodes []string) error {
	keys := seatKeys(showingID, seatCodes)
	res, err := persistSeatsScript.Run(ctx, r.Client, keys, reservationID).Int64()
	if err != nil {
		return err
	}
	if res == -1 {
		return ErrHoldLost
	}
	return nil
}

// ReleaseSeats frees the reservation's claims. Keys held by another
// reservation are left alone.
func (r *RedisCache) ReleaseSeats(showingID uint, reservationID string, seatCodes []string) error {
	keys := seatKeys(showingID, seatCodes)
	return releaseSeatsScript.Run(ctx, r.Client, keys, reservationID).Err()
}

func seatKeys(showingID uint, seatCodes []string) []string {
	keys := make([]string, 0, len(seatCodes))
	for _, code := range seatCodes {
		keys = append(keys, MakeSeatKey(showingID, code))
	}
	return keys
}

/*
* promotion usage
 */

// UsePromotion commits one usage of the code for the reservation, exactly
// once. Returns ErrPromotionExhausted when the cap is already spent.
func (r *RedisCache) UsePromotion(code, reservationID string, maxUses int) error {
	res, err := usePromotionScript.Run(ctx, r.Client,
		[]string{MakePromotionUsesKey(code), MakePromotionReservationKey(code, reservationID)},
		maxUses,
	).Int64()
	if err != nil {
		return err
	}
	if res == -1 {
		return ErrPromotionExhausted
	}
	return nil
}

// ReleasePromotionUse undoes a use committed earlier in a failed confirm.
// A no-op when the reservation never committed a use.
func (r *RedisCache) ReleasePromotionUse(code, reservationID string) error {
	return releasePromotionUseScript.Run(ctx, r.Client,
		[]string{MakePromotionUsesKey(code), MakePromotionReservationKey(code, reservationID)},
	).Err()
}
