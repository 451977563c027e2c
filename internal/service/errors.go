package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("resource not found")

	// ErrShowingUnavailable covers a showing that does not exist, is not
	// scheduled, or has already started.
	ErrShowingUnavailable = errors.New("showing is not open for booking")

	// ErrHoldExpired means a confirm arrived after the hold window lapsed.
	// The caller must restart the booking.
	ErrHoldExpired = errors.New("reservation hold has expired")

	// ErrAlreadyFinal means the reservation can no longer accept the
	// attempted transition.
	ErrAlreadyFinal = errors.New("reservation is already finalized")

	ErrInvalidRequest = errors.New("invalid request")
)

// SeatConflictError reports the exact seats already held by another
// reservation. Callers must re-query availability; retrying with the same
// seats would fail again, so the engine never retries internally.
type SeatConflictError struct {
	Seats []string
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats already held: %s", strings.Join(e.Seats, ", "))
}

// RoomConflictError reports an interval overlap on showing creation.
type RoomConflictError struct {
	ExistingShowingID uint
}

func (e *RoomConflictError) Error() string {
	return fmt.Sprintf("room interval overlaps showing %d", e.ExistingShowingID)
}

type PromotionRejectReason string

const (
	PromotionNotFound     PromotionRejectReason = "not_found"
	PromotionExpired      PromotionRejectReason = "expired"
	PromotionExhausted    PromotionRejectReason = "exhausted"
	PromotionBelowMinimum PromotionRejectReason = "below_minimum"
	PromotionInapplicable PromotionRejectReason = "inapplicable"
	PromotionIneligible   PromotionRejectReason = "ineligible"
)

// PromotionRejectedError always carries a specific reason, never a generic
// failure.
type PromotionRejectedError struct {
	Code   string
	Reason PromotionRejectReason
}

func (e *PromotionRejectedError) Error() string {
	return fmt.Sprintf("promotion %q rejected: %s", e.Code, e.Reason)
}
