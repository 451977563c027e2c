package domain

import (
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tamthien006/vexemphim/internal/model"
	"github.com/tamthien006/vexemphim/internal/repository"
	"github.com/tamthien006/vexemphim/internal/service"
)

// Interval is a candidate [Start, End) slot in a room.
type Interval struct {
	Start time.Time
	End   time.Time
}

type SlotService interface {
	ReserveSlot(movieID, roomID uint, start time.Time, priceStandard, priceVIP int64) (*model.Showing, error)
	CancelSlot(showingID uint) error
	// FindAvailableSlots is a discovery aid, not a transactional claim: a
	// later ReserveSlot re-validates the interval. The sequence is lazy
	// and restartable; iterating again re-reads the schedule.
	FindAvailableSlots(roomID uint, day time.Time, movieDuration time.Duration) iter.Seq[Interval]
}

type slotService struct {
	showings repository.ShowingRepo
	movies   repository.MovieRepo
	logger   *zap.Logger

	cleaningBuffer time.Duration
	openingHour    int
	closingHour    int
	slotStep       time.Duration

	now func() time.Time

	mu        sync.Mutex
	roomLocks map[uint]*sync.Mutex
}

var _ SlotService = (*slotService)(nil)

type SlotOption func(*slotService)

func WithSlotClock(now func() time.Time) SlotOption {
	return func(s *slotService) {
		s.now = now
	}
}

func WithOperatingWindow(openingHour, closingHour int, step time.Duration) SlotOption {
	return func(s *slotService) {
		s.openingHour = openingHour
		s.closingHour = closingHour
		s.slotStep = step
	}
}

func WithCleaningBuffer(d time.Duration) SlotOption {
	return func(s *slotService) {
		s.cleaningBuffer = d
	}
}

func NewSlotService(showings repository.ShowingRepo, movies repository.MovieRepo, logger *zap.Logger, opts ...SlotOption) *slotService {
	s := &slotService{
		showings:       showings,
		movies:         movies,
		logger:         logger,
		cleaningBuffer: 15 * time.Minute,
		openingHour:    9,
		closingHour:    23,
		slotStep:       15 * time.Minute,
		now:            time.Now,
		roomLocks:      make(map[uint]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// roomLock returns the per-room mutex guarding interval allocation. The
// lock is the explicit atomic region: concurrent attempts to book
// overlapping intervals in the same room serialize here, so the overlap
// re-check and the insert act as one step.
func (s *slotService) roomLock(roomID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		s.roomLocks[roomID] = lock
	}
	return lock
}

// ReserveSlot allocates a (room, start, end) interval to a new showing.
// The end time derives from the movie duration plus the cleaning buffer.
// Overlap uses half-open [start,end) semantics: touching boundaries do
// not conflict.
func (s *slotService) ReserveSlot(movieID, roomID uint, start time.Time, priceStandard, priceVIP int64) (*model.Showing, error) {
	movie, err := s.movies.GetByID(movieID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: movie %d does not exist", service.ErrInvalidRequest, movieID)
		}
		return nil, err
	}
	if !start.After(s.now()) {
		return nil, fmt.Errorf("%w: showing must start in the future", service.ErrInvalidRequest)
	}

	end := start.Add(time.Duration(movie.DurationMinutes)*time.Minute + s.cleaningBuffer)

	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.showings.FindOverlapping(roomID, start, end)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &service.RoomConflictError{ExistingShowingID: existing.ID}
	}

	showing := &model.Showing{
		MovieID:       movieID,
		RoomID:        roomID,
		StartAt:       start,
		EndAt:         end,
		PriceStandard: priceStandard,
		PriceVIP:      priceVIP,
		Status:        model.ShowingScheduled,
	}
	if err := s.showings.Create(showing); err != nil {
		return nil, err
	}

	s.logger.Info("slot reserved",
		zap.Uint("showing_id", showing.ID),
		zap.Uint("room_id", roomID),
		zap.Time("start", start),
		zap.Time("end", end),
	)
	return showing, nil
}

// CancelSlot marks the showing cancelled, freeing its interval for reuse.
// History is kept; showings are never deleted.
func (s *slotService) CancelSlot(showingID uint) error {
	showing, err := s.showings.GetByID(showingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return service.ErrNotFound
		}
		return err
	}
	if showing.Status == model.ShowingCancelled {
		return nil
	}
	return s.showings.UpdateStatus(showingID, model.ShowingCancelled)
}

func (s *slotService) FindAvailableSlots(roomID uint, day time.Time, movieDuration time.Duration) iter.Seq[Interval] {
	slotLen := movieDuration + s.cleaningBuffer
	return func(yield func(Interval) bool) {
		open := time.Date(day.Year(), day.Month(), day.Day(), s.openingHour, 0, 0, 0, day.Location())
		closing := time.Date(day.Year(), day.Month(), day.Day(), s.closingHour, 0, 0, 0, day.Location())

		existing, err := s.showings.ListActiveByRoomAndDay(roomID, open, closing)
		if err != nil {
			s.logger.Warn("slot scan failed", zap.Uint("room_id", roomID), zap.Error(err))
			return
		}

		for start := open; !start.Add(slotLen).After(closing); start = start.Add(s.slotStep) {
			end := start.Add(slotLen)
			if overlapsAny(existing, start, end) {
				continue
			}
			if !yield(Interval{Start: start, End: end}) {
				return
			}
		}
	}
}

func overlapsAny(showings []model.Showing, start, end time.Time) bool {
	for _, sh := range showings {
		if sh.StartAt.Before(end) && sh.EndAt.After(start) {
			return true
		}
	}
	return false
}
