package domain

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tamthien006/vexemphim/internal/repository"
	"github.com/tamthien006/vexemphim/internal/service"
)

// Occupancy is the derived view of booked seats versus room capacity for
// a showing.
type Occupancy struct {
	Booked   int
	Capacity int
	IsFull   bool
}

type OccupancyService interface {
	// Recompute derives occupancy and stores the is_full flag. It runs
	// synchronously inside the operation that changed occupancy, never
	// eventually.
	Recompute(showingID uint, now time.Time) (Occupancy, error)
	// Occupancy is the read-only variant.
	Occupancy(showingID uint, now time.Time) (Occupancy, error)
}

type occupancyService struct {
	showings     repository.ShowingRepo
	rooms        repository.RoomRepo
	reservations repository.ReservationRepo
}

var _ OccupancyService = (*occupancyService)(nil)

func NewOccupancyService(showings repository.ShowingRepo, rooms repository.RoomRepo, reservations repository.ReservationRepo) *occupancyService {
	return &occupancyService{
		showings:     showings,
		rooms:        rooms,
		reservations: reservations,
	}
}

func (s *occupancyService) Recompute(showingID uint, now time.Time) (Occupancy, error) {
	occ, showingFull, err := s.derive(showingID, now)
	if err != nil {
		return Occupancy{}, err
	}
	if occ.IsFull != showingFull {
		if err := s.showings.SetFull(showingID, occ.IsFull); err != nil {
			return Occupancy{}, err
		}
	}
	return occ, nil
}

func (s *occupancyService) Occupancy(showingID uint, now time.Time) (Occupancy, error) {
	occ, _, err := s.derive(showingID, now)
	return occ, err
}

func (s *occupancyService) derive(showingID uint, now time.Time) (Occupancy, bool, error) {
	showing, err := s.showings.GetByID(showingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Occupancy{}, false, service.ErrNotFound
		}
		return Occupancy{}, false, err
	}
	room, err := s.rooms.GetByID(showing.RoomID)
	if err != nil {
		return Occupancy{}, false, err
	}
	booked, err := s.reservations.CountActiveSeats(showingID, now)
	if err != nil {
		return Occupancy{}, false, err
	}

	// More booked seats than capacity means the atomic seat-claim was
	// broken somewhere. Abort loudly rather than tolerate it.
	if booked > room.Capacity {
		panic(fmt.Sprintf("occupancy invariant violated: showing %d has %d booked seats, capacity %d",
			showingID, booked, room.Capacity))
	}

	return Occupancy{
		Booked:   booked,
		Capacity: room.Capacity,
		IsFull:   booked >= room.Capacity,
	}, showing.IsFull, nil
}
