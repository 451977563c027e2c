package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tamthien006/vexemphim/internal/model"
)

// RoomRepo and SeatRepo read master data owned by room management. The
// booking core only consumes capacity and seat layout facts from them.
type RoomRepo interface {
	GetByID(id uint) (*model.Room, error)
}

type SeatRepo interface {
	GetByRoomAndCodes(roomID uint, codes []string) ([]model.Seat, error)
}

type MovieRepo interface {
	GetByID(id uint) (*model.Movie, error)
}

type roomRepoGorm struct {
	db *gorm.DB
}

var _ RoomRepo = (*roomRepoGorm)(nil)

func NewRoomRepoGorm(db *gorm.DB) *roomRepoGorm {
	return &roomRepoGorm{
		db: db,
	}
}

func (r *roomRepoGorm) GetByID(id uint) (*model.Room, error) {
	ctx := context.Background()
	room, err := gorm.G[model.Room](r.db).Where(&model.Room{ID: id}).First(ctx)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

type seatRepoGorm struct {
	db *gorm.DB
}

var _ SeatRepo = (*seatRepoGorm)(nil)

func NewSeatRepoGorm(db *gorm.DB) *seatRepoGorm {
	return &seatRepoGorm{
		db: db,
	}
}

func (r *seatRepoGorm) GetByRoomAndCodes(roomID uint, codes []string) ([]model.Seat, error) {
	ctx := context.Background()
	return gorm.G[model.Seat](r.db).
		Where("room_id = ? AND code IN ?", roomID, codes).
		Find(ctx)
}

type movieRepoGorm struct {
	db *gorm.DB
}

var _ MovieRepo = (*movieRepoGorm)(nil)

func NewMovieRepoGorm(db *gorm.DB) *movieRepoGorm {
	return &movieRepoGorm{
		db: db,
	}
}

func (r *movieRepoGorm) GetByID(id uint) (*model.Movie, error) {
	ctx := context.Background()
	movie, err := gorm.G[model.Movie](r.db).Where(&model.Movie{ID: id}).First(ctx)
	if err != nil {
		return nil, err
	}
	return &movie, nil
}
