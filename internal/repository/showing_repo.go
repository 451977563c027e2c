package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tamthien006/vexemphim/internal/model"
)

type ShowingRepo interface {
	WithTx(tx *gorm.DB) ShowingRepo
	Create(showing *model.Showing) error
	GetByID(id uint) (*model.Showing, error)
	// FindOverlapping returns the first non-cancelled showing in the room
	// whose [start,end) interval intersects the given one, or nil.
	FindOverlapping(roomID uint, start, end time.Time) (*model.Showing, error)
	ListActiveByRoomAndDay(roomID uint, dayStart, dayEnd time.Time) ([]model.Showing, error)
	UpdateStatus(id uint, status model.ShowingStatus) error
	SetFull(id uint, full bool) error
}

type showingRepoGorm struct {
	db *gorm.DB
}

var _ ShowingRepo = (*showingRepoGorm)(nil)

func NewShowingRepoGorm(db *gorm.DB) *showingRepoGorm {
	return &showingRepoGorm{
		db: db,
	}
}

func (r *showingRepoGorm) WithTx(tx *gorm.DB) ShowingRepo {
	return &showingRepoGorm{
		db: tx,
	}
}

func (r *showingRepoGorm) Create(showing *model.Showing) error {
	ctx := context.Background()
	return gorm.G[model.Showing](r.db).Create(ctx, showing)
}

func (r *showingRepoGorm) GetByID(id uint) (*model.Showing, error) {
	ctx := context.Background()
	showing, err := gorm.G[model.Showing](r.db).Where(&model.Showing{ID: id}).First(ctx)
	if err != nil {
		return nil, err
	}
	return &showing, nil
}

func (r *showingRepoGorm) FindOverlapping(roomID uint, start, end time.Time) (*model.Showing, error) {
	ctx := context.Background()
	// Half-open semantics: touching boundaries do not conflict.
	showings, err := gorm.G[model.Showing](r.db).
		Where("room_id = ? AND status <> ? AND start_at < ? AND end_at > ?",
			roomID, model.ShowingCancelled, end, start).
		Limit(1).
		Find(ctx)
	if err != nil {
		return nil, err
	}
	if len(showings) == 0 {
		return nil, nil
	}
	return &showings[0], nil
}

func (r *showingRepoGorm) ListActiveByRoomAndDay(roomID uint, dayStart, dayEnd time.Time) ([]model.Showing, error) {
	ctx := context.Background()
	return gorm.G[model.Showing](r.db).
		Where("room_id = ? AND status <> ? AND start_at < ? AND end_at > ?",
			roomID, model.ShowingCancelled, dayEnd, dayStart).
		Order("start_at").
		Find(ctx)
}

func (r *showingRepoGorm) UpdateStatus(id uint, status model.ShowingStatus) error {
	ctx := context.Background()
	_, err := gorm.G[model.Showing](r.db).
		Where(&model.Showing{ID: id}).
		Update(ctx, "status", status)
	return err
}

func (r *showingRepoGorm) SetFull(id uint, full bool) error {
	ctx := context.Background()
	_, err := gorm.G[model.Showing](r.db).
		Where(&model.Showing{ID: id}).
		Update(ctx, "is_full", full)
	return err
}
