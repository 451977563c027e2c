package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tamthien006/vexemphim/internal/model"
)

type PromotionRepo interface {
	WithTx(tx *gorm.DB) PromotionRepo
	Create(promotion *model.Promotion) error
	GetByCode(code string) (*model.Promotion, error)
	ListAll() ([]model.Promotion, error)
	// IncrementUsage bumps the durable usage counter. The cap check itself
	// happens in the cache's atomic region; this is the audit copy.
	IncrementUsage(code string) error
}

type promotionRepoGorm struct {
	db *gorm.DB
}

var _ PromotionRepo = (*promotionRepoGorm)(nil)

func NewPromotionRepoGorm(db *gorm.DB) *promotionRepoGorm {
	return &promotionRepoGorm{
		db: db,
	}
}

func (r *promotionRepoGorm) WithTx(tx *gorm.DB) PromotionRepo {
	return &promotionRepoGorm{
		db: tx,
	}
}

func (r *promotionRepoGorm) Create(promotion *model.Promotion) error {
	ctx := context.Background()
	return gorm.G[model.Promotion](r.db).Create(ctx, promotion)
}

func (r *promotionRepoGorm) GetByCode(code string) (*model.Promotion, error) {
	ctx := context.Background()
	promotion, err := gorm.G[model.Promotion](r.db).
		Where(&model.Promotion{Code: code}).
		Preload("Conditions", nil).
		First(ctx)
	if err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *promotionRepoGorm) ListAll() ([]model.Promotion, error) {
	ctx := context.Background()
	return gorm.G[model.Promotion](r.db).Find(ctx)
}

func (r *promotionRepoGorm) IncrementUsage(code string) error {
	return r.db.Model(&model.Promotion{}).
		Where("code = ?", code).
		UpdateColumn("current_uses", gorm.Expr("current_uses + 1")).Error
}
