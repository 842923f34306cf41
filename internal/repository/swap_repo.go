package repository

import (
	"context"

	"metabento/internal/models"

	"gorm.io/gorm"
)

type SwapRepository struct {
	db *gorm.DB
}

func NewSwapRepository(db *gorm.DB) *SwapRepository {
	return &SwapRepository{db: db}
}

func (r *SwapRepository) Create(ctx context.Context, s *models.TokenSwap) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SwapRepository) GetByReference(ctx context.Context, ref string) (*models.TokenSwap, error) {
	var s models.TokenSwap
	err := r.db.WithContext(ctx).Where("reference = ?", ref).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SwapRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.TokenSwap, error) {
	var list []models.TokenSwap
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}
