package repository

import (
	"context"
	"time"

	"metabento/internal/models"

	"gorm.io/gorm"
)

type NonceRepository struct {
	db *gorm.DB
}

func NewNonceRepository(db *gorm.DB) *NonceRepository {
	return &NonceRepository{db: db}
}

func (r *NonceRepository) Create(ctx context.Context, n *models.AuthNonce) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// Consume marks an unexpired nonce used. Only one caller can win the update, so a nonce
// logs in at most once.
func (r *NonceRepository) Consume(ctx context.Context, wallet, nonce string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AuthNonce{}).
		Where("wallet_address = ? AND nonce = ? AND used = ? AND expires_at > ?", wallet, nonce, false, now).
		Update("used", true)
	return res.RowsAffected == 1, res.Error
}

// PurgeExpired removes nonces that can no longer be used.
func (r *NonceRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ? OR used = ?", now, true).Delete(&models.AuthNonce{})
	return res.RowsAffected, res.Error
}
