package repository

import (
	"context"

	"metabento/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) LogScan(ctx context.Context, a *models.QRActivity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ActivityRepository) ListScans(ctx context.Context, scanner uint, limit, offset int) ([]models.QRActivity, error) {
	var list []models.QRActivity
	err := r.db.WithContext(ctx).Where("scanner_user_id = ?", scanner).
		Preload("ScannedUser").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// ClaimDaily inserts the (user, day) guard row. False means the day was already claimed.
func (r *ActivityRepository) ClaimDaily(ctx context.Context, userID uint, day string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.DailyBonusClaim{UserID: userID, Day: day})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClaimScanReward inserts the (scanner, scanned, day) guard row for the repeat-scan bonus.
// False means the bonus for that pair and day was already taken.
func (r *ActivityRepository) ClaimScanReward(ctx context.Context, scanner, scanned uint, day string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ScanRewardClaim{ScannerUserID: scanner, ScannedUserID: scanned, Day: day})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
