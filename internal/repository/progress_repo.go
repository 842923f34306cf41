package repository

import (
	"context"
	"errors"

	"metabento/internal/domain"
	"metabento/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementRepository struct {
	db *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Unlock inserts a once-only achievement. The bool is false when the (user, type) row already
// existed, so callers grant the bonus only on a real insert.
func (r *AchievementRepository) Unlock(ctx context.Context, a *models.Achievement) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AchievementRepository) Has(ctx context.Context, userID uint, t domain.AchievementType) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Achievement{}).
		Where("user_id = ? AND achievement_type = ?", userID, t).
		Count(&n).Error
	return n > 0, err
}

func (r *AchievementRepository) ListByUser(ctx context.Context, userID uint) ([]models.Achievement, error) {
	var list []models.Achievement
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("unlocked_at DESC").Order("id DESC").
		Find(&list).Error
	return list, err
}

type LevelRepository struct {
	db *gorm.DB
}

func NewLevelRepository(db *gorm.DB) *LevelRepository {
	return &LevelRepository{db: db}
}

// Get returns the stored snapshot or gorm.ErrRecordNotFound.
func (r *LevelRepository) Get(ctx context.Context, userID uint) (*models.LevelState, error) {
	var ls models.LevelState
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&ls).Error
	if err != nil {
		return nil, err
	}
	return &ls, nil
}

func newLevelState(userID uint) *models.LevelState {
	return &models.LevelState{
		UserID:       userID,
		CurrentLevel: 1,
		LevelName:    domain.LevelName(1),
		NextLevelXP:  domain.NextLevelXP(1),
	}
}

// ensure inserts a level-1 snapshot unless one exists.
func (r *LevelRepository) ensure(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(newLevelState(userID)).Error
}

// GetOrCreate returns the snapshot, creating a level-1 row on first use.
func (r *LevelRepository) GetOrCreate(ctx context.Context, userID uint) (*models.LevelState, error) {
	ls, err := r.Get(ctx, userID)
	if err == nil {
		return ls, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := r.ensure(ctx, userID); err != nil {
		return nil, err
	}
	return r.Get(ctx, userID)
}

// GetForUpdate returns the latest snapshot under a row lock, creating it first when missing.
// The lock is held until the surrounding transaction ends.
func (r *LevelRepository) GetForUpdate(ctx context.Context, userID uint) (*models.LevelState, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return nil, err
	}
	var ls models.LevelState
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&ls).Error
	if err != nil {
		return nil, err
	}
	return &ls, nil
}

// AddXP increments total_xp and writes the derived level columns. The activity counters are
// left alone so concurrent increments survive.
func (r *LevelRepository) AddXP(ctx context.Context, userID uint, xp int64, level int, name string, nextXP int64) error {
	return r.db.WithContext(ctx).Model(&models.LevelState{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"total_xp":      gorm.Expr("total_xp + ?", xp),
			"current_level": level,
			"level_name":    name,
			"next_level_xp": nextXP,
		}).Error
}

// Increment bumps one activity counter, creating the snapshot if needed.
func (r *LevelRepository) Increment(ctx context.Context, userID uint, column string) error {
	switch column {
	case "connections_made", "qr_scans_performed", "profile_views":
	default:
		return errors.New("unknown level counter " + column)
	}
	if err := r.ensure(ctx, userID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&models.LevelState{}).
		Where("user_id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}
