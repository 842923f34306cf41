package repository

import (
	"context"
	"errors"
	"sort"

	"metabento/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByWallet(ctx context.Context, wallet string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateFields writes only the given columns. Use it for zero values such as is_public=false.
func (r *UserRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// LockForUpdate loads the given users under a row lock (SELECT ... FOR UPDATE), taking the
// locks in ascending id order so two transactions over the same users cannot deadlock.
// Missing ids are absent from the result.
func (r *UserRepository) LockForUpdate(ctx context.Context, ids ...uint) (map[uint]*models.User, error) {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := make(map[uint]*models.User, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		var u models.User
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = &u
	}
	return out, nil
}

// AddPoints atomically increments a balance. Credits commute, so no read is needed.
func (r *UserRepository) AddPoints(ctx context.Context, id uint, amount int64) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("points", gorm.Expr("points + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SubtractPoints atomically debits amount only while the balance covers it.
// It reports false when the balance was too low (or the user is gone).
func (r *UserRepository) SubtractPoints(ctx context.Context, id uint, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND points >= ?", id, amount).
		UpdateColumn("points", gorm.Expr("points - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementConnections bumps total_connections by one.
func (r *UserRepository) IncrementConnections(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("total_connections", gorm.Expr("total_connections + 1")).Error
}

// CountRankedAhead counts users ordered before u: more points, or equal points and an earlier
// signup, or equal both and a lower id.
func (r *UserRepository) CountRankedAhead(ctx context.Context, u *models.User) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("points > ? OR (points = ? AND created_at < ?) OR (points = ? AND created_at = ? AND id < ?)",
			u.Points, u.Points, u.CreatedAt, u.Points, u.CreatedAt, u.ID).
		Count(&n).Error
	return n, err
}

// TopByPoints returns users in leaderboard order.
func (r *UserRepository) TopByPoints(ctx context.Context, limit int) ([]models.User, error) {
	var list []models.User
	err := r.db.WithContext(ctx).
		Order("points DESC").Order("created_at ASC").Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
