package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"metabento/config"
	"metabento/internal/domain"
	"metabento/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "mysql", "":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
		// unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Models lists every persisted model, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Connection{},
		&models.PointsTransaction{},
		&models.Achievement{},
		&models.LevelState{},
		&models.TokenSwap{},
		&models.Notification{},
		&models.AuthNonce{},
		&models.QRActivity{},
		&models.DailyBonusClaim{},
		&models.ScanRewardClaim{},
	}
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// SeedAdmin creates the configured admin account if it does not exist yet.
func SeedAdmin(db *gorm.DB, cfg *config.AdminConfig, log logrus.FieldLogger) {
	if cfg.Email == "" || cfg.Password == "" {
		return
	}
	var existing models.User
	err := db.Where("email = ?", cfg.Email).First(&existing).Error
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			db.Model(&existing).Update("role", domain.RoleAdmin)
		}
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.WithError(err).Warn("admin seed lookup failed")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		log.WithError(err).Warn("admin seed hash failed")
		return
	}
	email := cfg.Email
	username := "admin"
	admin := &models.User{
		Email:        &email,
		Username:     &username,
		DisplayName:  "Admin",
		Role:         domain.RoleAdmin,
		PasswordHash: string(hash),
		IsPublic:     false,
	}
	if err := db.Create(admin).Error; err != nil {
		log.WithError(err).Warn("admin seed create failed")
		return
	}
	// default:true on is_public overrides the zero value at insert time
	db.Model(admin).Update("is_public", false)
	log.WithField("email", email).Info("admin account seeded")
}
