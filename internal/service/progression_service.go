package service

import (
	"context"
	"errors"
	"fmt"

	"metabento/internal/domain"
	"metabento/internal/models"
	"metabento/internal/repository"

	"gorm.io/gorm"
)

// awardXP folds xp into the user's level snapshot, emits level_up on a level change, and then
// checks level-based achievements. Achievement bonuses re-enter through credit, so the loop
// stops once nothing new unlocks.
func (l *Ledger) awardXP(ctx context.Context, tx *repository.Store, userID uint, xp int64, ev *effects) error {
	if xp <= 0 {
		return nil
	}
	ls, err := tx.Levels.GetForUpdate(ctx, userID)
	if err != nil {
		return fmt.Errorf("lock level state: %w", err)
	}
	prev := ls.CurrentLevel
	ls.TotalXP += xp
	ls.CurrentLevel = domain.LevelForXP(ls.TotalXP)
	ls.LevelName = domain.LevelName(ls.CurrentLevel)
	ls.NextLevelXP = domain.NextLevelXP(ls.CurrentLevel)
	if err := tx.Levels.AddXP(ctx, userID, xp, ls.CurrentLevel, ls.LevelName, ls.NextLevelXP); err != nil {
		return fmt.Errorf("add xp: %w", err)
	}
	if ls.CurrentLevel > prev {
		ev.notes = append(ev.notes, note{
			userID: userID,
			kind:   domain.NotificationLevelUp,
			title:  "Level up!",
			body:   fmt.Sprintf("You reached level %d: %s", ls.CurrentLevel, ls.LevelName),
			data: map[string]interface{}{
				"new_level":  ls.CurrentLevel,
				"level_name": ls.LevelName,
				"old_level":  prev,
			},
		})
	}
	u, err := l.getUser(ctx, tx, userID)
	if err != nil {
		return err
	}
	return l.unlockEligible(ctx, tx, userID, domain.ProgressSnapshot{
		PrevConnections: u.TotalConnections,
		Connections:     u.TotalConnections,
		Level:           ls.CurrentLevel,
	}, ev)
}

// afterConnection runs the connection-count rules for one side of a new connection.
func (l *Ledger) afterConnection(ctx context.Context, tx *repository.Store, userID uint, prevConnections int64, ev *effects) error {
	ls, err := tx.Levels.GetOrCreate(ctx, userID)
	if err != nil {
		return fmt.Errorf("load level state: %w", err)
	}
	return l.unlockEligible(ctx, tx, userID, domain.ProgressSnapshot{
		PrevConnections: prevConnections,
		Connections:     prevConnections + 1,
		Level:           ls.CurrentLevel,
	}, ev)
}

func (l *Ledger) unlockEligible(ctx context.Context, tx *repository.Store, userID uint, snap domain.ProgressSnapshot, ev *effects) error {
	for _, t := range domain.EligibleAchievements(snap) {
		def, ok := domain.Achievement(t)
		if !ok {
			continue
		}
		// level rules hold on every later award; skip the insert once the row exists
		has, err := tx.Achievements.Has(ctx, userID, t)
		if err != nil {
			return fmt.Errorf("check %s: %w", t, err)
		}
		if has {
			continue
		}
		created, err := tx.Achievements.Unlock(ctx, &models.Achievement{
			UserID:          userID,
			AchievementType: t,
			Name:            def.Name,
			Description:     def.Description,
			PointsAwarded:   def.Points,
		})
		if err != nil {
			return fmt.Errorf("unlock %s: %w", t, err)
		}
		if !created {
			continue
		}
		ev.unlocked = append(ev.unlocked, t)
		ev.notes = append(ev.notes, note{
			userID: userID,
			kind:   domain.NotificationAchievementUnlocked,
			title:  "Achievement unlocked!",
			body:   fmt.Sprintf("%s: %s (+%d points)", def.Name, def.Description, def.Points),
			data: map[string]interface{}{
				"achievement_type": string(t),
				"achievement_name": def.Name,
				"points_awarded":   def.Points,
			},
		})
		if err := l.credit(ctx, tx, creditInput{
			userID:      userID,
			amount:      def.Points,
			reason:      domain.ReasonAchievement,
			description: "Achievement unlocked: " + def.Name,
			referenceID: string(t),
		}, ev); err != nil {
			return err
		}
	}
	return nil
}

// LevelView is the progression snapshot returned to clients.
type LevelView struct {
	UserID              uint   `json:"user_id"`
	TotalXP             int64  `json:"total_xp"`
	CurrentLevel        int    `json:"current_level"`
	LevelName           string `json:"level_name"`
	NextLevelXP         int64  `json:"next_level_xp"`
	XPForNextLevelExact int64  `json:"xp_for_next_level_exact"`
	ConnectionsMade     int64  `json:"connections_made"`
	QRScansPerformed    int64  `json:"qr_scans_performed"`
	ProfileViews        int64  `json:"profile_views"`
}

func newLevelView(userID uint, ls *models.LevelState) LevelView {
	v := LevelView{UserID: userID, CurrentLevel: 1}
	if ls != nil {
		v.TotalXP = ls.TotalXP
		v.CurrentLevel = ls.CurrentLevel
		v.ConnectionsMade = ls.ConnectionsMade
		v.QRScansPerformed = ls.QRScansPerformed
		v.ProfileViews = ls.ProfileViews
	}
	if v.CurrentLevel < 1 {
		v.CurrentLevel = 1
	}
	v.LevelName = domain.LevelName(v.CurrentLevel)
	v.NextLevelXP = domain.NextLevelXP(v.CurrentLevel)
	v.XPForNextLevelExact = domain.ExactXPForLevel(v.CurrentLevel + 1)
	return v
}

type ProgressionService struct {
	ledger *Ledger
}

func NewProgressionService(ledger *Ledger) *ProgressionService {
	return &ProgressionService{ledger: ledger}
}

// Level returns the user's progression. Users with no XP yet sit at level 1.
func (s *ProgressionService) Level(ctx context.Context, userID uint) (LevelView, error) {
	store := s.ledger.store
	if _, err := s.ledger.getUser(ctx, store, userID); err != nil {
		return LevelView{}, err
	}
	ls, err := store.Levels.Get(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return LevelView{}, err
	}
	return newLevelView(userID, ls), nil
}

func (s *ProgressionService) Achievements(ctx context.Context, userID uint) ([]models.Achievement, error) {
	store := s.ledger.store
	if _, err := s.ledger.getUser(ctx, store, userID); err != nil {
		return nil, err
	}
	return store.Achievements.ListByUser(ctx, userID)
}
