package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"metabento/internal/domain"
	"metabento/internal/models"
	"metabento/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
	recentTransactionsLimit = 10
	adjustRetries           = 3
)

type PointsService struct {
	ledger *Ledger
}

func NewPointsService(ledger *Ledger) *PointsService {
	return &PointsService{ledger: ledger}
}

// BalanceChange is the outcome of a single credit, debit or adjustment.
type BalanceChange struct {
	UserID       uint  `json:"user_id"`
	PointsChange int64 `json:"points_change"`
	NewBalance   int64 `json:"new_balance"`
}

// Credit adds points with a logged reason.
func (s *PointsService) Credit(ctx context.Context, userID uint, amount int64, reason domain.TransactionReason, description, referenceID string) (*BalanceChange, error) {
	var out *BalanceChange
	err := s.ledger.run(ctx, "credit", logrus.Fields{"user_id": userID, "amount": amount, "reason": reason},
		func(tx *repository.Store, ev *effects) error {
			if err := s.ledger.credit(ctx, tx, creditInput{
				userID: userID, amount: amount, reason: reason, description: description, referenceID: referenceID,
			}, ev); err != nil {
				return err
			}
			u, err := s.ledger.getUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			out = &BalanceChange{UserID: userID, PointsChange: amount, NewBalance: u.Points}
			return nil
		})
	return out, err
}

// Debit removes points. It fails with ErrInsufficientPoints and changes nothing when the
// balance does not cover amount.
func (s *PointsService) Debit(ctx context.Context, userID uint, amount int64, reason domain.TransactionReason, description, referenceID string) (*BalanceChange, error) {
	var out *BalanceChange
	err := s.ledger.run(ctx, "debit", logrus.Fields{"user_id": userID, "amount": amount, "reason": reason},
		func(tx *repository.Store, ev *effects) error {
			if err := s.ledger.debit(ctx, tx, creditInput{
				userID: userID, amount: amount, reason: reason, description: description, referenceID: referenceID,
			}, ev); err != nil {
				return err
			}
			u, err := s.ledger.getUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			out = &BalanceChange{UserID: userID, PointsChange: -amount, NewBalance: u.Points}
			return nil
		})
	return out, err
}

// AdminAdjust applies an operator award. Positive amounts are credits. Negative amounts are
// floored at a zero balance, and the log records the delta actually applied.
func (s *PointsService) AdminAdjust(ctx context.Context, userID uint, amount int64, reason domain.TransactionReason, description, referenceID string) (*BalanceChange, error) {
	if reason == "" {
		reason = domain.ReasonAdmin
	}
	fields := logrus.Fields{"user_id": userID, "amount": amount, "reason": reason}
	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !reason.Valid() {
		return nil, domain.ErrInvalidReason
	}
	if limit := s.ledger.cfg.MaxAdminAward; limit > 0 && (amount > limit || -amount > limit) {
		return nil, domain.ErrAwardTooLarge
	}
	if description == "" {
		description = "Admin adjustment"
	}
	var out *BalanceChange
	err := s.ledger.run(ctx, "admin_adjust", fields, func(tx *repository.Store, ev *effects) error {
		u, err := s.ledger.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		in := creditInput{userID: userID, reason: reason, description: description, referenceID: referenceID}
		applied := amount
		if amount > 0 {
			in.amount = amount
			if err := s.ledger.credit(ctx, tx, in, ev); err != nil {
				return err
			}
		} else {
			applied, err = s.floorDebit(ctx, tx, u, -amount, in, ev)
			if err != nil {
				return err
			}
		}
		u, err = s.ledger.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = &BalanceChange{UserID: userID, PointsChange: applied, NewBalance: u.Points}
		return nil
	})
	if err == nil {
		s.ledger.log.WithFields(fields).WithField("applied", out.PointsChange).Info("admin points adjustment")
	}
	return out, err
}

// floorDebit debits min(want, balance) and returns the negative delta applied.
func (s *PointsService) floorDebit(ctx context.Context, tx *repository.Store, u *models.User, want int64, in creditInput, ev *effects) (int64, error) {
	for i := 0; i < adjustRetries; i++ {
		take := want
		if u.Points < take {
			take = u.Points
		}
		if take == 0 {
			return 0, nil
		}
		in.amount = take
		err := s.ledger.debit(ctx, tx, in, ev)
		if err == nil {
			return -take, nil
		}
		if !errors.Is(err, domain.ErrInsufficientPoints) {
			return 0, err
		}
		// balance moved under us; re-read and try again
		if u, err = s.ledger.getUser(ctx, tx, u.ID); err != nil {
			return 0, err
		}
	}
	return 0, domain.Integrity(fmt.Errorf("balance for user %d kept changing", u.ID))
}

// Balance returns the stored balance.
func (s *PointsService) Balance(ctx context.Context, userID uint) (int64, error) {
	u, err := s.ledger.getUser(ctx, s.ledger.store, userID)
	if err != nil {
		return 0, err
	}
	return u.Points, nil
}

// Rank is 1 + the number of users ordered ahead: more points, then an earlier signup, then a
// lower id.
func (s *PointsService) Rank(ctx context.Context, userID uint) (int64, error) {
	u, err := s.ledger.getUser(ctx, s.ledger.store, userID)
	if err != nil {
		return 0, err
	}
	ahead, err := s.ledger.store.Users.CountRankedAhead(ctx, u)
	if err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	UserID           uint   `json:"id"`
	Username         string `json:"username"`
	DisplayName      string `json:"display_name"`
	AvatarURL        string `json:"avatar_url"`
	Points           int64  `json:"points"`
	TotalConnections int64  `json:"total_connections"`
}

// Leaderboard returns the top users, rank equal to position. The full top slice is cached in
// Redis and trimmed per request.
func (s *PointsService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	var entries []LeaderboardEntry
	hit, err := s.ledger.board.Get(ctx, &entries)
	if err != nil {
		s.ledger.log.WithError(err).Warn("leaderboard cache read failed")
	}
	if !hit {
		users, err := s.ledger.store.Users.TopByPoints(ctx, MaxLeaderboardLimit)
		if err != nil {
			return nil, err
		}
		entries = make([]LeaderboardEntry, 0, len(users))
		for i, u := range users {
			entries = append(entries, LeaderboardEntry{
				Rank:             i + 1,
				UserID:           u.ID,
				Username:         u.UsernameOrEmpty(),
				DisplayName:      u.Name(),
				AvatarURL:        u.AvatarURL,
				Points:           u.Points,
				TotalConnections: u.TotalConnections,
			})
		}
		if err := s.ledger.board.Set(ctx, entries); err != nil {
			s.ledger.log.WithError(err).Warn("leaderboard cache write failed")
		}
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

type UserStats struct {
	UserID              uint                       `json:"user_id"`
	Balance             int64                      `json:"balance"`
	ConnectionCount     int64                      `json:"connection_count"`
	Rank                int64                      `json:"rank"`
	PointsThisWeek      int64                      `json:"points_this_week"`
	ConnectionsThisWeek int64                      `json:"connections_this_week"`
	RecentTransactions  []models.PointsTransaction `json:"recent_transactions"`
	Achievements        []models.Achievement       `json:"achievements"`
	MemberSince         time.Time                  `json:"member_since"`
}

func (s *PointsService) Stats(ctx context.Context, userID uint) (*UserStats, error) {
	store := s.ledger.store
	u, err := s.ledger.getUser(ctx, store, userID)
	if err != nil {
		return nil, err
	}
	rank, err := s.Rank(ctx, userID)
	if err != nil {
		return nil, err
	}
	weekAgo := s.ledger.now().Add(-7 * 24 * time.Hour)
	earned, err := store.Points.SumEarnedSince(ctx, userID, weekAgo)
	if err != nil {
		return nil, err
	}
	newConns, err := store.Connections.CountFromSince(ctx, userID, weekAgo)
	if err != nil {
		return nil, err
	}
	recent, err := store.Points.ListByUser(ctx, userID, recentTransactionsLimit, 0)
	if err != nil {
		return nil, err
	}
	achievements, err := store.Achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		UserID:              u.ID,
		Balance:             u.Points,
		ConnectionCount:     u.TotalConnections,
		Rank:                rank,
		PointsThisWeek:      earned,
		ConnectionsThisWeek: newConns,
		RecentTransactions:  recent,
		Achievements:        achievements,
		MemberSince:         u.CreatedAt,
	}, nil
}

// Transactions pages through a user's ledger, newest first.
func (s *PointsService) Transactions(ctx context.Context, userID uint, limit, offset int) ([]models.PointsTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.store.Points.ListByUser(ctx, userID, limit, offset)
}

type DailyBonus struct {
	Day           string `json:"day"`
	PointsAwarded int64  `json:"points_awarded"`
	NewBalance    int64  `json:"new_balance"`
}

// ClaimDailyBonus credits the daily bonus once per UTC day.
func (s *PointsService) ClaimDailyBonus(ctx context.Context, userID uint) (*DailyBonus, error) {
	day, _ := utcDay(s.ledger.now())
	amount := s.ledger.cfg.DailyBonus
	var out *DailyBonus
	err := s.ledger.run(ctx, "daily_bonus", logrus.Fields{"user_id": userID, "day": day},
		func(tx *repository.Store, ev *effects) error {
			if _, err := s.ledger.getUser(ctx, tx, userID); err != nil {
				return err
			}
			claimed, err := tx.Activities.ClaimDaily(ctx, userID, day)
			if err != nil {
				return err
			}
			if !claimed {
				return domain.ErrDailyBonusClaimed
			}
			if err := s.ledger.credit(ctx, tx, creditInput{
				userID:      userID,
				amount:      amount,
				reason:      domain.ReasonDailyBonus,
				description: "Daily login bonus",
				referenceID: day,
			}, ev); err != nil {
				return err
			}
			u, err := s.ledger.getUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			out = &DailyBonus{Day: day, PointsAwarded: amount, NewBalance: u.Points}
			return nil
		})
	return out, err
}
