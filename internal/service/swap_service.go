package service

import (
	"context"
	"strings"

	"metabento/internal/auth"
	"metabento/internal/domain"
	"metabento/internal/models"
	"metabento/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type SwapService struct {
	ledger *Ledger
}

func NewSwapService(ledger *Ledger) *SwapService {
	return &SwapService{ledger: ledger}
}

type SwapResult struct {
	Swap             *models.TokenSwap `json:"swap"`
	PointsSwapped    int64             `json:"points_swapped"`
	TokenAmount      float64           `json:"token_amount"`
	ExchangeRate     int64             `json:"exchange_rate"`
	RemainingBalance int64             `json:"remaining_balance"`
}

// Swap debits points and records a pending token disbursement in the same unit of work.
// wallet overrides the user's own address as the destination when set. Without either the
// swap is still recorded, with no destination, and settlement waits for one.
func (s *SwapService) Swap(ctx context.Context, callerID, userID uint, points int64, wallet string) (*SwapResult, error) {
	if callerID != userID {
		return nil, domain.ErrUnauthorized
	}
	if points <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	cfg := s.ledger.cfg
	if points < cfg.SwapMinimum {
		return nil, domain.ErrBelowMinimum
	}
	rate := cfg.ExchangeRate
	if rate <= 0 {
		rate = 100
	}
	if strings.TrimSpace(wallet) != "" {
		normalized, err := auth.NormalizeAddress(wallet)
		if err != nil {
			return nil, domain.ErrInvalidWallet
		}
		wallet = normalized
	}

	var out *SwapResult
	err := s.ledger.run(ctx, "swap_points", logrus.Fields{"user_id": userID, "points": points},
		func(tx *repository.Store, ev *effects) error {
			u, err := s.ledger.getUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			dest := u.WalletAddress
			if wallet != "" {
				dest = &wallet
			}
			ref := "swap_" + uuid.NewString()
			if err := s.ledger.debit(ctx, tx, creditInput{
				userID:      userID,
				amount:      points,
				reason:      domain.ReasonTokenSwap,
				description: "Swapped points for tokens",
				referenceID: ref,
			}, ev); err != nil {
				return err
			}
			swap := &models.TokenSwap{
				UserID:        userID,
				Reference:     ref,
				PointsSwapped: points,
				TokenAmount:   float64(points) / float64(rate),
				ExchangeRate:  rate,
				WalletAddress: dest,
				Status:        domain.SwapPending,
			}
			if err := tx.Swaps.Create(ctx, swap); err != nil {
				return err
			}
			u, err = s.ledger.getUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			ev.swaps++
			out = &SwapResult{
				Swap:             swap,
				PointsSwapped:    points,
				TokenAmount:      swap.TokenAmount,
				ExchangeRate:     rate,
				RemainingBalance: u.Points,
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	s.ledger.log.WithFields(logrus.Fields{"user_id": userID, "points": points, "reference": out.Swap.Reference}).Info("token swap recorded")
	return out, nil
}

// History lists a user's swaps. Only the owner or an admin may read it.
func (s *SwapService) History(ctx context.Context, callerID uint, callerIsAdmin bool, userID uint, limit, offset int) ([]models.TokenSwap, error) {
	if !callerIsAdmin && callerID != userID {
		return nil, domain.ErrUnauthorized
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := s.ledger.getUser(ctx, s.ledger.store, userID); err != nil {
		return nil, err
	}
	return s.ledger.store.Swaps.ListByUser(ctx, userID, limit, offset)
}
