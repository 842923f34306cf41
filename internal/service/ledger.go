package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"metabento/config"
	"metabento/internal/cache"
	"metabento/internal/domain"
	"metabento/internal/metrics"
	"metabento/internal/models"
	"metabento/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Notifier receives user-facing events once the write that produced them has committed.
type Notifier interface {
	Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error
}

// Ledger is the only writer of point balances. Every mutation runs inside one
// repository.Store transaction together with its transaction-log row.
type Ledger struct {
	store  *repository.Store
	cfg    config.PointsConfig
	board  *cache.LeaderboardCache
	notify Notifier
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewLedger(store *repository.Store, cfg config.PointsConfig, board *cache.LeaderboardCache, notify Notifier, log logrus.FieldLogger) *Ledger {
	return &Ledger{
		store:  store,
		cfg:    cfg,
		board:  board,
		notify: notify,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// effects collects what a unit of work wants to announce after commit.
type effects struct {
	notes       []note
	credits     []move
	debits      []move
	connections []domain.ConnectionType
	unlocked    []domain.AchievementType
	swaps       int
}

type note struct {
	userID uint
	kind   string
	title  string
	body   string
	data   map[string]interface{}
}

type move struct {
	reason domain.TransactionReason
	amount int64
}

func (e *effects) balancesChanged() bool {
	return len(e.credits) > 0 || len(e.debits) > 0
}

// run executes fn as one unit of work and publishes its effects only if it committed.
func (l *Ledger) run(ctx context.Context, op string, fields logrus.Fields, fn func(tx *repository.Store, ev *effects) error) error {
	ev := &effects{}
	err := l.store.Transaction(ctx, func(tx *repository.Store) error {
		return fn(tx, ev)
	})
	if err != nil {
		return l.reject(op, fields, err)
	}
	l.publish(ctx, ev)
	return nil
}

// reject classifies err, counts and logs it, and returns the classified error.
func (l *Ledger) reject(op string, fields logrus.Fields, err error) error {
	err = classify(err)
	kind := domain.KindOf(err)
	metrics.RecordRejection(op, string(kind))
	entry := l.log.WithFields(fields).WithField("operation", op).WithError(err)
	if kind == domain.KindIntegrity {
		entry.Error("ledger operation rolled back")
	} else {
		entry.Info("ledger operation rejected")
	}
	return err
}

// classify leaves domain errors alone and turns anything else into an integrity failure.
func classify(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrUserNotFound
	}
	return domain.Integrity(err)
}

func (l *Ledger) publish(ctx context.Context, ev *effects) {
	for _, m := range ev.credits {
		metrics.RecordCredit(string(m.reason), m.amount)
	}
	for _, m := range ev.debits {
		metrics.RecordDebit(string(m.reason), m.amount)
	}
	for _, t := range ev.connections {
		metrics.RecordConnection(string(t))
	}
	for _, t := range ev.unlocked {
		metrics.RecordAchievement(string(t))
	}
	for i := 0; i < ev.swaps; i++ {
		metrics.RecordSwap()
	}
	if ev.balancesChanged() {
		if err := l.board.Invalidate(ctx); err != nil {
			l.log.WithError(err).Warn("leaderboard cache invalidation failed")
		}
	}
	if l.notify == nil {
		return
	}
	// deliveries outlive the request
	nctx := context.WithoutCancel(ctx)
	for _, n := range ev.notes {
		if err := l.notify.Notify(nctx, n.userID, n.kind, n.title, n.body, n.data); err != nil {
			l.log.WithError(err).WithFields(logrus.Fields{"user_id": n.userID, "type": n.kind}).Warn("notification failed")
		}
	}
}

type creditInput struct {
	userID      uint
	amount      int64
	reason      domain.TransactionReason
	description string
	referenceID string
}

// credit adds amount to a balance, logs it, and feeds XP when the reason earns it.
func (l *Ledger) credit(ctx context.Context, tx *repository.Store, in creditInput, ev *effects) error {
	if in.amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if !in.reason.Valid() {
		return domain.ErrInvalidReason
	}
	if err := tx.Users.AddPoints(ctx, in.userID, in.amount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("credit user %d: %w", in.userID, err)
	}
	if err := tx.Points.Record(ctx, &models.PointsTransaction{
		UserID:       in.userID,
		PointsChange: in.amount,
		Reason:       in.reason,
		Description:  in.description,
		ReferenceID:  in.referenceID,
	}); err != nil {
		return fmt.Errorf("log credit: %w", err)
	}
	ev.credits = append(ev.credits, move{reason: in.reason, amount: in.amount})
	if in.reason.EarnsXP() {
		return l.awardXP(ctx, tx, in.userID, in.amount, ev)
	}
	return nil
}

// debit removes amount only when the balance covers it.
func (l *Ledger) debit(ctx context.Context, tx *repository.Store, in creditInput, ev *effects) error {
	if in.amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if !in.reason.Valid() {
		return domain.ErrInvalidReason
	}
	ok, err := tx.Users.SubtractPoints(ctx, in.userID, in.amount)
	if err != nil {
		return fmt.Errorf("debit user %d: %w", in.userID, err)
	}
	if !ok {
		if _, err := tx.Users.GetByID(ctx, in.userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return err
		}
		return domain.ErrInsufficientPoints
	}
	if err := tx.Points.Record(ctx, &models.PointsTransaction{
		UserID:       in.userID,
		PointsChange: -in.amount,
		Reason:       in.reason,
		Description:  in.description,
		ReferenceID:  in.referenceID,
	}); err != nil {
		return fmt.Errorf("log debit: %w", err)
	}
	ev.debits = append(ev.debits, move{reason: in.reason, amount: in.amount})
	return nil
}

func (l *Ledger) getUser(ctx context.Context, tx *repository.Store, id uint) (*models.User, error) {
	u, err := tx.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// utcDay is the calendar day used for once-per-day rewards.
func utcDay(t time.Time) (string, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start.Format("2006-01-02"), start
}
