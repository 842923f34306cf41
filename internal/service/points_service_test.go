package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"metabento/internal/cache"
	"metabento/internal/domain"
	"metabento/internal/models"
	"metabento/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebit_InsufficientLeavesBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "dana", 0)

	_, err := env.points.Credit(ctx, u.ID, 30, domain.ReasonAdmin, "seed", "")
	require.NoError(t, err)

	_, err = env.points.Debit(ctx, u.ID, 31, domain.ReasonTokenSwap, "too much", "")
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)
	assert.Equal(t, int64(30), env.balance(t, u.ID))

	res, err := env.points.Debit(ctx, u.ID, 30, domain.ReasonTokenSwap, "all of it", "")
	require.NoError(t, err)
	assert.Equal(t, int64(-30), res.PointsChange)
	assert.Equal(t, int64(0), res.NewBalance)
	env.requireConsistent(t, u.ID)

	_, err = env.points.Debit(ctx, 9999, 1, domain.ReasonTokenSwap, "", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCredit_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "dana", 0)

	_, err := env.points.Credit(ctx, u.ID, 0, domain.ReasonAdmin, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = env.points.Credit(ctx, u.ID, -5, domain.ReasonAdmin, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = env.points.Credit(ctx, u.ID, 5, "gift", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidReason)
	_, err = env.points.Credit(ctx, 9999, 5, domain.ReasonAdmin, "", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.Equal(t, int64(0), env.countRows(t, &models.PointsTransaction{}, "1 = 1"))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	env := newConcurrentEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "dana", 0)
	_, err := env.points.Credit(ctx, u.ID, 100, domain.ReasonAdmin, "seed", "")
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.points.Debit(ctx, u.ID, 30, domain.ReasonTokenSwap, "", "")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientPoints)
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, int64(10), env.balance(t, u.ID))
	env.requireConsistent(t, u.ID)
}

func TestBalanceMatchesLedgerProperty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	n := 0
	properties.Property("balance equals the ledger sum and never goes negative", prop.ForAll(
		func(ops []int64) bool {
			n++
			u := env.newUser(t, fmt.Sprintf("prop%04d", n), 0)
			var want int64
			for _, op := range ops {
				switch {
				case op > 0:
					if _, err := env.points.Credit(ctx, u.ID, op, domain.ReasonQRScan, "", ""); err != nil {
						return false
					}
					want += op
				case op < 0:
					_, err := env.points.Debit(ctx, u.ID, -op, domain.ReasonTokenSwap, "", "")
					if want+op < 0 {
						if err == nil {
							return false
						}
						continue
					}
					if err != nil {
						return false
					}
					want += op
				}
			}
			stored, err := env.points.Balance(ctx, u.ID)
			if err != nil {
				return false
			}
			sum, err := env.store.Points.SumByUser(ctx, u.ID)
			if err != nil {
				return false
			}
			return stored == sum && stored == want && stored >= 0
		},
		gen.SliceOfN(12, gen.Int64Range(-80, 80)),
	))

	properties.TestingRun(t)
}

func TestAdminAdjust(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.newUser(t, "dana", 0)

	res, err := env.points.AdminAdjust(ctx, d.ID, 50, "", "seed", "")
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.NewBalance)

	// a large negative award floors at zero and logs what was actually removed
	res, err = env.points.AdminAdjust(ctx, d.ID, -10000, domain.ReasonAdmin, "test", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.NewBalance)
	assert.Equal(t, int64(-50), res.PointsChange)
	env.requireConsistent(t, d.ID)

	// nothing left to remove
	res, err = env.points.AdminAdjust(ctx, d.ID, -5, domain.ReasonAdmin, "again", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.PointsChange)
	assert.Equal(t, int64(0), res.NewBalance)

	_, err = env.points.AdminAdjust(ctx, d.ID, 0, domain.ReasonAdmin, "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = env.points.AdminAdjust(ctx, d.ID, 100001, domain.ReasonAdmin, "", "")
	assert.ErrorIs(t, err, domain.ErrAwardTooLarge)
	_, err = env.points.AdminAdjust(ctx, d.ID, 5, "bribe", "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidReason)
	_, err = env.points.AdminAdjust(ctx, 9999, 5, domain.ReasonAdmin, "", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAdminAward_UnlocksInfluencerOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.newUser(t, "erin", 0)

	// 18050 xp is level 20
	_, err := env.points.AdminAdjust(ctx, e.ID, 18050, domain.ReasonAdmin, "grant", "")
	require.NoError(t, err)

	lvl, err := env.progress.Level(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, lvl.CurrentLevel)
	assert.Equal(t, "Connector", lvl.LevelName)

	achievements, err := env.progress.Achievements(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, achievements, 1)
	assert.Equal(t, domain.AchievementInfluencer, achievements[0].AchievementType)
	assert.Equal(t, int64(18150), env.balance(t, e.ID))

	_, err = env.points.AdminAdjust(ctx, e.ID, 1000, domain.ReasonAdmin, "more", "")
	require.NoError(t, err)
	achievements, err = env.progress.Achievements(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, achievements, 1)
	assert.Equal(t, int64(19150), env.balance(t, e.ID))
	env.requireConsistent(t, e.ID)
}

func TestLevelFromCumulativeXP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.newUser(t, "erin", 0)

	for i := 0; i < 5; i++ {
		_, err := env.points.Credit(ctx, e.ID, 1000, domain.ReasonAdmin, "", "")
		require.NoError(t, err)
	}
	lvl, err := env.progress.Level(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), lvl.TotalXP)
	assert.Equal(t, 11, lvl.CurrentLevel)
	assert.Equal(t, "Connector", lvl.LevelName)
	assert.Equal(t, domain.NextLevelXP(11), lvl.NextLevelXP)
	assert.Equal(t, int64(6050), lvl.XPForNextLevelExact)
}

func TestAchievementUnlockIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "ulla", 0)

	snap := domain.ProgressSnapshot{PrevConnections: 0, Connections: 1, Level: 1}
	unlock := func() error {
		return env.ledger.run(ctx, "test_unlock", nil, func(tx *repository.Store, ev *effects) error {
			return env.ledger.unlockEligible(ctx, tx, u.ID, snap, ev)
		})
	}
	require.NoError(t, unlock())
	require.NoError(t, unlock())

	assert.Equal(t, int64(25), env.balance(t, u.ID))
	assert.Equal(t, int64(1), env.countRows(t, &models.Achievement{}, "user_id = ?", u.ID))
	env.requireConsistent(t, u.ID)
}

func TestRankAndLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.newUser(t, "first", 0)
	second := env.newUser(t, "second", 0)
	third := env.newUser(t, "third", 0)

	_, err := env.points.Credit(ctx, third.ID, 40, domain.ReasonAdmin, "", "")
	require.NoError(t, err)
	_, err = env.points.Credit(ctx, first.ID, 20, domain.ReasonAdmin, "", "")
	require.NoError(t, err)
	_, err = env.points.Credit(ctx, second.ID, 20, domain.ReasonAdmin, "", "")
	require.NoError(t, err)

	rank := func(id uint) int64 {
		r, err := env.points.Rank(ctx, id)
		require.NoError(t, err)
		return r
	}
	assert.Equal(t, int64(1), rank(third.ID))
	// equal balances: the earlier signup ranks higher
	assert.Equal(t, int64(2), rank(first.ID))
	assert.Equal(t, int64(3), rank(second.ID))

	board, err := env.points.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)
	for i, want := range []uint{third.ID, first.ID, second.ID} {
		assert.Equal(t, want, board[i].UserID)
		assert.Equal(t, i+1, board[i].Rank)
		assert.Equal(t, int64(board[i].Rank), rank(want))
	}

	top, err := env.points.Leaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, third.ID, top[0].UserID)

	// more points never lowers a rank
	before := rank(second.ID)
	_, err = env.points.Credit(ctx, second.ID, 1, domain.ReasonAdmin, "", "")
	require.NoError(t, err)
	assert.LessOrEqual(t, rank(second.ID), before)
	assert.Equal(t, int64(2), rank(second.ID))

	_, err = env.points.Rank(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLeaderboard_CacheInvalidatedOnCommit(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env := newTestEnvWithCache(t, cache.NewLeaderboardCache(client, time.Minute))
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)
	_, err = env.points.Credit(ctx, a.ID, 10, domain.ReasonAdmin, "", "")
	require.NoError(t, err)

	board, err := env.points.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, a.ID, board[0].UserID)
	assert.True(t, mr.Exists("metabento:leaderboard:top"))

	// a rejected debit commits nothing and keeps the cache
	_, err = env.points.Debit(ctx, b.ID, 5, domain.ReasonTokenSwap, "", "")
	require.ErrorIs(t, err, domain.ErrInsufficientPoints)
	assert.True(t, mr.Exists("metabento:leaderboard:top"))

	_, err = env.points.Credit(ctx, b.ID, 50, domain.ReasonAdmin, "", "")
	require.NoError(t, err)
	assert.False(t, mr.Exists("metabento:leaderboard:top"))

	board, err = env.points.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, b.ID, board[0].UserID)
	assert.Equal(t, int64(50), board[0].Points)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)
	_, err := env.conns.CreateConnection(ctx, a.ID, a.ID, b.ID, domain.ConnectionQRScan)
	require.NoError(t, err)

	stats, err := env.points.Stats(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(65), stats.Balance)
	assert.Equal(t, int64(1), stats.ConnectionCount)
	assert.Equal(t, int64(1), stats.Rank)
	assert.Equal(t, int64(65), stats.PointsThisWeek)
	assert.Equal(t, int64(1), stats.ConnectionsThisWeek)
	assert.Len(t, stats.RecentTransactions, 2)
	assert.Len(t, stats.Achievements, 1)
	assert.Equal(t, a.CreatedAt.Unix(), stats.MemberSince.Unix())

	_, err = env.points.Stats(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestClaimDailyBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.newUser(t, "dana", 0)

	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	env.ledger.now = func() time.Time { return day }

	res, err := env.points.ClaimDailyBonus(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", res.Day)
	assert.Equal(t, int64(10), res.PointsAwarded)
	assert.Equal(t, int64(10), res.NewBalance)

	day = day.Add(10 * time.Hour)
	_, err = env.points.ClaimDailyBonus(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrDailyBonusClaimed)
	assert.Equal(t, int64(10), env.balance(t, u.ID))

	day = day.Add(6 * time.Hour)
	res, err = env.points.ClaimDailyBonus(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02", res.Day)
	assert.Equal(t, int64(20), res.NewBalance)
	env.requireConsistent(t, u.ID)

	_, err = env.points.ClaimDailyBonus(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
