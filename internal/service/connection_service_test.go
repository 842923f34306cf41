package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"metabento/internal/domain"
	"metabento/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConnection_FirstConnectionBothSides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)

	res, err := env.conns.CreateConnection(ctx, a.ID, a.ID, b.ID, domain.ConnectionQRScan)
	require.NoError(t, err)

	assert.Equal(t, int64(15), res.PointsAwarded)
	assert.Equal(t, int64(40), res.FromUser.PointsAwarded)
	assert.Equal(t, int64(40), res.ToUser.PointsAwarded)
	// 40 for the connection plus 25 for the first_connection achievement
	assert.Equal(t, int64(65), res.FromUser.NewBalance)
	assert.Equal(t, int64(65), res.ToUser.NewBalance)
	assert.Equal(t, int64(1), res.FromUser.NewConnections)
	assert.Equal(t, int64(1), res.ToUser.NewConnections)

	assert.Equal(t, int64(2), env.countRows(t, &models.Connection{}, "pair_key = ?", models.PairKey(a.ID, b.ID)))
	for _, u := range []*models.User{a, b} {
		assert.Equal(t, int64(65), env.balance(t, u.ID))
		env.requireConsistent(t, u.ID)

		has, err := env.store.Achievements.Has(ctx, u.ID, domain.AchievementFirstConnection)
		require.NoError(t, err)
		assert.True(t, has)

		txs, err := env.store.Points.ListByUser(ctx, u.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		reasons := []domain.TransactionReason{txs[0].Reason, txs[1].Reason}
		assert.ElementsMatch(t, []domain.TransactionReason{domain.ReasonConnection, domain.ReasonAchievement}, reasons)

		lvl, err := env.progress.Level(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(65), lvl.TotalXP)
		assert.Equal(t, 2, lvl.CurrentLevel)
		assert.Equal(t, int64(1), lvl.ConnectionsMade)
	}

	assert.Contains(t, env.notes.kinds(b.ID), domain.NotificationNewConnection)
	assert.NotContains(t, env.notes.kinds(a.ID), domain.NotificationNewConnection)
	assert.Contains(t, env.notes.kinds(a.ID), domain.NotificationAchievementUnlocked)
	assert.Contains(t, env.notes.kinds(a.ID), domain.NotificationLevelUp)
}

func TestCreateConnection_DuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)

	_, err := env.conns.CreateConnection(ctx, a.ID, a.ID, b.ID, domain.ConnectionQRScan)
	require.NoError(t, err)

	_, err = env.conns.CreateConnection(ctx, a.ID, a.ID, b.ID, domain.ConnectionQRScan)
	assert.ErrorIs(t, err, domain.ErrDuplicateConnection)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	// the reverse direction is the same pair
	_, err = env.conns.CreateConnection(ctx, b.ID, b.ID, a.ID, domain.ConnectionManual)
	assert.ErrorIs(t, err, domain.ErrDuplicateConnection)

	assert.Equal(t, int64(65), env.balance(t, a.ID))
	assert.Equal(t, int64(65), env.balance(t, b.ID))
	assert.Equal(t, int64(2), env.countRows(t, &models.Connection{}, "pair_key = ?", models.PairKey(a.ID, b.ID)))
}

func TestCreateConnection_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)

	tests := []struct {
		name     string
		caller   uint
		from, to uint
		typ      domain.ConnectionType
		want     error
	}{
		{"self", a.ID, a.ID, a.ID, domain.ConnectionManual, domain.ErrSelfConnection},
		{"bad type", a.ID, a.ID, b.ID, "wave", domain.ErrInvalidConnection},
		{"acting for someone else", b.ID, a.ID, b.ID, domain.ConnectionManual, domain.ErrUnauthorized},
		{"unknown target", a.ID, a.ID, 9999, domain.ConnectionManual, domain.ErrUserNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.conns.CreateConnection(ctx, tc.caller, tc.from, tc.to, tc.typ)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := env.conns.CreateConnection(ctx, a.ID, a.ID, 0, domain.ConnectionManual)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	// nothing was written by the rejected calls
	assert.Equal(t, int64(0), env.countRows(t, &models.Connection{}, "1 = 1"))
	assert.Equal(t, int64(0), env.balance(t, a.ID))
}

func TestCreateConnection_SecondConnectionHasNoBonus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)
	c := env.newUser(t, "carol", 0)

	_, err := env.conns.CreateConnection(ctx, a.ID, a.ID, b.ID, domain.ConnectionManual)
	require.NoError(t, err)
	res, err := env.conns.CreateConnection(ctx, a.ID, a.ID, c.ID, domain.ConnectionManual)
	require.NoError(t, err)

	assert.Equal(t, int64(10), res.FromUser.PointsAwarded)
	assert.Equal(t, int64(35), res.ToUser.PointsAwarded)
	// alice: 35 + 25 achievement + 10
	assert.Equal(t, int64(70), env.balance(t, a.ID))
	env.requireConsistent(t, a.ID)
	env.requireConsistent(t, c.ID)
}

func TestCreateConnection_NetworkerAtTen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hub := env.newUser(t, "hub", 0)

	for i := 0; i < 10; i++ {
		peer := env.newUser(t, fmt.Sprintf("peer%02d", i), 0)
		_, err := env.conns.CreateConnection(ctx, hub.ID, hub.ID, peer.ID, domain.ConnectionManual)
		require.NoError(t, err)

		has, err := env.store.Achievements.Has(ctx, hub.ID, domain.AchievementNetworker)
		require.NoError(t, err)
		assert.Equal(t, i == 9, has, "networker after connection %d", i+1)
	}
	// 35 + 9*10 connection points, 25 first_connection, 50 networker
	assert.Equal(t, int64(35+90+25+50), env.balance(t, hub.ID))
	env.requireConsistent(t, hub.ID)

	u, err := env.store.Users.GetByID(ctx, hub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), u.TotalConnections)
}

func TestCreateConnection_ConcurrentDuplicates(t *testing.T) {
	env := newConcurrentEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = env.conns.CreateConnection(ctx, a.ID, a.ID, b.ID, domain.ConnectionManual)
			} else {
				_, errs[i] = env.conns.CreateConnection(ctx, b.ID, b.ID, a.ID, domain.ConnectionManual)
			}
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateConnection)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int64(2), env.countRows(t, &models.Connection{}, "1 = 1"))
	env.requireConsistent(t, a.ID)
	env.requireConsistent(t, b.ID)
}

func TestListConnections_HidesPrivatePeers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)
	c := env.newUser(t, "carol", 0)

	_, err := env.conns.CreateConnection(ctx, a.ID, a.ID, b.ID, domain.ConnectionManual)
	require.NoError(t, err)
	_, err = env.conns.CreateConnection(ctx, a.ID, a.ID, c.ID, domain.ConnectionEvent)
	require.NoError(t, err)
	require.NoError(t, env.store.Users.UpdateFields(ctx, c.ID, map[string]interface{}{"is_public": false}))

	own, err := env.conns.ListConnections(ctx, a.ID, false, a.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, own, 2)
	// newest first
	assert.Equal(t, c.ID, own[0].ConnectedUser.ID)
	assert.Equal(t, domain.ConnectionEvent, own[0].ConnectionType)

	anon, err := env.conns.ListConnections(ctx, 0, false, a.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, b.ID, anon[0].ConnectedUser.ID)
	assert.Equal(t, "bob", anon[0].ConnectedUser.Username)

	admin, err := env.conns.ListConnections(ctx, b.ID, true, a.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, admin, 2)
}
