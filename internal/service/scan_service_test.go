package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"metabento/internal/domain"
	"metabento/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScanPayload(t *testing.T) {
	tests := []struct {
		payload string
		want    ScanTarget
		wantErr bool
	}{
		{"metabento://user/42", ScanTarget{UserID: 42}, false},
		{"metabento://user/Alice", ScanTarget{Username: "alice"}, false},
		{"https://metabento.app/u/bob", ScanTarget{Username: "bob"}, false},
		{"http://localhost:3000/profile/Carol_99", ScanTarget{Username: "carol_99"}, false},
		{"  17 ", ScanTarget{UserID: 17}, false},
		{"@dana.k", ScanTarget{Username: "dana.k"}, false},
		{"erin", ScanTarget{Username: "erin"}, false},
		{"", ScanTarget{}, true},
		{"0", ScanTarget{}, true},
		{"ab", ScanTarget{}, true},
		{"metabento://event/1", ScanTarget{}, true},
		{"https://metabento.app/events/1", ScanTarget{}, true},
		{"https://metabento.app/u/bob/extra", ScanTarget{}, true},
		{"ftp://metabento.app/u/bob", ScanTarget{}, true},
		{"bad name!", ScanTarget{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.payload, func(t *testing.T) {
			got, err := ParseScanPayload(tc.payload)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidScanPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestProcessScan_NewPairConnects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)

	res, err := env.conns.ProcessScan(ctx, a.ID, "https://metabento.app/u/bob", "")
	require.NoError(t, err)
	require.NotNil(t, res.Connection)
	assert.Equal(t, domain.ScanConnect, res.Interaction)
	assert.Equal(t, int64(40), res.PointsAwarded)
	assert.Equal(t, int64(65), res.NewBalance)
	assert.Equal(t, b.ID, res.ScannedUser.ID)
	assert.Equal(t, domain.ConnectionQRScan, res.Connection.Connection.ConnectionType)

	lvl, err := env.progress.Level(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), lvl.QRScansPerformed)
	assert.Equal(t, int64(1), lvl.ConnectionsMade)

	history, err := env.conns.ScanHistory(ctx, a.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "profile", history[0].ScanType)
	assert.Equal(t, domain.ScanConnect, history[0].InteractionType)
	assert.Equal(t, "bob", history[0].ScannedUser.Username)
}

func TestProcessScan_RepeatScanPaysOncePerDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)
	b := env.newUser(t, "bob", 0)
	payload := fmt.Sprintf("metabento://user/%d", b.ID)

	_, err := env.conns.ProcessScan(ctx, a.ID, payload, "card")
	require.NoError(t, err)

	res, err := env.conns.ProcessScan(ctx, a.ID, payload, "card")
	require.NoError(t, err)
	assert.Nil(t, res.Connection)
	assert.Equal(t, domain.ScanView, res.Interaction)
	assert.Equal(t, int64(5), res.PointsAwarded)
	assert.Equal(t, int64(70), res.NewBalance)

	res, err = env.conns.ProcessScan(ctx, a.ID, payload, "card")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.PointsAwarded)
	assert.Equal(t, int64(70), res.NewBalance)

	// the next UTC day pays again
	env.ledger.now = func() time.Time { return time.Now().UTC().Add(24 * time.Hour) }
	res, err = env.conns.ProcessScan(ctx, a.ID, payload, "card")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.PointsAwarded)
	assert.Equal(t, int64(75), res.NewBalance)

	// the scanned user earns nothing from views
	assert.Equal(t, int64(65), env.balance(t, b.ID))
	assert.Equal(t, int64(4), env.countRows(t, &models.QRActivity{}, "scanner_user_id = ?", a.ID))
	assert.Equal(t, int64(2), env.countRows(t, &models.Connection{}, "1 = 1"))
	env.requireConsistent(t, a.ID)

	lvl, err := env.progress.Level(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), lvl.QRScansPerformed)
}

func TestProcessScan_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newUser(t, "alice", 0)

	_, err := env.conns.ProcessScan(ctx, a.ID, "alice", "")
	assert.ErrorIs(t, err, domain.ErrSelfConnection)

	_, err = env.conns.ProcessScan(ctx, a.ID, "nobody", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = env.conns.ProcessScan(ctx, a.ID, "metabento://user/999", "")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = env.conns.ProcessScan(ctx, a.ID, "bob", "billboard")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = env.conns.ProcessScan(ctx, a.ID, "%%%", "")
	assert.ErrorIs(t, err, domain.ErrInvalidScanPayload)

	assert.Equal(t, int64(0), env.countRows(t, &models.QRActivity{}, "1 = 1"))
}
