package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"metabento/internal/domain"
	"metabento/internal/models"
	"metabento/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ConnectionService struct {
	ledger *Ledger
}

func NewConnectionService(ledger *Ledger) *ConnectionService {
	return &ConnectionService{ledger: ledger}
}

// SideResult is one party's outcome of a new connection.
type SideResult struct {
	UserID         uint  `json:"user_id"`
	PointsAwarded  int64 `json:"points_awarded"`
	NewBalance     int64 `json:"new_balance"`
	NewConnections int64 `json:"new_connections"`
}

type ConnectionResult struct {
	Connection    *models.Connection `json:"connection"`
	PointsAwarded int64              `json:"points_awarded"`
	FromUser      SideResult         `json:"from_user"`
	ToUser        SideResult         `json:"to_user"`
}

// baseAward is the symmetric reward for a connection type.
func (s *ConnectionService) baseAward(t domain.ConnectionType) int64 {
	switch t {
	case domain.ConnectionQRScan:
		return s.ledger.cfg.QRScanConnection
	case domain.ConnectionManual, domain.ConnectionEvent:
		return s.ledger.cfg.ConnectionBase
	}
	return 0
}

// CreateConnection records a mutual connection between from and to and rewards both sides.
// callerID must be from.
func (s *ConnectionService) CreateConnection(ctx context.Context, callerID, from, to uint, connType domain.ConnectionType) (*ConnectionResult, error) {
	if from == 0 || to == 0 {
		return nil, domain.Validation("from and to user ids are required")
	}
	if from == to {
		return nil, domain.ErrSelfConnection
	}
	if callerID != from {
		return nil, domain.ErrUnauthorized
	}
	if !connType.Valid() {
		return nil, domain.ErrInvalidConnection
	}
	var out *ConnectionResult
	err := s.ledger.run(ctx, "create_connection", logrus.Fields{"from_user_id": from, "to_user_id": to, "type": connType},
		func(tx *repository.Store, ev *effects) error {
			var err error
			out, err = s.connect(ctx, tx, from, to, connType, ev)
			return err
		})
	return out, err
}

// connect is the transactional body shared by CreateConnection and ProcessScan.
// Both user rows are locked first, so the connection counts that decide the first-connection
// bonus cannot change underneath it.
func (s *ConnectionService) connect(ctx context.Context, tx *repository.Store, from, to uint, connType domain.ConnectionType, ev *effects) (*ConnectionResult, error) {
	locked, err := tx.Users.LockForUpdate(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}
	exists, err := tx.Connections.ExistsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateConnection
	}
	fromUser, toUser := locked[from], locked[to]
	if fromUser == nil || toUser == nil {
		return nil, domain.ErrUserNotFound
	}

	base := s.baseAward(connType)
	fromAward, toAward := base, base
	if fromUser.TotalConnections == 0 {
		fromAward += s.ledger.cfg.FirstConnectionBonus
	}
	if toUser.TotalConnections == 0 {
		toAward += s.ledger.cfg.FirstConnectionBonus
	}

	meta, err := json.Marshal(map[string]string{
		"from_name": fromUser.Name(),
		"to_name":   toUser.Name(),
	})
	if err != nil {
		return nil, err
	}
	key := models.PairKey(from, to)
	forward := &models.Connection{
		FromUserID: from, ToUserID: to, PairKey: key,
		ConnectionType: connType, PointsAwarded: fromAward, Metadata: string(meta),
	}
	reverse := &models.Connection{
		FromUserID: to, ToUserID: from, PairKey: key,
		ConnectionType: connType, PointsAwarded: toAward, Metadata: string(meta),
	}
	if err := tx.Connections.CreatePair(ctx, forward, reverse); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrDuplicateConnection
		}
		return nil, fmt.Errorf("insert connection pair: %w", err)
	}

	ref := strconv.FormatUint(uint64(forward.ID), 10)
	sides := []struct {
		user  *models.User
		peer  *models.User
		award int64
	}{
		{fromUser, toUser, fromAward},
		{toUser, fromUser, toAward},
	}
	for _, side := range sides {
		if err := tx.Users.IncrementConnections(ctx, side.user.ID); err != nil {
			return nil, fmt.Errorf("count connection: %w", err)
		}
		if err := tx.Levels.Increment(ctx, side.user.ID, "connections_made"); err != nil {
			return nil, err
		}
		if err := s.ledger.credit(ctx, tx, creditInput{
			userID:      side.user.ID,
			amount:      side.award,
			reason:      domain.ReasonConnection,
			description: "Connected with " + side.peer.Name(),
			referenceID: ref,
		}, ev); err != nil {
			return nil, err
		}
		if err := s.ledger.afterConnection(ctx, tx, side.user.ID, side.user.TotalConnections, ev); err != nil {
			return nil, err
		}
	}

	fromUser, err = s.ledger.getUser(ctx, tx, from)
	if err != nil {
		return nil, err
	}
	toUser, err = s.ledger.getUser(ctx, tx, to)
	if err != nil {
		return nil, err
	}
	ev.connections = append(ev.connections, connType)
	ev.notes = append(ev.notes, note{
		userID: to,
		kind:   domain.NotificationNewConnection,
		title:  "New connection",
		body:   fmt.Sprintf("%s connected with you (+%d points)", fromUser.Name(), toAward),
		data: map[string]interface{}{
			"connection_id":  forward.ID,
			"from_user_id":   from,
			"points_awarded": toAward,
		},
	})
	return &ConnectionResult{
		Connection:    forward,
		PointsAwarded: base,
		FromUser:      SideResult{UserID: from, PointsAwarded: fromAward, NewBalance: fromUser.Points, NewConnections: fromUser.TotalConnections},
		ToUser:        SideResult{UserID: to, PointsAwarded: toAward, NewBalance: toUser.Points, NewConnections: toUser.TotalConnections},
	}, nil
}

// ConnectionView is one entry of a user's connection list.
type ConnectionView struct {
	ConnectionID   uint                  `json:"connection_id"`
	ConnectedUser  PublicUser            `json:"connected_user"`
	ConnectionType domain.ConnectionType `json:"connection_type"`
	PointsAwarded  int64                 `json:"points_awarded"`
	ConnectedAt    time.Time             `json:"connected_at"`
}

// PublicUser is the subset of a user shown to other people.
type PublicUser struct {
	ID               uint   `json:"id"`
	Username         string `json:"username"`
	DisplayName      string `json:"display_name"`
	AvatarURL        string `json:"avatar_url"`
	Points           int64  `json:"points"`
	TotalConnections int64  `json:"total_connections"`
}

func toPublicUser(u *models.User) PublicUser {
	return PublicUser{
		ID:               u.ID,
		Username:         u.UsernameOrEmpty(),
		DisplayName:      u.Name(),
		AvatarURL:        u.AvatarURL,
		Points:           u.Points,
		TotalConnections: u.TotalConnections,
	}
}

// ListConnections returns userID's connections. Peers with private profiles are hidden unless
// the viewer owns the list or is an admin. viewerID 0 is an anonymous caller.
func (s *ConnectionService) ListConnections(ctx context.Context, viewerID uint, viewerIsAdmin bool, userID uint, limit, offset int) ([]ConnectionView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.ledger.store.Connections.ListFrom(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	owner := viewerIsAdmin || (viewerID != 0 && viewerID == userID)
	out := make([]ConnectionView, 0, len(rows))
	for i := range rows {
		c := &rows[i]
		if c.ToUser.ID == 0 {
			continue
		}
		if !owner && !c.ToUser.IsPublic {
			continue
		}
		out = append(out, ConnectionView{
			ConnectionID:   c.ID,
			ConnectedUser:  toPublicUser(&c.ToUser),
			ConnectionType: c.ConnectionType,
			PointsAwarded:  c.PointsAwarded,
			ConnectedAt:    c.CreatedAt,
		})
	}
	return out, nil
}
