package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"metabento/internal/domain"
	"metabento/internal/models"
	"metabento/internal/repository"

	"github.com/sirupsen/logrus"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_][a-z0-9_.-]{2,63}$`)

// ScanTarget is the user a QR payload points at: by id or by username.
type ScanTarget struct {
	UserID   uint
	Username string
}

// ParseScanPayload accepts a profile URL (https://host/u/<username>), a metabento://user/<id>
// URI, a bare numeric id or a bare username.
func ParseScanPayload(payload string) (ScanTarget, error) {
	p := strings.TrimSpace(payload)
	if p == "" {
		return ScanTarget{}, domain.ErrInvalidScanPayload
	}
	if strings.Contains(p, "://") {
		u, err := url.Parse(p)
		if err != nil {
			return ScanTarget{}, domain.ErrInvalidScanPayload
		}
		switch strings.ToLower(u.Scheme) {
		case "metabento":
			if u.Host != "user" {
				return ScanTarget{}, domain.ErrInvalidScanPayload
			}
			return parseIDOrName(strings.Trim(u.Path, "/"))
		case "http", "https":
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(parts) != 2 || (parts[0] != "u" && parts[0] != "profile") {
				return ScanTarget{}, domain.ErrInvalidScanPayload
			}
			name := strings.ToLower(parts[1])
			if !usernamePattern.MatchString(name) {
				return ScanTarget{}, domain.ErrInvalidScanPayload
			}
			return ScanTarget{Username: name}, nil
		}
		return ScanTarget{}, domain.ErrInvalidScanPayload
	}
	return parseIDOrName(strings.TrimPrefix(p, "@"))
}

func parseIDOrName(s string) (ScanTarget, error) {
	if id, err := strconv.ParseUint(s, 10, 32); err == nil && id > 0 {
		return ScanTarget{UserID: uint(id)}, nil
	}
	name := strings.ToLower(s)
	if !usernamePattern.MatchString(name) {
		return ScanTarget{}, domain.ErrInvalidScanPayload
	}
	return ScanTarget{Username: name}, nil
}

var scanTypes = map[string]bool{"profile": true, "card": true, "event": true}

type ScanResult struct {
	Interaction   domain.ScanInteraction `json:"interaction"`
	ScannedUser   PublicUser             `json:"scanned_user"`
	PointsAwarded int64                  `json:"points_awarded"`
	NewBalance    int64                  `json:"new_balance"`
	Connection    *ConnectionResult      `json:"connection,omitempty"`
}

// ProcessScan resolves a QR payload. An unknown pair becomes a qr_scan connection. A known
// pair is logged as a view, and the scanner earns the repeat-scan bonus at most once per pair
// per UTC day.
func (s *ConnectionService) ProcessScan(ctx context.Context, scannerID uint, payload, scanType string) (*ScanResult, error) {
	target, err := ParseScanPayload(payload)
	if err != nil {
		return nil, err
	}
	if scanType == "" {
		scanType = "profile"
	}
	if !scanTypes[scanType] {
		return nil, domain.Validationf("unknown scan type %q", scanType)
	}
	fields := logrus.Fields{"scanner_user_id": scannerID, "payload": payload}
	scanned, err := s.resolveTarget(ctx, s.ledger.store, target)
	if err != nil {
		return nil, s.ledger.reject("process_scan", fields, err)
	}
	if scanned.ID == scannerID {
		return nil, s.ledger.reject("process_scan", fields, domain.ErrSelfConnection)
	}
	var out *ScanResult
	err = s.ledger.run(ctx, "process_scan", fields,
		func(tx *repository.Store, ev *effects) error {
			// lock before reading so the pair's state is current
			locked, err := tx.Users.LockForUpdate(ctx, scannerID, scanned.ID)
			if err != nil {
				return fmt.Errorf("lock users: %w", err)
			}
			if locked[scannerID] == nil || locked[scanned.ID] == nil {
				return domain.ErrUserNotFound
			}
			exists, err := tx.Connections.ExistsBetween(ctx, scannerID, scanned.ID)
			if err != nil {
				return err
			}
			activity := &models.QRActivity{
				ScannerUserID: scannerID,
				ScannedUserID: scanned.ID,
				ScanType:      scanType,
			}
			res := &ScanResult{}
			if !exists {
				conn, err := s.connect(ctx, tx, scannerID, scanned.ID, domain.ConnectionQRScan, ev)
				if err != nil {
					return err
				}
				activity.InteractionType = domain.ScanConnect
				activity.PointsAwarded = conn.FromUser.PointsAwarded
				res.Connection = conn
			} else {
				activity.InteractionType = domain.ScanView
				day, _ := utcDay(s.ledger.now())
				bonus := s.ledger.cfg.RepeatScanBonus
				claimed := false
				if bonus > 0 {
					claimed, err = tx.Activities.ClaimScanReward(ctx, scannerID, scanned.ID, day)
					if err != nil {
						return fmt.Errorf("claim scan reward: %w", err)
					}
				}
				if claimed {
					if err := s.ledger.credit(ctx, tx, creditInput{
						userID:      scannerID,
						amount:      bonus,
						reason:      domain.ReasonQRScan,
						description: "Scanned " + scanned.Name(),
						referenceID: strconv.FormatUint(uint64(scanned.ID), 10),
					}, ev); err != nil {
						return err
					}
					activity.PointsAwarded = bonus
				}
			}
			if err := tx.Activities.LogScan(ctx, activity); err != nil {
				return fmt.Errorf("log scan: %w", err)
			}
			if err := tx.Levels.Increment(ctx, scannerID, "qr_scans_performed"); err != nil {
				return err
			}
			scanner, err := s.ledger.getUser(ctx, tx, scannerID)
			if err != nil {
				return err
			}
			peer, err := s.ledger.getUser(ctx, tx, scanned.ID)
			if err != nil {
				return err
			}
			res.Interaction = activity.InteractionType
			res.ScannedUser = toPublicUser(peer)
			res.PointsAwarded = activity.PointsAwarded
			res.NewBalance = scanner.Points
			out = res
			return nil
		})
	return out, err
}

func (s *ConnectionService) resolveTarget(ctx context.Context, tx *repository.Store, t ScanTarget) (*models.User, error) {
	if t.UserID != 0 {
		return s.ledger.getUser(ctx, tx, t.UserID)
	}
	u, err := tx.Users.GetByUsername(ctx, t.Username)
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

type ScanView struct {
	ID              uint                   `json:"id"`
	ScannedUser     PublicUser             `json:"scanned_user"`
	ScanType        string                 `json:"scan_type"`
	InteractionType domain.ScanInteraction `json:"interaction_type"`
	PointsAwarded   int64                  `json:"points_awarded"`
	ScannedAt       time.Time              `json:"scanned_at"`
}

// ScanHistory lists the scans userID performed, newest first.
func (s *ConnectionService) ScanHistory(ctx context.Context, userID uint, limit, offset int) ([]ScanView, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.ledger.store.Activities.ListScans(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]ScanView, 0, len(rows))
	for i := range rows {
		a := &rows[i]
		out = append(out, ScanView{
			ID:              a.ID,
			ScannedUser:     toPublicUser(&a.ScannedUser),
			ScanType:        a.ScanType,
			InteractionType: a.InteractionType,
			PointsAwarded:   a.PointsAwarded,
			ScannedAt:       a.CreatedAt,
		})
	}
	return out, nil
}
