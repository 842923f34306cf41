package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"metabento/config"
	"metabento/internal/auth"
	"metabento/internal/domain"
	"metabento/internal/models"
	"metabento/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type AuthService struct {
	cfg   *config.Config
	store *repository.Store
	log   logrus.FieldLogger
}

func NewAuthService(cfg *config.Config, store *repository.Store, log logrus.FieldLogger) *AuthService {
	return &AuthService{cfg: cfg, store: store, log: log}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Session struct {
	User      *models.User `json:"user"`
	Tokens    TokenPair    `json:"tokens"`
	IsNewUser bool         `json:"is_new_user"`
}

type NonceChallenge struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *AuthService) issue(u *models.User) (TokenPair, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.WalletOrEmpty(), u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Nonce issues a single-use sign-in challenge for wallet.
func (s *AuthService) Nonce(ctx context.Context, wallet string) (*NonceChallenge, error) {
	addr, err := auth.NormalizeAddress(wallet)
	if err != nil {
		return nil, domain.ErrInvalidWallet
	}
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	expires := time.Now().UTC().Add(s.cfg.JWT.NonceExpiry)
	if err := s.store.Nonces.Create(ctx, &models.AuthNonce{
		WalletAddress: addr,
		Nonce:         nonce,
		ExpiresAt:     expires,
	}); err != nil {
		return nil, err
	}
	return &NonceChallenge{Nonce: nonce, Message: auth.SignMessage(addr, nonce), ExpiresAt: expires}, nil
}

// WalletLogin verifies the signed challenge, burns the nonce and returns a session. First-time
// wallets get an account.
func (s *AuthService) WalletLogin(ctx context.Context, wallet, nonce, signature string) (*Session, error) {
	addr, err := auth.NormalizeAddress(wallet)
	if err != nil {
		return nil, domain.ErrInvalidWallet
	}
	if err := auth.VerifySignature(auth.SignMessage(addr, nonce), signature, addr); err != nil {
		return nil, domain.ErrInvalidSignature
	}
	ok, err := s.store.Nonces.Consume(ctx, addr, nonce, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidNonce
	}

	now := time.Now().UTC()
	isNew := false
	u, err := s.store.Users.GetByWallet(ctx, addr)
	switch {
	case err == nil:
		if err := s.store.Users.UpdateFields(ctx, u.ID, map[string]interface{}{"last_login_at": now}); err != nil {
			return nil, err
		}
		u.LastLoginAt = &now
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = &models.User{
			WalletAddress: &addr,
			Role:          domain.RoleUser,
			IsPublic:      true,
			LastLoginAt:   &now,
		}
		if err := s.store.Users.Create(ctx, u); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, domain.ErrWalletExists
			}
			return nil, err
		}
		isNew = true
		s.log.WithField("user_id", u.ID).Info("wallet account created")
	default:
		return nil, err
	}
	tokens, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Tokens: tokens, IsNewUser: isNew}, nil
}

// CheckWallet reports whether a wallet already has an account.
func (s *AuthService) CheckWallet(ctx context.Context, wallet string) (bool, *models.User, error) {
	addr, err := auth.NormalizeAddress(wallet)
	if err != nil {
		return false, nil, domain.ErrInvalidWallet
	}
	u, err := s.store.Users.GetByWallet(ctx, addr)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, u, nil
}

// Register creates an email account. Usernames are stored lower-cased.
func (s *AuthService) Register(ctx context.Context, email, username, password, displayName string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.ToLower(strings.TrimSpace(username))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.Validation("a valid email is required")
	}
	if !usernamePattern.MatchString(username) {
		return nil, domain.Validation("username must be 3-64 characters of letters, digits, '_', '.' or '-'")
	}
	if len(password) < minPasswordLength {
		return nil, domain.Validationf("password must be at least %d characters", minPasswordLength)
	}
	_, err := s.store.Users.GetByEmail(ctx, email)
	if err == nil {
		return nil, domain.ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	_, err = s.store.Users.GetByUsername(ctx, username)
	if err == nil {
		return nil, domain.ErrUsernameExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &models.User{
		Email:        &email,
		Username:     &username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		IsPublic:     true,
		LastLoginAt:  &now,
	}
	if err := s.store.Users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.NewError(domain.KindConflict, "account already exists")
		}
		return nil, err
	}
	tokens, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Tokens: tokens, IsNewUser: true}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCreds
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, domain.ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCreds
	}
	now := time.Now().UTC()
	if err := s.store.Users.UpdateFields(ctx, u.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		return nil, err
	}
	u.LastLoginAt = &now
	tokens, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Tokens: tokens}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return TokenPair{}, domain.NewError(domain.KindUnauthorized, "invalid or expired refresh token")
	}
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, domain.NewError(domain.KindUnauthorized, "invalid or expired refresh token")
		}
		return TokenPair{}, err
	}
	return s.issue(u)
}
