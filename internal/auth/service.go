package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/fellowship/internal/domain/user"
	"github.com/geocoder89/fellowship/internal/security"
	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionInvalid covers every reason a presented session cannot be used.
	ErrSessionInvalid = errors.New("session invalid")
)

const (
	accessCookieName  = "fellowship-auth-token"
	refreshCookieName = "fellowship-auth-refresh"
)

type CookieNames struct {
	Access  string
	Refresh string
}

// User is the identity carried by a valid session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	User             User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type IdentityStore interface {
	// Create inserts the identity and its default profile atomically.
	Create(ctx context.Context, email, passwordHash string, nickname *string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type RefreshStore interface {
	Create(ctx context.Context, row user.RefreshToken) error
	// Rotate locks presentedID, validates it against presentedHash, revokes it and
	// inserts next, all in one transaction.
	Rotate(ctx context.Context, presentedID, presentedHash string, next user.RefreshToken) error
	// RevokeSession revokes every row of a session; revoking a dead session is a no-op.
	RevokeSession(ctx context.Context, sessionID string) error
	// SessionActive reports whether the session still has a live, unrevoked row.
	SessionActive(ctx context.Context, sessionID string) (bool, error)
}

// Service is the auth backend: it owns identities and refresh sessions.
type Service struct {
	jwt        *Manager
	identities IdentityStore
	refresh    RefreshStore
	log        *slog.Logger
}

func NewService(jwtManager *Manager, identities IdentityStore, refresh RefreshStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		jwt:        jwtManager,
		identities: identities,
		refresh:    refresh,
		log:        log,
	}
}

func (s *Service) CookieNames() CookieNames {
	return CookieNames{Access: accessCookieName, Refresh: refreshCookieName}
}

func (s *Service) SignUp(ctx context.Context, req user.SignUpRequest) (Session, error) {
	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.identities.Create(ctx, normalizeEmail(req.Email), hash, req.Nickname)
	if err != nil {
		return Session{}, err
	}

	return s.issue(ctx, User{ID: u.ID, Email: u.Email})
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	u, err := s.identities.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			security.BurnPasswordCheck(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return s.issue(ctx, User{ID: u.ID, Email: u.Email})
}

// Verify checks an access token and returns its identity and expiry. A well-signed
// token whose session was signed out or whose identity was deleted is invalid.
func (s *Service) Verify(ctx context.Context, accessToken string) (User, time.Time, error) {
	claims, err := s.jwt.VerifyAccessToken(accessToken)
	if err != nil {
		return User{}, time.Time{}, ErrSessionInvalid
	}

	active, err := s.refresh.SessionActive(ctx, claims.SessionID)
	if err != nil {
		return User{}, time.Time{}, fmt.Errorf("check session: %w", err)
	}
	if !active {
		return User{}, time.Time{}, ErrSessionInvalid
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	return User{ID: claims.UserID, Email: claims.Email}, exp, nil
}

// Refresh rotates a refresh token. The presented token is revoked and replaced.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := s.jwt.VerifyRefreshToken(refreshToken)
	if err != nil {
		return Session{}, ErrSessionInvalid
	}

	u := User{ID: claims.UserID, Email: claims.Email}

	access, accessExp, err := s.jwt.GenerateAccessToken(u.ID, u.Email, claims.SessionID)
	if err != nil {
		return Session{}, fmt.Errorf("generate access token: %w", err)
	}

	newRaw, newJTI, newExp, err := s.jwt.GenerateRefreshToken(u.ID, u.Email, claims.SessionID)
	if err != nil {
		return Session{}, fmt.Errorf("generate refresh token: %w", err)
	}

	next := user.RefreshToken{
		ID:        newJTI,
		SessionID: claims.SessionID,
		UserID:    u.ID,
		TokenHash: s.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExp,
		CreatedAt: time.Now().UTC(),
	}

	err = s.refresh.Rotate(ctx, claims.JTI, s.jwt.HashRefreshToken(refreshToken), next)
	if err != nil {
		if isRefreshRejection(err) {
			s.log.DebugContext(ctx, "refresh rejected", "user_id", u.ID, "reason", err.Error())
			return Session{}, ErrSessionInvalid
		}
		return Session{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return Session{
		User:             u,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     newRaw,
		RefreshExpiresAt: newExp,
	}, nil
}

// Revoke ends the session behind a refresh token, including access tokens issued for
// it. Unparseable tokens are already dead.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	if err := s.refresh.RevokeSession(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// DeleteIdentity removes an auth identity; profile, sessions, posts and comments cascade.
func (s *Service) DeleteIdentity(ctx context.Context, userID string) error {
	return s.identities.Delete(ctx, userID)
}

func (s *Service) issue(ctx context.Context, u User) (Session, error) {
	sid := uuid.NewString()

	access, accessExp, err := s.jwt.GenerateAccessToken(u.ID, u.Email, sid)
	if err != nil {
		return Session{}, fmt.Errorf("generate access token: %w", err)
	}

	raw, jti, exp, err := s.jwt.GenerateRefreshToken(u.ID, u.Email, sid)
	if err != nil {
		return Session{}, fmt.Errorf("generate refresh token: %w", err)
	}

	err = s.refresh.Create(ctx, user.RefreshToken{
		ID:        jti,
		SessionID: sid,
		UserID:    u.ID,
		TokenHash: s.jwt.HashRefreshToken(raw),
		ExpiresAt: exp,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("store refresh token: %w", err)
	}

	return Session{
		User:             u,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     raw,
		RefreshExpiresAt: exp,
	}, nil
}

func isRefreshRejection(err error) bool {
	return errors.Is(err, user.ErrRefreshTokenNotFound) ||
		errors.Is(err, user.ErrRefreshTokenRevoked) ||
		errors.Is(err, user.ErrRefreshTokenExpired) ||
		errors.Is(err, user.ErrRefreshTokenMismatch)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
