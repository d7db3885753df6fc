package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pmdashboard/internal/access"
	"pmdashboard/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong password
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrInvalidUserID      = errors.New("invalid user id in token")
	ErrTokenRevoked       = errors.New("token revoked")
)

// Authenticator turns a bearer token into the request principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (access.Principal, error)
}

// Verifier checks signature, claims and revocation without touching the database
type Verifier struct {
	tokens  *TokenManager
	revoked RevocationStore
}

func NewVerifier(tokens *TokenManager, revoked RevocationStore) *Verifier {
	return &Verifier{tokens: tokens, revoked: revoked}
}

func (v *Verifier) Authenticate(ctx context.Context, token string) (access.Principal, error) {
	claims, err := v.tokens.Parse(token)
	if err != nil {
		return access.Principal{}, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return access.Principal{}, ErrInvalidUserID
	}
	if v.revoked != nil && claims.ID != "" {
		revoked, err := v.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return access.Principal{}, fmt.Errorf("failed to check revocation: %w", err)
		}
		if revoked {
			return access.Principal{}, ErrTokenRevoked
		}
	}

	p := access.Principal{
		UserID:   userID,
		Username: claims.Username,
		Role:     model.Role(claims.Role),
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		p.ExpiresAt = &exp
	}
	return p, nil
}

// UserLookup is the part of the user repository the login flow needs
type UserLookup interface {
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// ActivityRecorder writes stand-alone audit entries on a best-effort basis
type ActivityRecorder interface {
	Record(ctx context.Context, entry *model.ActivityLog) bool
}

// LoginRecorder counts login attempts by result
type LoginRecorder interface {
	RecordLogin(result string)
}

// Session is the result of a successful login
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
	User      *model.User `json:"user"`
}

type Service struct {
	users    UserLookup
	activity ActivityRecorder
	tokens   *TokenManager
	revoked  RevocationStore
	verifier *Verifier
	logins   LoginRecorder
	logger   *zap.Logger
}

func NewService(users UserLookup, activity ActivityRecorder, tokens *TokenManager, revoked RevocationStore, logins LoginRecorder, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		activity: activity,
		tokens:   tokens,
		revoked:  revoked,
		verifier: NewVerifier(tokens, revoked),
		logins:   logins,
		logger:   logger,
	}
}

// Login checks the identifier (email or username) and password and issues a session token
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, error) {
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		s.recordLogin("error")
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !CheckPassword(user.HashedPassword, password) {
		s.recordLogin("invalid")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.recordLogin("disabled")
		return nil, ErrAccountDisabled
	}

	issued, err := s.tokens.Issue(user)
	if err != nil {
		s.recordLogin("error")
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	s.recordLogin("success")

	s.activity.Record(ctx, &model.ActivityLog{
		UserID:     &user.ID,
		Action:     model.ActionLogin,
		EntityType: model.EntityUser,
		EntityID:   &user.ID,
		Details:    "login",
	})
	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))

	return &Session{Token: issued.Token, ExpiresAt: issued.ExpiresAt, User: user}, nil
}

// Logout revokes the principal's token, the session returns to anonymous
func (s *Service) Logout(ctx context.Context, p access.Principal) error {
	if p.TokenID != "" {
		if err := s.revoked.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
	}
	s.activity.Record(ctx, &model.ActivityLog{
		UserID:     p.ActorID(),
		Action:     model.ActionLogout,
		EntityType: model.EntityUser,
		EntityID:   p.ActorID(),
		Details:    "logout",
	})
	return nil
}

// Authenticate verifies the token and that the account still exists and is active.
// The role is taken from the stored account so role changes apply immediately.
func (s *Service) Authenticate(ctx context.Context, token string) (access.Principal, error) {
	p, err := s.verifier.Authenticate(ctx, token)
	if err != nil {
		return access.Principal{}, err
	}
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return access.Principal{}, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return access.Principal{}, ErrInvalidToken
	}
	if !user.IsActive {
		return access.Principal{}, ErrAccountDisabled
	}
	p.Username = user.Username
	p.Role = user.Role
	return p, nil
}

// Me returns the account behind the principal
func (s *Service) Me(ctx context.Context, p access.Principal) (*model.User, error) {
	return s.users.GetByID(ctx, p.UserID)
}

func (s *Service) recordLogin(result string) {
	if s.logins != nil {
		s.logins.RecordLogin(result)
	}
}
