package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util/errorutil"
)

// Reasons attached to conflict, not-found and credential errors.
const (
	ReasonIdentifierTaken    = "IDENTIFIER_TAKEN"
	ReasonUnknownIdentifier  = "UNKNOWN_IDENTIFIER"
	ReasonInvalidCredentials = "INVALID_CREDENTIALS"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	validator  *inputValidator
	kind       domain.IdentifierKind
	bcryptCost int
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Secrets    auth.SecretProvider
	Dispatcher events.Dispatcher
	// TokenOptions are forwarded to the token manager, e.g. auth.WithClock in tests.
	TokenOptions []auth.TokenOption
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User  *domain.User
	Token *domain.Token
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	kind := domain.IdentifierKind(cfg.IdentifierKind)
	if !kind.Valid() {
		return nil, fmt.Errorf("unsupported identifier kind %q", cfg.IdentifierKind)
	}
	if deps.UserRepo == nil || deps.Secrets == nil {
		return nil, errors.New("auth service requires a user repository and a secret provider")
	}
	cost := cfg.BcryptCost
	if cost < config.MinBcryptCost {
		cost = config.MinBcryptCost
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(nil)
	}

	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(deps.Secrets, deps.TokenOptions...),
		dispatcher: dispatcher,
		validator:  newInputValidator(),
		kind:       kind,
		bcryptCost: cost,
	}, nil
}

// Register validates the payload, hashes the password and persists a new user.
// The returned user never carries the password hash.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if err := s.validator.Registration(in, s.kind); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		Name:           in.Name,
		Phone:          in.Phone,
		NIC:            in.NIC,
		PaymentAccount: in.PaymentAccount,
		PasswordHash:   hash,
	}
	if s.kind == domain.IdentifierUsername {
		user.Username = in.Identifier
	} else {
		user.Email = in.Identifier
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentifier) {
			return nil, apperrors.NewConflict(fmt.Sprintf("%s already taken", s.kind), map[string]any{
				"reason": ReasonIdentifierTaken,
				"field":  string(s.kind),
			})
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("create user: %w", err))
	}

	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventUserRegistered, s.kind, in.Identifier, user.ID, nil))

	return sanitized(user), nil
}

// Login verifies credentials and issues a signed session token.
//
// Unknown identifiers and wrong passwords deliberately produce different
// errors (404 vs 401), which lets callers enumerate registered identifiers.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := s.validator.Login(in, s.kind); err != nil {
		return nil, err
	}

	user, err := s.users.FindByIdentifier(ctx, s.kind, in.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.publishLoginFailed(ctx, in.Identifier, "", events.ReasonUnknownIdentifier)
			return nil, apperrors.NewNotFound("user", map[string]any{"reason": ReasonUnknownIdentifier})
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("find user: %w", err))
	}

	if err := auth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.publishLoginFailed(ctx, in.Identifier, user.ID, events.ReasonInvalidCredentials)
			return nil, apperrors.NewDomainError(apperrors.CodeUnauthorized, "invalid password",
				http.StatusUnauthorized, map[string]any{"reason": ReasonInvalidCredentials})
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("compare password: %w", err))
	}

	token, err := s.tokenMgr.GenerateToken(user, s.kind)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("sign token: %w", err))
	}

	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventLoginSucceeded, s.kind, in.Identifier, user.ID,
		events.LoginSucceededPayload{ExpiresAt: token.ExpiresAt}))

	return &LoginResult{User: sanitized(user), Token: token}, nil
}

func (s *AuthService) publishLoginFailed(ctx context.Context, identifier, userID, reason string) {
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventLoginFailed, s.kind, identifier, userID,
		events.LoginFailedPayload{Reason: reason}))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// IdentifierKind reports which attribute is the login key.
func (s *AuthService) IdentifierKind() domain.IdentifierKind {
	return s.kind
}

func sanitized(user *domain.User) *domain.User {
	out := *user
	out.PasswordHash = ""
	return &out
}
