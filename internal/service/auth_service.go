package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/accomplishment-service/internal/auth"
	"github.com/spec-kit/accomplishment-service/internal/config"
	"github.com/spec-kit/accomplishment-service/internal/domain"
	"github.com/spec-kit/accomplishment-service/internal/events"
	"github.com/spec-kit/accomplishment-service/internal/pii"
	"github.com/spec-kit/accomplishment-service/internal/repository"
)

// Lockout policy.
const (
	MaxFailedAttempts = 5
	LockoutWindow     = 15 * time.Minute

	maxLockoutRetries = 8
)

// RegisterInput carries a registration request in plaintext.
type RegisterInput struct {
	EmployeeID string
	FirstName  string
	LastName   string
	Email      string
	Department string
	Password   string
	Role       string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	AccountID string
	Role      domain.Role
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	accounts  repository.AccountRepository
	codec     *pii.Codec
	hasher    *auth.Hasher
	tokenMgr  *auth.TokenManager
	events    events.Dispatcher
	logger    *zap.Logger
	now       func() time.Time
	dummyHash string
	unknown   *unknownAccounts
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Accounts repository.AccountRepository
	Codec    *pii.Codec
	Events   events.Dispatcher
	Logger   *zap.Logger
}

// NewAuthService builds the service. The hasher and token manager are created
// from cfg once and never change afterwards.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	if deps.Accounts == nil || deps.Codec == nil {
		return nil, errors.New("auth service requires an account repository and a codec")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hasher := auth.NewHasher(cfg.BcryptCost)
	// Compared against on unknown emails so both paths pay one bcrypt run.
	dummy, err := hasher.Hash("unknown-account-000")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AuthService{
		accounts:  deps.Accounts,
		codec:     deps.Codec,
		hasher:    hasher,
		tokenMgr:  auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		events:    deps.Events,
		logger:    logger,
		now:       time.Now,
		dummyHash: dummy,
		unknown:   newUnknownAccounts(0),
	}, nil
}

// Register validates and stores a new account, returning its role. No token
// is issued here.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.Role, error) {
	if err := ValidateEmployeeID(in.EmployeeID); err != nil {
		return "", err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return "", err
	}
	role, err := resolveRole(in.Role)
	if err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	sealed, emailLookup, err := profileFields{
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Department: in.Department,
		Email:      in.Email,
	}.seal(s.codec)
	if err != nil {
		return "", err
	}

	account := &domain.Account{
		EmployeeID:   in.EmployeeID,
		FirstName:    sealed.FirstName,
		LastName:     sealed.LastName,
		Department:   sealed.Department,
		Email:        sealed.Email,
		EmailLookup:  emailLookup,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.accounts.Insert(ctx, account); err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return "", &ConflictError{Field: dup.Field}
		}
		return "", fmt.Errorf("insert account: %w", err)
	}
	s.unknown.forget(emailLookup)

	s.publish(ctx, events.Event{
		Type:      events.EventAccountRegistered,
		AccountID: account.ID,
		Payload:   events.AccountRegisteredPayload{EmployeeID: account.EmployeeID, Role: role},
	})
	return role, nil
}

type passwordVerdict struct {
	hash  string
	match bool
}

// Login authenticates by email and password and applies the lockout policy.
//
// The lockout fields are written with a compare-and-set keyed by account id.
// When another attempt wins the race the record is re-read and the attempt is
// evaluated again against the fresh state.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	lookup := s.codec.LookupKey(email)

	var verdict *passwordVerdict
	for attempt := 0; attempt < maxLockoutRetries; attempt++ {
		account, err := s.accounts.FindByEmail(ctx, lookup)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, s.rejectUnknown(ctx, lookup)
			}
			return nil, fmt.Errorf("find account: %w", err)
		}

		now := s.now().UTC()
		current := account.Lockout
		if current.LockedAt(now) {
			return nil, &LockedError{LockUntil: *current.LockUntil}
		}

		if verdict == nil || verdict.hash != account.PasswordHash {
			match, err := s.hasher.Verify(password, account.PasswordHash)
			if err != nil {
				return nil, fmt.Errorf("verify password of account %s: %w", account.ID, err)
			}
			verdict = &passwordVerdict{hash: account.PasswordHash, match: match}
		}

		next := nextLockoutState(current, verdict.match, now)
		if !next.Equal(current) {
			err = s.accounts.UpdateLockoutFields(ctx, account.ID, current, next)
			switch {
			case errors.Is(err, repository.ErrStaleLockout):
				continue
			case errors.Is(err, repository.ErrNotFound):
				return nil, s.rejectUnknown(ctx, lookup)
			case err != nil:
				return nil, fmt.Errorf("update lockout fields: %w", err)
			}
		}

		if verdict.match {
			return s.completeLogin(ctx, account)
		}
		return nil, s.rejectAttempt(ctx, account, next)
	}

	s.logger.Warn("login gave up after repeated lockout conflicts", zap.Int("retries", maxLockoutRetries))
	return nil, ErrLockoutContention
}

// nextLockoutState computes the lockout fields after an attempt made while
// the account is not locked. An expired window is cleared first, so the
// counter restarts from zero.
func nextLockoutState(current domain.LockoutState, match bool, now time.Time) domain.LockoutState {
	if match {
		return domain.LockoutState{}
	}

	base := current.FailedAttempts
	if current.LockUntil != nil {
		base = 0
	}
	failed := base + 1
	if failed >= MaxFailedAttempts {
		lockUntil := now.Add(LockoutWindow).Truncate(time.Microsecond)
		return domain.LockoutState{FailedAttempts: failed, LockUntil: &lockUntil}
	}
	return domain.LockoutState{FailedAttempts: failed}
}

func remainingAttempts(failed int) int {
	if failed >= MaxFailedAttempts {
		return 0
	}
	return MaxFailedAttempts - failed
}

func (s *AuthService) completeLogin(ctx context.Context, account *domain.Account) (*LoginResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.publish(ctx, events.Event{Type: events.EventLoginSucceeded, AccountID: account.ID})
	return &LoginResult{
		AccountID: account.ID,
		Role:      account.Role,
		Token:     token,
		ExpiresAt: exp,
	}, nil
}

func (s *AuthService) rejectAttempt(ctx context.Context, account *domain.Account, next domain.LockoutState) error {
	credErr := &InvalidCredentialsError{
		FailedAttempts:    next.FailedAttempts,
		RemainingAttempts: remainingAttempts(next.FailedAttempts),
	}

	s.publish(ctx, events.Event{
		Type:      events.EventLoginFailed,
		AccountID: account.ID,
		Payload: events.LoginFailedPayload{
			FailedAttempts:    credErr.FailedAttempts,
			RemainingAttempts: credErr.RemainingAttempts,
			KnownAccount:      true,
		},
	})
	if next.LockUntil != nil {
		s.publish(ctx, events.Event{
			Type:      events.EventAccountLocked,
			AccountID: account.ID,
			Payload:   events.AccountLockedPayload{FailedAttempts: next.FailedAttempts, LockUntil: *next.LockUntil},
		})
	}
	return credErr
}

// rejectUnknown answers an unknown email the way a wrong password on a real
// account is answered: after an equivalent amount of hashing work, with a
// failure counter that counts up and locks per lookup key.
func (s *AuthService) rejectUnknown(ctx context.Context, lookup string) error {
	now := s.now().UTC()
	if state, locked := s.unknown.peek(lookup, now); locked {
		return &LockedError{LockUntil: *state.LockUntil}
	}

	_, _ = s.hasher.Verify("unknown-account-guess", s.dummyHash)

	state, locked := s.unknown.fail(lookup, now)
	if locked {
		return &LockedError{LockUntil: *state.LockUntil}
	}
	credErr := &InvalidCredentialsError{
		FailedAttempts:    state.FailedAttempts,
		RemainingAttempts: remainingAttempts(state.FailedAttempts),
	}
	s.publish(ctx, events.Event{
		Type: events.EventLoginFailed,
		Payload: events.LoginFailedPayload{
			FailedAttempts:    credErr.FailedAttempts,
			RemainingAttempts: credErr.RemainingAttempts,
		},
	})
	return credErr
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	publish(ctx, s.events, s.logger, event)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
