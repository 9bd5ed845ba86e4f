package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/accomplishment-service/internal/domain"
	"github.com/spec-kit/accomplishment-service/internal/events"
	"github.com/spec-kit/accomplishment-service/internal/pii"
	"github.com/spec-kit/accomplishment-service/internal/repository"
)

// UpdateInput carries an administrative edit in plaintext. All fields are required.
type UpdateInput struct {
	ID         string
	EmployeeID string
	FirstName  string
	LastName   string
	Email      string
	Department string
	Role       string
}

// AccountService exposes administrative access to accounts.
type AccountService struct {
	accounts repository.AccountRepository
	codec    *pii.Codec
	events   events.Dispatcher
	logger   *zap.Logger
}

// AccountDependencies encapsulates collaborators of the account service.
type AccountDependencies struct {
	Accounts repository.AccountRepository
	Codec    *pii.Codec
	Events   events.Dispatcher
	Logger   *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts: deps.Accounts,
		codec:    deps.Codec,
		events:   deps.Events,
		logger:   logger,
	}
}

// List returns every account with PII decrypted.
func (s *AccountService) List(ctx context.Context) ([]domain.Profile, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	profiles := make([]domain.Profile, 0, len(accounts))
	for _, a := range accounts {
		p, err := openProfile(s.codec, a)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Search matches term against employee id, first name and last name.
// Encrypted columns cannot be matched in the store, so filtering happens
// after decryption.
func (s *AccountService) Search(ctx context.Context, term string) ([]domain.Profile, error) {
	profiles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return profiles, nil
	}

	matched := make([]domain.Profile, 0, len(profiles))
	for _, p := range profiles {
		if strings.Contains(strings.ToLower(p.EmployeeID), needle) ||
			strings.Contains(strings.ToLower(p.FirstName), needle) ||
			strings.Contains(strings.ToLower(p.LastName), needle) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Get returns one decrypted account.
func (s *AccountService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, translateNotFound(err)
	}
	p, err := openProfile(s.codec, account)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByEmployeeID returns one decrypted account by its business key.
func (s *AccountService) GetByEmployeeID(ctx context.Context, employeeID string) (*domain.Profile, error) {
	if err := ValidateEmployeeID(employeeID); err != nil {
		return nil, err
	}
	account, err := s.accounts.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	p, err := openProfile(s.codec, account)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update rewrites identity, PII and role of an account. Credentials and
// lockout fields are left untouched.
func (s *AccountService) Update(ctx context.Context, actorID string, in UpdateInput) (*domain.Profile, error) {
	if err := requireFields(map[string]string{
		"id":          in.ID,
		"employee_id": in.EmployeeID,
		"first_name":  in.FirstName,
		"last_name":   in.LastName,
		"email":       in.Email,
		"department":  in.Department,
		"role":        in.Role,
	}); err != nil {
		return nil, err
	}
	if err := ValidateEmployeeID(in.EmployeeID); err != nil {
		return nil, err
	}
	role, err := resolveRole(in.Role)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, in.ID)
	if err != nil {
		return nil, translateNotFound(err)
	}

	sealed, emailLookup, err := profileFields{
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Department: in.Department,
		Email:      in.Email,
	}.seal(s.codec)
	if err != nil {
		return nil, err
	}

	account.EmployeeID = in.EmployeeID
	account.FirstName = sealed.FirstName
	account.LastName = sealed.LastName
	account.Department = sealed.Department
	account.Email = sealed.Email
	account.EmailLookup = emailLookup
	account.Role = role

	if err := s.accounts.Update(ctx, account); err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return nil, &ConflictError{Field: dup.Field}
		}
		return nil, translateNotFound(err)
	}

	publish(ctx, s.events, s.logger, events.Event{
		Type:      events.EventAccountUpdated,
		AccountID: account.ID,
		Payload:   events.AccountChangedPayload{ActorID: actorID, EmployeeID: account.EmployeeID},
	})

	p, err := openProfile(s.codec, account)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes an account.
func (s *AccountService) Delete(ctx context.Context, actorID, id string) error {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return translateNotFound(err)
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return translateNotFound(err)
	}

	publish(ctx, s.events, s.logger, events.Event{
		Type:      events.EventAccountDeleted,
		AccountID: id,
		Payload:   events.AccountChangedPayload{ActorID: actorID, EmployeeID: account.EmployeeID},
	})
	return nil
}

func translateNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("account store: %w", err)
}
