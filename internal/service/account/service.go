package account

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"log/slog"

	"github.com/bearsdotzone/social-media-api/internal/domain"
	"github.com/bearsdotzone/social-media-api/internal/repository"
)

const minPasswordLength = 4

// Service handles account registration and login.
type Service struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(accounts repository.AccountRepository, logger *slog.Logger) Service {
	return Service{accounts: accounts, logger: logger}
}

// Register creates a new account. The check order is observable: an empty
// username reports validation before a short password does, and both report
// before a duplicate username reports conflict. On success the returned
// account carries its store-assigned ID.
func (s Service) Register(ctx context.Context, candidate domain.Account) (*domain.Account, error) {
	if candidate.Username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(candidate.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}
	_, err := s.accounts.GetAccountByUsername(ctx, candidate.Username)
	switch {
	case err == nil:
		return nil, domain.ErrDuplicateUsername
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	account := candidate
	if err := s.accounts.CreateAccount(ctx, &account); err != nil {
		// Lost a concurrent registration race; the store's unique
		// constraint is the authoritative guard.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.ErrDuplicateUsername
		}
		return nil, err
	}
	s.logger.Info("account registered", "account_id", account.ID)
	return &account, nil
}

// Login returns the stored account whose username and password both exactly
// match the supplied credentials. Any mismatch is unauthorized; which field
// was wrong is indistinguishable to the caller.
func (s Service) Login(ctx context.Context, credentials domain.Account) (*domain.Account, error) {
	account, err := s.accounts.GetAccountByCredentials(ctx, credentials.Username, credentials.Password)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	s.logger.Info("account logged in", "account_id", account.ID)
	return account, nil
}
