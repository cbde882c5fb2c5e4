package repository

import (
	"context"

	"github.com/bearsdotzone/social-media-api/internal/domain"
)

// AccountRepository persists accounts.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccountByID(ctx context.Context, id int64) (*domain.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetAccountByCredentials(ctx context.Context, username, password string) (*domain.Account, error)
}

// MessageRepository persists messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context) ([]domain.Message, error)
	GetMessageByID(ctx context.Context, id int64) (*domain.Message, error)
	MessageExists(ctx context.Context, id int64) (bool, error)
	DeleteMessage(ctx context.Context, id int64) (int64, error)
	UpdateMessageText(ctx context.Context, id int64, text string) (int64, error)
	ListMessagesByAccount(ctx context.Context, accountID int64) ([]domain.Message, error)
}
