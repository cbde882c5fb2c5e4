package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"log/slog"

	"github.com/bearsdotzone/social-media-api/internal/domain"
	"github.com/bearsdotzone/social-media-api/internal/repository"
	"github.com/bearsdotzone/social-media-api/internal/ws"
)

const maxTextLength = 255

// Service handles message creation, retrieval, update and deletion.
type Service struct {
	messages repository.MessageRepository
	accounts repository.AccountRepository
	feed     *ws.Hub
	logger   *slog.Logger
}

// New constructs a Service. feed may be nil when no live stream is wired.
func New(messages repository.MessageRepository, accounts repository.AccountRepository, feed *ws.Hub, logger *slog.Logger) Service {
	return Service{messages: messages, accounts: accounts, feed: feed, logger: logger}
}

// Create persists a new message. The text is validated before the posting
// account's existence is checked; both failures are validation. TimePosted is
// passed through to the store unchanged. On success the created message is
// broadcast to the live feed.
func (s Service) Create(ctx context.Context, candidate domain.Message) (*domain.Message, error) {
	if err := validateText(candidate.MessageText); err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetAccountByID(ctx, candidate.PostedBy); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: postedBy does not reference an account", domain.ErrValidation)
		}
		return nil, err
	}

	message := candidate
	if err := s.messages.CreateMessage(ctx, &message); err != nil {
		return nil, err
	}
	s.publish(message)
	s.logger.Info("message created", "message_id", message.ID, "account_id", message.PostedBy)
	return &message, nil
}

// ListAll returns every stored message in store order.
func (s Service) ListAll(ctx context.Context) ([]domain.Message, error) {
	return s.messages.ListMessages(ctx)
}

// GetByID returns the message, or nil without error when it does not exist.
func (s Service) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	message, err := s.messages.GetMessageByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return message, nil
}

// DeleteByID removes the message and reports the rows affected: 1 when it
// existed, 0 when it did not. A missing message is not an error.
func (s Service) DeleteByID(ctx context.Context, id int64) (int64, error) {
	rows, err := s.messages.DeleteMessage(ctx, id)
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		s.logger.Info("message deleted", "message_id", id)
	}
	return rows, nil
}

// UpdateByID replaces only the text of an existing message and returns the
// rows affected (1). A missing message or invalid text is a validation
// failure; the stored message is untouched in either case.
func (s Service) UpdateByID(ctx context.Context, id int64, text string) (int64, error) {
	if err := validateText(text); err != nil {
		return 0, err
	}
	exists, err := s.messages.MessageExists(ctx, id)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: message does not exist", domain.ErrValidation)
	}
	rows, err := s.messages.UpdateMessageText(ctx, id, text)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		// Deleted between the existence check and the update.
		return 0, fmt.Errorf("%w: message does not exist", domain.ErrValidation)
	}
	s.logger.Info("message updated", "message_id", id)
	return rows, nil
}

// ListByAccount returns the messages posted by the given account. An unknown
// account yields an empty list, indistinguishable from an account with no
// messages.
func (s Service) ListByAccount(ctx context.Context, accountID int64) ([]domain.Message, error) {
	return s.messages.ListMessagesByAccount(ctx, accountID)
}

func (s Service) publish(message domain.Message) {
	if s.feed == nil {
		return
	}
	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Warn("failed to encode feed payload", "message_id", message.ID, "error", err)
		return
	}
	s.feed.Broadcast(ws.FirehoseTopic, payload)
	s.feed.Broadcast(ws.AccountTopic(message.PostedBy), payload)
}

// "if the messageText is not blank and is not over 255 characters"
func validateText(text string) error {
	if text == "" {
		return fmt.Errorf("%w: message text is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(text) > maxTextLength {
		return fmt.Errorf("%w: message text exceeds %d characters", domain.ErrValidation, maxTextLength)
	}
	return nil
}
