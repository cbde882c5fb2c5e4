package message

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/bearsdotzone/social-media-api/internal/domain"
	"github.com/bearsdotzone/social-media-api/internal/repository"
	"github.com/bearsdotzone/social-media-api/internal/ws"
)

type stubMessageRepository struct {
	nextID int64
	byID   map[int64]domain.Message
	order  []int64
}

func newStubMessageRepository() *stubMessageRepository {
	return &stubMessageRepository{byID: make(map[int64]domain.Message)}
}

func (s *stubMessageRepository) CreateMessage(ctx context.Context, message *domain.Message) error {
	s.nextID++
	message.ID = s.nextID
	s.byID[message.ID] = *message
	s.order = append(s.order, message.ID)
	return nil
}

func (s *stubMessageRepository) ListMessages(ctx context.Context) ([]domain.Message, error) {
	messages := make([]domain.Message, 0, len(s.order))
	for _, id := range s.order {
		messages = append(messages, s.byID[id])
	}
	return messages, nil
}

func (s *stubMessageRepository) GetMessageByID(ctx context.Context, id int64) (*domain.Message, error) {
	if message, ok := s.byID[id]; ok {
		copied := message
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubMessageRepository) MessageExists(ctx context.Context, id int64) (bool, error) {
	_, ok := s.byID[id]
	return ok, nil
}

func (s *stubMessageRepository) DeleteMessage(ctx context.Context, id int64) (int64, error) {
	if _, ok := s.byID[id]; !ok {
		return 0, nil
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

func (s *stubMessageRepository) UpdateMessageText(ctx context.Context, id int64, text string) (int64, error) {
	message, ok := s.byID[id]
	if !ok {
		return 0, nil
	}
	message.MessageText = text
	s.byID[id] = message
	return 1, nil
}

func (s *stubMessageRepository) ListMessagesByAccount(ctx context.Context, accountID int64) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	for _, id := range s.order {
		if s.byID[id].PostedBy == accountID {
			messages = append(messages, s.byID[id])
		}
	}
	return messages, nil
}

type stubAccountStore struct {
	accounts map[int64]domain.Account
}

func (s *stubAccountStore) CreateAccount(ctx context.Context, account *domain.Account) error {
	return errors.New("not supported")
}

func (s *stubAccountStore) GetAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	if account, ok := s.accounts[id]; ok {
		copied := account
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubAccountStore) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return nil, repository.ErrNotFound
}

func (s *stubAccountStore) GetAccountByCredentials(ctx context.Context, username, password string) (*domain.Account, error) {
	return nil, repository.ErrNotFound
}

type captureSubscriber struct {
	ch chan []byte
}

func (c *captureSubscriber) Send(payload []byte) error {
	c.ch <- payload
	return nil
}

func (c *captureSubscriber) Close() {}

func newTestService(messages repository.MessageRepository, feed *ws.Hub) Service {
	accounts := &stubAccountStore{accounts: map[int64]domain.Account{
		1: {ID: 1, Username: "bob", Password: "pass"},
	}}
	return New(messages, accounts, feed, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateTextBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "empty text", text: "", wantErr: true},
		{name: "single character", text: "x", wantErr: false},
		{name: "255 characters", text: strings.Repeat("a", 255), wantErr: false},
		{name: "256 characters", text: strings.Repeat("a", 256), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newStubMessageRepository(), nil)
			created, err := svc.Create(context.Background(), domain.Message{PostedBy: 1, MessageText: tt.text})
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
			if created.ID == 0 {
				t.Fatal("expected populated id")
			}
		})
	}
}

func TestCreateUnknownAccountIsValidation(t *testing.T) {
	svc := newTestService(newStubMessageRepository(), nil)
	_, err := svc.Create(context.Background(), domain.Message{PostedBy: 42, MessageText: "hi"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreatePreservesTimePosted(t *testing.T) {
	repo := newStubMessageRepository()
	svc := newTestService(repo, nil)
	created, err := svc.Create(context.Background(), domain.Message{PostedBy: 1, MessageText: "hi", TimePosted: 1669947792})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.TimePosted != 1669947792 {
		t.Fatalf("timePosted changed: %d", created.TimePosted)
	}
}

func TestCreateBroadcastsToFeed(t *testing.T) {
	feed := ws.NewHub(4)
	firehose := &captureSubscriber{ch: make(chan []byte, 2)}
	byAccount := &captureSubscriber{ch: make(chan []byte, 2)}
	feed.Register(ws.FirehoseTopic, firehose)
	feed.Register(ws.AccountTopic(1), byAccount)

	svc := newTestService(newStubMessageRepository(), feed)
	created, err := svc.Create(context.Background(), domain.Message{PostedBy: 1, MessageText: "hi"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for name, sub := range map[string]*captureSubscriber{"firehose": firehose, "account": byAccount} {
		select {
		case payload := <-sub.ch:
			var got domain.Message
			if err := json.Unmarshal(payload, &got); err != nil {
				t.Fatalf("%s payload not JSON: %v", name, err)
			}
			if got.ID != created.ID || got.MessageText != "hi" {
				t.Fatalf("unexpected %s payload: %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("no %s broadcast received", name)
		}
	}
}

func TestGetByIDAbsentIsNotError(t *testing.T) {
	svc := newTestService(newStubMessageRepository(), nil)
	message, err := svc.GetByID(context.Background(), 99)
	if err != nil {
		t.Fatalf("expected no error for absent message, got %v", err)
	}
	if message != nil {
		t.Fatalf("expected nil message, got %+v", message)
	}
}

func TestDeleteByID(t *testing.T) {
	repo := newStubMessageRepository()
	svc := newTestService(repo, nil)
	created, err := svc.Create(context.Background(), domain.Message{PostedBy: 1, MessageText: "hi"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	rows, err := svc.DeleteByID(context.Background(), created.ID)
	if err != nil || rows != 1 {
		t.Fatalf("expected 1 row deleted, got %d (%v)", rows, err)
	}
	if message, _ := svc.GetByID(context.Background(), created.ID); message != nil {
		t.Fatalf("message still retrievable after delete: %+v", message)
	}

	rows, err = svc.DeleteByID(context.Background(), created.ID)
	if err != nil || rows != 0 {
		t.Fatalf("expected 0 rows on repeat delete, got %d (%v)", rows, err)
	}
}

func TestUpdateByIDMissingMessage(t *testing.T) {
	svc := newTestService(newStubMessageRepository(), nil)
	if _, err := svc.UpdateByID(context.Background(), 99, "valid text"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateByIDInvalidTextLeavesStoredUnchanged(t *testing.T) {
	repo := newStubMessageRepository()
	svc := newTestService(repo, nil)
	created, err := svc.Create(context.Background(), domain.Message{PostedBy: 1, MessageText: "hi", TimePosted: 7})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.UpdateByID(context.Background(), created.ID, strings.Repeat("a", 256)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	stored, _ := svc.GetByID(context.Background(), created.ID)
	if stored.MessageText != "hi" {
		t.Fatalf("stored text changed after rejected update: %q", stored.MessageText)
	}
}

func TestUpdateByIDReplacesOnlyText(t *testing.T) {
	repo := newStubMessageRepository()
	svc := newTestService(repo, nil)
	created, err := svc.Create(context.Background(), domain.Message{PostedBy: 1, MessageText: "hi", TimePosted: 7})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	rows, err := svc.UpdateByID(context.Background(), created.ID, "hello again")
	if err != nil || rows != 1 {
		t.Fatalf("expected 1 row updated, got %d (%v)", rows, err)
	}
	stored, _ := svc.GetByID(context.Background(), created.ID)
	if stored.MessageText != "hello again" {
		t.Fatalf("text not updated: %q", stored.MessageText)
	}
	if stored.PostedBy != 1 || stored.TimePosted != 7 {
		t.Fatalf("unrelated fields changed: %+v", stored)
	}
}

func TestListByAccountFiltersByAuthor(t *testing.T) {
	repo := newStubMessageRepository()
	accounts := &stubAccountStore{accounts: map[int64]domain.Account{
		1: {ID: 1, Username: "bob", Password: "pass"},
		2: {ID: 2, Username: "alice", Password: "word"},
	}}
	svc := New(repo, accounts, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for _, m := range []domain.Message{
		{PostedBy: 1, MessageText: "first"},
		{PostedBy: 2, MessageText: "second"},
		{PostedBy: 1, MessageText: "third"},
	} {
		if _, err := svc.Create(context.Background(), m); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
	}

	messages, err := svc.ListByAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("list by account failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	for _, m := range messages {
		if m.PostedBy != 1 {
			t.Fatalf("message from wrong account: %+v", m)
		}
	}

	// Unknown account yields an empty list, never an error.
	empty, err := svc.ListByAccount(context.Background(), 99)
	if err != nil {
		t.Fatalf("unexpected error for unknown account: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty list, got %d", len(empty))
	}
}
