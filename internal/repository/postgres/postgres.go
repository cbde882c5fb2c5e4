package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bearsdotzone/social-media-api/internal/domain"
	"github.com/bearsdotzone/social-media-api/internal/repository"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint breach.
const uniqueViolation = "23505"

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.AccountRepository = (*Repository)(nil)
	_ repository.MessageRepository = (*Repository)(nil)
)

// CreateAccount inserts an account and populates its store-assigned ID.
// The accounts.username UNIQUE constraint is the authoritative guard against
// concurrent registrations; a violation surfaces as ErrDuplicate.
func (r *Repository) CreateAccount(ctx context.Context, account *domain.Account) error {
	const query = `INSERT INTO accounts (username, password) VALUES ($1, $2) RETURNING id`
	if err := r.pool.QueryRow(ctx, query, account.Username, account.Password).Scan(&account.ID); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetAccountByID fetches an account by identifier.
func (r *Repository) GetAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	const query = `SELECT id, username, password FROM accounts WHERE id = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetAccountByUsername fetches an account by its exact username.
func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	const query = `SELECT id, username, password FROM accounts WHERE username = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, username))
}

// GetAccountByCredentials fetches the account matching both username and
// password exactly.
func (r *Repository) GetAccountByCredentials(ctx context.Context, username, password string) (*domain.Account, error) {
	const query = `SELECT id, username, password FROM accounts WHERE username = $1 AND password = $2`
	return r.scanAccount(r.pool.QueryRow(ctx, query, username, password))
}

func (r *Repository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Password); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateMessage inserts a message and populates its store-assigned ID.
func (r *Repository) CreateMessage(ctx context.Context, message *domain.Message) error {
	const query = `INSERT INTO messages (posted_by, message_text, time_posted)
		VALUES ($1, $2, $3) RETURNING id`
	return r.pool.QueryRow(ctx, query, message.PostedBy, message.MessageText, message.TimePosted).Scan(&message.ID)
}

// ListMessages returns every stored message in store order.
func (r *Repository) ListMessages(ctx context.Context) ([]domain.Message, error) {
	const query = `SELECT id, posted_by, message_text, time_posted FROM messages`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

// GetMessageByID fetches a message by identifier.
func (r *Repository) GetMessageByID(ctx context.Context, id int64) (*domain.Message, error) {
	const query = `SELECT id, posted_by, message_text, time_posted FROM messages WHERE id = $1`
	var m domain.Message
	if err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.PostedBy, &m.MessageText, &m.TimePosted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// MessageExists reports whether a message with the given identifier exists.
func (r *Repository) MessageExists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteMessage removes a message and reports the rows affected.
func (r *Repository) DeleteMessage(ctx context.Context, id int64) (int64, error) {
	const query = `DELETE FROM messages WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateMessageText replaces only the text of a message and reports the rows
// affected. Other columns are untouched.
func (r *Repository) UpdateMessageText(ctx context.Context, id int64, text string) (int64, error) {
	const query = `UPDATE messages SET message_text = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, text)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListMessagesByAccount returns messages posted by the given account.
func (r *Repository) ListMessagesByAccount(ctx context.Context, accountID int64) ([]domain.Message, error) {
	const query = `SELECT id, posted_by, message_text, time_posted FROM messages WHERE posted_by = $1`
	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.PostedBy, &m.MessageText, &m.TimePosted); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
