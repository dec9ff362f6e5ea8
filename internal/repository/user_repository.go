package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/auth-service/internal/domain"
)

const pgUniqueViolation = "23505"

var (
	// ErrDuplicateIdentifier is returned when the login identifier is already taken.
	ErrDuplicateIdentifier = errors.New("identifier already exists")
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository defines persistence access for registered users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	FindByIdentifier(ctx context.Context, kind domain.IdentifierKind, identifier string) (*domain.User, error)
}

// DBTX is the subset of pgx used by the repository; satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

// Create relies on the unique indexes on email and username, so concurrent
// registrations for one identifier resolve to exactly one row.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, name, phone, nic, payment_account, password_hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		nullIfEmpty(user.Username),
		nullIfEmpty(user.Email),
		user.Name,
		user.Phone,
		user.NIC,
		user.PaymentAccount,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateIdentifier
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, COALESCE(username, ''), COALESCE(email, ''), name, phone, nic,
               payment_account, password_hash, created_at
        FROM users WHERE id=$1`

	return r.scanOne(ctx, query, id)
}

func (r *userRepository) FindByIdentifier(ctx context.Context, kind domain.IdentifierKind, identifier string) (*domain.User, error) {
	var query string
	switch kind {
	case domain.IdentifierEmail:
		query = `
        SELECT id, COALESCE(username, ''), COALESCE(email, ''), name, phone, nic,
               payment_account, password_hash, created_at
        FROM users WHERE email=$1`
	case domain.IdentifierUsername:
		query = `
        SELECT id, COALESCE(username, ''), COALESCE(email, ''), name, phone, nic,
               payment_account, password_hash, created_at
        FROM users WHERE username=$1`
	default:
		return nil, fmt.Errorf("unsupported identifier kind %q", kind)
	}

	return r.scanOne(ctx, query, identifier)
}

func (r *userRepository) scanOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.NIC,
		&user.PaymentAccount,
		&user.PasswordHash,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
