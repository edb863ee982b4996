package user

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrContactTaken = errors.New("contact already registered")
)

// Repository defines the user store operations. The user service is the sole
// owner of this store; other services reach it only through the read
// endpoint.
type Repository interface {
	// CreateUser inserts the user and fills ID and CreatedAt.
	CreateUser(ctx context.Context, u *User) error

	// GetByContact loads a user by contact identifier.
	GetByContact(ctx context.Context, contact string) (*User, error)
}

// UserRepository implements Repository using PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, u *User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, contact, password, address, dob, identifier_type, identifier_value, authorities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`, u.Name, u.Email, u.Contact, u.Password, u.Address, u.DOB, u.IdentifierType, u.IdentifierValue, u.Authorities).
		Scan(&u.ID, &u.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrContactTaken
	}
	return err
}

func (r *UserRepository) GetByContact(ctx context.Context, contact string) (*User, error) {
	var u User
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, contact, password, address, dob, identifier_type, identifier_value, authorities, created_at
		FROM users WHERE contact = $1
	`, contact).Scan(&u.ID, &u.Name, &u.Email, &u.Contact, &u.Password, &u.Address, &u.DOB,
		&u.IdentifierType, &u.IdentifierValue, &u.Authorities, &u.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
