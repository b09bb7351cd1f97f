package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/comitanigiacomo/kanso-habit-stats/internal/core/domain"
	"github.com/jmoiron/sqlx"
)

var _ domain.UserRepository = (*SQLiteUserRepository)(nil)

type SQLiteUserRepository struct {
	db *sqlx.DB
}

func NewSQLiteUserRepository(db *sqlx.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

type sqliteUserRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user *domain.User) error {
	row := sqliteUserRow{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    formatSQLiteTime(user.CreatedAt),
		UpdatedAt:    formatSQLiteTime(user.UpdatedAt),
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES (:id, :username, :email, :password_hash, :created_at, :updated_at)`, row)
	if err != nil {
		if isSQLiteConstraint(err) {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("repository: create user failed: %w", err)
	}

	return nil
}

func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email", email)
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *SQLiteUserRepository) getOne(ctx context.Context, column, value string) (*domain.User, error) {
	var row sqliteUserRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users WHERE `+column+` = ?`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: get user by %s failed: %w", column, err)
	}

	createdAt, err := parseSQLiteTime(row.CreatedAt)
	if err != nil {
		return nil, err
	}
	updatedAt, err := parseSQLiteTime(row.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &domain.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
