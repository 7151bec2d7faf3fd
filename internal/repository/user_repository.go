package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tooltime-pro/session-guard/internal/domain"
)

// ErrNotConfigured is returned when no Postgres pool was configured.
var ErrNotConfigured = errors.New("repository: postgres not configured")

// UserRepository defines persistence access for user records.
type UserRepository interface {
	CreateWithCompany(ctx context.Context, companyName string, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetActiveSessionID(ctx context.Context, id string) (*string, error)
	SetActiveSessionID(ctx context.Context, id string, sessionID *string) error
	IncrementTokenVersion(ctx context.Context, id string) (int, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, COALESCE(company_id::text, ''), name, email, password_hash, role, status,
        requires_password_setup, active_session_id, token_version, created_at, updated_at`

func (r *userRepository) CreateWithCompany(ctx context.Context, companyName string, user *domain.User) error {
	if r.pool == nil {
		return ErrNotConfigured
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := tx.QueryRow(ctx,
		`INSERT INTO companies (name) VALUES ($1) RETURNING id`, companyName,
	).Scan(&user.CompanyID); err != nil {
		return err
	}

	const query = `
        INSERT INTO users (company_id, name, email, password_hash, role, status, requires_password_setup)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, token_version, created_at, updated_at`

	if err := tx.QueryRow(ctx, query,
		user.CompanyID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.RequiresPasswordSetup,
	).Scan(&user.ID, &user.TokenVersion, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if r.pool == nil {
		return ErrNotConfigured
	}
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, role=$4, status=$5,
            requires_password_setup=$6, updated_at=NOW()
        WHERE id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.RequiresPasswordSetup,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if r.pool == nil {
		return nil, ErrNotConfigured
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if r.pool == nil {
		return nil, ErrNotConfigured
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email))
}

// GetActiveSessionID reads the session slot. A nil result means no session was registered.
func (r *userRepository) GetActiveSessionID(ctx context.Context, id string) (*string, error) {
	if r.pool == nil {
		return nil, ErrNotConfigured
	}
	var sid *string
	if err := r.pool.QueryRow(ctx, `SELECT active_session_id FROM users WHERE id=$1`, id).Scan(&sid); err != nil {
		return nil, err
	}
	return sid, nil
}

// SetActiveSessionID overwrites the session slot unconditionally.
func (r *userRepository) SetActiveSessionID(ctx context.Context, id string, sessionID *string) error {
	if r.pool == nil {
		return ErrNotConfigured
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET active_session_id=$1 WHERE id=$2`, sessionID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) IncrementTokenVersion(ctx context.Context, id string) (int, error) {
	if r.pool == nil {
		return 0, ErrNotConfigured
	}
	var version int
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET token_version = token_version + 1, updated_at=NOW() WHERE id=$1 RETURNING token_version`,
		id,
	).Scan(&version)
	return version, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.CompanyID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.RequiresPasswordSetup,
		&user.ActiveSessionID,
		&user.TokenVersion,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
