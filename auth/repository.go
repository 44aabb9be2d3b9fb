package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAccountNotFound signals that the account does not exist.
	ErrAccountNotFound = errors.New("auth: account not found")
	// ErrDuplicateEmail signals that the email is already registered.
	ErrDuplicateEmail = errors.New("auth: email already exists")
)

// Repository handles data access for authentication and registration.
type Repository interface {
	CreateCustomerAccount(ctx context.Context, params CreateCustomerParams) (Account, error)
	CreateWorkerAccount(ctx context.Context, params CreateWorkerParams) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	GetAccountByID(ctx context.Context, id string) (Account, error)
	EnsureAdminAccount(ctx context.Context, email, passwordHash string) (Account, error)
}

// CreateCustomerParams contains write parameters for customer registration.
type CreateCustomerParams struct {
	Name         string
	Email        string
	Phone        string
	PasswordHash string
}

// CreateWorkerParams contains write parameters for worker registration.
type CreateWorkerParams struct {
	Name         string
	Email        string
	Phone        string
	Description  string
	Photo        string
	Services     []string
	PasswordHash string
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed auth repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const insertAccountSQL = `
	INSERT INTO auth_accounts (email, password_hash, role)
	VALUES ($1, $2, $3)
	RETURNING id, email, password_hash, role, created_at, updated_at
`

// CreateCustomerAccount inserts the auth account and its customer profile in
// one transaction.
func (r *PGRepository) CreateCustomerAccount(ctx context.Context, params CreateCustomerParams) (Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("auth: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := scanAccount(tx.QueryRow(ctx, insertAccountSQL, params.Email, params.PasswordHash, RoleCustomer))
	if err != nil {
		return Account{}, mapInsertErr(err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO customers (id, name, email, phone)
		VALUES ($1, $2, $3, $4)
	`, account.ID, params.Name, params.Email, params.Phone); err != nil {
		return Account{}, fmt.Errorf("auth: insert customer profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, fmt.Errorf("auth: commit customer registration: %w", err)
	}
	return account, nil
}

// CreateWorkerAccount inserts the auth account, the pending worker profile,
// and any declared service tags in one transaction.
func (r *PGRepository) CreateWorkerAccount(ctx context.Context, params CreateWorkerParams) (Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("auth: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	account, err := scanAccount(tx.QueryRow(ctx, insertAccountSQL, params.Email, params.PasswordHash, RoleWorker))
	if err != nil {
		return Account{}, mapInsertErr(err)
	}

	var photo any
	if params.Photo != "" {
		photo = params.Photo
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO workers (id, name, email, phone, description, photo, approval_status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	`, account.ID, params.Name, params.Email, params.Phone, params.Description, photo); err != nil {
		return Account{}, fmt.Errorf("auth: insert worker profile: %w", err)
	}

	for _, svc := range params.Services {
		if _, err := tx.Exec(ctx, `
			INSERT INTO services (worker_id, service)
			VALUES ($1, $2)
			ON CONFLICT (worker_id, service) DO NOTHING
		`, account.ID, svc); err != nil {
			return Account{}, fmt.Errorf("auth: insert service tag: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Account{}, fmt.Errorf("auth: commit worker registration: %w", err)
	}
	return account, nil
}

// GetAccountByEmail retrieves an account by email address.
func (r *PGRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	const selectSQL = `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM auth_accounts
		WHERE email = $1
	`

	account, err := scanAccount(r.pool.QueryRow(ctx, selectSQL, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("auth: get account by email: %w", err)
	}
	return account, nil
}

// GetAccountByID retrieves an account by ID.
func (r *PGRepository) GetAccountByID(ctx context.Context, id string) (Account, error) {
	const selectSQL = `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM auth_accounts
		WHERE id = $1
	`

	account, err := scanAccount(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("auth: get account by id: %w", err)
	}
	return account, nil
}

// EnsureAdminAccount seeds the admin role at provisioning time. Existing
// accounts are returned untouched; admin is never granted to an account that
// registered through the public flows.
func (r *PGRepository) EnsureAdminAccount(ctx context.Context, email, passwordHash string) (Account, error) {
	const upsertSQL = `
		INSERT INTO auth_accounts (email, password_hash, role)
		VALUES ($1, $2, 'admin')
		ON CONFLICT (email) DO UPDATE SET updated_at = now()
		RETURNING id, email, password_hash, role, created_at, updated_at
	`

	account, err := scanAccount(r.pool.QueryRow(ctx, upsertSQL, email, passwordHash))
	if err != nil {
		return Account{}, fmt.Errorf("auth: ensure admin account: %w", err)
	}
	return account, nil
}

func mapInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrDuplicateEmail
	}
	return fmt.Errorf("auth: create account: %w", err)
}

func scanAccount(row pgx.Row) (Account, error) {
	var account Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}
