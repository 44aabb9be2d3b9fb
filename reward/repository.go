package reward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCustomerNotFound signals the customer row is missing.
var ErrCustomerNotFound = errors.New("reward: customer not found")

// Repository provides data access for the rewards engine. The tx-scoped
// methods participate in the caller's transaction so issuance and
// consumption stay atomic with the payment or job write that triggered them.
type Repository interface {
	LockCustomerOptIn(ctx context.Context, tx pgx.Tx, customerID string) (bool, error)
	PaidTotalCents(ctx context.Context, tx pgx.Tx, customerID string) (int64, error)
	HasUnused(ctx context.Context, tx pgx.Tx, customerID string) (bool, error)
	Insert(ctx context.Context, tx pgx.Tx, id, customerID string, percent int, earnedAt, expiresAt time.Time) (*Reward, error)
	LockEarliestUnused(ctx context.Context, tx pgx.Tx, customerID string, asOf time.Time) (*Reward, error)
	MarkUsed(ctx context.Context, tx pgx.Tx, rewardID, jobRequestID string, usedAt time.Time) error
	WriteJobDiscount(ctx context.Context, tx pgx.Tx, jobRequestID string, percent int, discountedCents int64) error
	ListAvailable(ctx context.Context, customerID string, asOf time.Time) ([]Reward, error)
	SetOptIn(ctx context.Context, customerID string, optIn bool) (bool, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const rewardColumns = `id, customer_id, percent, earned_at, expires_at, used_at, used_job_request_id, created_at`

// LockCustomerOptIn takes the customer row lock that serializes concurrent
// issuance checks for the same customer, and reports the opt-in flag.
func (r *PGRepository) LockCustomerOptIn(ctx context.Context, tx pgx.Tx, customerID string) (bool, error) {
	var optIn bool
	err := tx.QueryRow(ctx, `SELECT rewards_opt_in FROM customers WHERE id = $1 FOR UPDATE`, customerID).Scan(&optIn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrCustomerNotFound
		}
		return false, fmt.Errorf("reward: lock customer: %w", err)
	}
	return optIn, nil
}

func (r *PGRepository) PaidTotalCents(ctx context.Context, tx pgx.Tx, customerID string) (int64, error) {
	var total int64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM payments
		WHERE customer_id = $1 AND status = 'paid'
	`, customerID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("reward: sum paid payments: %w", err)
	}
	return total, nil
}

func (r *PGRepository) HasUnused(ctx context.Context, tx pgx.Tx, customerID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM rewards WHERE customer_id = $1 AND used_at IS NULL)
	`, customerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("reward: check unused: %w", err)
	}
	return exists, nil
}

// Insert creates the reward. The partial unique index on (customer_id) WHERE
// used_at IS NULL backstops the service-level check: under a race the insert
// silently yields no row and issuance is skipped.
func (r *PGRepository) Insert(ctx context.Context, tx pgx.Tx, id, customerID string, percent int, earnedAt, expiresAt time.Time) (*Reward, error) {
	const query = `
		INSERT INTO rewards (id, customer_id, percent, earned_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id) WHERE used_at IS NULL DO NOTHING
		RETURNING ` + rewardColumns

	rw, err := scanReward(tx.QueryRow(ctx, query, id, customerID, percent, earnedAt, expiresAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reward: insert: %w", err)
	}
	return &rw, nil
}

// LockEarliestUnused picks the oldest redeemable reward and locks it so a
// concurrent redemption cannot consume it twice. Nil means nothing to apply.
func (r *PGRepository) LockEarliestUnused(ctx context.Context, tx pgx.Tx, customerID string, asOf time.Time) (*Reward, error) {
	const query = `
		SELECT ` + rewardColumns + `
		FROM rewards
		WHERE customer_id = $1
		  AND used_at IS NULL
		  AND expires_at > $2
		ORDER BY earned_at
		LIMIT 1
		FOR UPDATE
	`

	rw, err := scanReward(tx.QueryRow(ctx, query, customerID, asOf))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reward: lock earliest unused: %w", err)
	}
	return &rw, nil
}

func (r *PGRepository) MarkUsed(ctx context.Context, tx pgx.Tx, rewardID, jobRequestID string, usedAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE rewards
		SET used_at = $2, used_job_request_id = $3
		WHERE id = $1 AND used_at IS NULL
	`, rewardID, usedAt, jobRequestID)
	if err != nil {
		return fmt.Errorf("reward: mark used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reward: reward %s already consumed", rewardID)
	}
	return nil
}

func (r *PGRepository) WriteJobDiscount(ctx context.Context, tx pgx.Tx, jobRequestID string, percent int, discountedCents int64) error {
	if _, err := tx.Exec(ctx, `
		UPDATE job_requests
		SET discount_percent = $2, discounted_price_cents = $3, updated_at = now()
		WHERE id = $1
	`, jobRequestID, percent, discountedCents); err != nil {
		return fmt.Errorf("reward: write job discount: %w", err)
	}
	return nil
}

func (r *PGRepository) ListAvailable(ctx context.Context, customerID string, asOf time.Time) ([]Reward, error) {
	const query = `
		SELECT ` + rewardColumns + `
		FROM rewards
		WHERE customer_id = $1
		  AND used_at IS NULL
		  AND expires_at > $2
		ORDER BY earned_at
	`

	rows, err := r.pool.Query(ctx, query, customerID, asOf)
	if err != nil {
		return nil, fmt.Errorf("reward: list available: %w", err)
	}
	defer rows.Close()

	out := make([]Reward, 0, 2)
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("reward: scan: %w", err)
		}
		out = append(out, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reward: iterate: %w", err)
	}
	return out, nil
}

func (r *PGRepository) SetOptIn(ctx context.Context, customerID string, optIn bool) (bool, error) {
	var current bool
	err := r.pool.QueryRow(ctx, `
		UPDATE customers
		SET rewards_opt_in = $2
		WHERE id = $1
		RETURNING rewards_opt_in
	`, customerID, optIn).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrCustomerNotFound
		}
		return false, fmt.Errorf("reward: set opt-in: %w", err)
	}
	return current, nil
}

func scanReward(row pgx.Row) (Reward, error) {
	var rw Reward
	err := row.Scan(
		&rw.ID,
		&rw.CustomerID,
		&rw.Percent,
		&rw.EarnedAt,
		&rw.ExpiresAt,
		&rw.UsedAt,
		&rw.UsedJobRequestID,
		&rw.CreatedAt,
	)
	return rw, err
}
