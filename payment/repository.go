package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fixhome/job"
)

var (
	// ErrNotFound is returned when the job request does not exist.
	ErrNotFound = errors.New("payment: job request not found")
	// ErrForbidden is returned when the payer does not own the job request.
	ErrForbidden = errors.New("payment: forbidden")
	// ErrNoPrice is returned when the job carries neither a final price nor a
	// budget to charge.
	ErrNoPrice = errors.New("payment: job has no price to charge")
	// ErrValidation marks malformed input; wrap it with the field detail.
	ErrValidation = errors.New("payment: invalid input")
)

type Repository interface {
	GetJobForUpdate(ctx context.Context, tx pgx.Tx, jobRequestID string) (job.JobRequest, error)
	InsertPayment(ctx context.Context, tx pgx.Tx, p Payment, pin string) (Payment, error)
	CompleteJob(ctx context.Context, tx pgx.Tx, jobRequestID string, amountCents int64, completedAt time.Time) (job.JobRequest, error)
	ListForCustomer(ctx context.Context, customerID string) ([]Payment, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const jobColumns = `id, customer_id, worker_id, title, description, budget_cents,
	final_price_cents, discount_percent, discounted_price_cents, status,
	scheduled_at, completed_at, rating, rated_at, created_at, updated_at`

func scanJob(row pgx.Row) (job.JobRequest, error) {
	var jr job.JobRequest
	err := row.Scan(
		&jr.ID, &jr.CustomerID, &jr.WorkerID, &jr.Title, &jr.Description,
		&jr.BudgetCents, &jr.FinalPriceCents, &jr.DiscountPercent,
		&jr.DiscountedPriceCents, &jr.Status, &jr.ScheduledAt, &jr.CompletedAt,
		&jr.Rating, &jr.RatedAt, &jr.CreatedAt, &jr.UpdatedAt,
	)
	return jr, err
}

func (r *PGRepository) GetJobForUpdate(ctx context.Context, tx pgx.Tx, jobRequestID string) (job.JobRequest, error) {
	jr, err := scanJob(tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM job_requests WHERE id = $1 FOR UPDATE`, jobRequestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.JobRequest{}, ErrNotFound
		}
		return job.JobRequest{}, fmt.Errorf("payment: get job for update: %w", err)
	}
	return jr, nil
}

func (r *PGRepository) InsertPayment(ctx context.Context, tx pgx.Tx, p Payment, pin string) (Payment, error) {
	const insertSQL = `
		INSERT INTO payments (id, job_request_id, customer_id, worker_id, amount_cents, method, account_number, pin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, job_request_id, customer_id, worker_id, amount_cents, method, account_number, status, created_at`

	var created Payment
	err := tx.QueryRow(ctx, insertSQL,
		p.ID, p.JobRequestID, p.CustomerID, p.WorkerID, p.AmountCents, p.Method, p.AccountNumber, pin,
	).Scan(&created.ID, &created.JobRequestID, &created.CustomerID, &created.WorkerID,
		&created.AmountCents, &created.Method, &created.AccountNumber, &created.Status, &created.CreatedAt)
	if err != nil {
		return Payment{}, fmt.Errorf("payment: insert: %w", err)
	}
	return created, nil
}

// CompleteJob settles the job at the charged amount. The first completion
// timestamp wins when the worker already marked the job complete.
func (r *PGRepository) CompleteJob(ctx context.Context, tx pgx.Tx, jobRequestID string, amountCents int64, completedAt time.Time) (job.JobRequest, error) {
	const updateSQL = `
		UPDATE job_requests
		SET status = 'completed',
		    completed_at = COALESCE(completed_at, $2),
		    final_price_cents = $3,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + jobColumns

	jr, err := scanJob(tx.QueryRow(ctx, updateSQL, jobRequestID, completedAt, amountCents))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.JobRequest{}, ErrNotFound
		}
		return job.JobRequest{}, fmt.Errorf("payment: complete job: %w", err)
	}
	return jr, nil
}

func (r *PGRepository) ListForCustomer(ctx context.Context, customerID string) ([]Payment, error) {
	const listSQL = `
		SELECT id, job_request_id, customer_id, worker_id, amount_cents, method, account_number, status, created_at
		FROM payments
		WHERE customer_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, listSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("payment: list for customer: %w", err)
	}
	defer rows.Close()

	var items []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.JobRequestID, &p.CustomerID, &p.WorkerID,
			&p.AmountCents, &p.Method, &p.AccountNumber, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("payment: scan: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
