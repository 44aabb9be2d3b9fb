package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobPoster keeps the marketplace supplied with fresh pending job requests.
func JobPoster(ctx context.Context, pool *pgxpool.Pool, customerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `INSERT INTO job_requests (customer_id, title, budget_cents)
                                   VALUES ($1, $2, 60000)`, customerID, fmt.Sprintf("Stress job %d", rand.Int63()))
		if err != nil && !isRetryable(err) {
			return fmt.Errorf("job poster insert: %w", err)
		}
		time.Sleep(time.Duration(40+rand.Intn(60)) * time.Millisecond)
	}
}

// Applicant races other workers to apply for pending jobs. Duplicate
// applications are expected under contention and swallowed.
func Applicant(ctx context.Context, pool *pgxpool.Pool, workerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var jobID string
		err := pool.QueryRow(ctx, `SELECT id FROM job_requests
                                    WHERE status = 'pending' AND worker_id IS NULL
                                    ORDER BY created_at DESC LIMIT 1`).Scan(&jobID)
		if err == nil {
			_, err = pool.Exec(ctx, `INSERT INTO worker_applications (job_request_id, worker_id, proposed_price_cents)
                                      VALUES ($1, $2, 55000)`, jobID, workerID)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					// already applied, expected
				} else if !isRetryable(err) {
					return fmt.Errorf("applicant insert: %w", err)
				}
			}
		} else if !errors.Is(err, pgx.ErrNoRows) && !isRetryable(err) {
			return fmt.Errorf("applicant pick job: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// DirectBooker books a specific worker straight from the listing: the job is
// created pending with the worker already assigned, then the worker accepts
// it, skipping the application round entirely.
func DirectBooker(ctx context.Context, pool *pgxpool.Pool, customerID, workerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `INSERT INTO job_requests (customer_id, worker_id, title, budget_cents)
                                   VALUES ($1, $2, $3, 45000)`,
			customerID, workerID, fmt.Sprintf("Direct booking %d", rand.Int63()))
		if err != nil && !isRetryable(err) {
			return fmt.Errorf("direct booker insert: %w", err)
		}
		_, err = pool.Exec(ctx, `UPDATE job_requests
                                  SET status = 'accepted', final_price_cents = COALESCE(final_price_cents, budget_cents), updated_at = now()
                                  WHERE id = (SELECT id FROM job_requests
                                              WHERE worker_id = $1 AND status = 'pending' LIMIT 1)
                                    AND status = 'pending'`, workerID)
		if err != nil && !isRetryable(err) {
			return fmt.Errorf("direct booker accept: %w", err)
		}
		time.Sleep(time.Duration(60+rand.Intn(80)) * time.Millisecond)
	}
}

// Accepter plays the customer accepting one application per job: lock the job
// row, accept a pending application, reject the siblings, assign the worker.
func Accepter(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if err := acceptOne(ctx, pool); err != nil && !isRetryable(err) {
			return fmt.Errorf("accepter: %w", err)
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

func acceptOne(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var jobID string
	err = tx.QueryRow(ctx, `SELECT j.id FROM job_requests j
                             WHERE j.status = 'pending' AND j.worker_id IS NULL
                               AND EXISTS (SELECT 1 FROM worker_applications a
                                           WHERE a.job_request_id = j.id AND a.status = 'pending')
                             LIMIT 1 FOR UPDATE SKIP LOCKED`).Scan(&jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	var appID, workerID string
	var proposed *int64
	err = tx.QueryRow(ctx, `SELECT id, worker_id, proposed_price_cents FROM worker_applications
                             WHERE job_request_id = $1 AND status = 'pending'
                             ORDER BY created_at LIMIT 1`, jobID).Scan(&appID, &workerID, &proposed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE worker_applications SET status = 'accepted' WHERE id = $1 AND status = 'pending'`, appID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE worker_applications SET status = 'rejected'
                                WHERE job_request_id = $1 AND id <> $2 AND status = 'pending'`, jobID, appID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE job_requests
                               SET worker_id = $2, status = 'accepted',
                                   final_price_cents = COALESCE($3, final_price_cents, budget_cents),
                                   updated_at = now()
                               WHERE id = $1 AND status = 'pending' AND worker_id IS NULL`, jobID, workerID, proposed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	return tx.Commit(ctx)
}

// Completer walks assigned jobs forward through in_progress to completed.
func Completer(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `UPDATE job_requests SET status = 'in_progress', updated_at = now()
                                   WHERE id = (SELECT id FROM job_requests WHERE status = 'accepted' LIMIT 1)`)
		if err != nil && !isRetryable(err) {
			return fmt.Errorf("completer start: %w", err)
		}
		_, err = pool.Exec(ctx, `UPDATE job_requests
                                  SET status = 'completed', completed_at = COALESCE(completed_at, now()), updated_at = now()
                                  WHERE id = (SELECT id FROM job_requests WHERE status = 'in_progress' LIMIT 1)`)
		if err != nil && !isRetryable(err) {
			return fmt.Errorf("completer finish: %w", err)
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// Payer pays for assigned jobs and issues rewards at the spend threshold. The
// partial unique index on rewards makes concurrent issuance collapse to one row.
func Payer(ctx context.Context, pool *pgxpool.Pool, customerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if err := payOne(ctx, pool, customerID); err != nil && !isRetryable(err) {
			return fmt.Errorf("payer: %w", err)
		}
		time.Sleep(time.Duration(25+rand.Intn(50)) * time.Millisecond)
	}
}

func payOne(ctx context.Context, pool *pgxpool.Pool, customerID string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var jobID, workerID string
	var amount int64
	err = tx.QueryRow(ctx, `SELECT j.id, j.worker_id, COALESCE(j.final_price_cents, j.budget_cents)
                             FROM job_requests j
                             WHERE j.customer_id = $1 AND j.worker_id IS NOT NULL
                               AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.job_request_id = j.id)
                             LIMIT 1 FOR UPDATE SKIP LOCKED`, customerID).Scan(&jobID, &workerID, &amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO payments (job_request_id, customer_id, worker_id, amount_cents, method, account_number, pin)
                                VALUES ($1, $2, $3, $4, 'bkash', '01712345678', '1234')`, jobID, customerID, workerID, amount); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE job_requests
                                SET status = 'completed', completed_at = COALESCE(completed_at, now()),
                                    final_price_cents = $2, updated_at = now()
                                WHERE id = $1`, jobID, amount); err != nil {
		return err
	}

	var paidTotal int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE customer_id = $1`, customerID).Scan(&paidTotal); err != nil {
		return err
	}
	if paidTotal >= 100000 {
		if _, err := tx.Exec(ctx, `INSERT INTO rewards (customer_id, percent, earned_at, expires_at)
                                    VALUES ($1, 20, now(), now() + interval '6 months')
                                    ON CONFLICT (customer_id) WHERE used_at IS NULL DO NOTHING`, customerID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Rater rates completed jobs; re-rating overwrites.
func Rater(ctx context.Context, pool *pgxpool.Pool, customerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `UPDATE job_requests SET rating = $2, rated_at = now(), updated_at = now()
                                   WHERE id = (SELECT id FROM job_requests
                                               WHERE customer_id = $1 AND status = 'completed' LIMIT 1)`,
			customerID, 1+rand.Intn(5))
		if err != nil && !isRetryable(err) {
			return fmt.Errorf("rater: %w", err)
		}
		time.Sleep(time.Duration(100+rand.Intn(100)) * time.Millisecond)
	}
}

// isRetryable reports whether the error is expected churn from the chaos
// killer or lock contention rather than a real failure.
func isRetryable(err error) bool {
	if err == nil {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "57P01", "40001", "40P01", "55P03", "08006", "08003":
			return true
		}
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "conn closed") || strings.Contains(msg, "connection reset")
}
