package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Counts(ctx context.Context) (Stats, error)
	Money(ctx context.Context) (Financial, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Counts(ctx context.Context) (Stats, error) {
	const countsSQL = `
		SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM workers),
			(SELECT COUNT(DISTINCT service) FROM services),
			(SELECT COUNT(*) FROM workers w
				WHERE w.approval_status = 'approved'
				  AND EXISTS (SELECT 1 FROM services s WHERE s.worker_id = w.id)),
			(SELECT COUNT(*) FROM workers WHERE approval_status = 'pending'),
			(SELECT COUNT(*) FROM job_requests),
			(SELECT COUNT(*) FROM job_requests WHERE status IN ('accepted', 'in_progress', 'completed')),
			(SELECT COUNT(*) FROM job_requests WHERE status = 'completed')`

	var s Stats
	err := r.pool.QueryRow(ctx, countsSQL).Scan(
		&s.TotalCustomers, &s.TotalWorkers, &s.TotalServices, &s.ActiveWorkers,
		&s.PendingApprovals, &s.TotalRequests, &s.TotalOrders, &s.CompletedOrders,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("admin: counts: %w", err)
	}
	return s, nil
}

func (r *PGRepository) Money(ctx context.Context) (Financial, error) {
	const moneySQL = `
		SELECT
			(SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = 'paid'),
			(SELECT COALESCE(SUM(final_price_cents), 0) FROM job_requests WHERE status = 'completed'),
			(SELECT COUNT(*) FROM rewards WHERE used_at IS NULL),
			(SELECT COUNT(*) FROM rewards WHERE used_at IS NOT NULL)`

	var f Financial
	err := r.pool.QueryRow(ctx, moneySQL).Scan(
		&f.IncomeCents, &f.CompletedJobValueCents, &f.OutstandingRewards, &f.RedeemedRewards,
	)
	if err != nil {
		return Financial{}, fmt.Errorf("admin: money: %w", err)
	}
	return f, nil
}
