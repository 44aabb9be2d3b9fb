package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_single_accepted_application",
			SQL: `SELECT job_request_id, COUNT(*) FROM worker_applications
                  WHERE status = 'accepted'
                  GROUP BY job_request_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_assignment_matches_accepted",
			SQL: `SELECT a.job_request_id FROM worker_applications a
                  JOIN job_requests j ON j.id = a.job_request_id
                  WHERE a.status = 'accepted'
                    AND (j.worker_id IS NULL OR j.worker_id <> a.worker_id)`,
		},
		{
			// Direct bookings start pending with a worker preassigned, so
			// this only covers jobs assigned through an accepted application.
			Name: "O3_application_assigned_jobs_left_pending",
			SQL: `SELECT j.id FROM job_requests j
                  JOIN worker_applications a
                    ON a.job_request_id = j.id AND a.status = 'accepted'
                  WHERE j.status = 'pending'`,
		},
		{
			Name: "O4_one_unused_reward_per_customer",
			SQL: `SELECT customer_id, COUNT(*) FROM rewards
                  WHERE used_at IS NULL
                  GROUP BY customer_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O5_completed_jobs_have_timestamp",
			SQL: `SELECT id FROM job_requests
                  WHERE status = 'completed' AND completed_at IS NULL`,
		},
		{
			Name: "O6_payments_imply_completion",
			SQL: `SELECT p.id FROM payments p
                  JOIN job_requests j ON j.id = p.job_request_id
                  WHERE j.status <> 'completed'`,
		},
		{
			Name: "O7_discount_arithmetic",
			SQL: `SELECT id FROM job_requests
                  WHERE discount_percent IS NOT NULL
                    AND budget_cents IS NOT NULL
                    AND discounted_price_cents <> (budget_cents * (100 - discount_percent) + 50) / 100`,
		},
		{
			Name: "O8_ratings_only_on_completed",
			SQL: `SELECT id FROM job_requests
                  WHERE rating IS NOT NULL AND status <> 'completed'`,
		},
		{
			Name: "O9_used_rewards_point_at_jobs",
			SQL: `SELECT id FROM rewards
                  WHERE used_at IS NOT NULL AND used_job_request_id IS NULL`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and a sample
// row) or an empty name when every invariant holds.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
