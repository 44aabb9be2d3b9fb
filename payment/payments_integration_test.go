package payment

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fixhome/reward"
)

// TestPayIssuesReward_Integration runs against a live PostgreSQL via
// DATABASE_URL and verifies that payment settles the job and that crossing
// the spend threshold issues exactly one reward for an opted-in customer.
func TestPayIssuesReward_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	var hasPayments bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'payments')`).Scan(&hasPayments); err != nil {
		t.Fatalf("check schema: %v", err)
	}
	if !hasPayments {
		t.Skip("database schema missing; start the server once with DB_RUN_MIGRATIONS=true")
	}

	var customerID string
	if err := pool.QueryRow(ctx, `INSERT INTO auth_accounts (email, password_hash, role) VALUES ($1, 'x', 'customer') RETURNING id`,
		fmt.Sprintf("payer+%d@example.com", time.Now().UnixNano())).Scan(&customerID); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO customers (id, name, email, phone, rewards_opt_in) VALUES ($1, 'Paying Customer', $2, '01700000001', true)`,
		customerID, fmt.Sprintf("payer+%d@example.com", time.Now().UnixNano())); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM auth_accounts WHERE id = $1`, customerID)
	})

	svc := NewService(pool, NewRepository(pool),
		reward.NewService(reward.NewRepository(pool), reward.Policy{}))

	seedJob := func(budget int64) string {
		var id string
		if err := pool.QueryRow(ctx, `INSERT INTO job_requests (customer_id, title, budget_cents) VALUES ($1, 'Paid job', $2) RETURNING id`,
			customerID, budget).Scan(&id); err != nil {
			t.Fatalf("seed job: %v", err)
		}
		return id
	}

	// two payments of 60000 cross the 100000 threshold on the second one
	for i, jobID := range []string{seedJob(60000), seedJob(60000)} {
		receipt, err := svc.Pay(ctx, customerID, PayParams{
			JobRequestID:  jobID,
			Method:        MethodBkash,
			AccountNumber: "01712345678",
			PIN:           "1234",
		})
		if err != nil {
			t.Fatalf("pay %d: %v", i, err)
		}
		if receipt.Payment.AmountCents != 60000 {
			t.Fatalf("pay %d: expected amount 60000, got %d", i, receipt.Payment.AmountCents)
		}
		if receipt.Job.Status != "completed" || receipt.Job.CompletedAt == nil {
			t.Fatalf("pay %d: expected completed job, got %+v", i, receipt.Job)
		}
	}

	var unused int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM rewards WHERE customer_id = $1 AND used_at IS NULL`, customerID).Scan(&unused); err != nil {
		t.Fatalf("count rewards: %v", err)
	}
	if unused != 1 {
		t.Fatalf("expected exactly one unused reward, got %d", unused)
	}

	history, err := svc.History(ctx, customerID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 payments in history, got %d", len(history))
	}
}
