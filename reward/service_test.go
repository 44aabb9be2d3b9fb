package reward

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIssueIfEligible_IssuesAtThreshold(t *testing.T) {
	repo := &fakeRepo{optIn: true, paidTotal: 100000}
	fixed := time.Date(2026, time.August, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(repo, Policy{}).
		WithClock(func() time.Time { return fixed }).
		WithIDGenerator(func() string { return "rw-gen" })

	rw, err := svc.IssueIfEligible(context.Background(), &fakeTx{}, "cust-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if rw == nil {
		t.Fatal("expected a reward to be issued")
	}
	if rw.Percent != 20 {
		t.Fatalf("expected percent 20, got %d", rw.Percent)
	}
	if rw.ID != "rw-gen" || repo.insertID != "rw-gen" {
		t.Fatalf("expected generated id rw-gen, got %s/%s", rw.ID, repo.insertID)
	}
	if !repo.insertEarnedAt.Equal(fixed) {
		t.Fatalf("expected earnedAt %s, got %s", fixed, repo.insertEarnedAt)
	}
	if want := fixed.AddDate(0, 6, 0); !repo.insertExpiresAt.Equal(want) {
		t.Fatalf("expected expiresAt %s, got %s", want, repo.insertExpiresAt)
	}
}

func TestIssueIfEligible_BelowThreshold(t *testing.T) {
	repo := &fakeRepo{optIn: true, paidTotal: 99999}
	svc := NewService(repo, Policy{})

	rw, err := svc.IssueIfEligible(context.Background(), &fakeTx{}, "cust-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if rw != nil {
		t.Fatal("expected no reward below threshold")
	}
	if repo.inserted {
		t.Fatal("insert must not run below threshold")
	}
}

func TestIssueIfEligible_NotOptedIn(t *testing.T) {
	repo := &fakeRepo{optIn: false, paidTotal: 500000}
	svc := NewService(repo, Policy{})

	rw, err := svc.IssueIfEligible(context.Background(), &fakeTx{}, "cust-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if rw != nil {
		t.Fatal("expected no reward for opted-out customer")
	}
	if repo.paidTotalCalled {
		t.Fatal("spend should not be summed for opted-out customers")
	}
}

func TestIssueIfEligible_UnusedRewardBlocksReissue(t *testing.T) {
	repo := &fakeRepo{optIn: true, paidTotal: 250000, hasUnused: true}
	svc := NewService(repo, Policy{})

	rw, err := svc.IssueIfEligible(context.Background(), &fakeTx{}, "cust-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if rw != nil {
		t.Fatal("expected no reward while one is outstanding")
	}
	if repo.inserted {
		t.Fatal("insert must not run while an unused reward exists")
	}
}

func TestApplyToJob_ConsumesRewardAndDiscounts(t *testing.T) {
	earned := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		unused: &Reward{ID: "rw-1", CustomerID: "cust-1", Percent: 20, EarnedAt: earned, ExpiresAt: earned.AddDate(0, 6, 0)},
	}
	svc := NewService(repo, Policy{})

	applied, err := svc.ApplyToJob(context.Background(), &fakeTx{}, "cust-1", "job-1", 20000)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied == nil {
		t.Fatal("expected reward to be applied")
	}
	if applied.DiscountedPriceCents != 16000 {
		t.Fatalf("expected 16000 cents after 20%% off 20000, got %d", applied.DiscountedPriceCents)
	}
	if repo.markedRewardID != "rw-1" || repo.markedJobID != "job-1" {
		t.Fatalf("expected reward rw-1 marked used on job-1, got %s/%s", repo.markedRewardID, repo.markedJobID)
	}
	if repo.discountJobID != "job-1" || repo.discountPercent != 20 || repo.discountCents != 16000 {
		t.Fatalf("unexpected discount write: %s %d %d", repo.discountJobID, repo.discountPercent, repo.discountCents)
	}
}

func TestApplyToJob_NoRewardIsNotAnError(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, Policy{})

	applied, err := svc.ApplyToJob(context.Background(), &fakeTx{}, "cust-1", "job-1", 20000)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied != nil {
		t.Fatal("expected nil when no reward is available")
	}
	if repo.markedRewardID != "" {
		t.Fatal("nothing should be marked used")
	}
}

func TestDiscountedCents_Rounding(t *testing.T) {
	cases := []struct {
		budget  int64
		percent int
		want    int64
	}{
		{20000, 20, 16000},
		{999, 20, 799},     // 799.2 rounds down
		{12345, 15, 10493}, // 10493.25 rounds down
		{101, 50, 51},      // 50.5 rounds up
	}
	for _, tc := range cases {
		if got := DiscountedCents(tc.budget, tc.percent); got != tc.want {
			t.Fatalf("DiscountedCents(%d, %d) = %d, want %d", tc.budget, tc.percent, got, tc.want)
		}
	}
}

type fakeRepo struct {
	optIn           bool
	paidTotal       int64
	paidTotalCalled bool
	hasUnused       bool
	inserted        bool
	insertID        string
	insertEarnedAt  time.Time
	insertExpiresAt time.Time
	unused          *Reward
	markedRewardID  string
	markedJobID     string
	discountJobID   string
	discountPercent int
	discountCents   int64
}

func (f *fakeRepo) LockCustomerOptIn(ctx context.Context, tx pgx.Tx, customerID string) (bool, error) {
	return f.optIn, nil
}

func (f *fakeRepo) PaidTotalCents(ctx context.Context, tx pgx.Tx, customerID string) (int64, error) {
	f.paidTotalCalled = true
	return f.paidTotal, nil
}

func (f *fakeRepo) HasUnused(ctx context.Context, tx pgx.Tx, customerID string) (bool, error) {
	return f.hasUnused, nil
}

func (f *fakeRepo) Insert(ctx context.Context, tx pgx.Tx, id, customerID string, percent int, earnedAt, expiresAt time.Time) (*Reward, error) {
	f.inserted = true
	f.insertID = id
	f.insertEarnedAt = earnedAt
	f.insertExpiresAt = expiresAt
	return &Reward{ID: id, CustomerID: customerID, Percent: percent, EarnedAt: earnedAt, ExpiresAt: expiresAt}, nil
}

func (f *fakeRepo) LockEarliestUnused(ctx context.Context, tx pgx.Tx, customerID string, asOf time.Time) (*Reward, error) {
	return f.unused, nil
}

func (f *fakeRepo) MarkUsed(ctx context.Context, tx pgx.Tx, rewardID, jobRequestID string, usedAt time.Time) error {
	f.markedRewardID = rewardID
	f.markedJobID = jobRequestID
	return nil
}

func (f *fakeRepo) WriteJobDiscount(ctx context.Context, tx pgx.Tx, jobRequestID string, percent int, discountedCents int64) error {
	f.discountJobID = jobRequestID
	f.discountPercent = percent
	f.discountCents = discountedCents
	return nil
}

func (f *fakeRepo) ListAvailable(ctx context.Context, customerID string, asOf time.Time) ([]Reward, error) {
	if f.unused == nil {
		return nil, nil
	}
	return []Reward{*f.unused}, nil
}

func (f *fakeRepo) SetOptIn(ctx context.Context, customerID string, optIn bool) (bool, error) {
	f.optIn = optIn
	return optIn, nil
}

type fakeTx struct{}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error   { return nil }
func (f *fakeTx) Rollback(context.Context) error { return nil }

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn { return nil }
