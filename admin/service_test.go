package admin

import (
	"context"
	"errors"
	"testing"
)

func TestDashboard_ComposesCountsAndMoney(t *testing.T) {
	repo := &fakeRepo{
		stats: Stats{TotalCustomers: 12, TotalWorkers: 7, CompletedOrders: 3},
		money: Financial{IncomeCents: 450000, OutstandingRewards: 2},
	}
	svc := NewService(repo)

	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Stats.TotalCustomers != 12 || d.Stats.CompletedOrders != 3 {
		t.Fatalf("unexpected stats %+v", d.Stats)
	}
	if d.Financial.IncomeCents != 450000 {
		t.Fatalf("unexpected income %d", d.Financial.IncomeCents)
	}
	if len(d.RecentActivities) == 0 {
		t.Fatal("expected placeholder activity feed")
	}
}

func TestDashboard_PropagatesErrors(t *testing.T) {
	repo := &fakeRepo{countsErr: errors.New("db down")}
	if _, err := NewService(repo).Dashboard(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeRepo struct {
	stats     Stats
	money     Financial
	countsErr error
}

func (f *fakeRepo) Counts(ctx context.Context) (Stats, error) {
	return f.stats, f.countsErr
}

func (f *fakeRepo) Money(ctx context.Context) (Financial, error) {
	return f.money, nil
}
