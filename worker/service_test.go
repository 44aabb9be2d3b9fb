package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func approvedProfile(id string, lat, lon *float64) Profile {
	return Profile{
		Worker: Worker{
			ID:             id,
			Name:           "Worker " + id,
			ApprovalStatus: ApprovalApproved,
			Latitude:       lat,
			Longitude:      lon,
		},
	}
}

func f(v float64) *float64 { return &v }

func TestNearest_RanksAscendingAndLimits(t *testing.T) {
	repo := &fakeRepo{
		withCoords: []Profile{
			approvedProfile("far", f(24.3636), f(88.6241)),
			approvedProfile("near", f(23.8223), f(90.3654)),
			approvedProfile("farthest", f(22.3569), f(91.7832)),
		},
	}
	svc := NewService(repo)

	got, err := svc.Nearest(context.Background(), 23.8103, 90.4125, 2)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != "near" {
		t.Fatalf("expected nearest worker first, got %s", got[0].ID)
	}
	if got[0].DistanceKm > got[1].DistanceKm {
		t.Fatalf("expected non-decreasing distances, got %f then %f", got[0].DistanceKm, got[1].DistanceKm)
	}
}

func TestNearest_FallsBackToSampleWhenNoCoordinates(t *testing.T) {
	repo := &fakeRepo{
		sample: []Profile{approvedProfile("s1", nil, nil), approvedProfile("s2", nil, nil)},
	}
	svc := NewService(repo)

	got, err := svc.Nearest(context.Background(), 23.8103, 90.4125, 0)
	if err != nil {
		t.Fatalf("nearest fallback: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sampled workers, got %d", len(got))
	}
	if repo.sampleLimit != defaultNearestLimit {
		t.Fatalf("expected default limit %d passed to sample, got %d", defaultNearestLimit, repo.sampleLimit)
	}
	for _, n := range got {
		if n.DistanceKm != 0 {
			t.Fatalf("fallback results carry no distance guarantee, got %f", n.DistanceKm)
		}
	}
}

func TestNearest_ClampsLimit(t *testing.T) {
	repo := &fakeRepo{}
	for i := 0; i < 60; i++ {
		repo.withCoords = append(repo.withCoords, approvedProfile("w", f(23.0), f(90.0)))
	}
	svc := NewService(repo)

	got, err := svc.Nearest(context.Background(), 23.8, 90.4, 500)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if len(got) != maxNearestLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxNearestLimit, len(got))
	}
}

func TestNearest_RejectsBadCoordinates(t *testing.T) {
	svc := NewService(&fakeRepo{})
	if _, err := svc.Nearest(context.Background(), 120, 0, 5); err == nil {
		t.Fatal("expected error for out-of-range latitude")
	}
}

func TestRequireApproved(t *testing.T) {
	repo := &fakeRepo{
		workers: map[string]Worker{
			"ok":      {ID: "ok", ApprovalStatus: ApprovalApproved},
			"waiting": {ID: "waiting", ApprovalStatus: ApprovalPending},
		},
	}
	svc := NewService(repo)

	if _, err := svc.RequireApproved(context.Background(), "ok"); err != nil {
		t.Fatalf("approved worker should pass the gate: %v", err)
	}

	_, err := svc.RequireApproved(context.Background(), "waiting")
	var pending *PendingApprovalError
	if !errors.As(err, &pending) {
		t.Fatalf("expected PendingApprovalError, got %v", err)
	}
	if pending.Status != ApprovalPending {
		t.Fatalf("expected carried status pending, got %s", pending.Status)
	}

	if _, err := svc.RequireApproved(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateLocation_Validation(t *testing.T) {
	svc := NewService(&fakeRepo{})

	if _, err := svc.UpdateLocation(context.Background(), "w1", 91, 0); err == nil {
		t.Fatal("expected latitude validation error")
	}
	if _, err := svc.UpdateLocation(context.Background(), "w1", 0, 181); err == nil {
		t.Fatal("expected longitude validation error")
	}
}

func TestTopForMonth_UsesCurrentMonthWindow(t *testing.T) {
	repo := &fakeRepo{}
	fixed := time.Date(2026, time.August, 17, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo).WithClock(func() time.Time { return fixed })

	if _, err := svc.TopForMonth(context.Background(), 0); err != nil {
		t.Fatalf("top for month: %v", err)
	}

	wantFrom := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	if !repo.topFrom.Equal(wantFrom) {
		t.Fatalf("expected window start %s, got %s", wantFrom, repo.topFrom)
	}
	if !repo.topTo.Equal(wantFrom.AddDate(0, 1, 0)) {
		t.Fatalf("expected window end %s, got %s", wantFrom.AddDate(0, 1, 0), repo.topTo)
	}
	if repo.topLimit != 10 {
		t.Fatalf("expected default limit 10, got %d", repo.topLimit)
	}
}

type fakeRepo struct {
	workers     map[string]Worker
	withCoords  []Profile
	sample      []Profile
	sampleLimit int
	topFrom     time.Time
	topTo       time.Time
	topLimit    int
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (Worker, error) {
	w, ok := f.workers[id]
	if !ok {
		return Worker{}, ErrNotFound
	}
	return w, nil
}

func (f *fakeRepo) GetProfile(ctx context.Context, id string) (Profile, error) {
	return Profile{Worker: Worker{ID: id}}, nil
}

func (f *fakeRepo) ListApproved(ctx context.Context, filters Filters) ([]Profile, int, error) {
	return f.withCoords, len(f.withCoords), nil
}

func (f *fakeRepo) GetApprovedDetail(ctx context.Context, id string) (Detail, error) {
	return Detail{}, ErrNotFound
}

func (f *fakeRepo) UpdateLocation(ctx context.Context, id string, latitude, longitude float64) (Worker, error) {
	return Worker{ID: id, Latitude: &latitude, Longitude: &longitude}, nil
}

func (f *fakeRepo) ListApprovedWithCoordinates(ctx context.Context) ([]Profile, error) {
	return f.withCoords, nil
}

func (f *fakeRepo) SampleApproved(ctx context.Context, limit int) ([]Profile, error) {
	f.sampleLimit = limit
	return f.sample, nil
}

func (f *fakeRepo) TopForMonth(ctx context.Context, from, to time.Time, limit int) ([]MonthlyTop, error) {
	f.topFrom, f.topTo, f.topLimit = from, to, limit
	return nil, nil
}

func (f *fakeRepo) ListPending(ctx context.Context, pageNum, perPage int) ([]Profile, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) SetApproval(ctx context.Context, id string, status ApprovalStatus) (Worker, error) {
	w, ok := f.workers[id]
	if !ok {
		return Worker{}, ErrNotFound
	}
	if w.ApprovalStatus != ApprovalPending {
		return Worker{}, ErrAlreadyProcessed
	}
	w.ApprovalStatus = status
	f.workers[id] = w
	return w, nil
}
