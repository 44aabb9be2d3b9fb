package worker

import (
	"context"
	"fmt"
	"time"

	"fixhome/geo"
	"fixhome/page"
)

const (
	defaultNearestLimit = 5
	maxNearestLimit     = 50
)

// Service exposes business-level worker operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a Service using the provided repository.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetProfile returns the worker's own profile with service tags.
func (s *Service) GetProfile(ctx context.Context, workerID string) (Profile, error) {
	return s.repo.GetProfile(ctx, workerID)
}

// RequireApproved loads a worker and fails with PendingApprovalError unless
// the admin has approved them. Gated flows (job application) call this first.
func (s *Service) RequireApproved(ctx context.Context, workerID string) (Worker, error) {
	w, err := s.repo.GetByID(ctx, workerID)
	if err != nil {
		return Worker{}, err
	}
	if w.ApprovalStatus != ApprovalApproved {
		return Worker{}, &PendingApprovalError{Status: w.ApprovalStatus}
	}
	return w, nil
}

// UpdateLocation stores the worker's last known coordinates.
func (s *Service) UpdateLocation(ctx context.Context, workerID string, latitude, longitude float64) (Worker, error) {
	if latitude < -90 || latitude > 90 {
		return Worker{}, fmt.Errorf("%w: latitude out of range", ErrValidation)
	}
	if longitude < -180 || longitude > 180 {
		return Worker{}, fmt.Errorf("%w: longitude out of range", ErrValidation)
	}
	return s.repo.UpdateLocation(ctx, workerID, latitude, longitude)
}

// ListApproved returns publicly visible workers, optionally filtered by
// service tag.
func (s *Service) ListApproved(ctx context.Context, filters Filters) (page.Page[Profile], error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PerPage <= 0 || filters.PerPage > 100 {
		filters.PerPage = 15
	}

	items, total, err := s.repo.ListApproved(ctx, filters)
	if err != nil {
		return page.Page[Profile]{}, err
	}
	return page.New(items, filters.Page, filters.PerPage, total), nil
}

// GetApprovedDetail returns the public worker page with recent jobs.
func (s *Service) GetApprovedDetail(ctx context.Context, workerID string) (Detail, error) {
	return s.repo.GetApprovedDetail(ctx, workerID)
}

// Nearest ranks approved workers by great-circle distance from the query
// point, ascending. Workers without a reported location never rank. When the
// ranked set is empty an arbitrary sample of approved workers is returned
// with zero distances rather than an empty urgent-help screen.
func (s *Service) Nearest(ctx context.Context, latitude, longitude float64, limit int) ([]Nearby, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, fmt.Errorf("%w: query coordinates out of range", ErrValidation)
	}
	if limit <= 0 {
		limit = defaultNearestLimit
	}
	if limit > maxNearestLimit {
		limit = maxNearestLimit
	}

	candidates, err := s.repo.ListApprovedWithCoordinates(ctx)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		sample, err := s.repo.SampleApproved(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := make([]Nearby, 0, len(sample))
		for _, p := range sample {
			out = append(out, Nearby{Profile: p})
		}
		return out, nil
	}

	origin := geo.Point{Latitude: latitude, Longitude: longitude}
	points := make([]geo.Point, len(candidates))
	for i, c := range candidates {
		points[i] = geo.Point{Latitude: *c.Latitude, Longitude: *c.Longitude}
	}

	ranked := geo.RankByDistance(origin, points, limit)
	out := make([]Nearby, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, Nearby{Profile: candidates[r.Index], DistanceKm: r.DistanceKm})
	}
	return out, nil
}

// TopForMonth returns the busiest approved workers for the current month.
func (s *Service) TopForMonth(ctx context.Context, limit int) ([]MonthlyTop, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	return s.repo.TopForMonth(ctx, from, to, limit)
}

// PendingApprovals lists workers awaiting an admin decision.
func (s *Service) PendingApprovals(ctx context.Context, pageNum, perPage int) (page.Page[Profile], error) {
	if pageNum <= 0 {
		pageNum = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 15
	}

	items, total, err := s.repo.ListPending(ctx, pageNum, perPage)
	if err != nil {
		return page.Page[Profile]{}, err
	}
	return page.New(items, pageNum, perPage, total), nil
}

// Approve admits a pending worker to the marketplace.
func (s *Service) Approve(ctx context.Context, workerID string) (Worker, error) {
	return s.repo.SetApproval(ctx, workerID, ApprovalApproved)
}

// Reject turns a pending worker away. There is no re-review path.
func (s *Service) Reject(ctx context.Context, workerID string) (Worker, error) {
	return s.repo.SetApproval(ctx, workerID, ApprovalRejected)
}
