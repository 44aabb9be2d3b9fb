package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"fixhome/page"
	"fixhome/reward"
	"fixhome/worker"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ApprovalGate checks a worker may take marketplace actions. Satisfied by
// worker.Service.
type ApprovalGate interface {
	RequireApproved(ctx context.Context, workerID string) (worker.Worker, error)
}

// RewardApplier consumes a customer reward inside the caller's transaction.
// Satisfied by reward.Service.
type RewardApplier interface {
	ApplyToJob(ctx context.Context, tx pgx.Tx, customerID, jobRequestID string, budgetCents int64) (*reward.Applied, error)
}

type Service struct {
	pool      TxBeginner
	repo      Repository
	approvals ApprovalGate
	rewards   RewardApplier
	now       func() time.Time
	idGen     func() string
}

func NewService(pool TxBeginner, repo Repository, approvals ApprovalGate, rewards RewardApplier) *Service {
	return &Service{
		pool:      pool,
		repo:      repo,
		approvals: approvals,
		rewards:   rewards,
		now:       time.Now,
		idGen:     uuid.NewString,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator overrides identifier generation, for tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

// Create opens a job request. A request with WorkerID set is a direct booking
// and requires an approved worker; it stays pending until that worker accepts.
// UseReward consumes the customer's earliest unused reward against the budget
// in the same transaction.
func (s *Service) Create(ctx context.Context, customerID string, params CreateParams) (JobRequest, error) {
	if customerID == "" {
		return JobRequest{}, fmt.Errorf("%w: missing customer id", ErrValidation)
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return JobRequest{}, fmt.Errorf("%w: title required", ErrValidation)
	}
	if params.BudgetCents != nil && *params.BudgetCents <= 0 {
		return JobRequest{}, fmt.Errorf("%w: budget must be positive", ErrValidation)
	}
	if params.UseReward && params.BudgetCents == nil {
		return JobRequest{}, fmt.Errorf("%w: reward requires a budget", ErrValidation)
	}

	if params.WorkerID != nil {
		if _, err := s.approvals.RequireApproved(ctx, *params.WorkerID); err != nil {
			return JobRequest{}, err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return JobRequest{}, fmt.Errorf("job: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	created, err := s.repo.Insert(ctx, tx, JobRequest{
		ID:          s.idGen(),
		CustomerID:  customerID,
		WorkerID:    params.WorkerID,
		Title:       title,
		Description: params.Description,
		BudgetCents: params.BudgetCents,
		ScheduledAt: params.ScheduledAt,
	})
	if err != nil {
		return JobRequest{}, err
	}

	if params.UseReward && s.rewards != nil {
		applied, err := s.rewards.ApplyToJob(ctx, tx, customerID, created.ID, *params.BudgetCents)
		if err != nil {
			return JobRequest{}, err
		}
		if applied != nil {
			created.DiscountPercent = &applied.Percent
			created.DiscountedPriceCents = &applied.DiscountedPriceCents
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return JobRequest{}, fmt.Errorf("job: commit tx: %w", err)
	}
	return created, nil
}

// Delete removes a request. Only the owning customer may delete, and only
// while the request is pending and unassigned; applications cascade away with
// the row.
func (s *Service) Delete(ctx context.Context, customerID, jobRequestID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("job: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	jr, err := s.repo.GetForUpdate(ctx, tx, jobRequestID)
	if err != nil {
		return err
	}
	if jr.CustomerID != customerID {
		return ErrForbidden
	}
	if jr.Status != StatusPending || jr.WorkerID != nil {
		return ErrInvalidState
	}

	if err := s.repo.DeletePending(ctx, tx, jobRequestID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("job: delete commit: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, customerID, jobRequestID string) (Detail, error) {
	d, err := s.repo.Get(ctx, jobRequestID)
	if err != nil {
		return Detail{}, err
	}
	if d.CustomerID != customerID {
		return Detail{}, ErrForbidden
	}
	return d, nil
}

func (s *Service) ListForCustomer(ctx context.Context, customerID string, filters Filters) (page.Page[Detail], error) {
	filters = normalize(filters)
	items, total, err := s.repo.ListForCustomer(ctx, customerID, filters)
	if err != nil {
		return page.Page[Detail]{}, err
	}
	return page.New(items, filters.Page, filters.PerPage, total), nil
}

// Apply records a worker's application to an open request. Unapproved workers
// are gated; a second application from the same worker is ErrAlreadyApplied.
func (s *Service) Apply(ctx context.Context, workerID string, params ApplyParams) (WorkerApplication, error) {
	if params.JobRequestID == "" {
		return WorkerApplication{}, fmt.Errorf("%w: missing job request id", ErrValidation)
	}
	if params.ProposedPriceCents != nil && *params.ProposedPriceCents <= 0 {
		return WorkerApplication{}, fmt.Errorf("%w: proposed price must be positive", ErrValidation)
	}
	if _, err := s.approvals.RequireApproved(ctx, workerID); err != nil {
		return WorkerApplication{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return WorkerApplication{}, fmt.Errorf("job: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	jr, err := s.repo.GetForUpdate(ctx, tx, params.JobRequestID)
	if err != nil {
		return WorkerApplication{}, err
	}
	if jr.Status != StatusPending || jr.WorkerID != nil {
		return WorkerApplication{}, ErrInvalidState
	}

	app, err := s.repo.InsertApplication(ctx, tx, WorkerApplication{
		ID:                 s.idGen(),
		JobRequestID:       params.JobRequestID,
		WorkerID:           workerID,
		Message:            params.Message,
		ProposedPriceCents: params.ProposedPriceCents,
	})
	if err != nil {
		return WorkerApplication{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return WorkerApplication{}, fmt.Errorf("job: apply commit: %w", err)
	}
	return app, nil
}

// AcceptApplication assigns the applying worker to the request. The job row
// lock plus the pending/unassigned guard make concurrent acceptances resolve
// to exactly one winner; every other pending application is rejected in the
// same transaction. The returned detail carries the assigned worker's name.
func (s *Service) AcceptApplication(ctx context.Context, customerID, applicationID string) (Detail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Detail{}, fmt.Errorf("job: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	app, err := s.repo.GetApplication(ctx, tx, applicationID)
	if err != nil {
		return Detail{}, err
	}

	jr, err := s.repo.GetForUpdate(ctx, tx, app.JobRequestID)
	if err != nil {
		return Detail{}, err
	}
	if jr.CustomerID != customerID {
		return Detail{}, ErrForbidden
	}
	if jr.Status != StatusPending || jr.WorkerID != nil {
		return Detail{}, ErrInvalidState
	}

	accepted, err := s.repo.AcceptApplicationRow(ctx, tx, applicationID)
	if err != nil {
		return Detail{}, err
	}
	if err := s.repo.RejectPendingSiblings(ctx, tx, jr.ID, accepted.ID); err != nil {
		return Detail{}, err
	}

	if _, err := s.repo.AssignWorker(ctx, tx, jr.ID, accepted.WorkerID, accepted.ProposedPriceCents); err != nil {
		return Detail{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Detail{}, fmt.Errorf("job: accept commit: %w", err)
	}
	return s.repo.Get(ctx, jr.ID)
}

// AcceptJob is the worker side of a direct booking: the pre-assigned worker
// confirms the pending request.
func (s *Service) AcceptJob(ctx context.Context, workerID, jobRequestID string) (JobRequest, error) {
	return s.transition(ctx, workerID, jobRequestID, StatusAccepted, nil)
}

// StartJob moves an accepted request to in_progress.
func (s *Service) StartJob(ctx context.Context, workerID, jobRequestID string) (JobRequest, error) {
	return s.transition(ctx, workerID, jobRequestID, StatusInProgress, nil)
}

// CompleteJob finishes the assigned work, stamping completed_at and
// optionally settling the final price.
func (s *Service) CompleteJob(ctx context.Context, workerID, jobRequestID string, finalPriceCents *int64) (JobRequest, error) {
	if finalPriceCents != nil && *finalPriceCents <= 0 {
		return JobRequest{}, fmt.Errorf("%w: final price must be positive", ErrValidation)
	}
	return s.transition(ctx, workerID, jobRequestID, StatusCompleted, finalPriceCents)
}

func (s *Service) transition(ctx context.Context, workerID, jobRequestID string, to Status, finalPriceCents *int64) (JobRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return JobRequest{}, fmt.Errorf("job: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	jr, err := s.repo.GetForUpdate(ctx, tx, jobRequestID)
	if err != nil {
		return JobRequest{}, err
	}
	if jr.WorkerID == nil || *jr.WorkerID != workerID {
		return JobRequest{}, ErrForbidden
	}
	if !allowed(jr.Status, to) {
		return JobRequest{}, ErrInvalidState
	}

	var completedAt *time.Time
	if to == StatusCompleted {
		now := s.now().UTC()
		completedAt = &now
	}

	updated, err := s.repo.UpdateStatus(ctx, tx, jobRequestID, to, completedAt, finalPriceCents)
	if err != nil {
		return JobRequest{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return JobRequest{}, fmt.Errorf("job: transition commit: %w", err)
	}
	return updated, nil
}

func allowed(from, to Status) bool {
	switch to {
	case StatusAccepted:
		return from == StatusPending
	case StatusInProgress:
		return from == StatusAccepted
	case StatusCompleted:
		return from == StatusAccepted || from == StatusInProgress
	default:
		return false
	}
}

func (s *Service) ListAvailable(ctx context.Context, workerID string, filters Filters) (page.Page[JobRequest], error) {
	filters = normalize(filters)
	items, total, err := s.repo.ListAvailable(ctx, workerID, filters)
	if err != nil {
		return page.Page[JobRequest]{}, err
	}
	return page.New(items, filters.Page, filters.PerPage, total), nil
}

func (s *Service) ListMine(ctx context.Context, workerID string, filters Filters) (page.Page[JobRequest], error) {
	filters = normalize(filters)
	items, total, err := s.repo.ListMine(ctx, workerID, filters)
	if err != nil {
		return page.Page[JobRequest]{}, err
	}
	return page.New(items, filters.Page, filters.PerPage, total), nil
}

// Rate stores the customer's 1..5 rating on a completed request. Re-rating
// overwrites the previous value.
func (s *Service) Rate(ctx context.Context, customerID, jobRequestID string, rating int) (JobRequest, error) {
	if rating < 1 || rating > 5 {
		return JobRequest{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return JobRequest{}, fmt.Errorf("job: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	jr, err := s.repo.GetForUpdate(ctx, tx, jobRequestID)
	if err != nil {
		return JobRequest{}, err
	}
	if jr.CustomerID != customerID {
		return JobRequest{}, ErrForbidden
	}
	if jr.Status != StatusCompleted {
		return JobRequest{}, ErrInvalidState
	}

	updated, err := s.repo.SetRating(ctx, tx, jobRequestID, rating, s.now().UTC())
	if err != nil {
		return JobRequest{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return JobRequest{}, fmt.Errorf("job: rate commit: %w", err)
	}
	return updated, nil
}

func normalize(filters Filters) Filters {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PerPage <= 0 || filters.PerPage > 100 {
		filters.PerPage = 15
	}
	return filters
}
