package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"fixhome/reward"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RewardIssuer runs the threshold check after a payment lands, inside the
// payment's transaction. Satisfied by reward.Service.
type RewardIssuer interface {
	IssueIfEligible(ctx context.Context, tx pgx.Tx, customerID string) (*reward.Reward, error)
}

type Service struct {
	pool    TxBeginner
	repo    Repository
	rewards RewardIssuer
	now     func() time.Time
	idGen   func() string
}

func NewService(pool TxBeginner, repo Repository, rewards RewardIssuer) *Service {
	return &Service{
		pool:    pool,
		repo:    repo,
		rewards: rewards,
		now:     time.Now,
		idGen:   uuid.NewString,
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

// Pay records a payment for the job and completes it in one transaction. The
// charged amount is the settled final price when one exists, otherwise the
// budget; a job with neither cannot be paid for. Payment is an independent
// completion path: the worker does not have to have marked the job complete.
// The reward threshold check runs in the same transaction so concurrent
// payments cannot double-issue.
func (s *Service) Pay(ctx context.Context, customerID string, params PayParams) (Receipt, error) {
	if params.JobRequestID == "" {
		return Receipt{}, fmt.Errorf("%w: missing job request id", ErrValidation)
	}
	if params.Method != MethodCard && params.Method != MethodBkash {
		return Receipt{}, fmt.Errorf("%w: unsupported method %q", ErrValidation, params.Method)
	}
	account := strings.TrimSpace(params.AccountNumber)
	if account == "" {
		return Receipt{}, fmt.Errorf("%w: account number required", ErrValidation)
	}
	pin := strings.TrimSpace(params.PIN)
	if pin == "" {
		return Receipt{}, fmt.Errorf("%w: pin required", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("payment: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	jr, err := s.repo.GetJobForUpdate(ctx, tx, params.JobRequestID)
	if err != nil {
		return Receipt{}, err
	}
	if jr.CustomerID != customerID {
		return Receipt{}, ErrForbidden
	}

	var amount int64
	switch {
	case jr.FinalPriceCents != nil:
		amount = *jr.FinalPriceCents
	case jr.BudgetCents != nil:
		amount = *jr.BudgetCents
	default:
		return Receipt{}, ErrNoPrice
	}

	created, err := s.repo.InsertPayment(ctx, tx, Payment{
		ID:            s.idGen(),
		JobRequestID:  jr.ID,
		CustomerID:    customerID,
		WorkerID:      jr.WorkerID,
		AmountCents:   amount,
		Method:        params.Method,
		AccountNumber: account,
	}, pin)
	if err != nil {
		return Receipt{}, err
	}

	completed, err := s.repo.CompleteJob(ctx, tx, jr.ID, amount, s.now().UTC())
	if err != nil {
		return Receipt{}, err
	}

	if s.rewards != nil {
		if _, err := s.rewards.IssueIfEligible(ctx, tx, customerID); err != nil {
			return Receipt{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Receipt{}, fmt.Errorf("payment: commit tx: %w", err)
	}
	return Receipt{Payment: created, Job: completed}, nil
}

// History lists the customer's payments, newest first.
func (s *Service) History(ctx context.Context, customerID string) ([]Payment, error) {
	return s.repo.ListForCustomer(ctx, customerID)
}
