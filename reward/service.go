package reward

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Service runs the loyalty rewards engine. Threshold issuance and redemption
// both execute inside transactions owned by the triggering operation (a
// payment or a job-request creation) so no partial state can leak.
type Service struct {
	repo   Repository
	policy Policy
	now    func() time.Time
	idGen  func() string
}

// NewService builds a rewards engine with the given policy; a zero policy
// falls back to the production defaults.
func NewService(repo Repository, policy Policy) *Service {
	if policy.ThresholdCents <= 0 {
		policy.ThresholdCents = DefaultPolicy.ThresholdCents
	}
	if policy.Percent <= 0 || policy.Percent >= 100 {
		policy.Percent = DefaultPolicy.Percent
	}
	if policy.ExpiryMonths <= 0 {
		policy.ExpiryMonths = DefaultPolicy.ExpiryMonths
	}
	return &Service{
		repo:   repo,
		policy: policy,
		now:    time.Now,
		idGen:  uuid.NewString,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator overrides identifier generation, for tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

// IssueIfEligible checks the threshold rule after a payment lands and issues
// at most one reward. Called inside the payment transaction.
//
// Policy for repeated crossings: a customer holds at most one unused reward.
// While one is outstanding no further reward is issued regardless of how much
// more the customer spends; once it is consumed the next qualifying payment
// issues a fresh one. The customer row lock plus the partial unique index on
// rewards make the check-then-insert idempotent under concurrent payments.
func (s *Service) IssueIfEligible(ctx context.Context, tx pgx.Tx, customerID string) (*Reward, error) {
	optIn, err := s.repo.LockCustomerOptIn(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	if !optIn {
		return nil, nil
	}

	total, err := s.repo.PaidTotalCents(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	if total < s.policy.ThresholdCents {
		return nil, nil
	}

	unused, err := s.repo.HasUnused(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	if unused {
		return nil, nil
	}

	earnedAt := s.now().UTC()
	expiresAt := earnedAt.AddDate(0, s.policy.ExpiryMonths, 0)
	return s.repo.Insert(ctx, tx, s.idGen(), customerID, s.policy.Percent, earnedAt, expiresAt)
}

// ApplyToJob consumes the customer's earliest unused, unexpired reward for a
// freshly created job request, writing the discount onto the job row. A nil
// result with nil error means no reward was available; the job is created
// undiscounted and no error surfaces to the caller.
func (s *Service) ApplyToJob(ctx context.Context, tx pgx.Tx, customerID, jobRequestID string, budgetCents int64) (*Applied, error) {
	now := s.now().UTC()

	rw, err := s.repo.LockEarliestUnused(ctx, tx, customerID, now)
	if err != nil {
		return nil, err
	}
	if rw == nil {
		return nil, nil
	}

	discounted := DiscountedCents(budgetCents, rw.Percent)
	if err := s.repo.MarkUsed(ctx, tx, rw.ID, jobRequestID, now); err != nil {
		return nil, err
	}
	if err := s.repo.WriteJobDiscount(ctx, tx, jobRequestID, rw.Percent, discounted); err != nil {
		return nil, err
	}

	return &Applied{
		RewardID:             rw.ID,
		Percent:              rw.Percent,
		DiscountedPriceCents: discounted,
	}, nil
}

// ListAvailable returns the customer's redeemable rewards.
func (s *Service) ListAvailable(ctx context.Context, customerID string) ([]Reward, error) {
	return s.repo.ListAvailable(ctx, customerID, s.now().UTC())
}

// SetOptIn toggles rewards participation for the customer.
func (s *Service) SetOptIn(ctx context.Context, customerID string, optIn bool) (bool, error) {
	return s.repo.SetOptIn(ctx, customerID, optIn)
}
