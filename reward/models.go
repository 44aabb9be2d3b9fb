package reward

import "time"

// Reward is a time-limited percentage discount earned through cumulative
// paid spend. It mirrors the rewards table.
type Reward struct {
	ID               string
	CustomerID       string
	Percent          int
	EarnedAt         time.Time
	ExpiresAt        time.Time
	UsedAt           *time.Time
	UsedJobRequestID *string
	CreatedAt        time.Time
}

// Applied reports the discount written onto a job request when a reward is
// consumed.
type Applied struct {
	RewardID             string
	Percent              int
	DiscountedPriceCents int64
}

// Policy tunes the issuance rule. Defaults mirror production: a reward for
// every customer whose paid spend reaches $1000, worth 20% for six months.
type Policy struct {
	ThresholdCents int64
	Percent        int
	ExpiryMonths   int
}

// DefaultPolicy is used when the caller passes a zero Policy.
var DefaultPolicy = Policy{
	ThresholdCents: 100000,
	Percent:        20,
	ExpiryMonths:   6,
}

// DiscountedCents applies percent off budgetCents, rounding half-up to the
// nearest cent. Money stays in integer cents end to end.
func DiscountedCents(budgetCents int64, percent int) int64 {
	return (budgetCents*int64(100-percent) + 50) / 100
}
