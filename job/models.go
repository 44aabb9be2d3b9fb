package job

import "time"

// Status tracks a job request through its lifecycle. Pending requests are
// open for applications (or awaiting a directly booked worker); cancelled is
// terminal and only reachable from pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// JobRequest is a customer's request for work. All money fields are integer
// cents; pointers distinguish "not set" from zero.
type JobRequest struct {
	ID                   string
	CustomerID           string
	WorkerID             *string
	Title                string
	Description          *string
	BudgetCents          *int64
	FinalPriceCents      *int64
	DiscountPercent      *int
	DiscountedPriceCents *int64
	Status               Status
	ScheduledAt          *time.Time
	CompletedAt          *time.Time
	Rating               *int
	RatedAt              *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type WorkerApplication struct {
	ID                 string
	JobRequestID       string
	WorkerID           string
	Message            *string
	ProposedPriceCents *int64
	Status             ApplicationStatus
	CreatedAt          time.Time
}

// ApplicationView is an application joined with the applying worker's name,
// for the customer-facing request detail.
type ApplicationView struct {
	WorkerApplication
	WorkerName string
}

// Detail composes a request with its assigned worker's name (if any) and the
// applications received so far.
type Detail struct {
	JobRequest
	WorkerName   *string
	Applications []ApplicationView
}

type CreateParams struct {
	Title       string
	Description *string
	BudgetCents *int64
	ScheduledAt *time.Time
	WorkerID    *string
	UseReward   bool
}

type ApplyParams struct {
	JobRequestID       string
	Message            *string
	ProposedPriceCents *int64
}
