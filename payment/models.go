package payment

import (
	"time"

	"fixhome/job"
)

type Method string

const (
	MethodCard  Method = "card"
	MethodBkash Method = "bkash"
)

// Payment is an append-only record of a payment attempt. Rows are never
// mutated after insert.
type Payment struct {
	ID            string
	JobRequestID  string
	CustomerID    string
	WorkerID      *string
	AmountCents   int64
	Method        Method
	AccountNumber string
	Status        string
	CreatedAt     time.Time
}

type PayParams struct {
	JobRequestID  string
	Method        Method
	AccountNumber string
	PIN           string
}

// Receipt is what a successful payment returns: the payment row and the job
// it completed.
type Receipt struct {
	Payment Payment
	Job     job.JobRequest
}
