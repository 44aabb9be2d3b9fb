package worker

import (
	"fmt"
	"time"
)

// ApprovalStatus is the admin-controlled gate deciding whether a worker may
// be listed publicly or apply for jobs.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Worker mirrors the workers table. Latitude and longitude are the last
// reported location and stay nil until the worker pushes one.
type Worker struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	Description    string
	Photo          *string
	Latitude       *float64
	Longitude      *float64
	ApprovalStatus ApprovalStatus
	CreatedAt      time.Time
}

// Profile is the read-side composition of a worker with its service tags.
type Profile struct {
	Worker
	Services []string
}

// RecentJob is the trimmed job view embedded in a worker detail response.
type RecentJob struct {
	ID           string
	Title        string
	Status       string
	CustomerName string
	CreatedAt    time.Time
}

// Detail is a public worker page: profile plus recent visible jobs.
type Detail struct {
	Profile
	RecentJobs []RecentJob
}

// Nearby pairs a profile with its computed distance from the query point.
type Nearby struct {
	Profile
	DistanceKm float64
}

// MonthlyTop is a leaderboard row for the current month.
type MonthlyTop struct {
	Profile
	MonthlyJobs int
}

// PendingApprovalError is returned when a not-yet-approved worker attempts a
// gated operation. It carries the current status for UI messaging.
type PendingApprovalError struct {
	Status ApprovalStatus
}

func (e *PendingApprovalError) Error() string {
	return fmt.Sprintf("worker: account approval is %s; operation requires approval", e.Status)
}
