package main

import (
	"time"

	"fixhome/admin"
	"fixhome/auth"
	"fixhome/job"
	"fixhome/page"
	"fixhome/payment"
	"fixhome/reward"
	"fixhome/worker"
)

type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAccountResponse(a auth.Account) accountResponse {
	return accountResponse{ID: a.ID, Email: a.Email, Role: string(a.Role), CreatedAt: a.CreatedAt}
}

type jobResponse struct {
	ID                   string     `json:"id"`
	CustomerID           string     `json:"customerId"`
	WorkerID             *string    `json:"workerId,omitempty"`
	Title                string     `json:"title"`
	Description          *string    `json:"description,omitempty"`
	BudgetCents          *int64     `json:"budgetCents,omitempty"`
	FinalPriceCents      *int64     `json:"finalPriceCents,omitempty"`
	DiscountPercent      *int       `json:"discountPercent,omitempty"`
	DiscountedPriceCents *int64     `json:"discountedPriceCents,omitempty"`
	Status               string     `json:"status"`
	ScheduledAt          *time.Time `json:"scheduledAt,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	Rating               *int       `json:"rating,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func toJobResponse(jr job.JobRequest) jobResponse {
	return jobResponse{
		ID:                   jr.ID,
		CustomerID:           jr.CustomerID,
		WorkerID:             jr.WorkerID,
		Title:                jr.Title,
		Description:          jr.Description,
		BudgetCents:          jr.BudgetCents,
		FinalPriceCents:      jr.FinalPriceCents,
		DiscountPercent:      jr.DiscountPercent,
		DiscountedPriceCents: jr.DiscountedPriceCents,
		Status:               string(jr.Status),
		ScheduledAt:          jr.ScheduledAt,
		CompletedAt:          jr.CompletedAt,
		Rating:               jr.Rating,
		CreatedAt:            jr.CreatedAt,
	}
}

type applicationResponse struct {
	ID                 string    `json:"id"`
	JobRequestID       string    `json:"jobRequestId"`
	WorkerID           string    `json:"workerId"`
	WorkerName         string    `json:"workerName,omitempty"`
	Message            *string   `json:"message,omitempty"`
	ProposedPriceCents *int64    `json:"proposedPriceCents,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
}

func toApplicationResponse(a job.WorkerApplication) applicationResponse {
	return applicationResponse{
		ID:                 a.ID,
		JobRequestID:       a.JobRequestID,
		WorkerID:           a.WorkerID,
		Message:            a.Message,
		ProposedPriceCents: a.ProposedPriceCents,
		Status:             string(a.Status),
		CreatedAt:          a.CreatedAt,
	}
}

type jobDetailResponse struct {
	jobResponse
	WorkerName   *string               `json:"workerName,omitempty"`
	Applications []applicationResponse `json:"applications"`
}

func toJobDetailResponse(d job.Detail) jobDetailResponse {
	apps := make([]applicationResponse, 0, len(d.Applications))
	for _, a := range d.Applications {
		resp := toApplicationResponse(a.WorkerApplication)
		resp.WorkerName = a.WorkerName
		apps = append(apps, resp)
	}
	return jobDetailResponse{
		jobResponse:  toJobResponse(d.JobRequest),
		WorkerName:   d.WorkerName,
		Applications: apps,
	}
}

func toJobDetailPage(p page.Page[job.Detail]) page.Page[jobDetailResponse] {
	items := make([]jobDetailResponse, 0, len(p.Items))
	for _, d := range p.Items {
		items = append(items, toJobDetailResponse(d))
	}
	return page.New(items, p.Page, p.PerPage, p.Total)
}

func toJobPage(p page.Page[job.JobRequest]) page.Page[jobResponse] {
	items := make([]jobResponse, 0, len(p.Items))
	for _, jr := range p.Items {
		items = append(items, toJobResponse(jr))
	}
	return page.New(items, p.Page, p.PerPage, p.Total)
}

type workerResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Phone          string   `json:"phone"`
	Description    string   `json:"description"`
	Photo          *string  `json:"photo,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	ApprovalStatus string   `json:"approvalStatus"`
	Services       []string `json:"services"`
}

func toWorkerResponse(p worker.Profile) workerResponse {
	services := p.Services
	if services == nil {
		services = []string{}
	}
	return workerResponse{
		ID:             p.ID,
		Name:           p.Name,
		Phone:          p.Phone,
		Description:    p.Description,
		Photo:          p.Photo,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		ApprovalStatus: string(p.ApprovalStatus),
		Services:       services,
	}
}

func toWorkerPage(p page.Page[worker.Profile]) page.Page[workerResponse] {
	items := make([]workerResponse, 0, len(p.Items))
	for _, profile := range p.Items {
		items = append(items, toWorkerResponse(profile))
	}
	return page.New(items, p.Page, p.PerPage, p.Total)
}

type recentJobResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	CustomerName string    `json:"customerName"`
	CreatedAt    time.Time `json:"createdAt"`
}

type workerDetailResponse struct {
	workerResponse
	RecentJobs []recentJobResponse `json:"recentJobs"`
}

func toWorkerDetailResponse(d worker.Detail) workerDetailResponse {
	jobs := make([]recentJobResponse, 0, len(d.RecentJobs))
	for _, j := range d.RecentJobs {
		jobs = append(jobs, recentJobResponse{
			ID:           j.ID,
			Title:        j.Title,
			Status:       j.Status,
			CustomerName: j.CustomerName,
			CreatedAt:    j.CreatedAt,
		})
	}
	return workerDetailResponse{workerResponse: toWorkerResponse(d.Profile), RecentJobs: jobs}
}

type nearbyResponse struct {
	workerResponse
	DistanceKm float64 `json:"distanceKm"`
}

type monthlyTopResponse struct {
	workerResponse
	MonthlyJobs int `json:"monthlyJobs"`
}

type paymentResponse struct {
	ID            string    `json:"id"`
	JobRequestID  string    `json:"jobRequestId"`
	WorkerID      *string   `json:"workerId,omitempty"`
	AmountCents   int64     `json:"amountCents"`
	Method        string    `json:"method"`
	AccountNumber string    `json:"accountNumber"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toPaymentResponse(p payment.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		JobRequestID:  p.JobRequestID,
		WorkerID:      p.WorkerID,
		AmountCents:   p.AmountCents,
		Method:        string(p.Method),
		AccountNumber: p.AccountNumber,
		Status:        p.Status,
		CreatedAt:     p.CreatedAt,
	}
}

type rewardResponse struct {
	ID        string    `json:"id"`
	Percent   int       `json:"percent"`
	EarnedAt  time.Time `json:"earnedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toRewardResponse(r reward.Reward) rewardResponse {
	return rewardResponse{ID: r.ID, Percent: r.Percent, EarnedAt: r.EarnedAt, ExpiresAt: r.ExpiresAt}
}

type dashboardResponse struct {
	Stats struct {
		TotalCustomers   int `json:"totalCustomers"`
		TotalWorkers     int `json:"totalWorkers"`
		TotalServices    int `json:"totalServices"`
		ActiveWorkers    int `json:"activeWorkers"`
		PendingApprovals int `json:"pendingApprovals"`
		TotalRequests    int `json:"totalRequests"`
		TotalOrders      int `json:"totalOrders"`
		CompletedOrders  int `json:"completedOrders"`
	} `json:"stats"`
	Financial struct {
		IncomeCents            int64 `json:"incomeCents"`
		CompletedJobValueCents int64 `json:"completedJobValueCents"`
		OutstandingRewards     int   `json:"outstandingRewards"`
		RedeemedRewards        int   `json:"redeemedRewards"`
	} `json:"financial"`
	RecentActivities []activityResponse `json:"recentActivities"`
}

type activityResponse struct {
	Label  string `json:"label"`
	Detail string `json:"detail"`
}

func toDashboardResponse(d admin.Dashboard) dashboardResponse {
	var resp dashboardResponse
	resp.Stats.TotalCustomers = d.Stats.TotalCustomers
	resp.Stats.TotalWorkers = d.Stats.TotalWorkers
	resp.Stats.TotalServices = d.Stats.TotalServices
	resp.Stats.ActiveWorkers = d.Stats.ActiveWorkers
	resp.Stats.PendingApprovals = d.Stats.PendingApprovals
	resp.Stats.TotalRequests = d.Stats.TotalRequests
	resp.Stats.TotalOrders = d.Stats.TotalOrders
	resp.Stats.CompletedOrders = d.Stats.CompletedOrders
	resp.Financial.IncomeCents = d.Financial.IncomeCents
	resp.Financial.CompletedJobValueCents = d.Financial.CompletedJobValueCents
	resp.Financial.OutstandingRewards = d.Financial.OutstandingRewards
	resp.Financial.RedeemedRewards = d.Financial.RedeemedRewards
	resp.RecentActivities = make([]activityResponse, 0, len(d.RecentActivities))
	for _, a := range d.RecentActivities {
		resp.RecentActivities = append(resp.RecentActivities, activityResponse{Label: a.Label, Detail: a.Detail})
	}
	return resp
}
