package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"fixhome/admin"
	"fixhome/auth"
	"fixhome/job"
	"fixhome/page"
	"fixhome/payment"
	"fixhome/reward"
	"fixhome/worker"
)

type ctxKey int

const (
	ctxKeyAccountID ctxKey = iota
	ctxKeyRole
)

type AuthService interface {
	RegisterCustomer(ctx context.Context, req auth.RegisterCustomerRequest) (auth.Account, error)
	RegisterWorker(ctx context.Context, req auth.RegisterWorkerRequest) (auth.Account, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	GetAccount(ctx context.Context, accountID string) (auth.Account, error)
	VerifyToken(token string) (string, auth.Role, error)
}

type JobService interface {
	Create(ctx context.Context, customerID string, params job.CreateParams) (job.JobRequest, error)
	Delete(ctx context.Context, customerID, jobRequestID string) error
	Get(ctx context.Context, customerID, jobRequestID string) (job.Detail, error)
	ListForCustomer(ctx context.Context, customerID string, filters job.Filters) (page.Page[job.Detail], error)
	Apply(ctx context.Context, workerID string, params job.ApplyParams) (job.WorkerApplication, error)
	AcceptApplication(ctx context.Context, customerID, applicationID string) (job.Detail, error)
	AcceptJob(ctx context.Context, workerID, jobRequestID string) (job.JobRequest, error)
	StartJob(ctx context.Context, workerID, jobRequestID string) (job.JobRequest, error)
	CompleteJob(ctx context.Context, workerID, jobRequestID string, finalPriceCents *int64) (job.JobRequest, error)
	ListAvailable(ctx context.Context, workerID string, filters job.Filters) (page.Page[job.JobRequest], error)
	ListMine(ctx context.Context, workerID string, filters job.Filters) (page.Page[job.JobRequest], error)
	Rate(ctx context.Context, customerID, jobRequestID string, rating int) (job.JobRequest, error)
}

type WorkerService interface {
	GetProfile(ctx context.Context, workerID string) (worker.Profile, error)
	UpdateLocation(ctx context.Context, workerID string, latitude, longitude float64) (worker.Worker, error)
	ListApproved(ctx context.Context, filters worker.Filters) (page.Page[worker.Profile], error)
	GetApprovedDetail(ctx context.Context, workerID string) (worker.Detail, error)
	Nearest(ctx context.Context, latitude, longitude float64, limit int) ([]worker.Nearby, error)
	TopForMonth(ctx context.Context, limit int) ([]worker.MonthlyTop, error)
	PendingApprovals(ctx context.Context, pageNum, perPage int) (page.Page[worker.Profile], error)
	Approve(ctx context.Context, workerID string) (worker.Worker, error)
	Reject(ctx context.Context, workerID string) (worker.Worker, error)
}

type PaymentService interface {
	Pay(ctx context.Context, customerID string, params payment.PayParams) (payment.Receipt, error)
	History(ctx context.Context, customerID string) ([]payment.Payment, error)
}

type RewardService interface {
	ListAvailable(ctx context.Context, customerID string) ([]reward.Reward, error)
	SetOptIn(ctx context.Context, customerID string, optIn bool) (bool, error)
}

type AdminService interface {
	Dashboard(ctx context.Context) (admin.Dashboard, error)
}

// Server wires the domain services to HTTP. Handlers stay thin: decode,
// delegate, encode.
type Server struct {
	authService    AuthService
	jobService     JobService
	workerService  WorkerService
	paymentService PaymentService
	rewardService  RewardService
	adminService   AdminService
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register/customer", s.handleRegisterCustomer)
	mux.HandleFunc("POST /api/register/worker", s.handleRegisterWorker)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.Handle("GET /api/me", s.authed("", s.handleMe))

	mux.HandleFunc("GET /api/workers", s.handleListWorkers)
	mux.HandleFunc("GET /api/workers/top", s.handleTopWorkers)
	mux.HandleFunc("GET /api/workers/{id}", s.handleWorkerDetail)
	mux.Handle("GET /api/workers/nearest", s.authed("", s.handleNearestWorkers))

	mux.Handle("POST /api/job-requests", s.authed(auth.RoleCustomer, s.handleCreateJob))
	mux.Handle("GET /api/job-requests", s.authed(auth.RoleCustomer, s.handleListJobs))
	mux.Handle("GET /api/job-requests/{id}", s.authed(auth.RoleCustomer, s.handleGetJob))
	mux.Handle("DELETE /api/job-requests/{id}", s.authed(auth.RoleCustomer, s.handleDeleteJob))
	mux.Handle("POST /api/job-requests/{id}/rate", s.authed(auth.RoleCustomer, s.handleRateJob))
	mux.Handle("POST /api/applications/{id}/accept", s.authed(auth.RoleCustomer, s.handleAcceptApplication))

	mux.Handle("POST /api/payments", s.authed(auth.RoleCustomer, s.handlePay))
	mux.Handle("GET /api/payments", s.authed(auth.RoleCustomer, s.handlePaymentHistory))
	mux.Handle("GET /api/rewards", s.authed(auth.RoleCustomer, s.handleListRewards))
	mux.Handle("POST /api/rewards/opt-in", s.authed(auth.RoleCustomer, s.handleRewardOptIn))

	mux.Handle("GET /api/jobs/available", s.authed(auth.RoleWorker, s.handleAvailableJobs))
	mux.Handle("GET /api/jobs/mine", s.authed(auth.RoleWorker, s.handleMyJobs))
	mux.Handle("POST /api/jobs/{id}/apply", s.authed(auth.RoleWorker, s.handleApply))
	mux.Handle("POST /api/jobs/{id}/accept", s.authed(auth.RoleWorker, s.handleAcceptJob))
	mux.Handle("POST /api/jobs/{id}/start", s.authed(auth.RoleWorker, s.handleStartJob))
	mux.Handle("POST /api/jobs/{id}/complete", s.authed(auth.RoleWorker, s.handleCompleteJob))
	mux.Handle("GET /api/workers/me", s.authed(auth.RoleWorker, s.handleMyProfile))
	mux.Handle("PUT /api/workers/me/location", s.authed(auth.RoleWorker, s.handleUpdateLocation))

	mux.Handle("GET /api/admin/dashboard", s.authed(auth.RoleAdmin, s.handleDashboard))
	mux.Handle("GET /api/admin/approvals", s.authed(auth.RoleAdmin, s.handlePendingApprovals))
	mux.Handle("POST /api/admin/workers/{id}/approve", s.authed(auth.RoleAdmin, s.handleApproveWorker))
	mux.Handle("POST /api/admin/workers/{id}/reject", s.authed(auth.RoleAdmin, s.handleRejectWorker))

	return mux
}

// authed verifies the bearer token and, when role is non-empty, requires that
// exact role.
func (s *Server) authed(role auth.Role, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		accountID, accountRole, err := s.authService.VerifyToken(token)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		if role != "" && accountRole != role {
			s.writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyAccountID, accountID)
		ctx = context.WithValue(ctx, ctxKeyRole, accountRole)
		next(w, r.WithContext(ctx))
	})
}

func accountID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyAccountID).(string)
	return id
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func (s *Server) writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Error: &errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("encode error response: %v", err)
	}
}

// writeDomainError maps domain sentinels onto the stable error codes the API
// exposes. Anything unmapped is a 500 and gets logged server-side only.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var pending *worker.PendingApprovalError
	switch {
	case errors.As(err, &pending):
		s.writeError(w, http.StatusForbidden, "pending_approval", pending.Error())
	case errors.Is(err, job.ErrNotFound),
		errors.Is(err, worker.ErrNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, reward.ErrCustomerNotFound),
		errors.Is(err, auth.ErrAccountNotFound),
		errors.Is(err, pgx.ErrNoRows):
		s.writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, job.ErrForbidden), errors.Is(err, payment.ErrForbidden):
		s.writeError(w, http.StatusForbidden, "forbidden", "you do not own this resource")
	case errors.Is(err, job.ErrInvalidState), errors.Is(err, worker.ErrAlreadyProcessed):
		s.writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, job.ErrAlreadyApplied):
		s.writeError(w, http.StatusConflict, "already_applied", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, auth.ErrDuplicateEmail):
		s.writeError(w, http.StatusConflict, "duplicate_email", err.Error())
	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrValidation),
		errors.Is(err, job.ErrValidation),
		errors.Is(err, worker.ErrValidation),
		errors.Is(err, payment.ErrValidation),
		errors.Is(err, payment.ErrNoPrice):
		s.writeError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		log.Printf("internal error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
