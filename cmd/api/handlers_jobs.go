package main

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"fixhome/job"
)

type createJobRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	BudgetCents *int64     `json:"budgetCents"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	WorkerID    *string    `json:"workerId"`
	UseReward   bool       `json:"useReward"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	created, err := s.jobService.Create(r.Context(), accountID(r), job.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		BudgetCents: req.BudgetCents,
		ScheduledAt: req.ScheduledAt,
		WorkerID:    req.WorkerID,
		UseReward:   req.UseReward,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, toJobResponse(created))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	p, err := s.jobService.ListForCustomer(r.Context(), accountID(r), jobFilters(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toJobDetailPage(p))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	d, err := s.jobService.Get(r.Context(), accountID(r), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toJobDetailResponse(d))
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobService.Delete(r.Context(), accountID(r), r.PathValue("id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleRateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating int `json:"rating"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	rated, err := s.jobService.Rate(r.Context(), accountID(r), r.PathValue("id"), req.Rating)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toJobResponse(rated))
}

func (s *Server) handleAcceptApplication(w http.ResponseWriter, r *http.Request) {
	accepted, err := s.jobService.AcceptApplication(r.Context(), accountID(r), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toJobDetailResponse(accepted))
}

type applyRequest struct {
	Message            *string `json:"message"`
	ProposedPriceCents *int64  `json:"proposedPriceCents"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	app, err := s.jobService.Apply(r.Context(), accountID(r), job.ApplyParams{
		JobRequestID:       r.PathValue("id"),
		Message:            req.Message,
		ProposedPriceCents: req.ProposedPriceCents,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, toApplicationResponse(app))
}

func (s *Server) handleAcceptJob(w http.ResponseWriter, r *http.Request) {
	jr, err := s.jobService.AcceptJob(r.Context(), accountID(r), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toJobResponse(jr))
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	jr, err := s.jobService.StartJob(r.Context(), accountID(r), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toJobResponse(jr))
}

func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FinalPriceCents *int64 `json:"finalPriceCents"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	jr, err := s.jobService.CompleteJob(r.Context(), accountID(r), r.PathValue("id"), req.FinalPriceCents)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toJobResponse(jr))
}

func (s *Server) handleAvailableJobs(w http.ResponseWriter, r *http.Request) {
	p, err := s.jobService.ListAvailable(r.Context(), accountID(r), jobFilters(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toJobPage(p))
}

func (s *Server) handleMyJobs(w http.ResponseWriter, r *http.Request) {
	p, err := s.jobService.ListMine(r.Context(), accountID(r), jobFilters(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toJobPage(p))
}

func jobFilters(r *http.Request) job.Filters {
	q := r.URL.Query()
	pageNum, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))
	return job.Filters{Page: pageNum, PerPage: perPage}
}
