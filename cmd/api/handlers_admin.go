package main

import (
	"net/http"
	"strconv"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.adminService.Dashboard(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toDashboardResponse(d))
}

func (s *Server) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageNum, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))

	p, err := s.workerService.PendingApprovals(r.Context(), pageNum, perPage)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toWorkerPage(p))
}

func (s *Server) handleApproveWorker(w http.ResponseWriter, r *http.Request) {
	updated, err := s.workerService.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]any{
		"id":             updated.ID,
		"approvalStatus": string(updated.ApprovalStatus),
	})
}

func (s *Server) handleRejectWorker(w http.ResponseWriter, r *http.Request) {
	updated, err := s.workerService.Reject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]any{
		"id":             updated.ID,
		"approvalStatus": string(updated.ApprovalStatus),
	})
}
