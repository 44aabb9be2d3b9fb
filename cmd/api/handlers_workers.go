package main

import (
	"net/http"
	"strconv"
	"strings"

	"fixhome/worker"
)

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageNum, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))

	var services []string
	if raw := q.Get("services"); raw != "" {
		for _, svc := range strings.Split(raw, ",") {
			if svc = strings.TrimSpace(svc); svc != "" {
				services = append(services, svc)
			}
		}
	}

	p, err := s.workerService.ListApproved(r.Context(), worker.Filters{
		Services: services,
		Page:     pageNum,
		PerPage:  perPage,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toWorkerPage(p))
}

func (s *Server) handleWorkerDetail(w http.ResponseWriter, r *http.Request) {
	d, err := s.workerService.GetApprovedDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toWorkerDetailResponse(d))
}

func (s *Server) handleNearestWorkers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLon != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "latitude and longitude are required")
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	nearby, err := s.workerService.Nearest(r.Context(), lat, lon, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	items := make([]nearbyResponse, 0, len(nearby))
	for _, n := range nearby {
		items = append(items, nearbyResponse{
			workerResponse: toWorkerResponse(n.Profile),
			DistanceKm:     n.DistanceKm,
		})
	}
	s.writeData(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleTopWorkers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	top, err := s.workerService.TopForMonth(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	items := make([]monthlyTopResponse, 0, len(top))
	for _, t := range top {
		items = append(items, monthlyTopResponse{
			workerResponse: toWorkerResponse(t.Profile),
			MonthlyJobs:    t.MonthlyJobs,
		})
	}
	s.writeData(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleMyProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.workerService.GetProfile(r.Context(), accountID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toWorkerResponse(p))
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	updated, err := s.workerService.UpdateLocation(r.Context(), accountID(r), req.Latitude, req.Longitude)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]any{
		"id":        updated.ID,
		"latitude":  updated.Latitude,
		"longitude": updated.Longitude,
	})
}
