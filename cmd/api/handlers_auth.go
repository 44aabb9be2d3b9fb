package main

import (
	"net/http"

	"fixhome/auth"
)

func (s *Server) handleRegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	account, err := s.authService.RegisterCustomer(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleRegisterWorker(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterWorkerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	account, err := s.authService.RegisterWorker(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	result, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]any{
		"token":   result.Token,
		"account": toAccountResponse(result.Account),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	account, err := s.authService.GetAccount(r.Context(), accountID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, toAccountResponse(account))
}
