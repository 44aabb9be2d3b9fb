package main

import (
	"net/http"

	"fixhome/payment"
)

type payRequest struct {
	JobRequestID  string `json:"jobRequestId"`
	Method        string `json:"method"`
	AccountNumber string `json:"accountNumber"`
	PIN           string `json:"pin"`
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	receipt, err := s.paymentService.Pay(r.Context(), accountID(r), payment.PayParams{
		JobRequestID:  req.JobRequestID,
		Method:        payment.Method(req.Method),
		AccountNumber: req.AccountNumber,
		PIN:           req.PIN,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusCreated, map[string]any{
		"payment": toPaymentResponse(receipt.Payment),
		"job":     toJobResponse(receipt.Job),
	})
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	payments, err := s.paymentService.History(r.Context(), accountID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	items := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		items = append(items, toPaymentResponse(p))
	}
	s.writeData(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := s.rewardService.ListAvailable(r.Context(), accountID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	items := make([]rewardResponse, 0, len(rewards))
	for _, rw := range rewards {
		items = append(items, toRewardResponse(rw))
	}
	s.writeData(w, http.StatusOK, map[string]any{
		"count":   len(items),
		"rewards": items,
	})
}

func (s *Server) handleRewardOptIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptIn bool `json:"optIn"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	optIn, err := s.rewardService.SetOptIn(r.Context(), accountID(r), req.OptIn)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeData(w, http.StatusOK, map[string]any{"optIn": optIn})
}
