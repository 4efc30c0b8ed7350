/**
 * @description
 * This file contains the HTTP handlers for the fraud-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paysentry/fraud-service/internal/app"
	"github.com/paysentry/fraud-service/internal/domain"
	"github.com/paysentry/fraud-service/internal/store"
)

// TransactionHandlers holds the dependencies the handlers use.
type TransactionHandlers struct {
	service *app.Service
	repo    store.Repository
	logger  *slog.Logger
}

// NewTransactionHandlers creates a new instance of TransactionHandlers.
func NewTransactionHandlers(service *app.Service, repo store.Repository, logger *slog.Logger) *TransactionHandlers {
	return &TransactionHandlers{service: service, repo: repo, logger: logger}
}

// submissionResponse echoes the accepted values back to the caller.
type submissionResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
}

// SubmitTransactionHandler handles POST /transactions. It validates the
// payload and enqueues the transaction for fraud processing; no row is written
// synchronously here.
func (h *TransactionHandlers) SubmitTransactionHandler(w http.ResponseWriter, r *http.Request) {
	if allowed, retryAfter := h.service.AllowSubmission(r.Context(), clientIP(r)); !allowed {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many submissions. Please try again later.")
		return
	}

	var req domain.SubmitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			h.writeError(w, http.StatusBadRequest, "Invalid transaction data")
			return
		}
		h.writeError(w, http.StatusBadRequest, "Invalid transaction data: "+err.Error())
		return
	}

	msg, err := h.service.SubmitTransaction(r.Context(), req)
	if err != nil {
		if errors.Is(err, app.ErrValidation) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, app.ErrPublishUnavailable) {
			h.writeError(w, http.StatusInternalServerError, "Error queuing transaction")
			return
		}
		h.logger.Error("transaction submission failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, submissionResponse{
		Status:     "queued",
		Message:    "Transaction queued successfully",
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Amount:     domain.FormatAmountMinor(msg.AmountMinor),
	})
}

// GetTransactionHandler handles GET /transactions/{transactionID} for
// operational inspection of a persisted row and its fraud flag.
func (h *TransactionHandlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	tx, err := h.repo.FindTransactionByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			h.writeError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.logger.Error("transaction lookup failed", "transaction_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, tx)
}

// writeJSON is a helper for writing JSON responses.
func (h *TransactionHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *TransactionHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
