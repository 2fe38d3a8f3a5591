// Package handler exposes the custody HTTP surface: deposit and withdrawal
// submission, balance reads, and the oracle outcome callback.
package handler

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vaultgate/internal/events"
	id "vaultgate/pkg/domain"
	dErrors "vaultgate/pkg/domain-errors"
	"vaultgate/pkg/platform/httputil"
)

// Service defines the custody operations the HTTP layer drives.
type Service interface {
	RequestDeposit(ctx context.Context, requester id.Principal, amount id.Amount) (id.RequestID, error)
	RequestWithdrawal(ctx context.Context, requester id.Principal, amount id.Amount) (id.RequestID, error)
	BalanceOf(ctx context.Context, principal id.Principal) (id.Amount, error)
	HandleOutcome(ctx context.Context, requestID id.RequestID, successPayload, errPayload []byte) (events.Event, error)
}

// Handler wires custody endpoints to the custody service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts custody endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/deposits", h.HandleRequestDeposit)
	r.Post("/withdrawals", h.HandleRequestWithdrawal)
	r.Get("/balances/{principal}", h.HandleGetBalance)
	r.Post("/oracle/callback", h.HandleOracleCallback)
}

type fundRequest struct {
	Principal string `json:"principal"`
	Amount    string `json:"amount"`
}

type fundResponse struct {
	RequestID string `json:"request_id"`
}

func (h *Handler) HandleRequestDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleFundRequest(w, r, h.service.RequestDeposit)
}

func (h *Handler) HandleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.handleFundRequest(w, r, h.service.RequestWithdrawal)
}

func (h *Handler) handleFundRequest(
	w http.ResponseWriter,
	r *http.Request,
	dispatch func(context.Context, id.Principal, id.Amount) (id.RequestID, error),
) {
	req, err := httputil.DecodeJSON[fundRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	principal, err := id.ParsePrincipal(req.Principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	amount, err := id.ParseAmount(req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	requestID, err := dispatch(r.Context(), principal, amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// 202: the request is dispatched, not settled. The outcome arrives later
	// through the oracle callback.
	httputil.WriteJSON(w, http.StatusAccepted, fundResponse{RequestID: requestID.String()})
}

type balanceResponse struct {
	Principal string `json:"principal"`
	Balance   string `json:"balance"`
}

func (h *Handler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	principal, err := id.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	balance, err := h.service.BalanceOf(r.Context(), principal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, balanceResponse{
		Principal: principal.String(),
		Balance:   balance.DecimalString(),
	})
}

type callbackRequest struct {
	RequestID string `json:"request_id"`
	// Success is the hex-encoded 32-byte outcome word; Error is the
	// hex-encoded failure payload. The oracle sets exactly one of them.
	Success string `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

type callbackResponse struct {
	Event events.Event `json:"event"`
}

func (h *Handler) HandleOracleCallback(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[callbackRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	requestID, err := id.ParseRequestID(req.RequestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	successPayload, err := decodeHexPayload(req.Success, "success")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	errPayload, err := decodeHexPayload(req.Error, "error")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := h.service.HandleOutcome(r.Context(), requestID, successPayload, errPayload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, callbackResponse{Event: event})
}

func decodeHexPayload(s, field string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	payload, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, field+" payload must be hex")
	}
	return payload, nil
}
