// Package handler exposes the administrative settings endpoints. The router
// mounts these behind the admin middleware; nothing here re-checks ownership.
package handler

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultgate/internal/admin"
	dErrors "vaultgate/pkg/domain-errors"
	"vaultgate/pkg/platform/httputil"
)

// Service defines the interface for administrative operations.
type Service interface {
	Settings(ctx context.Context) (admin.OracleSettings, error)
	UpdateScript(ctx context.Context, source string) error
	UpdateSecrets(ctx context.Context, payload []byte) error
	UpdateSubscriptionID(ctx context.Context, subscriptionID string) error
	UpdateEndpoint(ctx context.Context, endpoint string) error
	UpdateGasLimit(ctx context.Context, gasLimit uint64) error
}

// Handler wires admin endpoints to the admin service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts admin endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/settings", h.HandleGetSettings)
	r.Put("/admin/script", h.HandleUpdateScript)
	r.Put("/admin/secrets", h.HandleUpdateSecrets)
	r.Put("/admin/subscription", h.HandleUpdateSubscription)
	r.Put("/admin/endpoint", h.HandleUpdateEndpoint)
	r.Put("/admin/gas-limit", h.HandleUpdateGasLimit)
}

type settingsResponse struct {
	Script         string `json:"script"`
	SecretsDigest  string `json:"secrets_digest,omitempty"`
	SubscriptionID string `json:"subscription_id"`
	Endpoint       string `json:"endpoint"`
	GasLimit       uint64 `json:"gas_limit"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// HandleGetSettings handles GET /admin/settings. The secrets payload is never
// echoed back; only its digest is, so the owner can verify what is deployed.
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Settings(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := settingsResponse{
		Script:         settings.Script,
		SubscriptionID: settings.SubscriptionID,
		Endpoint:       settings.Endpoint,
		GasLimit:       settings.GasLimit,
	}
	if len(settings.Secrets) > 0 {
		digest := sha256.Sum256(settings.Secrets)
		resp.SecretsDigest = hex.EncodeToString(digest[:])
	}
	if !settings.UpdatedAt.IsZero() {
		resp.UpdatedAt = settings.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type updateScriptRequest struct {
	Source string `json:"source"`
}

func (h *Handler) HandleUpdateScript(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[updateScriptRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.UpdateScript(r.Context(), req.Source); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type updateSecretsRequest struct {
	// Payload is the base64-encoded encrypted credentials blob.
	Payload string `json:"payload"`
}

func (h *Handler) HandleUpdateSecrets(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[updateSecretsRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "payload must be base64"))
		return
	}
	if err := h.service.UpdateSecrets(r.Context(), payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type updateSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

func (h *Handler) HandleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[updateSubscriptionRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.UpdateSubscriptionID(r.Context(), req.SubscriptionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type updateEndpointRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *Handler) HandleUpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[updateEndpointRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.UpdateEndpoint(r.Context(), req.Endpoint); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type updateGasLimitRequest struct {
	GasLimit uint64 `json:"gas_limit"`
}

func (h *Handler) HandleUpdateGasLimit(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[updateGasLimitRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.UpdateGasLimit(r.Context(), req.GasLimit); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
