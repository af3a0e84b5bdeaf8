package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/audit"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/connection"
	apperrors "github.com/lexxxdtp/djassabotSaas-sub000/internal/errors"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/middleware"
)

// ConnectionHandler exposes the tenant connection lifecycle:
// pairing, QR polling and teardown.
type ConnectionHandler struct {
	manager *connection.Manager
	state   connection.StateStore
}

func NewConnectionHandler(manager *connection.Manager, state connection.StateStore) *ConnectionHandler {
	return &ConnectionHandler{manager: manager, state: state}
}

func (h *ConnectionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/tenants/{tenantID}/connection", func(r chi.Router) {
		r.Post("/", h.Ensure)
		r.Get("/", h.Status)
		r.Delete("/", h.Disconnect)
		r.Post("/pairing-code", h.PairingCode)
	})

	return r
}

// tenantID resolves the path tenant and rejects cross-tenant access:
// a token only ever operates on its own connection.
func (h *ConnectionHandler) tenantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "tenantID")
	if id == "" {
		writeError(w, apperrors.MissingRequired("tenantID"))
		return "", false
	}

	tenant := middleware.GetTenant(r.Context())
	if tenant == nil || tenant.ID != id {
		audit.Log(r.Context(), audit.Event{
			Type:     audit.EventCrossTenantDenied,
			TenantID: id,
			IP:       r.RemoteAddr,
		})
		writeError(w, apperrors.New(apperrors.ErrCodeForbidden, "token does not match tenant"))
		return "", false
	}

	return id, true
}

func (h *ConnectionHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	status, err := h.manager.EnsureConnection(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.Log(r.Context(), audit.Event{Type: audit.EventPairingStarted, TenantID: tenantID})
	writeJSON(w, http.StatusAccepted, status)
}

func (h *ConnectionHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	status := h.manager.Status(tenantID)
	if status.QR == "" {
		// The QR may have been issued by a previous process; Redis is
		// the durable copy the dashboard polls.
		qr, err := h.state.GetQR(r.Context(), tenantID)
		if err != nil {
			log.Error().Err(err).Str("tenantId", tenantID).Msg("qr lookup failed")
		} else {
			status.QR = qr
		}
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *ConnectionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Disconnect(r.Context(), tenantID); err != nil {
		writeError(w, err)
		return
	}

	audit.Log(r.Context(), audit.Event{Type: audit.EventTenantDisconnected, TenantID: tenantID})
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

func (h *ConnectionHandler) PairingCode(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	var req struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "expected JSON with phoneNumber"))
		return
	}

	code, err := h.manager.RequestPairingCode(r.Context(), tenantID, req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.Log(r.Context(), audit.Event{Type: audit.EventPairingCodeIssued, TenantID: tenantID})
	writeJSON(w, http.StatusOK, map[string]string{"pairingCode": code})
}
