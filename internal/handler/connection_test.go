package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexxxdtp/djassabotSaas-sub000/internal/connection"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/engine"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/middleware"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/model"
	"github.com/lexxxdtp/djassabotSaas-sub000/internal/transport"
)

type stubDialer struct{ conn *stubConn }

func (d *stubDialer) Dial(_ context.Context, _ string, _ []byte) (transport.Conn, error) {
	return d.conn, nil
}

type stubConn struct{ events chan transport.Event }

func (c *stubConn) Events() <-chan transport.Event                   { return c.events }
func (c *stubConn) Send(_ context.Context, _, _ string) error        { return nil }
func (c *stubConn) RequestPairingCode(_ context.Context, _ string) (string, error) {
	return "WXYZ-9876", nil
}
func (c *stubConn) MarkRead(_ context.Context, _ string, _ ...string) error { return nil }
func (c *stubConn) FetchHistory(_ context.Context, _ time.Time, _ int) ([]transport.Message, error) {
	return nil, nil
}
func (c *stubConn) Close() error { return nil }

type stubState struct{ qr map[string]string }

func (s *stubState) SetQR(_ context.Context, tenantID, qr string) error {
	s.qr[tenantID] = qr
	return nil
}
func (s *stubState) GetQR(_ context.Context, tenantID string) (string, error) {
	return s.qr[tenantID], nil
}
func (s *stubState) ClearQR(_ context.Context, tenantID string) error {
	delete(s.qr, tenantID)
	return nil
}
func (s *stubState) SetStatus(_ context.Context, _ string, _ model.ConnectionStatus) error {
	return nil
}
func (s *stubState) MarkSeen(_ context.Context, _, _ string) (bool, error) { return true, nil }

type stubTenantRepo struct{ tenant *model.Tenant }

func (r *stubTenantRepo) FindByID(_ context.Context, id string) (*model.Tenant, error) {
	if r.tenant != nil && r.tenant.ID == id {
		clone := *r.tenant
		return &clone, nil
	}
	return nil, nil
}
func (r *stubTenantRepo) FindByTokenHash(_ context.Context, _ string) (*model.Tenant, error) {
	return nil, nil
}
func (r *stubTenantRepo) ListActive(_ context.Context) ([]model.Tenant, error) { return nil, nil }
func (r *stubTenantRepo) GetSettings(_ context.Context, _ string) (*model.Settings, error) {
	return nil, nil
}
func (r *stubTenantRepo) SaveCredentials(_ context.Context, _, _ string) error { return nil }
func (r *stubTenantRepo) ClearCredentials(_ context.Context, _ string) error   { return nil }

type stubOrderRepo struct{}

func (r *stubOrderRepo) Create(_ context.Context, _ model.CreateOrderParams, _ string) (*model.Order, error) {
	return nil, nil
}
func (r *stubOrderRepo) FindByTenantID(_ context.Context, _ string, _, _ int) ([]model.Order, error) {
	return nil, nil
}
func (r *stubOrderRepo) LogActivity(_ context.Context, _ string, _ model.ActivityKind, _ string) error {
	return nil
}

type noopEngine struct{}

func (noopEngine) HandleInbound(_ context.Context, _ string, _ engine.Inbound) (string, error) {
	return "", nil
}

func newConnectionHandler(t *testing.T) (*ConnectionHandler, *stubState) {
	t.Helper()
	state := &stubState{qr: map[string]string{}}
	dialer := &stubDialer{conn: &stubConn{events: make(chan transport.Event, 4)}}
	manager := connection.NewManager(
		dialer, noopEngine{},
		&stubTenantRepo{tenant: &model.Tenant{ID: "t1", Status: model.TenantStatusActive}},
		&stubOrderRepo{}, state, "", 7*24*time.Hour,
	)
	t.Cleanup(manager.Shutdown)
	return NewConnectionHandler(manager, state), state
}

func doRequest(h *ConnectionHandler, method, path, body string, tenant *model.Tenant) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if tenant != nil {
		ctx := context.WithValue(req.Context(), middleware.TenantContextKey, tenant)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestEnsureConnectionAccepted(t *testing.T) {
	h, _ := newConnectionHandler(t)
	tenant := &model.Tenant{ID: "t1", Status: model.TenantStatusActive}

	rec := doRequest(h, http.MethodPost, "/tenants/t1/connection", "", tenant)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var status connection.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, model.ConnectionConnecting, status.Status)
}

func TestCrossTenantAccessForbidden(t *testing.T) {
	h, _ := newConnectionHandler(t)
	other := &model.Tenant{ID: "t2", Status: model.TenantStatusActive}

	rec := doRequest(h, http.MethodPost, "/tenants/t1/connection", "", other)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(h, http.MethodGet, "/tenants/t1/connection", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStatusFallsBackToStoredQR(t *testing.T) {
	h, state := newConnectionHandler(t)
	state.qr["t1"] = "stored-qr-payload"
	tenant := &model.Tenant{ID: "t1", Status: model.TenantStatusActive}

	rec := doRequest(h, http.MethodGet, "/tenants/t1/connection", "", tenant)

	require.Equal(t, http.StatusOK, rec.Code)
	var status connection.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, model.ConnectionDisconnected, status.Status)
	assert.Equal(t, "stored-qr-payload", status.QR)
}

func TestPairingCodeRejectsBadBody(t *testing.T) {
	h, _ := newConnectionHandler(t)
	tenant := &model.Tenant{ID: "t1", Status: model.TenantStatusActive}

	rec := doRequest(h, http.MethodPost, "/tenants/t1/connection/pairing-code", "not-json", tenant)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisconnectWithoutConnection(t *testing.T) {
	h, _ := newConnectionHandler(t)
	tenant := &model.Tenant{ID: "t1", Status: model.TenantStatusActive}

	rec := doRequest(h, http.MethodDelete, "/tenants/t1/connection", "", tenant)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}
