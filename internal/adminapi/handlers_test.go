package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aetherflow/mpsched/internal/authz"
	"github.com/aetherflow/mpsched/internal/prefstore"
	"github.com/aetherflow/mpsched/internal/sched"
	"github.com/aetherflow/mpsched/internal/sched/registry"
)

func newTestSvcCtx(t *testing.T) (*ServiceContext, *authz.Manager) {
	t.Helper()
	reg := registry.New(nil, nil)
	if err := reg.Register(sched.Ops{
		Name:        "lowest-rtt",
		GetSubflow:  func(m *sched.Meta, k *sched.Segment, zeroWndTest bool) *sched.Subflow { return nil },
		NextSegment: func(m *sched.Meta, q sched.Queues) (*sched.Segment, *sched.Subflow, uint32, int) { return nil, nil, 0, 0 },
	}, "test"); err != nil {
		t.Fatalf("failed to seed registry: %v", err)
	}

	auth := authz.NewManager("test-secret", time.Hour, "test-issuer")
	return NewServiceContext(reg, prefstore.NewMemoryStore(), auth, nil, nil, nil), auth
}

func TestGetDefaultSchedulerHandler(t *testing.T) {
	svcCtx, _ := newTestSvcCtx(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/schedulers/default", nil)
	w := httptest.NewRecorder()
	GetDefaultSchedulerHandler(svcCtx)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	data, _ := resp.Data.(map[string]interface{})
	if data["name"] != "lowest-rtt" {
		t.Errorf("expected lowest-rtt, got %v", data["name"])
	}
}

func TestSetDefaultSchedulerHandlerRequiresAuth(t *testing.T) {
	svcCtx, _ := newTestSvcCtx(t)

	body, _ := json.Marshal(setDefaultRequest{Name: "lowest-rtt"})
	req := httptest.NewRequest(http.MethodPut, "/v1/schedulers/default", bytes.NewReader(body))
	w := httptest.NewRecorder()
	SetDefaultSchedulerHandler(svcCtx)(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSetDefaultSchedulerHandlerWithCapability(t *testing.T) {
	svcCtx, auth := newTestSvcCtx(t)

	token, err := auth.IssueToken("operator", []string{authz.CapabilityNetAdmin})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	body, _ := json.Marshal(setDefaultRequest{Name: "lowest-rtt"})
	req := httptest.NewRequest(http.MethodPut, "/v1/schedulers/default", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	SetDefaultSchedulerHandler(svcCtx)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSetDefaultSchedulerHandlerUnknownNameIsNotFound(t *testing.T) {
	svcCtx, auth := newTestSvcCtx(t)
	token, _ := auth.IssueToken("operator", []string{authz.CapabilityNetAdmin})

	body, _ := json.Marshal(setDefaultRequest{Name: "does-not-exist"})
	req := httptest.NewRequest(http.MethodPut, "/v1/schedulers/default", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	SetDefaultSchedulerHandler(svcCtx)(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown scheduler name, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterSchedulerHandlerDuplicateIsConflict(t *testing.T) {
	svcCtx, _ := newTestSvcCtx(t)

	body, _ := json.Marshal(registerRequest{Name: "lowest-rtt", Owner: "test"})
	req := httptest.NewRequest(http.MethodPost, "/v1/schedulers", bytes.NewReader(body))
	w := httptest.NewRecorder()
	RegisterSchedulerHandler(svcCtx)(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a duplicate name, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterSchedulerHandlerNewName(t *testing.T) {
	svcCtx, _ := newTestSvcCtx(t)

	body, _ := json.Marshal(registerRequest{Name: "roundrobin", Owner: "test"})
	req := httptest.NewRequest(http.MethodPost, "/v1/schedulers", bytes.NewReader(body))
	w := httptest.NewRecorder()
	RegisterSchedulerHandler(svcCtx)(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	if _, err := svcCtx.Registry.Find("roundrobin"); err != nil {
		t.Errorf("expected the new scheduler to be findable, got %v", err)
	}
}

func TestBindConnectionSchedulerHandlerRequiresCapability(t *testing.T) {
	svcCtx, auth := newTestSvcCtx(t)
	token, _ := auth.IssueToken("caller", []string{"net_read"})

	body, _ := json.Marshal(bindRequest{SchedulerName: "lowest-rtt"})
	req := httptest.NewRequest(http.MethodPut, "/v1/connections/conn-1/scheduler", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	// pathvar normally populates from the router; exercise the handler's
	// own capability gate, which runs before the path var is consulted.
	BindConnectionSchedulerHandler(svcCtx)(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without the net_admin capability, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUnbindConnectionSchedulerHandlerMissingIDIsBadRequest(t *testing.T) {
	svcCtx, auth := newTestSvcCtx(t)
	token, _ := auth.IssueToken("operator", []string{authz.CapabilityNetAdmin})

	if err := svcCtx.PrefStore.Set(context.Background(), "conn-1", "lowest-rtt"); err != nil {
		t.Fatalf("failed to seed preference: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/connections/conn-1/scheduler", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	UnbindConnectionSchedulerHandler(svcCtx)(w, req)

	if w.Code != http.StatusBadRequest {
		// No router means pathvar has nothing to extract; this exercises
		// the handler's own missing-id guard rather than a live route.
		t.Fatalf("expected 400 for a path var-less request, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDecisionStreamHandlerDisabledWithoutHub(t *testing.T) {
	svcCtx, _ := newTestSvcCtx(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/decisions/stream", nil)
	w := httptest.NewRecorder()
	DecisionStreamHandler(svcCtx)(w, req)

	if w.Code == http.StatusOK {
		t.Fatalf("expected a non-200 status when no decision hub is configured, got %d", w.Code)
	}
}
