package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/rest/pathvar"
	"go.uber.org/zap"

	"github.com/aetherflow/mpsched/internal/authz"
	"github.com/aetherflow/mpsched/internal/sched"
	"github.com/aetherflow/mpsched/internal/sched/registry"
)

// registerRequest registers a named alias for the package's own default
// scheduler implementation (internal/sched.GetAvailableSubflow /
// internal/sched.NextSegment). Real scheduler code is a Go vtable, not an
// HTTP payload, so this endpoint is test-only scaffolding: it lets an
// operator or an integration test exercise register/find/set_default
// against a second distinct name without writing Go code.
type registerRequest struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// RegisterSchedulerHandler implements POST /v1/schedulers.
func RegisterSchedulerHandler(svcCtx *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		if req.Name == "" || len(req.Name) > registry.SchedNameMax {
			badRequest(w, "name must be non-empty and at most SchedNameMax bytes")
			return
		}

		ops := sched.Ops{
			Name: req.Name,
			GetSubflow: func(m *sched.Meta, k *sched.Segment, zeroWndTest bool) *sched.Subflow {
				return sched.GetAvailableSubflow(context.Background(), m, k, zeroWndTest)
			},
			NextSegment: func(m *sched.Meta, q sched.Queues) (*sched.Segment, *sched.Subflow, uint32, int) {
				return sched.NextSegment(context.Background(), m, q, time.Now)
			},
		}

		if err := svcCtx.Registry.Register(ops, req.Owner); err != nil {
			schedError(w, err)
			return
		}
		created(w, registerRequest{Name: req.Name, Owner: req.Owner})
	}
}

// schedulerView is the wire representation of a registered scheduler.
type schedulerView struct {
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Refcount int64  `json:"refcount"`
}

// ListSchedulersHandler implements GET /v1/schedulers. The registry has no
// enumeration primitive of its own (spec §4.5 names only register/
// unregister/find/set_default/get_default), so this reports the current
// default plus whichever names the caller asks about via repeated ?name=
// query parameters.
func ListSchedulersHandler(svcCtx *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := r.URL.Query()["name"]

		views := make([]schedulerView, 0, len(names)+1)
		seen := make(map[string]bool)

		addByName := func(name string) {
			if name == "" || seen[name] {
				return
			}
			seen[name] = true
			s, err := svcCtx.Registry.Find(name)
			if err != nil {
				return
			}
			views = append(views, schedulerView{Name: name, Owner: s.Owner, Refcount: s.Refcount()})
		}

		addByName(defaultSchedulerNameOrEmpty(svcCtx))
		for _, n := range names {
			addByName(n)
		}

		success(w, views)
	}
}

// defaultSchedulerNameOrEmpty wraps GetDefault, which panics on an empty
// registry per spec §4.5, into a safe "" result for read-only handlers.
func defaultSchedulerNameOrEmpty(svcCtx *ServiceContext) (name string) {
	defer func() {
		if recover() != nil {
			name = ""
		}
	}()
	return svcCtx.Registry.GetDefault()
}

// GetDefaultSchedulerHandler implements GET /v1/schedulers/default.
func GetDefaultSchedulerHandler(svcCtx *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := defaultSchedulerNameOrEmpty(svcCtx)
		if name == "" {
			schedError(w, sched.ErrNotFound)
			return
		}
		success(w, map[string]string{"name": name})
	}
}

type setDefaultRequest struct {
	Name string `json:"name"`
}

// claimsFromRequest extracts and verifies the bearer token carrying the
// capability claims spec §6 requires for set_default and
// bind_to_connection's explicit-name path.
func claimsFromRequest(svcCtx *ServiceContext, r *http.Request) (*authz.Claims, error) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return svcCtx.Auth.VerifyToken(token)
}

// SetDefaultSchedulerHandler implements PUT /v1/schedulers/default.
func SetDefaultSchedulerHandler(svcCtx *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := claimsFromRequest(svcCtx, r)
		if err != nil {
			unauthorized(w, "missing or invalid bearer token")
			return
		}

		var req setDefaultRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}

		if err := svcCtx.Registry.SetDefault(req.Name, claims); err != nil {
			schedError(w, err)
			return
		}

		if svcCtx.Cluster != nil {
			if err := svcCtx.Cluster.PublishDefault(r.Context(), req.Name); err != nil {
				svcCtx.Logger.Warn("failed to propagate default scheduler cluster-wide",
					zap.String("name", req.Name), zap.Error(err))
			}
		}

		success(w, map[string]string{"name": req.Name})
	}
}

type bindRequest struct {
	SchedulerName string `json:"scheduler_name"`
}

// BindConnectionSchedulerHandler implements
// PUT /v1/connections/{id}/scheduler, the explicit-name path of
// bind_to_connection, recording the preference in the prefstore so it
// survives a subflow reconnect for the same connection.
func BindConnectionSchedulerHandler(svcCtx *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := claimsFromRequest(svcCtx, r)
		if err != nil {
			unauthorized(w, "missing or invalid bearer token")
			return
		}
		if !authz.HasNetAdmin(claims) {
			schedError(w, sched.ErrPermissionDenied)
			return
		}

		connID := pathvar.Vars(r)["id"]
		if connID == "" {
			badRequest(w, "missing connection id")
			return
		}

		var req bindRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}

		if _, err := svcCtx.Registry.Find(req.SchedulerName); err != nil {
			schedError(w, err)
			return
		}

		if err := svcCtx.PrefStore.Set(r.Context(), connID, req.SchedulerName); err != nil {
			writeJSON(w, http.StatusInternalServerError, Response{Code: http.StatusInternalServerError, Message: err.Error()})
			return
		}
		success(w, map[string]string{"connection_id": connID, "scheduler_name": req.SchedulerName})
	}
}

// UnbindConnectionSchedulerHandler implements
// DELETE /v1/connections/{id}/scheduler, clearing a previously bound
// per-connection preference. The connection falls back to the head-of-list
// default the next time it is (re)constructed.
func UnbindConnectionSchedulerHandler(svcCtx *ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := claimsFromRequest(svcCtx, r)
		if err != nil {
			unauthorized(w, "missing or invalid bearer token")
			return
		}
		if !authz.HasNetAdmin(claims) {
			schedError(w, sched.ErrPermissionDenied)
			return
		}

		connID := pathvar.Vars(r)["id"]
		if connID == "" {
			badRequest(w, "missing connection id")
			return
		}

		if err := svcCtx.PrefStore.Delete(r.Context(), connID); err != nil {
			writeJSON(w, http.StatusInternalServerError, Response{Code: http.StatusInternalServerError, Message: err.Error()})
			return
		}
		success(w, map[string]string{"connection_id": connID})
	}
}
