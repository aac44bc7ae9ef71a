package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aetherflow/mpsched/internal/sched"
)

// errDecisionStreamDisabled is reported when no DecisionHub was wired
// into the ServiceContext.
var errDecisionStreamDisabled = errors.New("adminapi: decision stream is disabled")

// Response is the envelope every handler in this package replies with,
// mirroring the teacher's handler.Response shape.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func success(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func created(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

// schedError maps the internal/sched error taxonomy (spec §7) to an HTTP
// status, the only place in this repository that performs that
// translation.
func schedError(w http.ResponseWriter, err error) {
	status, message := http.StatusInternalServerError, err.Error()
	switch {
	case errors.Is(err, sched.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, sched.ErrExists):
		status = http.StatusConflict
	case errors.Is(err, sched.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sched.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, sched.ErrNoSubflow):
		status = http.StatusNotFound
	}
	writeJSON(w, status, Response{Code: status, Message: message})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Response{Code: http.StatusBadRequest, Message: message})
}

func unauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, Response{Code: http.StatusUnauthorized, Message: message})
}
