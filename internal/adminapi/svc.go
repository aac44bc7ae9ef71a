// Package adminapi exposes the per-connection/administrative scheduler
// operations of spec §6 as an HTTP surface built on go-zero's rest
// package, adapted from the teacher's internal/gateway/handler +
// internal/gateway/svc layering, plus a websocket decision stream for
// live observability (wsstream.go).
package adminapi

import (
	"go.uber.org/zap"

	"github.com/aetherflow/mpsched/internal/authz"
	"github.com/aetherflow/mpsched/internal/clusterconfig"
	"github.com/aetherflow/mpsched/internal/prefstore"
	"github.com/aetherflow/mpsched/internal/sched/registry"
)

// ServiceContext bundles the collaborators every handler needs, mirroring
// the teacher's svc.ServiceContext.
type ServiceContext struct {
	Registry  *registry.Registry
	PrefStore prefstore.Store
	Auth      *authz.Manager
	Hub       *DecisionHub
	Cluster   *clusterconfig.Watcher
	Logger    *zap.Logger
}

// NewServiceContext wires the collaborators for the admin HTTP surface.
// logger, hub and cluster may all be nil; a nil logger defaults to a no-op
// logger, a nil hub disables decision publishing, and a nil cluster means
// set_default only takes effect on this process.
func NewServiceContext(reg *registry.Registry, store prefstore.Store, auth *authz.Manager, hub *DecisionHub, cluster *clusterconfig.Watcher, logger *zap.Logger) *ServiceContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceContext{
		Registry:  reg,
		PrefStore: store,
		Auth:      auth,
		Hub:       hub,
		Cluster:   cluster,
		Logger:    logger,
	}
}
