// Package clusterconfig propagates the administratively-chosen default
// scheduler name across a fleet of gateway processes. Each process owns an
// independent in-memory registry (internal/sched/registry); this package
// watches a single etcd key and calls registry.SetDefault on every node
// when the key changes, so the node that handled the privileged HTTP
// request does not need to reach every other node directly.
package clusterconfig

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/aetherflow/mpsched/internal/authz"
	"github.com/aetherflow/mpsched/internal/sched/registry"
)

// DefaultSchedulerKey is the etcd key this package watches.
const DefaultSchedulerKey = "/mpsched/default-scheduler"

// Config configures the etcd connection backing the watcher.
type Config struct {
	Endpoints   []string
	DialTimeout time.Duration
	Username    string
	Password    string
}

// Watcher applies etcd-propagated default-scheduler changes to a local
// registry. It carries the system-level capability itself: the change was
// already authorized by whichever node wrote the key over the privileged
// HTTP endpoint, so propagation does not re-check the caller's claims.
type Watcher struct {
	client   *clientv3.Client
	registry *registry.Registry
	logger   *zap.Logger
	claims   *authz.Claims

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates an etcd-backed watcher for reg. logger may be nil
// (defaults to a no-op logger).
func NewWatcher(cfg *Config, reg *registry.Registry, logger *zap.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("clusterconfig: config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	}
	if cfg.Username != "" {
		clientCfg.Username = cfg.Username
		clientCfg.Password = cfg.Password
	}

	client, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("clusterconfig: failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		client:   client,
		registry: reg,
		logger:   logger,
		claims: &authz.Claims{
			Subject:      "clusterconfig",
			Capabilities: []string{authz.CapabilityNetAdmin},
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start applies the key's current value (if set) and then watches for
// subsequent changes in the background until Close is called.
func (w *Watcher) Start() error {
	resp, err := w.client.Get(w.ctx, DefaultSchedulerKey)
	if err != nil {
		return fmt.Errorf("clusterconfig: initial get failed: %w", err)
	}
	if len(resp.Kvs) > 0 {
		w.apply(string(resp.Kvs[0].Value))
	}

	go w.watch()
	return nil
}

func (w *Watcher) watch() {
	watchCh := w.client.Watch(w.ctx, DefaultSchedulerKey)
	w.logger.Info("watching cluster default scheduler key", zap.String("key", DefaultSchedulerKey))

	for {
		select {
		case <-w.ctx.Done():
			return
		case resp, ok := <-watchCh:
			if !ok {
				return
			}
			if resp.Err() != nil {
				w.logger.Error("cluster default scheduler watch error", zap.Error(resp.Err()))
				continue
			}
			for _, ev := range resp.Events {
				if ev.Type == clientv3.EventTypePut {
					w.apply(string(ev.Kv.Value))
				}
			}
		}
	}
}

func (w *Watcher) apply(name string) {
	if name == "" {
		return
	}
	if err := w.registry.SetDefault(name, w.claims); err != nil {
		w.logger.Error("failed to apply cluster default scheduler",
			zap.String("name", name), zap.Error(err))
		return
	}
	w.logger.Info("applied cluster default scheduler", zap.String("name", name))
}

// PublishDefault writes name as the cluster-wide default, to be picked up
// by every node's Watcher including this one's own watch loop. The caller
// is responsible for having already authorized the change.
func (w *Watcher) PublishDefault(ctx context.Context, name string) error {
	_, err := w.client.Put(ctx, DefaultSchedulerKey, name)
	if err != nil {
		return fmt.Errorf("clusterconfig: failed to publish default scheduler: %w", err)
	}
	return nil
}

// Close releases the watcher's etcd client and background goroutine.
func (w *Watcher) Close() error {
	w.cancel()
	return w.client.Close()
}
