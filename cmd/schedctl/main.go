// Command schedctl is the control-plane binary a multipath-capable gateway
// process embeds: it owns the process-wide scheduler registry, exposes the
// per-connection configuration surface of spec §6 over HTTP, optionally
// propagates the cluster-wide default scheduler choice over etcd, and
// streams scheduling decisions over a websocket for observability. None of
// it sits on the hot send path.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/service"
	"github.com/zeromicro/go-zero/rest"
	"go.uber.org/zap"

	"github.com/aetherflow/mpsched/internal/adminapi"
	"github.com/aetherflow/mpsched/internal/authz"
	"github.com/aetherflow/mpsched/internal/clusterconfig"
	"github.com/aetherflow/mpsched/internal/config"
	"github.com/aetherflow/mpsched/internal/prefstore"
	"github.com/aetherflow/mpsched/internal/sched"
	"github.com/aetherflow/mpsched/internal/sched/registry"
	"github.com/aetherflow/mpsched/internal/telemetry"
)

var (
	configFile = flag.String("f", "configs/schedctl.yaml", "config file path")
	version    = "0.1.0"
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logger, err := telemetry.NewLogger(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting schedctl", zap.String("version", version))

	tracerProvider, err := telemetry.InitTracing(cfg.Tracing, logger)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}
	defer tracerProvider.Shutdown(context.Background())

	reg := registry.New(autoloadHook(logger), registry.NewMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem))
	if err := reg.Register(defaultOps(), "schedctl"); err != nil {
		logger.Fatal("failed to register the built-in default scheduler", zap.Error(err))
	}
	if name := cfg.Scheduler.DefaultSchedulerName; name != "" && name != defaultOps().Name {
		adminClaims := &authz.Claims{Subject: "schedctl-bootstrap", Capabilities: []string{authz.CapabilityNetAdmin}}
		if err := reg.SetDefault(name, adminClaims); err != nil {
			logger.Warn("configured default scheduler not found at startup, keeping built-in default",
				zap.String("name", name), zap.Error(err))
		}
	}

	store, err := newPrefStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build preference store", zap.Error(err))
	}

	authMgr := authz.NewManager(cfg.Auth.Secret, cfg.Auth.Expiration, cfg.Auth.Issuer)
	hub := adminapi.NewDecisionHub(logger)

	var watcher *clusterconfig.Watcher
	if len(cfg.Etcd.Endpoints) > 0 {
		watcher, err = clusterconfig.NewWatcher(&clusterconfig.Config{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: cfg.Etcd.DialTimeout,
			Username:    cfg.Etcd.Username,
			Password:    cfg.Etcd.Password,
		}, reg, logger)
		if err != nil {
			logger.Fatal("failed to build cluster config watcher", zap.Error(err))
		}
		if err := watcher.Start(); err != nil {
			logger.Fatal("failed to start cluster config watcher", zap.Error(err))
		}
		defer watcher.Close()
	}

	svcCtx := adminapi.NewServiceContext(reg, store, authMgr, hub, watcher, logger)

	server, err := rest.NewServer(rest.RestConf{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		ServiceConf: service.ServiceConf{Name: "schedctl"},
	})
	if err != nil {
		logger.Fatal("failed to create admin HTTP server", zap.Error(err))
	}
	defer server.Stop()

	adminapi.RegisterHandlers(server, svcCtx)

	go func() {
		logger.Info("admin HTTP surface listening",
			zap.String("host", cfg.Server.Host), zap.Int("port", cfg.Server.Port))
		server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	logger.Info("schedctl shutdown complete")
}

// defaultOps wraps the package's own GetAvailableSubflow/NextSegment as
// the registry's always-present built-in scheduler, named to match
// spec §6's DEFAULT_SCHED_NAME convention.
func defaultOps() sched.Ops {
	return sched.Ops{
		Name: "lowest-rtt",
		GetSubflow: func(m *sched.Meta, k *sched.Segment, zeroWndTest bool) *sched.Subflow {
			return sched.GetAvailableSubflow(context.Background(), m, k, zeroWndTest)
		},
		NextSegment: func(m *sched.Meta, q sched.Queues) (*sched.Segment, *sched.Subflow, uint32, int) {
			return sched.NextSegment(context.Background(), m, q, time.Now)
		},
	}
}

// autoloadHook is the side-effecting hook invoked when a scheduler name
// is looked up but not registered. schedctl ships no plugin loader, so it
// always reports failure while logging the attempt for operator visibility.
func autoloadHook(logger *zap.Logger) registry.AutoloadFunc {
	return func(name string) bool {
		logger.Info("autoload requested for unknown scheduler, no plugin loader configured",
			zap.String("name", name))
		return false
	}
}

func newPrefStore(cfg *config.Config, logger *zap.Logger) (prefstore.Store, error) {
	if cfg.PrefStore.Type != "redis" {
		return prefstore.NewMemoryStore(), nil
	}

	client := newRedisClient(cfg.PrefStore.Redis)
	return prefstore.NewRedisStore(&prefstore.RedisStoreConfig{Client: client, Logger: logger})
}
