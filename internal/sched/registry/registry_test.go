package registry

import (
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/aetherflow/mpsched/internal/authz"
	"github.com/aetherflow/mpsched/internal/sched"
)

func dummyOps(name string) sched.Ops {
	return sched.Ops{
		Name:        name,
		GetSubflow:  func(m *sched.Meta, k *sched.Segment, z bool) *sched.Subflow { return nil },
		NextSegment: func(m *sched.Meta, q sched.Queues) (*sched.Segment, *sched.Subflow, uint32, int) { return nil, nil, 0, 0 },
	}
}

var adminClaims = &authz.Claims{Subject: "test-admin", Capabilities: []string{authz.CapabilityNetAdmin}}

func TestRegisterThenDuplicateFails(t *testing.T) {
	r := New(nil, nil)

	if err := r.Register(dummyOps("x"), "test"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(dummyOps("x"), "test"); err != sched.ErrExists {
		t.Fatalf("expected ErrExists on duplicate register, got %v", err)
	}
}

func TestRegisterMissingHookIsInvalid(t *testing.T) {
	r := New(nil, nil)
	ops := sched.Ops{Name: "broken", GetSubflow: func(*sched.Meta, *sched.Segment, bool) *sched.Subflow { return nil }}

	if err := r.Register(ops, "test"); err != sched.ErrInvalid {
		t.Fatalf("expected ErrInvalid for missing NextSegment, got %v", err)
	}
}

func TestSetDefaultMovesToHead(t *testing.T) {
	r := New(nil, nil)
	if err := r.Register(dummyOps("a"), "test"); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(dummyOps("x"), "test"); err != nil {
		t.Fatal(err)
	}

	if r.GetDefault() != "a" {
		t.Fatalf("expected initial default 'a', got %s", r.GetDefault())
	}

	if err := r.SetDefault("x", adminClaims); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if got := r.GetDefault(); got != "x" {
		t.Fatalf("expected default 'x' after SetDefault, got %s", got)
	}
}

func TestSetDefaultRequiresCapability(t *testing.T) {
	r := New(nil, nil)
	if err := r.Register(dummyOps("x"), "test"); err != nil {
		t.Fatal(err)
	}

	err := r.SetDefault("x", &authz.Claims{Subject: "nobody"})
	if err != sched.ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

// Scenario 6 from the scheduler's testable properties: register, duplicate
// register fails EXISTS, set_default moves to head, unregister removes and
// waits for in-flight readers.
func TestRegistryScenarioSix(t *testing.T) {
	r := New(nil, nil)

	if err := r.Register(dummyOps("x"), "test"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(dummyOps("x"), "test"); err != sched.ErrExists {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if err := r.SetDefault("x", adminClaims); err != nil {
		t.Fatalf("set_default: %v", err)
	}
	if r.GetDefault() != "x" {
		t.Fatalf("expected default x, got %s", r.GetDefault())
	}
	if err := r.Unregister("x"); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if _, err := r.Find("x"); err != sched.ErrNotFound {
		t.Fatalf("expected ErrNotFound after unregister, got %v", err)
	}
}

func TestUnregisterUnknownIsNotFound(t *testing.T) {
	r := New(nil, nil)
	if err := r.Unregister("ghost"); err != sched.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentFindDuringRegisterUnregister(t *testing.T) {
	r := New(nil, nil)
	if err := r.Register(dummyOps("stable"), "test"); err != nil {
		t.Fatal(err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			name := "churn"
			_ = r.Register(dummyOps(name), "test")
			_ = r.Unregister(name)
		}
	}()

	for i := 0; i < 200; i++ {
		s, err := r.Find("stable")
		if err != nil {
			t.Fatalf("Find(stable) failed mid-churn: %v", err)
		}
		if s.Ops.Name != "stable" {
			t.Fatalf("expected stable, got %s", s.Ops.Name)
		}
	}

	close(stop)
	wg.Wait()
}

func TestAutoloadRateLimiting(t *testing.T) {
	attempts := 0
	var mu sync.Mutex
	autoload := func(name string) bool {
		mu.Lock()
		attempts++
		mu.Unlock()
		return false
	}

	r := New(autoload, nil)
	r.autoloadRate = rate.Every(time.Hour)

	for i := 0; i < 10; i++ {
		_, _ = r.findOrAutoload("missing", true)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts >= 10 {
		t.Errorf("expected autoload attempts to be rate-limited, got %d calls for 10 lookups", attempts)
	}
}
