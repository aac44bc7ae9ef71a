// Package registry implements the scheduler registry of spec §4.5: a
// named, concurrent, read-mostly table of scheduler vtables with
// register/unregister/find/set_default/get_default/bind_to_connection/
// unbind_from_connection, plus the Go-idiomatic analogue of the original's
// RCU-based deferred reclamation (see readEpoch below).
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/aetherflow/mpsched/internal/authz"
	"github.com/aetherflow/mpsched/internal/sched"
)

// SchedNameMax bounds a scheduler name's length, per spec §6.
const SchedNameMax = 64

// SchedMaxPriv bounds a scheduler's requested per-subflow scratch size.
const SchedMaxPriv = 64

// AutoloadFunc is the side-effecting hook invoked when a name is not found
// (request_module("mptcp_<name>") in the original). It reports whether the
// name became available as a result. Implementations might fetch a plugin,
// contact an operator, or simply return false.
type AutoloadFunc func(name string) bool

// Scheduler is one registered entry: a scheduler's vtable, its owning
// identity, and the refcount bind_to_connection/unbind_from_connection
// maintain.
type Scheduler struct {
	Ops   sched.Ops
	Owner string

	refcount atomic.Int64
}

// Refcount reports the number of connections currently bound to this
// scheduler.
func (s *Scheduler) Refcount() int64 { return s.refcount.Load() }

// readEpoch is the deferred-reclamation read guard: readers bump the
// counter for the generation they observed the list under and release it
// when done; a writer that has just removed an entry blocks until the
// generation it removed-at drains to zero before returning, the
// synchronize_rcu() analogue spec §5 asks for.
type readEpoch struct {
	mu   sync.Mutex
	refs map[uint64]*atomic.Int64
}

func newReadEpoch() *readEpoch {
	return &readEpoch{refs: map[uint64]*atomic.Int64{0: {}}}
}

func (e *readEpoch) counter(gen uint64) *atomic.Int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.refs[gen]
	if !ok {
		c = &atomic.Int64{}
		e.refs[gen] = c
	}
	return c
}

func (e *readEpoch) enter(gen uint64) {
	e.counter(gen).Add(1)
}

func (e *readEpoch) leave(gen uint64) {
	e.counter(gen).Add(-1)
}

// quiesce blocks until no reader that entered at gen remains, then drops
// the now-unreachable generation's counter.
func (e *readEpoch) quiesce(gen uint64) {
	c := e.counter(gen)
	for c.Load() > 0 {
		time.Sleep(100 * time.Microsecond)
	}
	e.mu.Lock()
	delete(e.refs, gen)
	e.mu.Unlock()
}

// Registry is the process-wide, read-mostly scheduler table.
type Registry struct {
	writeMu sync.Mutex
	list    atomic.Pointer[[]*Scheduler]
	gen     atomic.Uint64
	epoch   *readEpoch

	autoload     AutoloadFunc
	limiterMu    sync.Mutex
	limiters     map[string]*rate.Limiter
	autoloadRate rate.Limit
	autoloadBurst int

	metrics *Metrics
}

// New creates an empty registry. autoload may be nil (autoload attempts
// then always fail closed). metrics may be nil to disable instrumentation.
func New(autoload AutoloadFunc, metrics *Metrics) *Registry {
	r := &Registry{
		epoch:         newReadEpoch(),
		autoload:      autoload,
		limiters:      make(map[string]*rate.Limiter),
		autoloadRate:  rate.Every(time.Second),
		autoloadBurst: 1,
		metrics:       metrics,
	}
	empty := []*Scheduler{}
	r.list.Store(&empty)
	return r
}

func (r *Registry) snapshot() []*Scheduler {
	return *r.list.Load()
}

// acquireRead enters the current read epoch and returns a stable snapshot
// of the scheduler list; callers must call releaseRead(gen) exactly once.
func (r *Registry) acquireRead() (gen uint64, list []*Scheduler) {
	gen = r.gen.Load()
	r.epoch.enter(gen)
	return gen, r.snapshot()
}

func (r *Registry) releaseRead(gen uint64) {
	r.epoch.leave(gen)
}

func findByName(list []*Scheduler, name string) (*Scheduler, int) {
	for i, s := range list {
		if s.Ops.Name == name {
			return s, i
		}
	}
	return nil, -1
}

// Register adds ops to the registry tail under its owner identity. Fails
// ErrInvalid if either required vtable function is missing, the name is
// longer than SchedNameMax or PrivSize exceeds SchedMaxPriv; ErrExists if
// the name is already registered.
func (r *Registry) Register(ops sched.Ops, owner string) error {
	if !ops.Valid() || len(ops.Name) > SchedNameMax || ops.PrivSize > SchedMaxPriv {
		return sched.ErrInvalid
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	cur := r.snapshot()
	if _, idx := findByName(cur, ops.Name); idx != -1 {
		return sched.ErrExists
	}

	next := make([]*Scheduler, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, &Scheduler{Ops: ops, Owner: owner})
	r.list.Store(&next)
	r.metrics.setRegisteredCount(len(next))
	return nil
}

// Unregister removes the named entry under the write lock, then quiesces:
// it blocks until every reader that observed the old list has released its
// read guard.
func (r *Registry) Unregister(name string) error {
	r.writeMu.Lock()
	cur := r.snapshot()
	_, idx := findByName(cur, name)
	if idx == -1 {
		r.writeMu.Unlock()
		return sched.ErrNotFound
	}

	next := make([]*Scheduler, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)

	oldGen := r.gen.Load()
	r.list.Store(&next)
	r.gen.Store(oldGen + 1)
	r.metrics.setRegisteredCount(len(next))
	r.writeMu.Unlock()

	r.epoch.quiesce(oldGen)
	return nil
}

// Find looks up name under a read guard; returns ErrNotFound if absent.
func (r *Registry) Find(name string) (*Scheduler, error) {
	gen, list := r.acquireRead()
	defer r.releaseRead(gen)

	s, idx := findByName(list, name)
	r.metrics.recordLookup(name, idx != -1)
	if idx == -1 {
		return nil, sched.ErrNotFound
	}
	return s, nil
}

// allowAutoload rate-limits autoload attempts per name using a token
// bucket, so a flood of lookups for a missing name cannot hammer whatever
// backs the autoload hook.
func (r *Registry) allowAutoload(name string) bool {
	r.limiterMu.Lock()
	lim, ok := r.limiters[name]
	if !ok {
		lim = rate.NewLimiter(r.autoloadRate, r.autoloadBurst)
		r.limiters[name] = lim
	}
	r.limiterMu.Unlock()
	return lim.Allow()
}

// findOrAutoload looks the name up; if absent and privileged is set, rate
// limits and invokes the autoload hook and retries the lookup once.
func (r *Registry) findOrAutoload(name string, privileged bool) (*Scheduler, error) {
	if s, err := r.Find(name); err == nil {
		return s, nil
	}

	if !privileged || r.autoload == nil {
		return nil, sched.ErrNotFound
	}

	if !r.allowAutoload(name) {
		r.metrics.recordAutoload(name, "rate_limited")
		return nil, sched.ErrNotFound
	}

	if !r.autoload(name) {
		r.metrics.recordAutoload(name, "failed")
		return nil, sched.ErrNotFound
	}
	r.metrics.recordAutoload(name, "succeeded")

	return r.Find(name)
}

// SetDefault moves the named scheduler (autoloading it first if necessary)
// to the head of the list, making it the new default. Requires the
// net_admin capability.
func (r *Registry) SetDefault(name string, claims *authz.Claims) error {
	if !authz.HasNetAdmin(claims) {
		return sched.ErrPermissionDenied
	}

	if _, err := r.findOrAutoload(name, true); err != nil {
		return sched.ErrNotFound
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	cur := r.snapshot()
	_, idx := findByName(cur, name)
	if idx == -1 {
		// Raced with a concurrent unregister between findOrAutoload and
		// taking writeMu; report NotFound rather than inventing state.
		return sched.ErrNotFound
	}

	next := make([]*Scheduler, 0, len(cur))
	next = append(next, cur[idx])
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	r.list.Store(&next)
	return nil
}

// GetDefault returns the head entry's name. Precondition: the registry is
// non-empty; calling this on an empty registry is a programming error and
// panics, per spec §4.5.
func (r *Registry) GetDefault() string {
	gen, list := r.acquireRead()
	defer r.releaseRead(gen)

	if len(list) == 0 {
		panic("registry: GetDefault called on an empty registry")
	}
	return list[0].Ops.Name
}

// BindToConnection resolves a scheduler for m: an explicit per-connection
// name (if set) via findOrAutoload, otherwise the first entry whose owner
// reference can be acquired — in practice, the current head. Either path
// stores the vtable on m and increments the chosen scheduler's refcount.
func (r *Registry) BindToConnection(m *sched.Meta, explicitName string, claims *authz.Claims) (*Scheduler, error) {
	if explicitName != "" {
		s, err := r.findOrAutoload(explicitName, authz.HasNetAdmin(claims))
		if err == nil {
			s.refcount.Add(1)
			r.metrics.recordBind(s.Ops.Name, 1)
			m.Ops = &s.Ops
			return s, nil
		}
	}

	gen, list := r.acquireRead()
	defer r.releaseRead(gen)

	if len(list) == 0 {
		return nil, sched.ErrNotFound
	}
	s := list[0]
	s.refcount.Add(1)
	r.metrics.recordBind(s.Ops.Name, 1)
	m.Ops = &s.Ops
	return s, nil
}

// UnbindFromConnection drops the reference BindToConnection took.
func (r *Registry) UnbindFromConnection(s *Scheduler) {
	if s == nil {
		return
	}
	s.refcount.Add(-1)
	r.metrics.recordBind(s.Ops.Name, -1)
}
