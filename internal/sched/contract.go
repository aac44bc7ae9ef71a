package sched

// Queues is the meta-level queue contract the scheduler consumes: head-peek
// operations on the write/retransmit/reinject queues, the subflow-level
// "how many packets may cwnd still carry" primitive, current MSS, the rwnd
// test, and the chrono-state setters. Implementations are supplied by the
// caller (the real queue implementation lives outside this package, per
// spec's Non-goals); tests supply a fake.
type Queues interface {
	// SendHead returns the head of the meta write queue, or nil if empty.
	SendHead() *Segment
	// RetransmitHead returns the head of the meta retransmit queue, or nil.
	RetransmitHead() *Segment
	// ReinjectPeek returns the head of the reinject queue without
	// dequeuing it, or nil if empty.
	ReinjectPeek() *Segment

	// SndWndTest reports whether the meta-level send window currently
	// admits sending K.
	SndWndTest(k *Segment) bool

	// CwndTest is the externally-provided "how many packets may this
	// cwnd still carry given what is already queued" primitive. Always
	// non-negative.
	CwndTest(s *Subflow, k *Segment) uint32

	// Fallback reports whether the connection has fallen back to
	// single-path semantics (infinite_mapping_snd || send_infinite_mapping).
	Fallback() bool

	// SndBufLimited and Wspace/MinWspace back step 3 of the segment
	// chooser: whether the meta socket is currently flagged
	// send-buffer-limited, and the current/minimum write-space figures
	// that flag is compared against.
	SndBufLimited() bool
	Wspace() uint32
	MinWspace() uint32

	// SetChronoBusy, SetChronoRwndLimited and SetChronoSndbufLimited mark
	// which resource is currently limiting send progress. They are opaque
	// markers to the scheduler: starting one implicitly stops the others,
	// a detail left to the implementation.
	SetChronoBusy()
	SetChronoRwndLimited()
	SetChronoSndbufLimited()
}

// Ops is the scheduler vtable of spec §4.5 / §6: the bounded, well-typed
// capability set a pluggable scheduler implementation exposes, modeled as a
// small struct of required/optional functions rather than as an interface
// hierarchy (per spec §9's "not as open inheritance" design note).
type Ops struct {
	// Name identifies this scheduler in the registry. Bounded length,
	// enforced by the registry (registry.SchedNameMax).
	Name string

	// GetSubflow selects a subflow to carry k (nil for "no particular
	// segment yet"), honoring zeroWndTest. Required.
	GetSubflow func(m *Meta, k *Segment, zeroWndTest bool) *Subflow

	// NextSegment picks the next segment to send. Required.
	NextSegment func(m *Meta, q Queues) (seg *Segment, carrier *Subflow, limit uint32, reinjectTag int)

	// Init, if non-nil, is invoked once per subflow before its scheduler
	// scratch region is first used, to zero-initialize it.
	Init func(s *Subflow)

	// PrivSize is the number of scratch bytes this scheduler needs per
	// subflow (the default scheduler needs one timestamp's worth, for
	// LastRbufOpti). Bounded by SchedMaxPriv.
	PrivSize int
}

// Valid reports whether both required vtable entries are present, the
// precondition register() checks before accepting an Ops (spec §4.5:
// "Fails INVALID if either required function pointer is missing").
func (o Ops) Valid() bool {
	return o.GetSubflow != nil && o.NextSegment != nil
}
