// Package sched implements the multipath send scheduler: the availability
// predicates, the shortest-RTT subflow selector, the receive-buffer-driven
// opportunistic reinjection optimiser, and the per-segment size/limit
// computation that together decide, on every send opportunity, which
// subflow carries the next chunk of data and how much of it.
//
// The congestion controller behind each subflow, the meta-level queues, and
// subflow socket lifecycle are all out of scope here and consumed only
// through the contracts in contract.go and internal/congestion.Controller.
// This package performs no I/O and takes no locks of its own: every
// exported function runs to completion under the caller's connection lock.
package sched

import "github.com/aetherflow/mpsched/internal/congestion"

// CAState re-exports congestion.CAState so callers of this package never
// need to import internal/congestion just to compare against CALoss.
type CAState = congestion.CAState

const (
	CAOpen     = congestion.CAOpen
	CADisorder = congestion.CADisorder
	CACWR      = congestion.CACWR
	CARecovery = congestion.CARecovery
	CALoss     = congestion.CALoss
)

// MaxPathIndex bounds path_index to keep path_mask inside a 64-bit word.
const MaxPathIndex = 63

// Subflow is one parallel transport leg of a multipath connection. Every
// congestion-state field is read from (and, for Cwnd/Ssthresh/LastRbufOpti,
// written by) the scheduler; the subflow's own socket lifecycle, handshake,
// and retransmission machinery live elsewhere.
type Subflow struct {
	PathIndex uint8

	Controller congestion.Controller

	SndUna      uint32
	SndNxt      uint32
	HighSeq     uint32
	WriteSeq    uint32
	WndEnd      uint32
	GSOMaxSegs  uint32
	LastEndDataSeq uint32

	FullyEstablished bool
	PreEstablished   bool
	SecondPacket     bool
	PF               bool // "potentially failed"
	LowPrio          bool
	RcvLowPrio       bool

	// Sendable reports whether the subflow's transport state machine will
	// currently accept data at all (the "not in a sendable connection
	// state" leg of def_unavailable). A freshly constructed Subflow
	// defaults this false; callers must set it once the handshake
	// reaches an established state.
	Sendable bool

	// LastRbufOpti is the per-subflow scheduler scratch the default
	// scheduler keeps (spec's priv_size region): the last time this
	// subflow's congestion state was penalised as a slow co-carrier.
	LastRbufOpti int64 // unix nanoseconds; monotonically non-decreasing
}

// PathMask returns the single-bit mask identifying this subflow.
func (s *Subflow) PathMask() uint64 {
	return uint64(1) << s.PathIndex
}

// InFlight is the number of packets sent but not yet acknowledged, derived
// from the subflow's congestion controller.
func (s *Subflow) InFlight() uint32 {
	return s.Controller.InFlight()
}

func (s *Subflow) Cwnd() uint32     { return s.Controller.Cwnd() }
func (s *Subflow) Ssthresh() uint32 { return s.Controller.Ssthresh() }
func (s *Subflow) SRTTMicros() uint32 { return s.Controller.SRTTMicros() }
func (s *Subflow) MSSNow() uint32   { return s.Controller.MSS() }
func (s *Subflow) CAState() CAState { return s.Controller.State() }
func (s *Subflow) IsReno() bool     { return s.Controller.IsReno() }

// Segment is the meta-level unit of data the scheduler places on a subflow.
type Segment struct {
	Seq       uint32
	EndSeq    uint32
	PathMask  uint64
	Len       uint32
	IsDataFin bool
}

// Meta is the application-visible multipath connection: the owner of its
// subflows and its queues. The scheduler never mutates Subflows, Queues or
// DfinPathIndex itself; it only reads them and mutates individual
// subflows' congestion state as described in the package doc.
type Meta struct {
	Subflows []*Subflow
	Queues   Queues

	RcvShutdown bool

	// DfinPathIndex is the path that carried the connection-close marker,
	// if any have been sent. 0 means "none yet" (path_index is always >= 1).
	DfinPathIndex uint8

	// Ops is the scheduler vtable currently bound to this connection (see
	// registry.BindToConnection). nil falls back to the package-default
	// GetAvailableSubflow/NextSegment implemented directly in this package.
	Ops *Ops
}

// findSubflow returns the subflow with the given path_index, or nil.
func (m *Meta) findSubflow(pathIndex uint8) *Subflow {
	for _, s := range m.Subflows {
		if s.PathIndex == pathIndex {
			return s
		}
	}
	return nil
}
