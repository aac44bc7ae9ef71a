// Package congestion defines the carrier contract that the scheduler reads
// from and writes into, and ships two reference implementations of it.
//
// The congestion controller itself is explicitly out of scope for the
// scheduler (see the package-level doc of internal/sched): the scheduler
// only ever reads cwnd/ssthresh/in-flight/state/srtt/mss from a Controller
// and only ever writes back cwnd, ssthresh and a penalisation timestamp.
package congestion

import "time"

// CAState mirrors a subflow's congestion-avoidance state machine. Only
// Loss and Open are inspected by the scheduler (see sched.TempUnavailable
// and sched.RcvBufOpt); Disorder, CWR and Recovery exist for a realistic
// controller but are opaque to the scheduler.
type CAState int

const (
	CAOpen CAState = iota
	CADisorder
	CACWR
	CARecovery
	CALoss
)

func (s CAState) String() string {
	switch s {
	case CAOpen:
		return "open"
	case CADisorder:
		return "disorder"
	case CACWR:
		return "cwr"
	case CARecovery:
		return "recovery"
	case CALoss:
		return "loss"
	default:
		return "unknown"
	}
}

// Controller is the carrier contract a subflow's congestion controller
// must expose. Implementations are free to run any algorithm; the
// scheduler neither knows nor cares which one backs a given subflow.
type Controller interface {
	// Cwnd is the congestion window, in packets.
	Cwnd() uint32
	// Ssthresh is the slow-start threshold, in packets.
	Ssthresh() uint32
	// InFlight is the number of packets sent but not yet acknowledged.
	InFlight() uint32
	// State is the current congestion-avoidance state.
	State() CAState
	// IsReno reports whether loss-recovery exit requires snd_una==high_seq
	// (see sched.TempUnavailable); non-Reno controllers (SACK-based, BBR)
	// report false.
	IsReno() bool
	// SRTTMicros is the smoothed round-trip time, in microseconds.
	SRTTMicros() uint32
	// MSS is the current maximum segment size for this subflow, in bytes.
	MSS() uint32

	// SetCwnd and SetSsthresh are the only mutations the scheduler performs
	// on a congestion controller (receive-buffer optimiser penalisation,
	// §4.3 of the scheduler spec).
	SetCwnd(uint32)
	SetSsthresh(uint32)
}

// clampMin returns the larger of v and min, used for the cwnd/ssthresh
// floors the receive-buffer optimiser relies on (cwnd >= 1, ssthresh >= 2).
func clampMin(v, min uint32) uint32 {
	if v < min {
		return min
	}
	return v
}

// usecsToDuration converts a microsecond count to a time.Duration, the unit
// the scheduler's rate-limit check (last_rbuf_opti vs srtt_us/8) operates in.
func usecsToDuration(us uint32) time.Duration {
	return time.Duration(us) * time.Microsecond
}
