package congestion

import (
	"sync"
	"time"
)

// Reno is a classic additive-increase/multiplicative-decrease congestion
// controller with an explicit ca_state machine, the shape of congestion
// control the scheduler's availability predicates (TempUnavailable's
// "Reno still climbing out of loss recovery" rule) are written against.
type Reno struct {
	mu sync.Mutex

	cwnd     uint32
	ssthresh uint32
	inFlight uint32
	state    CAState
	mss      uint32

	// sndUna/highSeq mirror the TCP fields the scheduler's Reno-exit rule
	// inspects: recovery ends once snd_una has passed the sequence number
	// that was snd_nxt at the moment loss was detected.
	sndUna  uint32
	highSeq uint32

	rtt rttEstimator
}

// RenoConfig configures a Reno controller's starting point.
type RenoConfig struct {
	InitialCwnd uint32
	InitialSsth uint32
	MSS         uint32
}

// DefaultRenoConfig mirrors typical TCP defaults: 10-segment initial
// window, unbounded initial ssthresh, 1460-byte MSS.
func DefaultRenoConfig() RenoConfig {
	return RenoConfig{
		InitialCwnd: 10,
		InitialSsth: 1 << 30,
		MSS:         1460,
	}
}

// NewReno creates a Reno controller in the Open state.
func NewReno(cfg RenoConfig) *Reno {
	if cfg.MSS == 0 {
		cfg = DefaultRenoConfig()
	}
	return &Reno{
		cwnd:     cfg.InitialCwnd,
		ssthresh: cfg.InitialSsth,
		mss:      cfg.MSS,
		state:    CAOpen,
		rtt:      newRTTEstimator(),
	}
}

func (r *Reno) Cwnd() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cwnd
}

func (r *Reno) Ssthresh() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ssthresh
}

func (r *Reno) InFlight() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

func (r *Reno) State() CAState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reno) IsReno() bool { return true }

func (r *Reno) SRTTMicros() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rtt.srttMicros()
}

func (r *Reno) MSS() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mss
}

func (r *Reno) SetCwnd(v uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cwnd = v
}

func (r *Reno) SetSsthresh(v uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ssthresh = v
}

// SetInFlight lets a test harness or a real send-path integration report
// the number of outstanding packets; the scheduler only ever reads it.
func (r *Reno) SetInFlight(v uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = v
}

// OnPacketSent keeps no state: the Reno loss-recovery exit test only
// needs high_seq, which OnLoss stamps from the snd_nxt passed to it.
func (r *Reno) OnPacketSent(seq uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq > r.sndUna {
		// snd_nxt advanced; nothing else to track here, high_seq is only
		// stamped when loss is detected.
	}
}

// OnAck advances snd_una with a fresh RTT sample and, once snd_una passes
// high_seq, exits loss recovery back to Open — mirroring tcp_try_undo_recovery.
func (r *Reno) OnAck(ackedUpTo uint32, rtt time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ackedUpTo > r.sndUna {
		r.sndUna = ackedUpTo
	}
	r.rtt.sample(rtt)

	if r.state == CALoss && r.sndUna != 0 && r.sndUna >= r.highSeq {
		r.state = CAOpen
	} else if r.state != CALoss && r.state != CAOpen {
		r.state = CAOpen
	}

	if r.inFlight > 0 {
		r.inFlight--
	}

	if r.state == CAOpen && r.cwnd < r.ssthresh {
		r.cwnd++ // slow start
	} else if r.state == CAOpen {
		// congestion avoidance: one segment per RTT, approximated per-ack
		r.cwnd += (r.mss + r.cwnd - 1) / r.cwnd / r.mss
		if r.cwnd == 0 {
			r.cwnd = 1
		}
	}
}

// OnLoss enters the Loss state (an RTO fired) at the given snd_nxt: ssthresh
// becomes half of cwnd (floor 2) and cwnd is reset to 1.
func (r *Reno) OnLoss(sndNxt uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.highSeq = sndNxt
	r.state = CALoss
	r.ssthresh = clampMin(r.cwnd/2, 2)
	r.cwnd = 1
}
