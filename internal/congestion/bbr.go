// Based on Google's BBR algorithm: https://queue.acm.org/detail.cfm?id=3022184
package congestion

import (
	"sync"
	"time"
)

// bbrState is BBR's own internal pacing/gain state machine. It is distinct
// from CAState, which is the much coarser view the scheduler inspects
// (BBR reports CAOpen in every bbrState except right after an explicit
// loss notification).
type bbrState int

const (
	bbrStartup bbrState = iota
	bbrDrain
	bbrProbeBW
	bbrProbeRTT
)

func (s bbrState) String() string {
	switch s {
	case bbrStartup:
		return "STARTUP"
	case bbrDrain:
		return "DRAIN"
	case bbrProbeBW:
		return "PROBE_BW"
	case bbrProbeRTT:
		return "PROBE_RTT"
	default:
		return "UNKNOWN"
	}
}

const (
	startupGain    = 2.77
	drainGain      = 1.0 / startupGain
	probeBWCycleLen = 8
	probeRTTDuration = 200 * time.Millisecond
	probeRTTInterval = 10 * time.Second
	minPipeCwndPkts  = 4
	fullBandwidthThreshold = 1.25
)

var probeBWGainCycle = []float64{1.25, 0.75, 1.0, 1.0, 1.0, 1.0, 1.0, 1.0}

type bandwidthSample struct {
	bandwidth uint64
	rtt       time.Duration
	timestamp time.Time
}

// BBR is a rate-based congestion controller adapted to the scheduler's
// carrier contract. It reports ca_state as CAOpen except immediately
// after OnPacketLost, and derives ssthresh from the bandwidth-delay
// product rather than tracking one directly, since BBR itself has no
// notion of a slow-start threshold.
type BBR struct {
	mu sync.Mutex

	state        bbrState
	stateEntryAt time.Time
	caState      CAState

	btlBw       uint64
	rtProp      time.Duration
	rtPropStamp time.Time

	pacingRate uint64
	sendWindow uint32 // bytes
	pacingGain float64
	cwndGain   float64

	cycleIndex int
	cycleStamp time.Time

	bandwidthSamples []bandwidthSample
	lastSampleTime   time.Time

	fullBandwidthReached bool
	fullBandwidthCount   int
	lastBandwidthReached uint64

	deliveredBytes uint64

	mss      uint32
	inFlight uint32

	minRTT       time.Duration
	maxBandwidth uint64
}

// Config configures a BBR controller's bandwidth/RTT priors.
type Config struct {
	InitialCwnd  uint32
	MinRTT       time.Duration
	MaxBandwidth uint64
	MSS          uint32
}

// DefaultConfig returns default BBR configuration.
func DefaultConfig() *Config {
	return &Config{
		InitialCwnd:  10,
		MinRTT:       10 * time.Millisecond,
		MaxBandwidth: 100 * 1024 * 1024,
		MSS:          1460,
	}
}

// NewBBR creates a new BBR congestion controller.
func NewBBR(config *Config) *BBR {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MSS == 0 {
		config.MSS = 1460
	}

	now := time.Now()

	b := &BBR{
		state:            bbrStartup,
		stateEntryAt:     now,
		caState:          CAOpen,
		rtProp:           config.MinRTT,
		rtPropStamp:      now,
		pacingGain:       startupGain,
		cwndGain:         startupGain,
		cycleStamp:       now,
		bandwidthSamples: make([]bandwidthSample, 0, 10),
		lastSampleTime:   now,
		minRTT:           config.MinRTT,
		maxBandwidth:     config.MaxBandwidth,
		mss:              config.MSS,
	}

	b.sendWindow = config.InitialCwnd * b.mss
	b.pacingRate = uint64(float64(b.sendWindow) / b.rtProp.Seconds())

	return b
}

// OnPacketSent should be called when a packet is sent.
func (b *BBR) OnPacketSent(size uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliveredBytes += uint64(size)
	b.inFlight++
}

// OnPacketAcked should be called when a packet is acknowledged.
func (b *BBR) OnPacketAcked(size uint32, rtt time.Duration, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inFlight > 0 {
		b.inFlight--
	}
	b.caState = CAOpen

	b.updateRTT(rtt, now)
	b.updateBandwidth(size, rtt, now)
	b.updateState(now)
	b.updatePacingAndWindow()
}

// OnPacketLost marks the controller Loss until the next OnPacketAcked; BBR
// does not cut cwnd on an isolated loss, so the send window is untouched,
// but the scheduler's Reno-exit rule never applies (IsReno is false).
func (b *BBR) OnPacketLost() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caState = CALoss
}

func (b *BBR) updateRTT(rtt time.Duration, now time.Time) {
	if rtt < b.rtProp || now.Sub(b.rtPropStamp) > probeRTTInterval {
		b.rtProp = rtt
		b.rtPropStamp = now
	}
}

func (b *BBR) updateBandwidth(size uint32, rtt time.Duration, now time.Time) {
	delta := now.Sub(b.lastSampleTime)
	if delta <= 0 {
		return
	}

	bandwidth := uint64(float64(size) / delta.Seconds())
	b.bandwidthSamples = append(b.bandwidthSamples, bandwidthSample{bandwidth: bandwidth, rtt: rtt, timestamp: now})
	if len(b.bandwidthSamples) > 10 {
		b.bandwidthSamples = b.bandwidthSamples[1:]
	}

	maxBw := uint64(0)
	for _, s := range b.bandwidthSamples {
		if s.bandwidth > maxBw {
			maxBw = s.bandwidth
		}
	}
	b.btlBw = maxBw
	b.lastSampleTime = now

	if b.state == bbrStartup {
		b.checkFullBandwidth()
	}
}

func (b *BBR) checkFullBandwidth() {
	if b.btlBw >= b.lastBandwidthReached*uint64(fullBandwidthThreshold*100)/100 {
		b.lastBandwidthReached = b.btlBw
		b.fullBandwidthCount = 0
	} else {
		b.fullBandwidthCount++
		if b.fullBandwidthCount >= 3 {
			b.fullBandwidthReached = true
		}
	}
}

func (b *BBR) updateState(now time.Time) {
	switch b.state {
	case bbrStartup:
		if b.fullBandwidthReached {
			b.enterDrain(now)
		}
	case bbrDrain:
		if b.sendWindow <= b.calculateBDP() {
			b.enterProbeBW(now)
		}
	case bbrProbeBW:
		if now.Sub(b.rtPropStamp) > probeRTTInterval {
			b.enterProbeRTT(now)
		} else {
			b.updateProbeBWCycle(now)
		}
	case bbrProbeRTT:
		if now.Sub(b.stateEntryAt) >= probeRTTDuration {
			b.enterProbeBW(now)
		}
	}
}

func (b *BBR) enterDrain(now time.Time) {
	b.state = bbrDrain
	b.stateEntryAt = now
	b.pacingGain = drainGain
	b.cwndGain = 2.0
}

func (b *BBR) enterProbeBW(now time.Time) {
	b.state = bbrProbeBW
	b.stateEntryAt = now
	b.cycleIndex = 0
	b.cycleStamp = now
	b.pacingGain = probeBWGainCycle[0]
	b.cwndGain = 2.0
}

func (b *BBR) enterProbeRTT(now time.Time) {
	b.state = bbrProbeRTT
	b.stateEntryAt = now
	b.pacingGain = 1.0
	b.cwndGain = 1.0
}

func (b *BBR) updateProbeBWCycle(now time.Time) {
	if now.Sub(b.cycleStamp) > b.rtProp {
		b.cycleIndex = (b.cycleIndex + 1) % probeBWCycleLen
		b.cycleStamp = now
		b.pacingGain = probeBWGainCycle[b.cycleIndex]
	}
}

func (b *BBR) updatePacingAndWindow() {
	if b.btlBw > 0 {
		b.pacingRate = uint64(float64(b.btlBw) * b.pacingGain)
	}

	bdp := b.calculateBDP()
	cwnd := uint32(float64(bdp) * b.cwndGain)

	minCwnd := minPipeCwndPkts * b.mss
	if cwnd < minCwnd {
		cwnd = minCwnd
	}
	b.sendWindow = cwnd
}

func (b *BBR) calculateBDP() uint32 {
	if b.btlBw == 0 || b.rtProp == 0 {
		return minPipeCwndPkts * b.mss
	}
	return uint32(float64(b.btlBw) * b.rtProp.Seconds())
}

// CalculatePacingDelay returns the delay to leave between sending packets
// at the current pacing rate.
func (b *BBR) CalculatePacingDelay(packetSize uint32) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pacingRate == 0 {
		return 0
	}
	return time.Duration(float64(packetSize) / float64(b.pacingRate) * float64(time.Second))
}

// --- congestion.Controller ---

func (b *BBR) Cwnd() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sendWindow / b.mss
}

func (b *BBR) Ssthresh() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clampMin(b.calculateBDP()/b.mss, 2)
}

func (b *BBR) InFlight() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

func (b *BBR) State() CAState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.caState
}

func (b *BBR) IsReno() bool { return false }

func (b *BBR) SRTTMicros() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint32(b.rtProp.Microseconds())
}

func (b *BBR) MSS() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mss
}

func (b *BBR) SetCwnd(packets uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendWindow = packets * b.mss
}

func (b *BBR) SetSsthresh(uint32) {
	// BBR derives ssthresh from the bandwidth-delay product; the
	// receive-buffer optimiser's ssthresh write is accepted but has no
	// effect on a rate-based controller, same as it has no effect on the
	// Linux BBR implementation this is adapted from.
}

// SetInFlight lets a test harness report outstanding packets directly.
func (b *BBR) SetInFlight(v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight = v
}
