package sched

import "github.com/aetherflow/mpsched/internal/congestion"

// fakeController is a minimal, directly-settable congestion.Controller
// double used across this package's tests; the scheduler only ever reads
// from and writes cwnd/ssthresh into a real controller, so a plain struct
// with public fields is sufficient to drive every test scenario.
type fakeController struct {
	cwnd, ssthresh, inFlight, mss, srttMicros uint32
	state                                     congestion.CAState
	isReno                                    bool
}

func (f *fakeController) Cwnd() uint32        { return f.cwnd }
func (f *fakeController) Ssthresh() uint32    { return f.ssthresh }
func (f *fakeController) InFlight() uint32    { return f.inFlight }
func (f *fakeController) State() congestion.CAState { return f.state }
func (f *fakeController) IsReno() bool        { return f.isReno }
func (f *fakeController) SRTTMicros() uint32  { return f.srttMicros }
func (f *fakeController) MSS() uint32         { return f.mss }
func (f *fakeController) SetCwnd(v uint32)     { f.cwnd = v }
func (f *fakeController) SetSsthresh(v uint32) { f.ssthresh = v }

// newTestSubflow builds a Subflow that is available by default: sendable,
// fully established, plenty of cwnd headroom and window. Tests override
// individual fields to construct the scenario they need.
func newTestSubflow(pathIndex uint8, srttMicros, cwnd uint32) *Subflow {
	return &Subflow{
		PathIndex: pathIndex,
		Controller: &fakeController{
			cwnd:       cwnd,
			ssthresh:   1 << 20,
			inFlight:   0,
			mss:        1460,
			srttMicros: srttMicros,
			state:      congestion.CAOpen,
			isReno:     true,
		},
		WriteSeq:         1000,
		SndNxt:           1000,
		WndEnd:           1 << 30,
		FullyEstablished: true,
		Sendable:         true,
	}
}

// fakeQueues is a test double for Queues; every operation is driven by
// plain fields the test sets up beforehand.
type fakeQueues struct {
	sendHead       *Segment
	retransmitHead *Segment
	reinjectHead   *Segment

	sndWndTestResult bool
	cwndTestResult   uint32

	fallback bool

	sndBufLimited bool
	wspace        uint32
	minWspace     uint32

	chronoBusy, chronoRwnd, chronoSndbuf int
}

func (q *fakeQueues) SendHead() *Segment       { return q.sendHead }
func (q *fakeQueues) RetransmitHead() *Segment { return q.retransmitHead }
func (q *fakeQueues) ReinjectPeek() *Segment   { return q.reinjectHead }
func (q *fakeQueues) SndWndTest(*Segment) bool { return q.sndWndTestResult }
func (q *fakeQueues) CwndTest(*Subflow, *Segment) uint32 { return q.cwndTestResult }
func (q *fakeQueues) Fallback() bool           { return q.fallback }
func (q *fakeQueues) SndBufLimited() bool      { return q.sndBufLimited }
func (q *fakeQueues) Wspace() uint32           { return q.wspace }
func (q *fakeQueues) MinWspace() uint32        { return q.minWspace }
func (q *fakeQueues) SetChronoBusy()           { q.chronoBusy++ }
func (q *fakeQueues) SetChronoRwndLimited()    { q.chronoRwnd++ }
func (q *fakeQueues) SetChronoSndbufLimited()  { q.chronoSndbuf++ }
