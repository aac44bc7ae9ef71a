package sched

import (
	"context"
	"testing"
	"time"
)

func fixedNow() time.Time { return time.Unix(1_700_000_000, 0) }

func TestNextSegmentFallbackModeReturnsWriteHeadUntagged(t *testing.T) {
	head := &Segment{Seq: 1, Len: 100}
	q := &fakeQueues{fallback: true, sendHead: head}
	m := &Meta{Subflows: []*Subflow{newTestSubflow(1, 10000, 10)}, Queues: q}

	seg, carrier, limit, tag := NextSegment(context.Background(), m, q, fixedNow)
	if seg != head || carrier != nil || limit != 0 || tag != ReinjectFresh {
		t.Fatalf("fallback mode: got seg=%v carrier=%v limit=%d tag=%d", seg, carrier, limit, tag)
	}
}

func TestNextSegmentPrefersReinjectQueue(t *testing.T) {
	a := newTestSubflow(1, 10000, 10)
	reinject := &Segment{Seq: 5, Len: 100}
	q := &fakeQueues{reinjectHead: reinject, sndWndTestResult: true}
	m := &Meta{Subflows: []*Subflow{a}, Queues: q}

	seg, carrier, _, tag := NextSegment(context.Background(), m, q, fixedNow)
	if seg != reinject {
		t.Fatalf("expected reinject-queue segment, got %v", seg)
	}
	if tag != ReinjectFromQueue {
		t.Fatalf("expected reinject_tag=1, got %d", tag)
	}
	if carrier != a {
		t.Fatalf("expected carrier a, got %v", carrier)
	}
}

func TestNextSegmentNoSplitWhenSegmentFitsMSS(t *testing.T) {
	a := newTestSubflow(1, 10000, 10)
	head := &Segment{Seq: 1, Len: 100} // well under 1460 MSS
	q := &fakeQueues{sendHead: head, sndWndTestResult: true}
	m := &Meta{Subflows: []*Subflow{a}, Queues: q}

	seg, carrier, limit, tag := NextSegment(context.Background(), m, q, fixedNow)
	if seg != head || carrier != a {
		t.Fatalf("unexpected seg/carrier: %v %v", seg, carrier)
	}
	if limit != 0 {
		t.Errorf("expected limit=0 (no split needed), got %d", limit)
	}
	if tag != ReinjectFresh {
		t.Errorf("expected reinject_tag=0 for a fresh send, got %d", tag)
	}
}

func TestNextSegmentSplitClampsToWindow(t *testing.T) {
	a := newTestSubflow(1, 10000, 10)
	a.WndEnd = a.WriteSeq + 500 // tight receive window
	head := &Segment{Seq: a.WriteSeq, Len: 10000}
	q := &fakeQueues{sendHead: head, sndWndTestResult: true, cwndTestResult: 100}
	m := &Meta{Subflows: []*Subflow{a}, Queues: q}

	_, _, limit, _ := NextSegment(context.Background(), m, q, fixedNow)
	if limit != 500 {
		t.Errorf("expected limit clamped to the 500-byte window, got %d", limit)
	}
}

func TestNextSegmentNoAvailableSubflowReturnsNil(t *testing.T) {
	a := newTestSubflow(1, 10000, 10)
	a.PF = true // def_unavailable
	head := &Segment{Seq: 1, Len: 100}
	q := &fakeQueues{sendHead: head, sndWndTestResult: true}
	m := &Meta{Subflows: []*Subflow{a}, Queues: q}

	seg, carrier, _, _ := NextSegment(context.Background(), m, q, fixedNow)
	if seg != nil || carrier != nil {
		t.Fatalf("expected no segment/carrier when no subflow is available, got %v %v", seg, carrier)
	}
}

func TestNextSegmentRwndFailureFallsBackToRcvBufOpt(t *testing.T) {
	a := newTestSubflow(1, 10000, 10)
	b := newTestSubflow(2, 80000, 10) // slow co-carrier so do_retrans triggers
	head := &Segment{Seq: 1, Len: 100}
	retransHead := &Segment{PathMask: b.PathMask()}

	q := &fakeQueues{
		sendHead:         head,
		sndWndTestResult: false, // rwnd test fails for the fresh send
		retransmitHead:   retransHead,
	}
	m := &Meta{Subflows: []*Subflow{a, b}, Queues: q}

	seg, carrier, _, tag := NextSegment(context.Background(), m, q, fixedNow)
	if tag != ReinjectFromRcvBufOpt {
		t.Fatalf("expected reinject_tag=-1 from the rwnd-triggered rcv-buf-opt path, got %d", tag)
	}
	if seg != retransHead {
		t.Fatalf("expected the retransmit-head segment, got %v", seg)
	}
	if carrier != a {
		t.Fatalf("expected carrier a, got %v", carrier)
	}
	if q.chronoRwnd == 0 {
		t.Error("expected the RWND_LIMITED chrono to have been started")
	}
}
