package sched

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Reinject tag values returned by NextSegment, matching spec §4.4.
const (
	ReinjectFresh         = 0  // segment came from the meta write head
	ReinjectFromQueue     = 1  // segment came from the reinject queue
	ReinjectFromRcvBufOpt = -1 // segment came from the receive-buffer optimiser
)

// NextSegment picks the next segment to send: from the reinject queue if
// non-empty, otherwise the meta write head (falling through to an
// rcv-buf-optimiser-driven retransmission when the connection is
// send-buffer-limited), resolves its carrier subflow, and computes the
// byte limit to hand the caller for that one send.
//
// now is injected so RcvBufOpt's internal rate-limit check is
// deterministic under test; callers on the real send path pass time.Now.
func NextSegment(ctx context.Context, m *Meta, q Queues, now func() time.Time) (seg *Segment, carrier *Subflow, limit uint32, reinjectTag int) {
	ctx, span := tracer.Start(ctx, "sched.NextSegment")
	defer span.End()

	seg, carrier, limit, reinjectTag = nextSegment(ctx, m, q, now)

	span.SetAttributes(
		attribute.Int("sched.reinject_tag", reinjectTag),
		attribute.Int("sched.limit", int(limit)),
	)
	if carrier != nil {
		span.SetAttributes(attribute.Int("sched.path_index", int(carrier.PathIndex)))
	}
	return seg, carrier, limit, reinjectTag
}

func nextSegment(ctx context.Context, m *Meta, q Queues, now func() time.Time) (*Segment, *Subflow, uint32, int) {
	if q.Fallback() {
		return q.SendHead(), nil, 0, ReinjectFresh
	}

	reinjectTag := ReinjectFresh
	seg := q.ReinjectPeek()

	if seg != nil {
		reinjectTag = ReinjectFromQueue
	} else {
		seg = q.SendHead()

		if seg == nil && q.SndBufLimited() && q.Wspace() < q.MinWspace() {
			q.SetChronoSndbufLimited()

			subsk := m.getSubflow(ctx, nil, false)
			if subsk == nil {
				return nil, nil, 0, reinjectTag
			}

			seg = RcvBufOpt(m, subsk, false, now())
			if seg != nil {
				reinjectTag = ReinjectFromRcvBufOpt
			} else {
				q.SetChronoSndbufLimited()
				return nil, nil, 0, reinjectTag
			}
		}
	}

	if seg == nil {
		return nil, nil, 0, reinjectTag
	}

	carrier := m.getSubflow(ctx, seg, false)
	if carrier == nil {
		return nil, nil, 0, reinjectTag
	}

	if reinjectTag == ReinjectFresh && !q.SndWndTest(seg) {
		q.SetChronoRwndLimited()
		alt := RcvBufOpt(m, carrier, true, now())
		if alt == nil {
			return nil, nil, 0, reinjectTag
		}
		seg = alt
		reinjectTag = ReinjectFromRcvBufOpt
	}

	if reinjectTag == ReinjectFresh {
		q.SetChronoBusy()
	}

	mssNow := carrier.MSSNow()
	if seg.Len <= mssNow {
		return seg, carrier, 0, reinjectTag
	}

	gsoMaxSegs := carrier.GSOMaxSegs
	if gsoMaxSegs == 0 {
		gsoMaxSegs = 1
	}

	maxSegs := q.CwndTest(carrier, seg)
	if maxSegs > gsoMaxSegs {
		maxSegs = gsoMaxSegs
	}
	if maxSegs == 0 {
		return nil, nil, 0, reinjectTag
	}

	maxLen := mssNow * maxSegs
	if maxLen > seg.Len {
		maxLen = seg.Len
	}

	inFlight := carrier.InFlight()
	cwnd := carrier.Cwnd()
	inFlightSpace := (cwnd - inFlight) * mssNow
	remaining := int64(inFlightSpace) - int64(carrier.WriteSeq-carrier.SndNxt)

	if remaining <= 0 {
		warnRemainingInFlightSpace(ctx, inFlight, cwnd, carrier.WriteSeq, carrier.SndNxt, mssNow)
	} else if uint32(remaining) < maxLen {
		maxLen = uint32(remaining)
	}

	window := carrier.WndEnd - carrier.WriteSeq
	if window < maxLen {
		maxLen = window
	}

	return seg, carrier, maxLen, reinjectTag
}

// getSubflow resolves a carrier subflow, delegating to the scheduler
// currently bound to the connection (m.Ops) rather than the package-default
// selector directly, so a non-default scheduler installed on the
// connection is still honored by the chooser's internal calls.
func (m *Meta) getSubflow(ctx context.Context, k *Segment, zeroWndTest bool) *Subflow {
	if m.Ops != nil && m.Ops.GetSubflow != nil {
		return m.Ops.GetSubflow(m, k, zeroWndTest)
	}
	return GetAvailableSubflow(ctx, m, k, zeroWndTest)
}
