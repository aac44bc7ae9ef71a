package sched

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is created against whatever TracerProvider is globally registered.
// internal/telemetry installs a real one when tracing is enabled; absent
// that, otel's default provider hands back a no-op tracer, so span creation
// costs nothing on the hot path when tracing is off.
var tracer = otel.Tracer("github.com/aetherflow/mpsched/internal/sched")

// logger is the structured logger the chooser's warn-once diagnostic (spec
// §4.4 step 8 / §9 "warn-once diagnostics should be latching") writes
// through. Defaults to a no-op logger; cmd/schedctl installs a real one via
// SetLogger during startup.
var logger = zap.NewNop()

// SetLogger installs the process-wide logger used by this package's
// diagnostics. Safe to call once during startup, before any send-path
// activity begins.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

var warnOnceRemainingInFlightSpace sync.Once

// warnRemainingInFlightSpace reports, exactly once per process, that a
// segment-chooser call observed remaining_in_flight_space <= 0 — an
// internal invariant violation per spec §7 that is diagnosed but never
// aborts the call.
func warnRemainingInFlightSpace(ctx context.Context, inFlight, cwnd, writeSeq, sndNxt, mssNow uint32) {
	warnOnceRemainingInFlightSpace.Do(func() {
		logger.Warn("sched: remaining_in_flight_space <= 0",
			zap.Uint32("in_flight", inFlight),
			zap.Uint32("cwnd", cwnd),
			zap.Uint32("write_seq", writeSeq),
			zap.Uint32("snd_nxt", sndNxt),
			zap.Uint32("mss_now", mssNow),
		)

		span := trace.SpanFromContext(ctx)
		span.AddEvent("sched.remaining_in_flight_space_non_positive")
	})
}
