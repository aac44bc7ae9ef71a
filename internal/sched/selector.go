package sched

import (
	"context"
	"math"

	"go.opentelemetry.io/otel/attribute"
)

// classifier partitions subflows into the active or backup class pick is
// scanning over.
type classifier func(s *Subflow) bool

// pick scans the subflow set once, applying the availability predicates
// and the "prefer a not-yet-tried subflow" rule, and returns the
// lowest-srtt candidate within the class selected by class. force reports
// whether the result should be trusted as-is by the caller: it is true
// either because an unused subflow was found (best is non-nil and was
// drawn from the unused class), or, when no candidate was found at all,
// because at least one unused subflow was merely temporarily unavailable.
func pick(subflows []*Subflow, class classifier, k *Segment, zeroWndTest bool) (best *Subflow, force bool) {
	const maxSRTT = math.MaxUint32

	bestSRTT := uint32(maxSRTT)
	foundUnused := false
	foundUnusedUna := false

	for _, s := range subflows {
		if !class(s) {
			continue
		}

		unused := !DontReinject(s, k)

		if foundUnused && !unused {
			continue
		}

		if DefUnavailable(s) {
			continue
		}

		if TempUnavailable(s, k, zeroWndTest) {
			if unused {
				foundUnusedUna = true
			}
			continue
		}

		if unused {
			if !foundUnused {
				bestSRTT = maxSRTT
				best = nil
			}
			foundUnused = true
		}

		if s.SRTTMicros() < bestSRTT {
			bestSRTT = s.SRTTMicros()
			best = s
		}
	}

	if best != nil {
		force = foundUnused
	} else {
		force = foundUnusedUna
	}
	return best, force
}

// GetAvailableSubflow is the top-level subflow-selection entry point: the
// data-fin same-subflow rule, then an active pass and, failing that, a
// backup pass, with a single bounded restart once the segment's path_mask
// has been exhausted against every available subflow.
//
// ctx carries an optional OpenTelemetry span; with no tracer provider
// configured, span creation is the SDK's built-in no-op, so this never adds
// overhead to the hot path when tracing is off.
func GetAvailableSubflow(ctx context.Context, m *Meta, k *Segment, zeroWndTest bool) *Subflow {
	_, span := tracer.Start(ctx, "sched.GetAvailableSubflow")
	defer span.End()

	s := getAvailableSubflow(m, k, zeroWndTest)

	if s != nil {
		span.SetAttributes(attribute.Int("sched.path_index", int(s.PathIndex)))
	} else {
		span.SetAttributes(attribute.Bool("sched.no_subflow", true))
	}
	return s
}

func getAvailableSubflow(m *Meta, k *Segment, zeroWndTest bool) *Subflow {
	if m.RcvShutdown && k != nil && k.IsDataFin {
		if s := m.findSubflow(m.DfinPathIndex); s != nil && Available(s, k, zeroWndTest) {
			return s
		}
	}

	looping := false

	for {
		s, force := pick(m.Subflows, IsActive, k, zeroWndTest)
		if force {
			return s
		}

		s, force = pick(m.Subflows, IsBackup, k, zeroWndTest)
		if !force && k != nil {
			k.PathMask = 0

			if !looping {
				looping = true
				continue
			}
		}
		return s
	}
}
