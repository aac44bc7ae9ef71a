package sched

// DefUnavailable reports whether s can never carry data right now absent a
// state change external to the scheduler: it is not in a sendable
// connection state, it is still pre-established (the final handshake ack
// has not been observed), or it has been marked potentially failed.
func DefUnavailable(s *Subflow) bool {
	if !s.Sendable {
		return true
	}
	if s.PreEstablished {
		return true
	}
	if s.PF {
		return true
	}
	return false
}

// TempUnavailable reports whether s cannot carry segment k right now for a
// reason that may clear on a later call: still unwinding loss recovery, an
// in-order-delivery constraint on a still-handshaking subflow, no cwnd
// room, the send queue already fills the cwnd, or (when zeroWndTest is set)
// the subflow's advertised window is closed.
func TempUnavailable(s *Subflow, k *Segment, zeroWndTest bool) bool {
	if s.CAState() == CALoss {
		if !s.IsReno() {
			return true
		}
		if s.SndUna != s.HighSeq {
			return true
		}
	}

	if !s.FullyEstablished {
		if k != nil && s.SecondPacket && s.LastEndDataSeq != k.Seq {
			return true
		}
	}

	inFlight := s.InFlight()
	cwnd := s.Cwnd()
	if inFlight >= cwnd {
		return true
	}

	mssNow := s.MSSNow()
	space := (cwnd - inFlight) * mssNow
	if s.WriteSeq-s.SndNxt >= space {
		return true
	}

	if zeroWndTest && !before(s.WriteSeq, s.WndEnd) {
		return true
	}

	if k != nil && zeroWndTest {
		segLen := k.Len
		if segLen > mssNow {
			segLen = mssNow
		}
		if after(s.WriteSeq+segLen, s.WndEnd) {
			return true
		}
	}

	return false
}

// Available is the conjunction of the two availability predicates: s can
// carry k right now.
func Available(s *Subflow, k *Segment, zeroWndTest bool) bool {
	return !DefUnavailable(s) && !TempUnavailable(s, k, zeroWndTest)
}

// DontReinject reports whether k has already been carried by s, i.e. s's
// bit is already set in k's path_mask.
func DontReinject(s *Subflow, k *Segment) bool {
	if k == nil {
		return false
	}
	return k.PathMask&s.PathMask() != 0
}

// IsBackup reports whether s is in the "backup" class: low priority from
// either side.
func IsBackup(s *Subflow) bool {
	return s.RcvLowPrio || s.LowPrio
}

// IsActive reports whether s is in the "active" class: the complement of
// IsBackup.
func IsActive(s *Subflow) bool {
	return !s.RcvLowPrio && !s.LowPrio
}

// before/after are the wrapping sequence-number comparisons TCP uses
// (mod 2^32), needed because WriteSeq/WndEnd/Seq wrap around.
func before(seq1, seq2 uint32) bool {
	return int32(seq1-seq2) < 0
}

func after(seq1, seq2 uint32) bool {
	return before(seq2, seq1)
}
