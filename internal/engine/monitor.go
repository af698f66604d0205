package engine

import (
	"math"
	"time"

	"github.com/stemsi/exstem-cbt/internal/model"
)

type focusMonitor struct {
	cfg model.AntiCheatConfig
}

// PenaltySeconds returns base * 2^violations, saturating instead of
// overflowing. maxSeconds > 0 caps the result; zero leaves it uncapped.
func PenaltySeconds(base, violations, maxSeconds int) int {
	if base <= 0 {
		return 0
	}
	p := base
	for i := 0; i < violations; i++ {
		if p > math.MaxInt/2 {
			p = math.MaxInt
			break
		}
		p *= 2
	}
	if maxSeconds > 0 && p > maxSeconds {
		p = maxSeconds
	}
	return p
}

func (m focusMonitor) penalty(violations int) int {
	return PenaltySeconds(m.cfg.FreezeDurationSeconds, violations, m.cfg.MaxFreezeSeconds)
}

// ReportFocusLoss handles one "tab hidden" or "window blur" signal. It reports
// whether the signal counted as a violation. Signals that arrive while the
// session is frozen belong to the same absence and are ignored.
func (s *Session) ReportFocusLoss(signal FocusSignal) bool {
	s.mu.Lock()
	if !s.monitor.cfg.IsActive || s.status != model.SessionStatusInProgress || s.frozen {
		s.mu.Unlock()
		return false
	}

	penalty := s.monitor.penalty(s.violations)
	if penalty > 0 {
		s.frozen = true
		s.freezeRemaining = penalty
		s.freezeTask = s.sched.Every(time.Second, s.freezeTick)
	}
	s.violations++

	violation := s.eventLocked(EventViolation)
	violation.Signal = signal
	violation.PenaltySeconds = penalty
	violation.AlertText = s.monitor.cfg.AlertText
	violation.PlaySound = s.monitor.cfg.EnableSound

	events := []Event{violation}
	if penalty > 0 {
		frozen := s.eventLocked(EventFrozen)
		frozen.PenaltySeconds = penalty
		events = append(events, frozen)
	}
	s.mu.Unlock()

	s.log.Warn().
		Str("signal", string(signal)).
		Int("violations", violation.ViolationCount).
		Int("penalty_seconds", penalty).
		Msg("Focus loss recorded")

	s.emit(events...)
	return true
}

func (s *Session) freezeTick() {
	s.mu.Lock()
	if !s.frozen || s.status != model.SessionStatusInProgress {
		s.mu.Unlock()
		return
	}
	s.freezeRemaining--
	var evt Event
	if s.freezeRemaining <= 0 {
		s.frozen = false
		s.freezeRemaining = 0
		if s.freezeTask != nil {
			s.freezeTask.Cancel()
			s.freezeTask = nil
		}
		evt = s.eventLocked(EventUnfrozen)
	} else {
		evt = s.eventLocked(EventFreezeTick)
	}
	s.mu.Unlock()

	s.emit(evt)
}
