package usecase

import (
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

const (
	reasonThreshold   = "threshold_not_reached"
	reasonCooldown    = "cooldown"
	reasonOutstanding = "outstanding_prompts"
	reasonInFlight    = "in_flight"
	reasonInvalid     = "invalid_trigger"
	reasonFailed      = "generation_failed"
	reasonNoContent   = "insufficient_content"
	reasonGenerated   = "generated"
)

type gateInput struct {
	state       domain.TrackerState
	event       domain.TriggerEvent
	docCount    int
	outstanding int
	now         time.Time
	threshold   int
	cooldown    time.Duration
	staleAfter  time.Duration
}

// evaluateGate decides the Checking -> Generating transition, lock aside. The
// empty reason means every condition holds.
func evaluateGate(in gateInput) (bool, string) {
	if lockHeld(in.state, in.now, in.staleAfter) {
		return false, reasonInFlight
	}
	if in.event != domain.EventManualRefresh && !milestoneCrossed(in.state.LastSourceDocCountMark, in.docCount, in.threshold) {
		return false, reasonThreshold
	}
	if cooldownActive(in.state.LastGenerationAt, in.now, in.cooldown) {
		return false, reasonCooldown
	}
	if in.event == domain.EventDocumentCreated && in.outstanding > 0 {
		return false, reasonOutstanding
	}
	return true, ""
}

// milestoneCrossed reports whether at least every new documents arrived since mark.
func milestoneCrossed(mark, count, every int) bool {
	if every <= 0 {
		return count > mark
	}
	return count-mark >= every
}

func cooldownActive(last *time.Time, now time.Time, cooldown time.Duration) bool {
	if last == nil || cooldown <= 0 {
		return false
	}
	return now.Sub(*last) < cooldown
}

// lockHeld treats a lock older than staleAfter as abandoned.
func lockHeld(state domain.TrackerState, now time.Time, staleAfter time.Duration) bool {
	if !state.InFlight {
		return false
	}
	if state.LockAcquiredAt == nil || staleAfter <= 0 {
		return true
	}
	return state.LockAcquiredAt.After(now.Add(-staleAfter))
}
