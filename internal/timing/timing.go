// Package timing holds the pure, side-effect-free timing functions the
// scheduler (internal/scheduler) is built from. Every function here is
// total and allocation-free, which is what makes them a clean
// property-test surface.
package timing

import "github.com/schollz/keyboardia/internal/session"

// StepDuration returns the duration in seconds of one 16th note at the
// given tempo: 60 / (tempo * 4).
func StepDuration(tempo int) float64 {
	return 60.0 / (float64(tempo) * 4.0)
}

// BlendSwing combines a track's own swing override with the session's
// global swing: the track override wins when non-zero, otherwise the
// global value applies.
func BlendSwing(globalSwing int, trackSwing *int) int {
	if trackSwing != nil && *trackSwing != 0 {
		return *trackSwing
	}
	return globalSwing
}

// SwingDelay returns the delay, in seconds, applied to a given local
// step. Odd-indexed steps are delayed by blend(swing) * stepDuration *
// 0.5; even steps never shift. The result is always within
// [0, stepDuration/2].
func SwingDelay(localStep int, globalSwing int, trackSwing *int, stepDuration float64) float64 {
	if localStep%2 == 0 {
		return 0
	}
	swing := BlendSwing(globalSwing, trackSwing)
	if swing < 0 {
		swing = 0
	}
	if swing > 100 {
		swing = 100
	}
	return (float64(swing) / 100.0) * stepDuration * 0.5
}

// TieFactor is the duration multiplier applied to a tied note so that
// back-to-back non-tied notes never click over each other.
const TieFactor = 0.9

// TiedDuration walks forward from `step` through consecutive local
// steps (wrapping modulo stepCount) whose ParameterLocks[j].Tie is true
// and Steps[j] is false, and returns the resulting note duration:
// (1 + tiedSlotCount) * stepDuration * TieFactor.
func TiedDuration(track session.Track, step int, stepCount int, stepDuration float64) float64 {
	if stepCount <= 0 {
		return stepDuration * TieFactor
	}
	tieLength := 1
	for i := 1; i < stepCount; i++ {
		j := (step + i) % stepCount
		lock := track.ParameterLocks[j]
		if lock == nil || !lock.Tie || track.Steps[j] {
			break
		}
		tieLength++
	}
	return float64(tieLength) * stepDuration * TieFactor
}

// AdvanceStep returns the next global step after `current`, honoring an
// optional loop region. With no loop region, it wraps at
// session.MaxSteps. With a loop region, it wraps end+1 -> start, and any
// current position outside the region snaps to Start (the region can
// change out from under an in-flight cursor; the scheduler always
// re-enters at the region's start on the next boundary).
func AdvanceStep(current int, loop *session.LoopRegion) int {
	if loop == nil {
		return (current + 1) % session.MaxSteps
	}
	if current < loop.Start || current > loop.End {
		return loop.Start
	}
	if current >= loop.End {
		return loop.Start
	}
	return current + 1
}

// IsStepInLoop reports whether a global step falls inside the loop
// region (true for every step when loop is nil).
func IsStepInLoop(step int, loop *session.LoopRegion) bool {
	if loop == nil {
		return true
	}
	return step >= loop.Start && step <= loop.End
}

// ClampTempo re-exports session.ClampTempo so callers that only import
// internal/timing for pure functions don't also need internal/session
// for this one clamp (kept as a thin alias, not a copy, so the two
// packages can never drift).
func ClampTempo(t int) int { return session.ClampTempo(t) }

// RecomputeAudioStartTime implements the drift-free tempo-change
// identity: given the audio time `now` at which a tempo
// change takes effect, the step `s` currently scheduled, and the new
// tempo's step duration, returns the audioStartTime that makes the
// *next* step's scheduled time equal `now` exactly - no flood of notes
// when tempo doubles, no silent gap when it halves.
func RecomputeAudioStartTime(now float64, scheduledStep int, newStepDuration float64) float64 {
	return now - float64(scheduledStep)*newStepDuration
}
