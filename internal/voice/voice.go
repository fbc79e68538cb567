// Package voice defines the opaque audio-triggering contract the
// scheduler (internal/scheduler) depends on. The core never inspects a
// Voice's internal state; it only calls these five entry points.
package voice

import "context"

// Trigger is one scheduled note event, fully resolved by the scheduler
// before it reaches the voice collaborator: pitch, velocity and
// duration already account for transpose, parameter locks and ties.
type Trigger struct {
	Family          string
	PresetOrSampleID string
	MIDIPitch       int
	Velocity        float64
	DurationSec     float64
	AtAudioTime     float64
	// VoiceKey optionally identifies a specific voice slot (e.g. to
	// retrigger the same physical voice rather than stealing another
	// track's), left empty when the collaborator doesn't need it.
	VoiceKey string
}

// Voice is the scheduler's only window onto sound. Family and
// preset/sample identify what to play; everything else about how a
// voice produces sound belongs to the implementation.
type Voice interface {
	// IsReady reports whether (family, presetOrSampleID) can be
	// triggered immediately.
	IsReady(family, presetOrSampleID string) bool

	// EnsureReady prepares (family, presetOrSampleID) for triggering -
	// loading samples or warming up a synth - and blocks until ready or
	// ctx is cancelled.
	EnsureReady(ctx context.Context, family, presetOrSampleID string) error

	// Trigger fires one note. A voice not yet ready for t.Family/
	// t.PresetOrSampleID drops the trigger silently: audio is
	// best-effort, and silence is preferable to a stall.
	Trigger(t Trigger)

	// CancelAll stops every in-flight or future-scheduled trigger
	// immediately. Called synchronously by the scheduler's stop path:
	// no outstanding trigger survives it.
	CancelAll()

	// CurrentAudioTime returns the voice collaborator's own monotonic
	// clock reading in seconds, matching internal/clock.Clock's
	// contract so a voice can double as the scheduler's time source
	// when it owns the audio device.
	CurrentAudioTime() float64
}
