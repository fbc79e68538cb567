// Package clock supplies the monotonic audio clock the scheduler reads
// currentAudioTime() from. Wall-clock time is used only for
// persistence timestamps and mutation aging, never for scheduling.
package clock

import "time"

// Clock is the opaque audio-time source the scheduler depends on. The
// real implementation wraps an audio host's own sample-accurate clock;
// tests drive a fake one to make scheduling deterministic.
type Clock interface {
	// CurrentAudioTime returns seconds, monotonically increasing,
	// microsecond-scale resolution.
	CurrentAudioTime() float64
}

// Real is a Clock backed by the process's monotonic wall clock. It's
// the production default when no host-supplied audio clock is wired
// (e.g. the CLI's `play` command driving the MIDI voice adapter).
type Real struct {
	start time.Time
}

// NewReal returns a Real clock whose zero point is the moment of
// construction.
func NewReal() *Real {
	return &Real{start: time.Now()}
}

func (r *Real) CurrentAudioTime() float64 {
	return time.Since(r.start).Seconds()
}

// Fake is a manually-advanced Clock for deterministic scheduler tests:
// the scheduler's lookahead loop is driven entirely by what this
// clock reports, with no wall-clock sleeps involved.
type Fake struct {
	now float64
}

// NewFake returns a Fake clock starting at t seconds.
func NewFake(t float64) *Fake {
	return &Fake{now: t}
}

func (f *Fake) CurrentAudioTime() float64 { return f.now }

// Advance moves the fake clock forward by delta seconds and returns the
// new time.
func (f *Fake) Advance(delta float64) float64 {
	f.now += delta
	return f.now
}

// Set pins the fake clock to an explicit time, for tests asserting
// behavior at a precise instant (e.g. a tempo change boundary).
func (f *Fake) Set(t float64) { f.now = t }
