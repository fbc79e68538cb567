// Package scheduler is the algorithmic heart of the sequencer: a
// single-shot lookahead loop that walks the global step counter,
// resolves swing, ties and parameter locks into concrete triggers, and
// hands them to a voice collaborator (internal/voice) without ever
// inspecting its internals.
package scheduler

import (
	"sync"
	"time"

	"github.com/schollz/keyboardia/internal/clock"
	"github.com/schollz/keyboardia/internal/session"
	"github.com/schollz/keyboardia/internal/timing"
	"github.com/schollz/keyboardia/internal/voice"
)

// Lookahead and TickInterval are the scheduler's only tunables.
const (
	Lookahead    = 100 * time.Millisecond
	TickInterval = 25 * time.Millisecond
)

// SessionFunc returns the current session to schedule against. The
// scheduler never holds its own copy of session state between ticks -
// it always reads the latest one, so mute/solo toggles and tempo
// changes take effect at the very next tick rather than waiting on the
// lookahead window they were queued under.
type SessionFunc func() session.Session

// Scheduler owns the global step counter and drift-free audio-time
// bookkeeping. It is not safe to Start twice concurrently; Stop must
// complete before a second Start.
type Scheduler struct {
	clk clock.Clock
	vc  voice.Voice

	mu             sync.Mutex
	g              int
	audioStartTime float64
	tempo          int
	running        bool
	stopCh         chan struct{}
	doneCh         chan struct{}
}

// New returns a Scheduler reading audio time from clk and dispatching
// triggers to vc.
func New(clk clock.Clock, vc voice.Voice) *Scheduler {
	return &Scheduler{clk: clk, vc: vc, tempo: session.MinTempo}
}

// Start begins the lookahead loop on its own goroutine, reading the
// session from fn on every tick. Calling Start while already running is
// a no-op.
func (s *Scheduler) Start(fn SessionFunc) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.g = 0
	s.audioStartTime = s.clk.CurrentAudioTime()
	s.tempo = session.ClampTempo(fn().Tempo)
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.mu.Unlock()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.tick(fn())
			}
		}
	}()
}

// Stop cancels the lookahead loop, flushes cancellation to the voice
// collaborator synchronously (no outstanding trigger survives Stop),
// and resets the scheduler's step counter and audio start time so a
// subsequent Start begins clean.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh

	s.vc.CancelAll()

	s.mu.Lock()
	s.running = false
	s.g = 0
	s.audioStartTime = s.clk.CurrentAudioTime()
	s.mu.Unlock()
}

// tick schedules every step due within the lookahead window, applying
// the drift-free tempo recompute before scheduling if tempo changed
// since the last tick - applied exactly at the tempo change, never
// lazily.
func (s *Scheduler) tick(sess session.Session) {
	now := s.clk.CurrentAudioTime()
	tempo := session.ClampTempo(sess.Tempo)
	stepDur := timing.StepDuration(tempo)

	s.mu.Lock()
	if tempo != s.tempo {
		s.audioStartTime = timing.RecomputeAudioStartTime(now, s.g, stepDur)
		s.tempo = tempo
	}
	audioStartTime := s.audioStartTime
	g := s.g
	s.mu.Unlock()

	horizon := now + Lookahead.Seconds()
	for {
		scheduledTime := audioStartTime + float64(g)*stepDur
		if scheduledTime > horizon {
			break
		}
		scheduleStep(s.vc, sess, g, scheduledTime, stepDur)
		next := timing.AdvanceStep(g, sess.LoopRegion)
		// Rebase audioStartTime when g wraps or jumps into the loop
		// region, so the next step still lands one stepDur after this one.
		audioStartTime += float64(g+1-next) * stepDur
		g = next
	}

	s.mu.Lock()
	s.g = g
	s.audioStartTime = audioStartTime
	s.mu.Unlock()
}

// scheduleStep resolves one global step into zero or more voice
// triggers - one per audible track whose local step is a genuine
// attack. Every track in the session is considered; tracks with a
// non-positive step count are skipped.
func scheduleStep(vc voice.Voice, sess session.Session, g int, scheduledTime, stepDur float64) {
	anySoloed := false
	for i := range sess.Tracks {
		if sess.Tracks[i].Soloed {
			anySoloed = true
			break
		}
	}

	for i := range sess.Tracks {
		tr := sess.Tracks[i]
		if tr.StepCount <= 0 {
			continue
		}
		local := g % tr.StepCount
		audible := tr.Soloed
		if !anySoloed {
			audible = !tr.Muted
		}
		if !audible {
			continue
		}
		if !tr.Steps[local] {
			continue // not a new attack; a tied slot extends a prior attack's duration, it is never itself scheduled
		}

		lock := tr.ParameterLocks[local]
		pitch := 60 + tr.Transpose
		velocity := tr.Volume
		if lock != nil {
			if lock.Pitch != nil {
				pitch += *lock.Pitch
			}
			if lock.Volume != nil {
				velocity *= *lock.Volume
			}
		}
		velocity = session.ClampVolume(velocity)

		duration := timing.TiedDuration(tr, local, tr.StepCount, stepDur)
		swingDelay := timing.SwingDelay(local, sess.Swing, tr.Swing, stepDur)

		vc.Trigger(voice.Trigger{
			Family:           session.VoiceFamily(tr.SampleID),
			PresetOrSampleID: tr.SampleID,
			MIDIPitch:        pitch,
			Velocity:         velocity,
			DurationSec:      duration,
			AtAudioTime:      scheduledTime + swingDelay,
			VoiceKey:         tr.ID,
		})
	}
}
