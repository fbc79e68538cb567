package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/keyboardia/internal/clock"
	"github.com/schollz/keyboardia/internal/session"
	"github.com/schollz/keyboardia/internal/timing"
	"github.com/schollz/keyboardia/internal/voice"
)

type fakeVoice struct {
	triggers  []voice.Trigger
	cancelled int
}

func (f *fakeVoice) IsReady(family, preset string) bool { return true }
func (f *fakeVoice) EnsureReady(ctx context.Context, family, preset string) error { return nil }
func (f *fakeVoice) Trigger(t voice.Trigger)             { f.triggers = append(f.triggers, t) }
func (f *fakeVoice) CancelAll()                          { f.cancelled++ }
func (f *fakeVoice) CurrentAudioTime() float64           { return 0 }

func fourOnFloorTrack(id string, stepCount int) session.Track {
	tr := session.NewTrack(id, id, "kick")
	tr.StepCount = stepCount
	for i := 0; i < stepCount; i += 4 {
		tr.Steps[i] = true
	}
	return tr
}

func TestScheduleStepFiresOnlyActiveSteps(t *testing.T) {
	fv := &fakeVoice{}
	sess := session.New()
	sess.Tracks = []session.Track{fourOnFloorTrack("t1", 16)}

	scheduleStep(fv, sess, 0, 0.0, timing.StepDuration(120))
	scheduleStep(fv, sess, 1, 0.0, timing.StepDuration(120))

	assert.Len(t, fv.triggers, 1, "only g=0 is an active step for a four-on-floor pattern")
}

func TestScheduleStepRespectsMuteAndSolo(t *testing.T) {
	fv := &fakeVoice{}
	sess := session.New()
	muted := fourOnFloorTrack("muted", 16)
	muted.Muted = true
	soloed := fourOnFloorTrack("soloed", 16)
	soloed.Soloed = true
	plain := fourOnFloorTrack("plain", 16)
	sess.Tracks = []session.Track{muted, soloed, plain}

	scheduleStep(fv, sess, 0, 0.0, timing.StepDuration(120))

	// anySoloed is true, so only the soloed track is audible.
	require.Len(t, fv.triggers, 1)
	assert.Equal(t, "soloed", fv.triggers[0].VoiceKey)
}

func TestScheduleStepAppliesParameterLockPitchAndVolume(t *testing.T) {
	fv := &fakeVoice{}
	sess := session.New()
	tr := fourOnFloorTrack("t1", 16)
	tr.Volume = 1.0
	pitch := 7
	vol := 0.5
	tr.ParameterLocks[0] = &session.ParameterLock{Pitch: &pitch, Volume: &vol}
	sess.Tracks = []session.Track{tr}

	scheduleStep(fv, sess, 0, 0.0, timing.StepDuration(120))

	require.Len(t, fv.triggers, 1)
	assert.Equal(t, 60+7, fv.triggers[0].MIDIPitch)
	assert.InDelta(t, 0.5, fv.triggers[0].Velocity, 1e-9)
}

func TestScheduleStepPolyrhythmLocalStepWrap(t *testing.T) {
	fv := &fakeVoice{}
	sess := session.New()
	// stepCount 3: only local step 0 has an attack, so global steps
	// 0, 3, 6... fire.
	tr := session.NewTrack("t1", "t1", "kick")
	tr.StepCount = 3
	tr.Steps[0] = true
	sess.Tracks = []session.Track{tr}

	for g := 0; g < 9; g++ {
		scheduleStep(fv, sess, g, float64(g), timing.StepDuration(120))
	}

	assert.Len(t, fv.triggers, 3, "global steps 0,3,6 each map to local step 0")
}

func TestTickAdvancesGlobalStepCounter(t *testing.T) {
	clk := clock.NewFake(0)
	fv := &fakeVoice{}
	s := New(clk, fv)

	sess := session.New()
	sess.Tempo = 120
	sess.Tracks = []session.Track{fourOnFloorTrack("t1", 16)}

	s.mu.Lock()
	s.running = true
	s.audioStartTime = 0
	s.tempo = 120
	s.mu.Unlock()

	s.tick(sess)

	s.mu.Lock()
	g := s.g
	s.mu.Unlock()

	assert.Greater(t, g, 0, "at least one step boundary within the lookahead window must have been scheduled")
}

func TestTickRecomputesAudioStartTimeOnTempoChange(t *testing.T) {
	clk := clock.NewFake(10.0)
	fv := &fakeVoice{}
	s := New(clk, fv)

	s.mu.Lock()
	s.running = true
	s.audioStartTime = 0
	s.g = 100
	s.tempo = 120
	s.mu.Unlock()

	sess := session.New()
	sess.Tempo = 240 // tempo doubles

	s.tick(sess)

	newDur := timing.StepDuration(240)
	expected := timing.RecomputeAudioStartTime(10.0, 100, newDur)

	s.mu.Lock()
	got := s.audioStartTime
	s.mu.Unlock()

	assert.InDelta(t, expected, got, 1e-9)
}

func TestStopCancelsVoiceAndResetsState(t *testing.T) {
	clk := clock.NewFake(0)
	fv := &fakeVoice{}
	s := New(clk, fv)

	s.Start(func() session.Session { return session.New() })
	s.Stop()

	assert.Equal(t, 1, fv.cancelled)

	s.mu.Lock()
	g := s.g
	running := s.running
	s.mu.Unlock()

	assert.Equal(t, 0, g)
	assert.False(t, running)
}

func TestStartIsIdempotentWhileRunning(t *testing.T) {
	clk := clock.NewFake(0)
	fv := &fakeVoice{}
	s := New(clk, fv)

	fn := func() session.Session { return session.New() }
	s.Start(fn)
	s.Start(fn) // must not panic or deadlock on a second stopCh/doneCh
	s.Stop()
}
