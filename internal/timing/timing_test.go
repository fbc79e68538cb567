package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schollz/keyboardia/internal/session"
)

func TestStepDurationMonotonicity(t *testing.T) {
	prev := StepDuration(session.MinTempo)
	for tempo := session.MinTempo + 1; tempo <= session.MaxTempo; tempo++ {
		d := StepDuration(tempo)
		assert.Less(t, d, prev, "stepDuration must strictly decrease as tempo increases")
		prev = d
	}
}

func TestSwingDelayBounds(t *testing.T) {
	for tempo := session.MinTempo; tempo <= session.MaxTempo; tempo += 7 {
		dur := StepDuration(tempo)
		for _, globalSwing := range []int{0, 25, 50, 100} {
			for _, trackSwing := range []*int{nil, intp(0), intp(10), intp(100)} {
				for step := 0; step < 4; step++ {
					d := SwingDelay(step, globalSwing, trackSwing, dur)
					assert.GreaterOrEqual(t, d, 0.0)
					assert.LessOrEqual(t, d, dur/2)
					if step%2 == 0 {
						assert.Equal(t, 0.0, d)
					}
				}
			}
		}
	}
}

func TestBlendSwingTrackOverridesWhenNonZero(t *testing.T) {
	assert.Equal(t, 30, BlendSwing(10, intp(30)))
	assert.Equal(t, 10, BlendSwing(10, intp(0)))
	assert.Equal(t, 10, BlendSwing(10, nil))
}

func TestClampTempoIdempotence(t *testing.T) {
	for _, v := range []int{-10, 0, 60, 120, 180, 999} {
		once := ClampTempo(v)
		assert.Equal(t, once, ClampTempo(once))
	}
}

func TestLoopWrapIdentity(t *testing.T) {
	loop := &session.LoopRegion{Start: 4, End: 7}
	for current := loop.Start; current <= loop.End; current++ {
		next := AdvanceStep(current, loop)
		if current == loop.End {
			assert.Equal(t, loop.Start, next)
		} else {
			assert.Equal(t, current+1, next)
		}
	}
}

func TestAdvanceStepWithoutLoopWrapsAtMaxSteps(t *testing.T) {
	assert.Equal(t, 0, AdvanceStep(session.MaxSteps-1, nil))
	assert.Equal(t, 5, AdvanceStep(4, nil))
}

func TestIsStepInLoop(t *testing.T) {
	loop := &session.LoopRegion{Start: 4, End: 7}
	assert.True(t, IsStepInLoop(4, loop))
	assert.True(t, IsStepInLoop(7, loop))
	assert.False(t, IsStepInLoop(3, loop))
	assert.False(t, IsStepInLoop(8, loop))
	assert.True(t, IsStepInLoop(100, nil))
}

func TestTiedDurationNoTies(t *testing.T) {
	tr := session.NewTrack("t1", "t", "s")
	tr.StepCount = 16
	d := TiedDuration(tr, 0, 16, 0.1)
	assert.InDelta(t, 1*0.1*TieFactor, d, 1e-9)
}

func TestTiedDurationTwoTiedSlots(t *testing.T) {
	tr := session.NewTrack("t1", "t", "s")
	tr.StepCount = 16
	tr.ParameterLocks[1] = &session.ParameterLock{Tie: true}
	tr.ParameterLocks[2] = &session.ParameterLock{Tie: true}
	d := TiedDuration(tr, 0, 16, 0.1)
	assert.InDelta(t, 3*0.1*TieFactor, d, 1e-9)
}

func TestTiedDurationWrapsAcrossModulo(t *testing.T) {
	tr := session.NewTrack("t1", "t", "s")
	tr.StepCount = 4
	tr.ParameterLocks[0] = &session.ParameterLock{Tie: true} // wraps from step 3
	d := TiedDuration(tr, 3, 4, 0.1)
	assert.InDelta(t, 2*0.1*TieFactor, d, 1e-9)
}

func TestRecomputeAudioStartTimeNoFloodNoGap(t *testing.T) {
	newDur := StepDuration(240)
	start := RecomputeAudioStartTime(10.0, 100, newDur)
	nextStepTime := start + 101*newDur
	assert.InDelta(t, 10.0+newDur, nextStepTime, 1e-9)
}

func intp(v int) *int { return &v }
