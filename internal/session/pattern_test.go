package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func trackWithSteps(stepCount int, active ...int) Track {
	t := NewTrack("t1", "t", "s")
	t.StepCount = stepCount
	for _, i := range active {
		t.Steps[i] = true
	}
	return t
}

func activeIndices(t Track) []int {
	var out []int
	for i := 0; i < t.StepCount; i++ {
		if t.Steps[i] {
			out = append(out, i)
		}
	}
	return out
}

func TestRotateTrack(t *testing.T) {
	tr := trackWithSteps(4, 0)
	out := rotateTrack(tr, 1)
	assert.Equal(t, []int{1}, activeIndices(out))

	back := rotateTrack(out, -1)
	assert.Equal(t, []int{0}, activeIndices(back))
}

func TestRotateTrackWrapsOnStepCountNotMaxSteps(t *testing.T) {
	tr := trackWithSteps(4, 3)
	out := rotateTrack(tr, 1)
	assert.Equal(t, []int{0}, activeIndices(out))
}

func TestInvertTrack(t *testing.T) {
	tr := trackWithSteps(4, 0, 2)
	out := invertTrack(tr)
	assert.Equal(t, []int{1, 3}, activeIndices(out))
}

func TestReverseTrack(t *testing.T) {
	tr := trackWithSteps(4, 0)
	out := reverseTrack(tr)
	assert.Equal(t, []int{3}, activeIndices(out))
}

func TestMirrorTrack(t *testing.T) {
	tr := trackWithSteps(4, 0, 1)
	out := mirrorTrack(tr)
	assert.Equal(t, []int{0, 1, 2, 3}, activeIndices(out))
}

func TestEuclideanFillHitCount(t *testing.T) {
	tr := trackWithSteps(16)
	out := euclideanFillTrack(tr, 4)
	assert.Len(t, activeIndices(out), 4)
}

func TestEuclideanFillZeroPulsesClears(t *testing.T) {
	tr := trackWithSteps(16, 0, 1, 2)
	out := euclideanFillTrack(tr, 0)
	assert.Empty(t, activeIndices(out))
}

func TestEuclideanFillAllPulsesFillsSolid(t *testing.T) {
	tr := trackWithSteps(8)
	out := euclideanFillTrack(tr, 8)
	assert.Len(t, activeIndices(out), 8)
}

func TestBjorklundClassicThreeEight(t *testing.T) {
	// E(3,8) is the classic tresillo rhythm; any maximally-even
	// distribution of 3 hits over 8 slots has gaps differing by at most 1.
	pattern := bjorklund(3, 8)
	count := 0
	for _, v := range pattern {
		if v {
			count++
		}
	}
	assert.Equal(t, 3, count)
}
