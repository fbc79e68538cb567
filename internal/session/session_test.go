package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSession(t *testing.T) {
	s := New()
	assert.Empty(t, s.Tracks)
	assert.Equal(t, 120, s.Tempo)
	assert.Equal(t, 0, s.Swing)
	assert.Nil(t, s.Scale)
	assert.Nil(t, s.LoopRegion)
}

func TestClampTempoIdempotent(t *testing.T) {
	for _, v := range []int{-100, 0, 60, 119, 180, 500} {
		once := ClampTempo(v)
		twice := ClampTempo(once)
		assert.Equal(t, once, twice)
		assert.GreaterOrEqual(t, once, MinTempo)
		assert.LessOrEqual(t, once, MaxTempo)
	}
}

func TestClampSwingIdempotent(t *testing.T) {
	for _, v := range []int{-5, 0, 50, 100, 250} {
		once := ClampSwing(v)
		assert.Equal(t, once, ClampSwing(once))
		assert.GreaterOrEqual(t, once, MinSwing)
		assert.LessOrEqual(t, once, MaxSwing)
	}
}

func TestClampVolumeIdempotent(t *testing.T) {
	for _, v := range []float64{-1, 0, 0.5, 1, 2} {
		once := ClampVolume(v)
		assert.Equal(t, once, ClampVolume(once))
	}
}

func TestClampTransposeIdempotent(t *testing.T) {
	for _, v := range []int{-100, -24, 0, 24, 100} {
		once := ClampTranspose(v)
		assert.Equal(t, once, ClampTranspose(once))
	}
}

func TestClampStepCountIdempotent(t *testing.T) {
	for _, v := range []int{0, 1, 5, 13, 17, 100, 500} {
		once := ClampStepCount(v)
		assert.True(t, IsValidStepCount(once))
		assert.Equal(t, once, ClampStepCount(once))
	}
}

func TestValidLoopRegion(t *testing.T) {
	assert.True(t, ValidLoopRegion(LoopRegion{Start: 4, End: 8}))
	assert.False(t, ValidLoopRegion(LoopRegion{Start: 8, End: 8}))
	assert.False(t, ValidLoopRegion(LoopRegion{Start: 0, End: MaxSteps + 1}))
}

func TestCloneDoesNotAlias(t *testing.T) {
	s := New()
	s.Tracks = append(s.Tracks, NewTrack("t1", "kick", "kick808"))
	clone := s.Clone()
	clone.Tracks[0].Name = "renamed"
	assert.Equal(t, "kick", s.Tracks[0].Name)
}

func TestVoiceFamily(t *testing.T) {
	assert.Equal(t, "synth", VoiceFamily("synth:lead1"))
	assert.Equal(t, "tone", VoiceFamily("tone:organ"))
	assert.Equal(t, "advanced", VoiceFamily("advanced:fm1"))
	assert.Equal(t, "sampled", VoiceFamily("sampled:clap.wav"))
	assert.Equal(t, VoiceFamilyDrum, VoiceFamily("kick808"))
	assert.Equal(t, VoiceFamilyDrum, VoiceFamily("unknownprefix:thing"))
	assert.Equal(t, VoiceFamilyDrum, VoiceFamily(""))
}
