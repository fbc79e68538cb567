// Package session holds the canonical musical session state and the pure
// mutation function that evolves it. Nothing in this package touches the
// network, the clock, or disk; it is reused identically by the client
// reducer (internal/reducer) and the live-session authority
// (internal/authority).
package session

import (
	"sort"
	"strings"
)

// MaxSteps is the fixed backing length of every track's step and
// parameter-lock arrays, regardless of the track's own StepCount.
const MaxSteps = 128

// MaxTracks bounds the number of tracks a session may hold.
const MaxTracks = 16

const (
	MinTempo = 60
	MaxTempo = 180

	MinSwing = 0
	MaxSwing = 100

	MinVolume = 0.0
	MaxVolume = 1.0

	MinTranspose = -24
	MaxTranspose = 24
)

// ValidStepCounts enumerates the per-track loop lengths the scheduler
// accepts. They're chosen to make interesting polyrhythms against a
// 16-step bar (3, 4, 6, 8...) while still allowing a track to run the
// full 128-step global cycle without repeating.
var ValidStepCounts = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 12, 16, 24, 32, 48, 64, 96, 128}

// DefaultStepCount is what new tracks start with and what move_sequence
// resets to.
const DefaultStepCount = 16

// PitchClassCount is the number of pitch classes in an octave, matching
// scale.root's range.
const PitchClassCount = 12

// Track is a single sequencer lane. Steps and ParameterLocks are always
// MaxSteps long; StepCount only bounds how much of that length the
// scheduler walks (the polyrhythm primitive).
type Track struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	SampleID       string                `json:"sampleId"`
	Steps          [MaxSteps]bool        `json:"steps"`
	ParameterLocks [MaxSteps]*ParameterLock `json:"parameterLocks"`
	Volume         float64               `json:"volume"`
	Transpose      int                   `json:"transpose"`
	StepCount      int                   `json:"stepCount"`
	FMParams       *FMParams             `json:"fmParams,omitempty"`
	Swing          *int                  `json:"swing,omitempty"`

	// Muted and Soloed are LOCAL-ONLY: never broadcast, never
	// overwritten by a snapshot merge. They still round-trip through JSON
	// so a lone client's own save file remembers them.
	Muted  bool `json:"muted"`
	Soloed bool `json:"soloed"`
}

// ParameterLock is a per-step override. A nil *ParameterLock means "no
// lock at this step." Pitch and Volume are pointers so the zero value
// (0, 0.0) is distinguishable from "not set."
type ParameterLock struct {
	Pitch  *int     `json:"pitch,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	Tie    bool     `json:"tie,omitempty"`
}

// FMParams holds the two parameters of an FM voice.
type FMParams struct {
	Harmonicity     float64 `json:"harmonicity"`
	ModulationIndex float64 `json:"modulationIndex"`
}

// Scale constrains step pitches to a named scale rooted at a pitch class.
type Scale struct {
	Root    int    `json:"root"`
	ScaleID string `json:"scaleId"`
	Locked  bool   `json:"locked"`
}

// LoopRegion restricts the scheduler's global step counter to
// [Start, End] inclusive.
type LoopRegion struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// EffectParams is one named effect block. All effects default "dry"
// (Wet == 0); the remaining parameters are effect-specific tone shaping
// that a voice collaborator is free to ignore.
type EffectParams struct {
	Wet     float64 `json:"wet"`
	ParamA  float64 `json:"paramA"`
	ParamB  float64 `json:"paramB"`
}

// Effects is the session's four fixed effect sends.
type Effects struct {
	Reverb      EffectParams `json:"reverb"`
	Delay       EffectParams `json:"delay"`
	Chorus      EffectParams `json:"chorus"`
	Distortion  EffectParams `json:"distortion"`
}

// Session is the single authoritative piece of shared state. It is
// always passed and returned by value at the package boundary; nothing in
// this package mutates a Session it was handed.
type Session struct {
	Tracks     []Track     `json:"tracks"`
	Tempo      int         `json:"tempo"`
	Swing      int         `json:"swing"`
	Effects    Effects     `json:"effects"`
	Scale      *Scale      `json:"scale,omitempty"`
	LoopRegion *LoopRegion `json:"loopRegion,omitempty"`
	Name       string      `json:"name,omitempty"`
}

// New returns an empty session with every field at its default, the same
// shape RESET_STATE produces.
func New() Session {
	return Session{
		Tracks: []Track{},
		Tempo:  120,
		Swing:  0,
	}
}

// NewTrack returns a track with defaults matching a freshly added lane:
// no active steps, no locks, full volume, the default step count.
func NewTrack(id, name, sampleID string) Track {
	return Track{
		ID:        id,
		Name:      name,
		SampleID:  sampleID,
		Volume:    1.0,
		StepCount: DefaultStepCount,
	}
}

// Clone deep-copies a session so callers (tests, the authority's
// snapshot path) can hold on to a value without aliasing the session's
// Tracks slice or any ParameterLock pointer slot. ParameterLock values
// themselves are immutable once written (apply always replaces the
// pointer, never writes through it), so it's safe to share the pointee.
func (s Session) Clone() Session {
	out := s
	out.Tracks = make([]Track, len(s.Tracks))
	copy(out.Tracks, s.Tracks)
	if s.Scale != nil {
		scale := *s.Scale
		out.Scale = &scale
	}
	if s.LoopRegion != nil {
		lr := *s.LoopRegion
		out.LoopRegion = &lr
	}
	return out
}

// TrackIndex returns the index of the track with the given id, or -1.
func (s Session) TrackIndex(id string) int {
	for i := range s.Tracks {
		if s.Tracks[i].ID == id {
			return i
		}
	}
	return -1
}

// ClampTempo bounds tempo to [MinTempo, MaxTempo]. Idempotent.
func ClampTempo(t int) int { return clampInt(t, MinTempo, MaxTempo) }

// ClampSwing bounds a swing percentage to [MinSwing, MaxSwing]. Idempotent.
func ClampSwing(s int) int { return clampInt(s, MinSwing, MaxSwing) }

// ClampVolume bounds a volume to [MinVolume, MaxVolume]. Idempotent.
func ClampVolume(v float64) float64 {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// ClampTranspose bounds semitone transpose to [MinTranspose, MaxTranspose].
// Idempotent.
func ClampTranspose(t int) int { return clampInt(t, MinTranspose, MaxTranspose) }

// ClampStepCount snaps a requested step count to the nearest value in
// ValidStepCounts. Idempotent: clamping an already-valid count is a
// no-op.
func ClampStepCount(n int) int {
	best := ValidStepCounts[0]
	bestDist := abs(n - best)
	for _, v := range ValidStepCounts[1:] {
		d := abs(n - v)
		if d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

// ValidLoopRegion reports whether a loop region satisfies
// start < end <= MaxSteps.
func ValidLoopRegion(r LoopRegion) bool {
	return r.Start >= 0 && r.Start < r.End && r.End <= MaxSteps
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// IsValidStepCount reports membership in ValidStepCounts without
// snapping, used by validation paths that want to reject rather than
// clamp.
func IsValidStepCount(n int) bool {
	i := sort.SearchInts(ValidStepCounts, n)
	return i < len(ValidStepCounts) && ValidStepCounts[i] == n
}

// VoiceFamilyDrum is the implicit family of a sampleId with no typed
// prefix: bare names denote drum samples.
const VoiceFamilyDrum = "drum"

// voiceFamilyPrefixes are the recognised typed prefixes on a sampleId.
var voiceFamilyPrefixes = []string{"synth", "tone", "advanced", "sampled"}

// VoiceFamily extracts the voice family a sampleId identifies: the text
// before its first ':' when that text is one of the recognised typed
// prefixes, otherwise VoiceFamilyDrum for a bare sample name.
func VoiceFamily(sampleID string) string {
	prefix, _, found := strings.Cut(sampleID, ":")
	if !found {
		return VoiceFamilyDrum
	}
	for _, p := range voiceFamilyPrefixes {
		if prefix == p {
			return prefix
		}
	}
	return VoiceFamilyDrum
}
