package session

// Kind is the wire-stable tag identifying a mutation's shape. It's the
// key every exhaustiveness check in internal/syncclass is built around:
// adding a new Kind to AllKinds without a matching entry there makes
// syncclass panic at init, so the process fails at startup.
type Kind string

const (
	KindToggleStep         Kind = "toggle_step"
	KindSetTempo           Kind = "set_tempo"
	KindSetSwing           Kind = "set_swing"
	KindSetTrackVolume     Kind = "set_track_volume"
	KindSetTrackTranspose  Kind = "set_track_transpose"
	KindSetTrackStepCount  Kind = "set_track_step_count"
	KindAddTrack           Kind = "add_track"
	KindDeleteTrack        Kind = "delete_track"
	KindClearTrack         Kind = "clear_track"
	KindSetTrackSample     Kind = "set_track_sample"
	KindSetParameterLock   Kind = "set_parameter_lock"
	KindCopySequence       Kind = "copy_sequence"
	KindMoveSequence       Kind = "move_sequence"
	KindSetEffects         Kind = "set_effects"
	KindSetScale           Kind = "set_scale"
	KindSetSessionName     Kind = "set_session_name"
	KindSetLoopRegion      Kind = "set_loop_region"
	KindRotatePattern      Kind = "rotate_pattern"
	KindInvertPattern      Kind = "invert_pattern"
	KindReversePattern     Kind = "reverse_pattern"
	KindMirrorPattern      Kind = "mirror_pattern"
	KindEuclideanFill      Kind = "euclidean_fill"
	KindReorderTracks      Kind = "reorder_tracks"
	KindReorderTrackByID   Kind = "reorder_track_by_id"
	KindSetTrackMuted      Kind = "set_track_muted"
	KindSetTrackSoloed     Kind = "set_track_soloed"
	KindResetState         Kind = "reset_state"
)

// AllKinds lists every mutation tag the core recognises. syncclass uses
// it to assert its classification table is exhaustive (internal/syncclass
// has a test that range-checks this slice against its own map).
var AllKinds = []Kind{
	KindToggleStep, KindSetTempo, KindSetSwing, KindSetTrackVolume,
	KindSetTrackTranspose, KindSetTrackStepCount, KindAddTrack,
	KindDeleteTrack, KindClearTrack, KindSetTrackSample,
	KindSetParameterLock, KindCopySequence, KindMoveSequence,
	KindSetEffects, KindSetScale, KindSetSessionName, KindSetLoopRegion,
	KindRotatePattern, KindInvertPattern, KindReversePattern,
	KindMirrorPattern, KindEuclideanFill, KindReorderTracks,
	KindReorderTrackByID, KindSetTrackMuted, KindSetTrackSoloed,
	KindResetState,
}

// Mutation is the closed sum type Apply switches over. The
// unexported method seals it to this package: every variant is declared
// here, nowhere else.
type Mutation interface {
	Kind() Kind
	mutation()
}

type baseMutation struct{ kind Kind }

func (b baseMutation) Kind() Kind { return b.kind }
func (baseMutation) mutation()    {}

// ToggleStep flips tracks[i].steps[Step] for the track with id TrackID.
type ToggleStep struct {
	baseMutation
	TrackID string `json:"trackId"`
	Step    int    `json:"step"`
}

func NewToggleStep(trackID string, step int) ToggleStep {
	return ToggleStep{baseMutation{KindToggleStep}, trackID, step}
}

// SetTempo replaces the session tempo (clamped).
type SetTempo struct {
	baseMutation
	Tempo int `json:"tempo"`
}

func NewSetTempo(tempo int) SetTempo { return SetTempo{baseMutation{KindSetTempo}, tempo} }

// SetSwing replaces the session swing percentage (clamped).
type SetSwing struct {
	baseMutation
	Swing int `json:"swing"`
}

func NewSetSwing(swing int) SetSwing { return SetSwing{baseMutation{KindSetSwing}, swing} }

// SetTrackVolume replaces a track's volume (clamped).
type SetTrackVolume struct {
	baseMutation
	TrackID string  `json:"trackId"`
	Volume  float64 `json:"volume"`
}

func NewSetTrackVolume(trackID string, volume float64) SetTrackVolume {
	return SetTrackVolume{baseMutation{KindSetTrackVolume}, trackID, volume}
}

// SetTrackTranspose replaces a track's transpose in semitones (clamped).
type SetTrackTranspose struct {
	baseMutation
	TrackID   string `json:"trackId"`
	Transpose int    `json:"transpose"`
}

func NewSetTrackTranspose(trackID string, transpose int) SetTrackTranspose {
	return SetTrackTranspose{baseMutation{KindSetTrackTranspose}, trackID, transpose}
}

// SetTrackStepCount replaces a track's loop length (clamped to
// ValidStepCounts). Neither growing nor shrinking touches the backing
// 128-slot arrays: shrinking hides the tail, and growing exposes
// whatever those slots hold (false/nil unless written earlier).
type SetTrackStepCount struct {
	baseMutation
	TrackID   string `json:"trackId"`
	StepCount int    `json:"stepCount"`
}

func NewSetTrackStepCount(trackID string, stepCount int) SetTrackStepCount {
	return SetTrackStepCount{baseMutation{KindSetTrackStepCount}, trackID, stepCount}
}

// AddTrack appends a new track, rejected on duplicate id or if the
// session is already at MaxTracks.
type AddTrack struct {
	baseMutation
	Track Track `json:"track"`
}

func NewAddTrack(t Track) AddTrack { return AddTrack{baseMutation{KindAddTrack}, t} }

// DeleteTrack removes the track with the given id; a no-op if absent.
type DeleteTrack struct {
	baseMutation
	TrackID string `json:"trackId"`
}

func NewDeleteTrack(trackID string) DeleteTrack {
	return DeleteTrack{baseMutation{KindDeleteTrack}, trackID}
}

// ClearTrack zeroes a track's steps and parameter locks, preserving
// metadata (id, name, sampleId, volume, transpose, stepCount).
type ClearTrack struct {
	baseMutation
	TrackID string `json:"trackId"`
}

func NewClearTrack(trackID string) ClearTrack {
	return ClearTrack{baseMutation{KindClearTrack}, trackID}
}

// SetTrackSample changes sampleId and, optionally, name. Steps are
// untouched.
type SetTrackSample struct {
	baseMutation
	TrackID  string  `json:"trackId"`
	SampleID string  `json:"sampleId"`
	Name     *string `json:"name,omitempty"`
}

func NewSetTrackSample(trackID, sampleID string, name *string) SetTrackSample {
	return SetTrackSample{baseMutation{KindSetTrackSample}, trackID, sampleID, name}
}

// SetParameterLock writes (or, when Lock is nil, clears) the lock at
// (TrackID, Step).
type SetParameterLock struct {
	baseMutation
	TrackID string         `json:"trackId"`
	Step    int            `json:"step"`
	Lock    *ParameterLock `json:"lock,omitempty"`
}

func NewSetParameterLock(trackID string, step int, lock *ParameterLock) SetParameterLock {
	return SetParameterLock{baseMutation{KindSetParameterLock}, trackID, step, lock}
}

// CopySequence copies steps, parameterLocks and stepCount from
// SourceTrackID to TargetTrackID. The target keeps its own id/name/
// sampleId.
type CopySequence struct {
	baseMutation
	SourceTrackID string `json:"sourceTrackId"`
	TargetTrackID string `json:"targetTrackId"`
}

func NewCopySequence(sourceID, targetID string) CopySequence {
	return CopySequence{baseMutation{KindCopySequence}, sourceID, targetID}
}

// MoveSequence is CopySequence followed by zeroing the source and
// resetting its stepCount to DefaultStepCount.
type MoveSequence struct {
	baseMutation
	SourceTrackID string `json:"sourceTrackId"`
	TargetTrackID string `json:"targetTrackId"`
}

func NewMoveSequence(sourceID, targetID string) MoveSequence {
	return MoveSequence{baseMutation{KindMoveSequence}, sourceID, targetID}
}

// SetEffects wholesale-replaces the session's effect blocks.
type SetEffects struct {
	baseMutation
	Effects Effects `json:"effects"`
}

func NewSetEffects(e Effects) SetEffects { return SetEffects{baseMutation{KindSetEffects}, e} }

// SetScale wholesale-replaces the session's scale (nil clears it).
type SetScale struct {
	baseMutation
	Scale *Scale `json:"scale,omitempty"`
}

func NewSetScale(scale *Scale) SetScale { return SetScale{baseMutation{KindSetScale}, scale} }

// SetSessionName replaces the session's display name.
type SetSessionName struct {
	baseMutation
	Name string `json:"name"`
}

func NewSetSessionName(name string) SetSessionName {
	return SetSessionName{baseMutation{KindSetSessionName}, name}
}

// SetLoopRegion wholesale-replaces the loop region (nil clears it).
type SetLoopRegion struct {
	baseMutation
	Region *LoopRegion `json:"region,omitempty"`
}

func NewSetLoopRegion(region *LoopRegion) SetLoopRegion {
	return SetLoopRegion{baseMutation{KindSetLoopRegion}, region}
}

// RotatePattern rotates a track's steps/parameterLocks by N positions
// (bounded by stepCount).
type RotatePattern struct {
	baseMutation
	TrackID string `json:"trackId"`
	N       int    `json:"n"`
}

func NewRotatePattern(trackID string, n int) RotatePattern {
	return RotatePattern{baseMutation{KindRotatePattern}, trackID, n}
}

// InvertPattern flips active/inactive for every step within stepCount.
type InvertPattern struct {
	baseMutation
	TrackID string `json:"trackId"`
}

func NewInvertPattern(trackID string) InvertPattern {
	return InvertPattern{baseMutation{KindInvertPattern}, trackID}
}

// ReversePattern reverses step order within stepCount.
type ReversePattern struct {
	baseMutation
	TrackID string `json:"trackId"`
}

func NewReversePattern(trackID string) ReversePattern {
	return ReversePattern{baseMutation{KindReversePattern}, trackID}
}

// MirrorPattern palindromes the first half of the pattern onto the
// second half, within stepCount.
type MirrorPattern struct {
	baseMutation
	TrackID string `json:"trackId"`
}

func NewMirrorPattern(trackID string) MirrorPattern {
	return MirrorPattern{baseMutation{KindMirrorPattern}, trackID}
}

// EuclideanFill overwrites a track's steps (within stepCount) with an
// Euclidean rhythm of Pulses hits evenly spread over stepCount slots.
type EuclideanFill struct {
	baseMutation
	TrackID string `json:"trackId"`
	Pulses  int    `json:"pulses"`
}

func NewEuclideanFill(trackID string, pulses int) EuclideanFill {
	return EuclideanFill{baseMutation{KindEuclideanFill}, trackID, pulses}
}

// ReorderTracks moves the track at From to index To (position-based).
type ReorderTracks struct {
	baseMutation
	From int `json:"from"`
	To   int `json:"to"`
}

func NewReorderTracks(from, to int) ReorderTracks {
	return ReorderTracks{baseMutation{KindReorderTracks}, from, to}
}

// ReorderTrackByID moves the track identified by TrackID to just before
// the track identified by BeforeID (or to the end, when BeforeID is
// empty). This is the commutative wire representation preferred for
// concurrent reorders: two clients reordering around different
// anchors converge, where two position-based reorders racing on a
// moving index would not.
type ReorderTrackByID struct {
	baseMutation
	TrackID  string `json:"trackId"`
	BeforeID string `json:"beforeId"`
}

func NewReorderTrackByID(trackID, beforeID string) ReorderTrackByID {
	return ReorderTrackByID{baseMutation{KindReorderTrackByID}, trackID, beforeID}
}

// SetTrackMuted is LOCAL-ONLY: classified as never synced.
type SetTrackMuted struct {
	baseMutation
	TrackID string `json:"trackId"`
	Muted   bool   `json:"muted"`
}

func NewSetTrackMuted(trackID string, muted bool) SetTrackMuted {
	return SetTrackMuted{baseMutation{KindSetTrackMuted}, trackID, muted}
}

// SetTrackSoloed is LOCAL-ONLY: classified as never synced.
type SetTrackSoloed struct {
	baseMutation
	TrackID string `json:"trackId"`
	Soloed  bool   `json:"soloed"`
}

func NewSetTrackSoloed(trackID string, soloed bool) SetTrackSoloed {
	return SetTrackSoloed{baseMutation{KindSetTrackSoloed}, trackID, soloed}
}

// ResetState replaces the whole session with session.New().
type ResetState struct {
	baseMutation
}

func NewResetState() ResetState { return ResetState{baseMutation{KindResetState}} }
