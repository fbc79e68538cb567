// Package syncclass holds the single exhaustive table that answers, for
// every session.Kind: must this be broadcast, which fields on its target
// entity are LOCAL-ONLY, and what are the wire names on each side of the
// connection.
package syncclass

import "github.com/schollz/keyboardia/internal/session"

// Info is one row of the classification table.
type Info struct {
	// Synced reports whether a mutation of this kind must be sent to the
	// live-session authority at all. Muted/soloed mutations are always
	// false here — they never leave the tab that made them.
	Synced bool

	// LocalOnlyFields names the fields on the mutation's target entity
	// that a snapshot merge must never overwrite.
	LocalOnlyFields []string

	// ClientMessage is the on-the-wire type string a client sends.
	ClientMessage string

	// ServerBroadcast is the on-the-wire type string the authority
	// echoes back to all connected players.
	ServerBroadcast string
}

// table is the exhaustive map. A mutation kind missing an entry here is
// caught at init time by mustBeExhaustive, turning a missed addition
// into a hard startup failure rather than a silent sync gap.
var table = map[session.Kind]Info{
	session.KindToggleStep: {
		Synced: true, ClientMessage: "toggle_step", ServerBroadcast: "step_toggled",
	},
	session.KindSetTempo: {
		Synced: true, ClientMessage: "set_tempo", ServerBroadcast: "tempo_set",
	},
	session.KindSetSwing: {
		Synced: true, ClientMessage: "set_swing", ServerBroadcast: "swing_set",
	},
	session.KindSetTrackVolume: {
		Synced: true, ClientMessage: "set_track_volume", ServerBroadcast: "track_volume_set",
	},
	session.KindSetTrackTranspose: {
		Synced: true, ClientMessage: "set_track_transpose", ServerBroadcast: "track_transpose_set",
	},
	session.KindSetTrackStepCount: {
		Synced: true, ClientMessage: "set_track_step_count", ServerBroadcast: "track_step_count_set",
	},
	session.KindAddTrack: {
		Synced: true, ClientMessage: "add_track", ServerBroadcast: "track_added",
	},
	session.KindDeleteTrack: {
		Synced: true, ClientMessage: "delete_track", ServerBroadcast: "track_deleted",
	},
	session.KindClearTrack: {
		Synced: true, ClientMessage: "clear_track", ServerBroadcast: "track_cleared",
	},
	session.KindSetTrackSample: {
		Synced: true, ClientMessage: "set_track_sample", ServerBroadcast: "track_sample_set",
	},
	session.KindSetParameterLock: {
		Synced: true, ClientMessage: "set_parameter_lock", ServerBroadcast: "parameter_lock_set",
	},
	session.KindCopySequence: {
		Synced: true, ClientMessage: "copy_sequence", ServerBroadcast: "sequence_copied",
	},
	session.KindMoveSequence: {
		Synced: true, ClientMessage: "move_sequence", ServerBroadcast: "sequence_moved",
	},
	session.KindSetEffects: {
		Synced: true, ClientMessage: "set_effects", ServerBroadcast: "effects_set",
	},
	session.KindSetScale: {
		Synced: true, ClientMessage: "set_scale", ServerBroadcast: "scale_set",
	},
	session.KindSetSessionName: {
		Synced: true, ClientMessage: "set_session_name", ServerBroadcast: "session_name_set",
	},
	session.KindSetLoopRegion: {
		Synced: true, ClientMessage: "set_loop_region", ServerBroadcast: "loop_region_set",
	},
	session.KindRotatePattern: {
		Synced: true, ClientMessage: "rotate_pattern", ServerBroadcast: "pattern_rotated",
	},
	session.KindInvertPattern: {
		Synced: true, ClientMessage: "invert_pattern", ServerBroadcast: "pattern_inverted",
	},
	session.KindReversePattern: {
		Synced: true, ClientMessage: "reverse_pattern", ServerBroadcast: "pattern_reversed",
	},
	session.KindMirrorPattern: {
		Synced: true, ClientMessage: "mirror_pattern", ServerBroadcast: "pattern_mirrored",
	},
	session.KindEuclideanFill: {
		Synced: true, ClientMessage: "euclidean_fill", ServerBroadcast: "pattern_euclidean_filled",
	},
	session.KindReorderTracks: {
		Synced: true, ClientMessage: "reorder_tracks", ServerBroadcast: "tracks_reordered",
	},
	session.KindReorderTrackByID: {
		Synced: true, ClientMessage: "reorder_track_by_id", ServerBroadcast: "track_reordered_by_id",
	},
	session.KindSetTrackMuted: {
		Synced: false, LocalOnlyFields: []string{"muted"},
	},
	session.KindSetTrackSoloed: {
		Synced: false, LocalOnlyFields: []string{"soloed"},
	},
	session.KindResetState: {
		Synced: true, ClientMessage: "reset_state", ServerBroadcast: "state_reset",
	},
}

func init() {
	mustBeExhaustive()
}

func mustBeExhaustive() {
	for _, k := range session.AllKinds {
		if _, ok := table[k]; !ok {
			panic("syncclass: mutation kind " + string(k) + " has no classification entry")
		}
	}
}

// Classify returns the classification row for a mutation kind. Callers
// that control AllKinds (i.e. everyone, since the table is exhaustive
// over it) never see ok == false for a real kind; it's returned so a
// kind arriving from a newer wire version degrades to "ignore" instead
// of panicking.
func Classify(k session.Kind) (Info, bool) {
	info, ok := table[k]
	return info, ok
}

// TrackLocalOnlyFields are the fields on session.Track that a snapshot
// merge must never let the incoming value overwrite.
var TrackLocalOnlyFields = []string{"muted", "soloed"}
