// Package reducer is the bridge between UI-level intents and the two
// things that must happen to them: local application via session.Apply,
// and, when the intent is classified as synced, handing it to the
// Client Sync Engine. It is the only place that knows both about local
// state and about the wire.
package reducer

import (
	"github.com/schollz/keyboardia/internal/session"
	"github.com/schollz/keyboardia/internal/syncclass"
)

// ClientSync is the subset of the Client Sync Engine (internal/client)
// the bridge depends on: handing off an already-locally-applied
// mutation for wire transmission. Defined here, not in internal/client,
// so this package doesn't import its heavier transport dependency.
type ClientSync interface {
	Send(m session.Mutation)
}

// Bridge holds the single local Session a tab renders against.
type Bridge struct {
	client ClientSync
	state  session.Session
}

// New returns a Bridge seeded with initial, forwarding synced mutations
// to client.
func New(client ClientSync, initial session.Session) *Bridge {
	return &Bridge{client: client, state: initial}
}

// State returns the bridge's current local session.
func (b *Bridge) State() session.Session {
	return b.state
}

// Dispatch routes one UI-level mutation through applyMutation, then, if
// syncclass classifies its kind as synced, hands it to the Client Sync
// Engine. LOCAL-ONLY mutations (muted, soloed) apply locally and stop
// there.
func (b *Bridge) Dispatch(m session.Mutation) (session.Session, error) {
	next, err := session.Apply(b.state, m)
	if err != nil {
		return b.state, err
	}
	b.state = next

	if info, ok := syncclass.Classify(m.Kind()); ok && info.Synced && b.client != nil {
		b.client.Send(m)
	}
	return b.state, nil
}

// ApplyRemote applies a mutation the Client Sync Engine already knows is
// server-confirmed (an echo or another player's broadcast) directly to
// local state, bypassing the synced-forwarding step - re-sending a
// mutation the wire just delivered would echo it straight back.
func (b *Bridge) ApplyRemote(m session.Mutation) (session.Session, error) {
	next, err := session.Apply(b.state, m)
	if err != nil {
		return b.state, err
	}
	b.state = next
	return b.state, nil
}

// ApplySnapshot is the LOAD_STATE merge: the remote session replaces
// local state wholesale except that every track
// already present locally by id keeps its own LOCAL-ONLY fields
// (muted, soloed) rather than the remote's. Session has no transient
// per-tab fields (isPlaying, currentStep, selection, focus belong to a
// rendering collaborator, not this type), so there is nothing else to
// preserve.
func (b *Bridge) ApplySnapshot(remote session.Session) session.Session {
	b.state = MergeLoadState(b.state, remote)
	return b.state
}

// MergeLoadState merges remote into local: remote's track list, effects,
// tempo, swing, scale and loop region all win outright, but any track
// that also exists locally (matched by id) keeps its local LOCAL-ONLY
// fields from syncclass.TrackLocalOnlyFields instead of remote's.
func MergeLoadState(local, remote session.Session) session.Session {
	merged := remote.Clone()
	localByID := make(map[string]session.Track, len(local.Tracks))
	for _, t := range local.Tracks {
		localByID[t.ID] = t
	}
	for i := range merged.Tracks {
		if lt, ok := localByID[merged.Tracks[i].ID]; ok {
			merged.Tracks[i].Muted = lt.Muted
			merged.Tracks[i].Soloed = lt.Soloed
		}
	}
	return merged
}
