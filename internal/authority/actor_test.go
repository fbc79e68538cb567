package authority

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/keyboardia/internal/session"
	"github.com/schollz/keyboardia/internal/wire"
)

func newTestPlayer(id string) *player {
	p := newPlayer(nil)
	p.id = id
	return p
}

func drain(t *testing.T, p *player) []byte {
	t.Helper()
	select {
	case raw := <-p.send:
		return raw
	default:
		t.Fatal("expected a queued message, found none")
		return nil
	}
}

func TestHandleConnectSendsIdentityThenSnapshot(t *testing.T) {
	a := newSessionActor("s1", nil)
	p := newTestPlayer("alice")

	a.handleConnect(msgConnect{player: p})

	typ, err := wire.PeekType(drain(t, p))
	require.NoError(t, err)
	assert.Equal(t, wire.TypeIdentity, typ)

	typ, err = wire.PeekType(drain(t, p))
	require.NoError(t, err)
	assert.Equal(t, wire.TypeSnapshot, typ)

	typ, err = wire.PeekType(drain(t, p))
	require.NoError(t, err)
	assert.Equal(t, wire.TypePresence, typ)

	assert.Same(t, p, a.players["alice"])
}

func TestHandleMutationAppliesAndBroadcastsWithServerSeq(t *testing.T) {
	a := newSessionActor("s1", nil)
	p := newTestPlayer("alice")
	a.handleConnect(msgConnect{player: p})
	drain(t, p) // identity
	drain(t, p) // snapshot
	drain(t, p) // presence

	payload, err := json.Marshal(session.NewSetTempo(150))
	require.NoError(t, err)

	a.handleMutation(msgMutation{player: p, kind: session.KindSetTempo, seq: 1, payload: payload})

	assert.Equal(t, 150, a.state.Tempo)
	assert.Equal(t, int64(1), a.serverSeq)

	var bc wire.Broadcast
	require.NoError(t, wire.Unmarshal(drain(t, p), &bc))
	assert.Equal(t, "tempo_set", bc.Type)
	assert.Equal(t, int64(1), bc.ServerSeq)
	assert.Equal(t, int64(1), bc.OriginatorSeq)
	assert.Equal(t, "alice", bc.OriginatorPlayer)
}

func TestHandleMutationRejectsLocalOnlyKind(t *testing.T) {
	a := newSessionActor("s1", nil)
	p := newTestPlayer("alice")
	a.handleConnect(msgConnect{player: p})
	drain(t, p)
	drain(t, p)
	drain(t, p)

	payload, err := json.Marshal(session.NewSetTrackMuted("t1", true))
	require.NoError(t, err)

	a.handleMutation(msgMutation{player: p, kind: session.KindSetTrackMuted, seq: 1, payload: payload})

	var rej wire.Rejected
	require.NoError(t, wire.Unmarshal(drain(t, p), &rej))
	assert.Equal(t, wire.TypeRejected, rej.Type)
	assert.Equal(t, int64(1), rej.Seq)
}

func TestHandleMutationOnUnknownTrackIsForgivingNoOp(t *testing.T) {
	// A missing target track is treated as a no-op rather than rejected
	// (internal/session's withTrack): the target may have just been
	// deleted by a concurrent client, and convergence is better served by
	// quietly absorbing the race than by rejecting one side of it. The
	// mutation still advances serverSeq and broadcasts, same as any other
	// accepted mutation — it simply changes nothing.
	a := newSessionActor("s1", nil)
	p := newTestPlayer("alice")
	a.handleConnect(msgConnect{player: p})
	drain(t, p)
	drain(t, p)
	drain(t, p)

	payload, err := json.Marshal(session.NewSetTrackVolume("missing", 0.5))
	require.NoError(t, err)

	a.handleMutation(msgMutation{player: p, kind: session.KindSetTrackVolume, seq: 7, payload: payload})

	var bc wire.Broadcast
	require.NoError(t, wire.Unmarshal(drain(t, p), &bc))
	assert.Equal(t, "track_volume_set", bc.Type)
	assert.Empty(t, a.state.Tracks)
}

func TestHandleMutationRejectsDuplicateTrackID(t *testing.T) {
	a := newSessionActor("s1", nil)
	p := newTestPlayer("alice")
	a.handleConnect(msgConnect{player: p})
	drain(t, p)
	drain(t, p)
	drain(t, p)

	track := session.NewTrack("t1", "kick", "kick808")
	payload, err := json.Marshal(session.NewAddTrack(track))
	require.NoError(t, err)
	a.handleMutation(msgMutation{player: p, kind: session.KindAddTrack, seq: 1, payload: payload})
	drain(t, p) // broadcast of the first add

	a.handleMutation(msgMutation{player: p, kind: session.KindAddTrack, seq: 2, payload: payload})

	var rej wire.Rejected
	require.NoError(t, wire.Unmarshal(drain(t, p), &rej))
	assert.Equal(t, int64(2), rej.Seq)
	assert.Equal(t, "duplicate_track_id", rej.Reason)
	assert.Len(t, a.state.Tracks, 1)
}

func TestHandleMutationFromUnjoinedPlayerIsIgnored(t *testing.T) {
	a := newSessionActor("s1", nil)
	p := newTestPlayer("alice") // never connected

	payload, err := json.Marshal(session.NewSetTempo(150))
	require.NoError(t, err)

	a.handleMutation(msgMutation{player: p, kind: session.KindSetTempo, seq: 1, payload: payload})

	assert.Equal(t, 120, a.state.Tempo)
	select {
	case <-p.send:
		t.Fatal("expected no message for an unjoined player")
	default:
	}
}

func TestHandleMutationIgnoresResendOfAlreadyProcessedSeq(t *testing.T) {
	a := newSessionActor("s1", nil)
	p := newTestPlayer("alice")
	a.handleConnect(msgConnect{player: p})
	drain(t, p)
	drain(t, p)
	drain(t, p)

	payload, err := json.Marshal(session.NewSetTempo(150))
	require.NoError(t, err)
	a.handleMutation(msgMutation{player: p, kind: session.KindSetTempo, seq: 1, payload: payload})
	drain(t, p)
	assert.Equal(t, int64(1), a.serverSeq)

	// Simulate a reconnect resending the same pending seq.
	a.handleMutation(msgMutation{player: p, kind: session.KindSetTempo, seq: 1, payload: payload})

	assert.Equal(t, int64(1), a.serverSeq, "resend of an already-applied seq must not re-bump serverSeq")
	select {
	case <-p.send:
		t.Fatal("resent duplicate seq should not produce a second broadcast")
	default:
	}
}

func TestHandleDisconnectRemovesOnlyMatchingPlayer(t *testing.T) {
	a := newSessionActor("s1", nil)
	p1 := newTestPlayer("alice")
	a.handleConnect(msgConnect{player: p1})
	drain(t, p1)
	drain(t, p1)
	drain(t, p1)

	a.handleDisconnect(p1)
	assert.NotContains(t, a.players, "alice")
}

func TestBroadcastPresenceListsConnectedPlayers(t *testing.T) {
	a := newSessionActor("s1", nil)
	p1 := newTestPlayer("alice")
	a.handleConnect(msgConnect{player: p1})
	drain(t, p1) // identity
	drain(t, p1) // snapshot
	drain(t, p1) // presence: just alice

	p2 := newTestPlayer("bob")
	a.handleConnect(msgConnect{player: p2})
	drain(t, p2) // identity
	drain(t, p2) // snapshot

	var pres wire.Presence
	require.NoError(t, wire.Unmarshal(drain(t, p2), &pres))
	assert.Len(t, pres.Players, 2)

	// alice also gets the updated roster once bob joins.
	require.NoError(t, wire.Unmarshal(drain(t, p1), &pres))
	assert.Len(t, pres.Players, 2)
}

func TestDeriveIdentityIsStablePerPlayer(t *testing.T) {
	c1, n1 := DeriveIdentity("alice")
	c2, n2 := DeriveIdentity("alice")
	c3, n3 := DeriveIdentity("bob")

	assert.Equal(t, c1, c2)
	assert.Equal(t, n1, n2)
	assert.NotEqual(t, n1, n3, "different players should usually get different names")
	_ = c3
}

func TestClientMessageKindReversesSyncclassMapping(t *testing.T) {
	k, ok := clientMessageKind("set_tempo")
	require.True(t, ok)
	assert.Equal(t, session.KindSetTempo, k)

	_, ok = clientMessageKind("set_track_muted")
	assert.False(t, ok, "local-only kinds have no client message name")

	_, ok = clientMessageKind("not_a_real_message")
	assert.False(t, ok)
}
