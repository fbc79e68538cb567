package authority

import (
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/gorilla/websocket"

	"github.com/schollz/keyboardia/internal/persistence"
	"github.com/schollz/keyboardia/internal/session"
	"github.com/schollz/keyboardia/internal/syncclass"
	"github.com/schollz/keyboardia/internal/wire"
)

type msgConnect struct {
	player             *player
	lastKnownServerSeq int64
}

type msgMutation struct {
	player  *player
	kind    session.Kind
	seq     int64
	payload json.RawMessage
}

type msgHeartbeat struct{ player *player }

type msgDisconnect struct{ player *player }

// sessionActor is the single-threaded owner of one session id's
// authoritative state. Every field below is touched only from run's
// goroutine; everything else talks to it through inbox.
type sessionActor struct {
	id    string
	store persistence.Store

	inbox chan any
	stop  chan struct{}
	done  chan struct{}

	state     session.Session
	serverSeq int64
	players   map[string]*player
	lastPrune time.Time

	// lastProcessedSeq remembers, per playerId, the highest client seq
	// already applied. A reconnecting client re-sends tracker entries
	// still pending, and the authority is idempotent on identical seq
	// from the same playerId; replaying an already-applied seq must
	// not re-apply or re-bump serverSeq. Keyed by playerId rather than
	// living on *player so it survives the old connection's replacement.
	lastProcessedSeq map[string]int64
}

func newSessionActor(id string, store persistence.Store) *sessionActor {
	state := session.New()
	if store != nil {
		if loaded, _, err := store.Load(id); err == nil {
			state = loaded
		}
	}
	return &sessionActor{
		id:        id,
		store:     store,
		inbox:     make(chan any, 256),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		state:            state,
		players:          make(map[string]*player),
		lastPrune:        time.Now(),
		lastProcessedSeq: make(map[string]int64),
	}
}

func (a *sessionActor) dispatch(msg any) {
	select {
	case a.inbox <- msg:
	case <-a.done:
	}
}

func (a *sessionActor) shutdown() {
	close(a.stop)
	<-a.done
}

func (a *sessionActor) run() {
	defer close(a.done)
	ticker := time.NewTicker(SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			a.closeAllPlayers(wire.CloseCodeShutdown, wire.CloseReasonShutdown)
			return
		case <-ticker.C:
			a.broadcastSnapshot()
		case msg := <-a.inbox:
			switch m := msg.(type) {
			case msgConnect:
				a.handleConnect(m)
			case msgMutation:
				a.handleMutation(m)
			case msgHeartbeat:
				m.player.lastMessageAt = time.Now()
				a.maybePrune()
			case msgDisconnect:
				a.handleDisconnect(m.player)
			}
		}
	}
}

func (a *sessionActor) handleConnect(m msgConnect) {
	p := m.player
	p.lastMessageAt = time.Now()

	if existing, ok := a.players[p.id]; ok && existing != p {
		existing.closeWith(wire.CloseCodeReplaced, wire.CloseReasonReplaced)
	}
	a.players[p.id] = p

	color, name := DeriveIdentity(p.id)
	a.send(p, wire.Identity{Type: wire.TypeIdentity, PlayerID: p.id, Color: color, Name: name})
	a.send(p, wire.Snapshot{Type: wire.TypeSnapshot, ServerSeq: a.serverSeq, State: a.state})
	a.broadcastPresence()

	a.maybePrune()
}

func (a *sessionActor) handleMutation(m msgMutation) {
	p := m.player
	p.lastMessageAt = time.Now()
	a.maybePrune()

	if p.id == "" || a.players[p.id] != p {
		return // mutation from a connection that never completed hello, or a zombie already replaced
	}

	if m.seq > 0 && m.seq <= a.lastProcessedSeq[p.id] {
		return // reconnect resend of an already-applied seq; idempotent no-op
	}

	info, ok := syncclass.Classify(m.kind)
	if !ok || !info.Synced {
		a.send(p, wire.NewRejected(m.seq, "not_synced"))
		return
	}

	mut, err := session.DecodeMutation(m.kind, m.payload)
	if err != nil {
		a.send(p, wire.NewRejected(m.seq, "malformed_payload"))
		return
	}

	next, err := session.Apply(a.state, mut)
	if err != nil {
		a.send(p, wire.NewRejected(m.seq, err.Error()))
		return
	}

	a.state = next
	a.serverSeq++
	if m.seq > 0 {
		a.lastProcessedSeq[p.id] = m.seq
	}

	broadcast := wire.Broadcast{
		Type:             info.ServerBroadcast,
		ServerSeq:        a.serverSeq,
		OriginatorSeq:    m.seq,
		OriginatorPlayer: p.id,
		Payload:          m.payload,
	}
	a.broadcastAll(broadcast)

	if a.store != nil {
		a.store.DebouncedSave(a.id, a.state)
	}
}

func (a *sessionActor) handleDisconnect(p *player) {
	if p.id != "" && a.players[p.id] == p {
		delete(a.players, p.id)
		a.broadcastPresence()
	}
}

// broadcastPresence rebroadcasts the full connected-player roster,
// called whenever that set changes.
func (a *sessionActor) broadcastPresence() {
	players := make([]wire.PresencePlayer, 0, len(a.players))
	for id := range a.players {
		color, name := DeriveIdentity(id)
		players = append(players, wire.PresencePlayer{PlayerID: id, Color: color, Name: name})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].PlayerID < players[j].PlayerID })
	a.broadcastAll(wire.NewPresence(players))
}

// maybePrune is the rate-limited, opportunistic stale-connection sweep:
// checked on every inbound message, never its own timer.
func (a *sessionActor) maybePrune() {
	now := time.Now()
	if now.Sub(a.lastPrune) < PruneInterval {
		return
	}
	a.lastPrune = now
	pruned := false
	for id, p := range a.players {
		if now.Sub(p.lastMessageAt) > StaleAfter {
			delete(a.players, id)
			p.closeWith(websocket.CloseGoingAway, "stale connection")
			pruned = true
		}
	}
	if pruned {
		a.broadcastPresence()
	}
}

func (a *sessionActor) broadcastSnapshot() {
	if len(a.players) == 0 {
		return
	}
	snap := wire.Snapshot{Type: wire.TypeSnapshot, ServerSeq: a.serverSeq, State: a.state}
	raw, err := wire.Marshal(snap)
	if err != nil {
		log.Printf("authority: marshal snapshot for %s: %v", a.id, err)
		return
	}
	for _, p := range a.players {
		p.enqueue(raw)
	}
}

func (a *sessionActor) broadcastAll(v any) {
	raw, err := wire.Marshal(v)
	if err != nil {
		log.Printf("authority: marshal broadcast for %s: %v", a.id, err)
		return
	}
	for _, p := range a.players {
		p.enqueue(raw)
	}
}

func (a *sessionActor) send(p *player, v any) {
	raw, err := wire.Marshal(v)
	if err != nil {
		log.Printf("authority: marshal message to %s: %v", p.id, err)
		return
	}
	p.enqueue(raw)
}

func (a *sessionActor) closeAllPlayers(code int, reason string) {
	for id, p := range a.players {
		delete(a.players, id)
		p.closeWith(code, reason)
	}
}
