// Package client is the client sync engine: owns the websocket
// connection to one session's live-session authority, assigns outbound
// client seqs, reconciles inbound broadcasts and snapshots through
// internal/reducer and internal/tracker, and reconnects with backoff on
// abnormal closure.
package client

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/schollz/keyboardia/internal/reducer"
	"github.com/schollz/keyboardia/internal/session"
	"github.com/schollz/keyboardia/internal/syncclass"
	"github.com/schollz/keyboardia/internal/tracker"
	"github.com/schollz/keyboardia/internal/wire"
)

// Reconnect backoff bounds: the engine reconnects with exponential
// backoff on abnormal closure. No library in the reference corpus
// covers backoff, so this is hand-rolled (documented in DESIGN.md).
const (
	minBackoff     = 250 * time.Millisecond
	maxBackoff     = 30 * time.Second
	heartbeatEvery = 20 * time.Second
)

// conn is the subset of *websocket.Conn the engine depends on, so tests
// can substitute a fake transport instead of opening a real socket.
type conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a new connection to the authority. Production code uses
// DialWebsocket; tests inject a fake.
type Dialer func(ctx context.Context) (conn, error)

// DialWebsocket returns a Dialer that opens a real gorilla/websocket
// connection to wsURL.
func DialWebsocket(wsURL string) Dialer {
	return func(ctx context.Context) (conn, error) {
		c, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			return nil, fmt.Errorf("client: dial %s: %w", wsURL, err)
		}
		return c, nil
	}
}

// Endpoint builds the ws(s):// URL for sessionID against an http(s)://
// base, the shape cmd/keyboardia's serve command exposes over gin.
func Endpoint(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("client: parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = fmt.Sprintf("/ws/%s", sessionID)
	return u.String(), nil
}

// StateObserver is notified whenever the local session changes as a
// result of a snapshot or broadcast - the rendering collaborator's hook
// for surfacing remote players' edits.
type StateObserver func(session.Session)

// IdentityObserver is notified once per (re)connect with this tab's
// server-assigned color and name.
type IdentityObserver func(wire.Identity)

// PresenceObserver is notified with the full connected-player roster
// whenever it changes.
type PresenceObserver func(wire.Presence)

// Engine is one tab's connection to one session. Not safe to Start
// twice concurrently.
type Engine struct {
	playerID  string
	sessionID string
	dial      Dialer

	onState    StateObserver
	onIdentity IdentityObserver
	onPresence PresenceObserver

	tracker *tracker.Tracker
	bridge  *reducer.Bridge

	mu                 sync.Mutex
	c                  conn
	nextSeq            int64
	lastKnownServerSeq int64
	pendingOrder       []int64
	pendingMsgs        map[int64]wire.MutationMessage

	stopCh chan struct{}
	doneCh chan struct{}
}

// New returns an Engine for sessionID/playerID, rendering into initial
// local state until the first snapshot arrives.
func New(playerID, sessionID string, dial Dialer, initial session.Session) *Engine {
	e := &Engine{
		playerID:    playerID,
		sessionID:   sessionID,
		dial:        dial,
		tracker:     tracker.New(),
		pendingMsgs: make(map[int64]wire.MutationMessage),
	}
	e.bridge = reducer.New(e, initial)
	return e
}

// OnState registers the rendering collaborator's state-change hook.
func (e *Engine) OnState(fn StateObserver) { e.onState = fn }

// OnIdentity registers the per-connect identity hook.
func (e *Engine) OnIdentity(fn IdentityObserver) { e.onIdentity = fn }

// OnPresence registers the connected-roster change hook.
func (e *Engine) OnPresence(fn PresenceObserver) { e.onPresence = fn }

// Bridge returns the reducer bridge UI intents should dispatch through.
func (e *Engine) Bridge() *reducer.Bridge { return e.bridge }

// Start runs the connect/reconnect loop until ctx is cancelled or Stop
// is called. It blocks; call it from its own goroutine.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	stopCh := e.stopCh
	e.mu.Unlock()
	defer close(e.doneCh)

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		c, err := e.dial(ctx)
		if err != nil {
			attempt++
			log.Printf("client: dial failed (attempt %d): %v", attempt, err)
			if !sleepOrDone(ctx, stopCh, backoff(attempt)) {
				return
			}
			continue
		}
		attempt = 0

		if err := e.runConnection(ctx, stopCh, c); err != nil {
			log.Printf("client: connection ended: %v", err)
		}
	}
}

// Stop ends the connect/reconnect loop and closes the current
// connection, if any.
func (e *Engine) Stop() {
	e.mu.Lock()
	stopCh := e.stopCh
	c := e.c
	e.mu.Unlock()
	if stopCh != nil {
		select {
		case <-stopCh:
		default:
			close(stopCh)
		}
	}
	if c != nil {
		_ = c.Close()
	}
	if e.doneCh != nil {
		<-e.doneCh
	}
}

func backoff(attempt int) time.Duration {
	d := minBackoff << attempt
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 4 + 1))
	return d - jitter/2
}

func sleepOrDone(ctx context.Context, stopCh chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	}
}

func (e *Engine) runConnection(ctx context.Context, stopCh chan struct{}, c conn) error {
	e.mu.Lock()
	e.c = c
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		if e.c == c {
			e.c = nil
		}
		e.mu.Unlock()
		_ = c.Close()
	}()

	e.mu.Lock()
	hello := wire.NewHello(e.playerID, e.sessionID, e.lastKnownServerSeq)
	e.mu.Unlock()
	if err := e.writeJSON(c, hello); err != nil {
		return err
	}
	e.resendPending(c)

	hbStop := make(chan struct{})
	go e.heartbeatLoop(c, hbStop)
	defer close(hbStop)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		default:
		}
		_, raw, err := c.ReadMessage()
		if err != nil {
			return fmt.Errorf("client: read: %w", err)
		}
		e.handleFrame(raw)
	}
}

func (e *Engine) heartbeatLoop(c conn, stop <-chan struct{}) {
	t := time.NewTicker(heartbeatEvery)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := e.writeJSON(c, wire.NewHeartbeat()); err != nil {
				return
			}
		}
	}
}

func (e *Engine) writeJSON(c conn, v any) error {
	raw, err := wire.Marshal(v)
	if err != nil {
		return fmt.Errorf("client: marshal: %w", err)
	}
	return c.WriteMessage(websocket.TextMessage, raw)
}

// resendPending re-sends every still-pending tracker entry in seq
// order with its original seq.
func (e *Engine) resendPending(c conn) {
	e.mu.Lock()
	order := append([]int64(nil), e.pendingOrder...)
	msgs := make([]wire.MutationMessage, 0, len(order))
	for _, seq := range order {
		if t, ok := e.tracker.Get(seq); ok && t.State == tracker.Pending {
			msgs = append(msgs, e.pendingMsgs[seq])
		}
	}
	e.mu.Unlock()

	for _, m := range msgs {
		if err := e.writeJSON(c, m); err != nil {
			return
		}
	}
}

// Send implements reducer.ClientSync: assign the next client seq, track
// it as pending, encode it onto the wire, and send it over whatever
// connection is live right now (or queue it for the next one).
func (e *Engine) Send(m session.Mutation) {
	info, ok := syncclass.Classify(m.Kind())
	if !ok || !info.Synced {
		return
	}

	e.mu.Lock()
	e.nextSeq++
	seq := e.nextSeq
	c := e.c
	e.mu.Unlock()

	trackID, step := targetOf(m)
	e.tracker.Track(seq, trackID, step, time.Now())

	msg, err := wire.EncodeMutation(info.ClientMessage, seq, m)
	if err != nil {
		log.Printf("client: encode mutation %s: %v", m.Kind(), err)
		e.tracker.MarkLost(seq)
		return
	}

	e.mu.Lock()
	e.pendingOrder = append(e.pendingOrder, seq)
	e.pendingMsgs[seq] = msg
	e.mu.Unlock()

	if c != nil {
		if err := e.writeJSON(c, msg); err != nil {
			log.Printf("client: send mutation %s: %v", m.Kind(), err)
		}
	}
}

// targetOf extracts the (trackId, step) a mutation addresses, for the
// tracker's FindMutationsForStep index. Non-step-addressed mutations
// report step -1; session-wide mutations report an empty trackId too.
func targetOf(m session.Mutation) (trackID string, step int) {
	step = -1
	switch mut := m.(type) {
	case session.ToggleStep:
		return mut.TrackID, mut.Step
	case session.SetParameterLock:
		return mut.TrackID, mut.Step
	case session.SetTrackVolume:
		return mut.TrackID, -1
	case session.SetTrackTranspose:
		return mut.TrackID, -1
	case session.SetTrackStepCount:
		return mut.TrackID, -1
	case session.ClearTrack:
		return mut.TrackID, -1
	case session.SetTrackSample:
		return mut.TrackID, -1
	case session.DeleteTrack:
		return mut.TrackID, -1
	case session.RotatePattern:
		return mut.TrackID, -1
	case session.InvertPattern:
		return mut.TrackID, -1
	case session.ReversePattern:
		return mut.TrackID, -1
	case session.MirrorPattern:
		return mut.TrackID, -1
	case session.EuclideanFill:
		return mut.TrackID, -1
	default:
		return "", -1
	}
}

func (e *Engine) forgetPending(seq int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pendingMsgs, seq)
	for i, s := range e.pendingOrder {
		if s == seq {
			e.pendingOrder = append(e.pendingOrder[:i:i], e.pendingOrder[i+1:]...)
			break
		}
	}
}

func (e *Engine) handleFrame(raw []byte) {
	typ, err := wire.PeekType(raw)
	if err != nil {
		return
	}

	switch typ {
	case wire.TypeIdentity:
		var id wire.Identity
		if err := wire.Unmarshal(raw, &id); err == nil && e.onIdentity != nil {
			e.onIdentity(id)
		}
	case wire.TypeSnapshot:
		e.handleSnapshot(raw)
	case wire.TypePresence:
		var pres wire.Presence
		if err := wire.Unmarshal(raw, &pres); err == nil && e.onPresence != nil {
			e.onPresence(pres)
		}
	case wire.TypeRejected:
		var rej wire.Rejected
		if err := wire.Unmarshal(raw, &rej); err == nil {
			e.tracker.MarkLost(rej.Seq)
			e.forgetPending(rej.Seq)
		}
	default:
		e.handleBroadcast(typ, raw)
	}
}

func (e *Engine) handleSnapshot(raw []byte) {
	var snap wire.Snapshot
	if err := wire.Unmarshal(raw, &snap); err != nil {
		return
	}

	now := time.Now()
	e.tracker.ClearOnSnapshot(snap.ServerSeq, now)

	e.mu.Lock()
	e.lastKnownServerSeq = snap.ServerSeq
	e.mu.Unlock()

	state := e.bridge.ApplySnapshot(snap.State)
	if e.onState != nil {
		e.onState(state)
	}
}

func (e *Engine) handleBroadcast(clientOrBroadcastType string, raw []byte) {
	kind, ok := broadcastKind(clientOrBroadcastType)
	if !ok {
		return // unknown message type: ignored for forward compatibility
	}

	var bc wire.Broadcast
	if err := wire.Unmarshal(raw, &bc); err != nil {
		return
	}

	e.mu.Lock()
	e.lastKnownServerSeq = bc.ServerSeq
	e.mu.Unlock()

	if bc.OriginatorPlayer == e.playerID && bc.OriginatorSeq > 0 {
		e.tracker.Confirm(bc.OriginatorSeq, bc.ServerSeq)
		e.forgetPending(bc.OriginatorSeq)
	}

	mut, err := session.DecodeMutation(kind, bc.Payload)
	if err != nil {
		return
	}

	if bc.OriginatorPlayer != e.playerID {
		if trackID, step := targetOf(mut); trackID != "" && e.holdsLocalValue(trackID, step) {
			return
		}
	}

	state, err := e.bridge.ApplyRemote(mut)
	if err != nil {
		return
	}
	if e.onState != nil {
		e.onState(state)
	}
}

// holdsLocalValue decides whether an incoming remote value for
// (trackID, step) should be held against a conflicting local optimistic
// edit, using the tracker to find mutations already in flight for that
// target. A still-pending local entry hasn't reached the authority yet,
// so by the time it does it will be ordered after whatever just arrived
// and will win; the remote value is dropped for now; it reappears in
// the next snapshot if the pending edit is ever lost. A local entry
// that's already confirmed was ordered before this broadcast (serverSeq
// only increases), so the remote write is the later one and wins: it's
// applied and the confirmed entry is marked superseded.
func (e *Engine) holdsLocalValue(trackID string, step int) bool {
	tracked := e.tracker.FindMutationsForStep(trackID, step)
	for _, t := range tracked {
		if t.State == tracker.Pending {
			return true
		}
	}
	for _, t := range tracked {
		if t.State == tracker.Confirmed {
			e.tracker.MarkSuperseded(t.Seq)
		}
	}
	return false
}

// broadcastKind reverses syncclass's Kind -> ServerBroadcast mapping.
func broadcastKind(serverBroadcast string) (session.Kind, bool) {
	for _, k := range session.AllKinds {
		info, ok := syncclass.Classify(k)
		if ok && info.Synced && info.ServerBroadcast == serverBroadcast {
			return k, true
		}
	}
	return "", false
}
