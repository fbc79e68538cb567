// Package authority is the live-session authority: one actor per
// session id, owning the authoritative Session, the monotonic
// serverSeq, and every connected player's socket. Mutations are
// processed strictly in receive order by routing them through a single
// goroutine per session, the same actor shape the connection-pool
// reference uses for its per-client send loop, generalized here to
// per-session ownership of shared state instead of per-connection.
package authority

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/schollz/keyboardia/internal/persistence"
	"github.com/schollz/keyboardia/internal/session"
	"github.com/schollz/keyboardia/internal/syncclass"
	"github.com/schollz/keyboardia/internal/wire"
)

// PruneInterval and StaleAfter implement the rate-limited, opportunistic
// stale-connection pruning: checked on every inbound message, never on
// its own timer.
const (
	PruneInterval = 60 * time.Second
	StaleAfter    = 120 * time.Second
)

// SnapshotInterval is how often a connected session's actor rebroadcasts
// a full snapshot unprompted, independent of any mutation traffic.
const SnapshotInterval = 10 * time.Second

// sendQueueDepth bounds how far a slow player's outbound queue may lag
// before the authority drops the connection rather than let one slow
// reader stall the broadcast to everyone else.
const sendQueueDepth = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub owns every live session actor in this process. There is exactly
// one Hub per process; cmd/keyboardia constructs it once and registers
// its shutdown with internal/lifecycle.
type Hub struct {
	store persistence.Store

	mu       sync.Mutex
	sessions map[string]*sessionActor
}

// NewHub returns a Hub that persists through store.
func NewHub(store persistence.Store) *Hub {
	return &Hub{store: store, sessions: make(map[string]*sessionActor)}
}

func (h *Hub) actorFor(sessionID string) *sessionActor {
	h.mu.Lock()
	defer h.mu.Unlock()
	if a, ok := h.sessions[sessionID]; ok {
		return a
	}
	a := newSessionActor(sessionID, h.store)
	h.sessions[sessionID] = a
	go a.run()
	return a
}

// Shutdown stops every session actor and closes every connected socket
// with code 1001. Safe to call once from the lifecycle teardown path.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	actors := make([]*sessionActor, 0, len(h.sessions))
	for _, a := range h.sessions {
		actors = append(actors, a)
	}
	h.sessions = make(map[string]*sessionActor)
	h.mu.Unlock()

	for _, a := range actors {
		a.shutdown()
	}
}

// ServeWS upgrades the request to a websocket and joins the connection
// to the session actor named by the "sessionId" route param. The first
// message the client must send is a hello; messages read before it are
// passed to the actor, which drops mutations from a player with no id.
func (h *Hub) ServeWS(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing sessionId"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("authority: upgrade failed: %v", err)
		return
	}

	actor := h.actorFor(sessionID)
	p := newPlayer(conn)
	go p.writePump()
	p.readLoop(actor)
}

// player is one connected socket. It is identified by playerId only
// after its hello message arrives; before that the actor has no entry
// for it.
type player struct {
	id            string
	conn          *websocket.Conn
	send          chan []byte
	lastMessageAt time.Time
	closeOnce     sync.Once
	closed        chan struct{}
}

func newPlayer(conn *websocket.Conn) *player {
	return &player{
		conn:          conn,
		send:          make(chan []byte, sendQueueDepth),
		lastMessageAt: time.Now(),
		closed:        make(chan struct{}),
	}
}

// enqueue writes raw onto the player's outbound queue without blocking;
// a full queue means a slow reader, and the authority drops that
// connection rather than stall the broadcast to everyone else.
func (p *player) enqueue(raw []byte) {
	select {
	case p.send <- raw:
	default:
		p.closeWith(websocket.ClosePolicyViolation, "send queue full")
	}
}

func (p *player) closeWith(code int, reason string) {
	p.closeOnce.Do(func() {
		close(p.closed)
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = p.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = p.conn.Close()
	})
}

func (p *player) writePump() {
	for {
		select {
		case <-p.closed:
			return
		case raw, ok := <-p.send:
			if !ok {
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				p.closeWith(websocket.CloseInternalServerErr, "write failed")
				return
			}
		}
	}
}

func (p *player) readLoop(a *sessionActor) {
	defer a.dispatch(msgDisconnect{player: p})
	defer p.closeWith(websocket.CloseNormalClosure, "")

	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		typ, err := wire.PeekType(raw)
		if err != nil {
			continue
		}

		switch typ {
		case wire.TypeHello:
			var hello wire.Hello
			if err := wire.Unmarshal(raw, &hello); err != nil {
				continue
			}
			p.id = hello.PlayerID
			a.dispatch(msgConnect{player: p, lastKnownServerSeq: hello.LastKnownServerSeq})
		case wire.TypeHeartbeat:
			a.dispatch(msgHeartbeat{player: p})
		default:
			kind, ok := clientMessageKind(typ)
			if !ok {
				continue
			}
			var mm wire.MutationMessage
			if err := wire.Unmarshal(raw, &mm); err != nil {
				continue
			}
			a.dispatch(msgMutation{player: p, kind: kind, seq: mm.Seq, payload: mm.Payload})
		}
	}
}

// clientMessageKind reverses syncclass's Kind -> ClientMessage mapping,
// so the read loop can recover which mutation a wire type name names.
func clientMessageKind(clientMessage string) (session.Kind, bool) {
	for _, k := range session.AllKinds {
		info, ok := syncclass.Classify(k)
		if ok && info.Synced && info.ClientMessage == clientMessage {
			return k, true
		}
	}
	return "", false
}
