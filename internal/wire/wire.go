// Package wire defines the JSON message envelope exchanged between the
// client sync engine (internal/client) and the live-session authority
// (internal/authority) over the websocket channel. Every message
// is a JSON object carrying a `type` discriminator; this package is the
// single place that knows the on-the-wire shape of each one.
package wire

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/schollz/keyboardia/internal/session"
)

var std = jsoniter.ConfigCompatibleWithStandardLibrary

// Client -> server message types.
const (
	TypeHello     = "hello"
	TypeHeartbeat = "heartbeat"
)

// Server -> client message types.
const (
	TypeIdentity = "identity"
	TypeSnapshot = "snapshot"
	TypeRejected = "rejected"
	TypePresence = "presence"
)

// Close codes and reasons the authority sends when a newer connection
// replaces a player's socket and when the server shuts down.
const (
	CloseCodeReplaced = 1000
	CloseReasonReplaced = "Replaced by new connection"
	CloseCodeShutdown = 1001
	CloseReasonShutdown = "server shutting down"
)

// Envelope is the minimal shape every message shares - just enough to
// dispatch on `type` before unmarshaling the rest into a concrete type.
type Envelope struct {
	Type string `json:"type"`
}

// Hello is the first message a client sends on connect.
type Hello struct {
	Type              string `json:"type"`
	PlayerID          string `json:"playerId"`
	SessionID         string `json:"sessionId"`
	LastKnownServerSeq int64 `json:"lastKnownServerSeq,omitempty"`
}

// NewHello builds a hello message; lastKnownServerSeq of 0 means "no
// prior knowledge" and is omitted from the wire payload.
func NewHello(playerID, sessionID string, lastKnownServerSeq int64) Hello {
	return Hello{Type: TypeHello, PlayerID: playerID, SessionID: sessionID, LastKnownServerSeq: lastKnownServerSeq}
}

// Heartbeat keeps a connection classified as live for the authority's
// stale-connection pruning.
type Heartbeat struct {
	Type string `json:"type"`
}

// NewHeartbeat builds a heartbeat message.
func NewHeartbeat() Heartbeat { return Heartbeat{Type: TypeHeartbeat} }

// MutationMessage is a client->server mutation message: the client
// message name from syncclass.Info.ClientMessage, the mutation's
// monotonic client seq, and its payload.
type MutationMessage struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeMutation marshals a mutation's payload fields and wraps them in
// a MutationMessage bearing clientMessage as its type discriminator.
func EncodeMutation(clientMessage string, seq int64, payload any) (MutationMessage, error) {
	raw, err := std.Marshal(payload)
	if err != nil {
		return MutationMessage{}, fmt.Errorf("wire: encode mutation payload: %w", err)
	}
	return MutationMessage{Type: clientMessage, Seq: seq, Payload: raw}, nil
}

// Identity is sent once per connect, with a deterministic-by-playerId
// color and name so reconnects look identical.
type Identity struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Color    string `json:"color"`
	Name     string `json:"name"`
}

// Snapshot carries a complete authoritative Session paired with the
// serverSeq it was taken at.
type Snapshot struct {
	Type      string          `json:"type"`
	ServerSeq int64           `json:"serverSeq"`
	State     session.Session `json:"state"`
}

// Broadcast is the server's echo of an applied mutation: the wire name
// from syncclass.Info.ServerBroadcast, the new serverSeq, the
// originator's identity (so every client can tell self-echoes from
// remote writes), and the mutation's payload.
type Broadcast struct {
	Type             string          `json:"type"`
	ServerSeq        int64           `json:"serverSeq"`
	OriginatorSeq    int64           `json:"originatorSeq,omitempty"`
	OriginatorPlayer string          `json:"originatorPlayerId"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

// PresencePlayer is one connected player's deterministic identity, as
// carried in a Presence broadcast.
type PresencePlayer struct {
	PlayerID string `json:"playerId"`
	Color    string `json:"color"`
	Name     string `json:"name"`
}

// Presence lists every currently-connected player, rebroadcast whenever
// the connected set changes so every tab can render who else is in the
// room without inferring it from mutation traffic.
type Presence struct {
	Type    string           `json:"type"`
	Players []PresencePlayer `json:"players"`
}

// NewPresence builds a presence message.
func NewPresence(players []PresencePlayer) Presence {
	return Presence{Type: TypePresence, Players: players}
}

// Rejected tells the originator only (never broadcast) that their
// mutation at client seq `seq` was not applied, and why.
type Rejected struct {
	Type   string `json:"type"`
	Seq    int64  `json:"seq"`
	Reason string `json:"reason"`
}

// NewRejected builds a rejected message.
func NewRejected(seq int64, reason string) Rejected {
	return Rejected{Type: TypeRejected, Seq: seq, Reason: reason}
}

// PeekType reads only the `type` discriminator out of a raw message,
// leaving the caller to unmarshal the rest once it knows which concrete
// type to target.
func PeekType(raw []byte) (string, error) {
	var env Envelope
	if err := std.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("wire: peek type: %w", err)
	}
	return env.Type, nil
}

// Marshal and Unmarshal re-export the shared jsoniter codec so every
// caller in internal/client and internal/authority serializes with the
// same configuration as internal/persistence.
func Marshal(v any) ([]byte, error)      { return std.Marshal(v) }
func Unmarshal(data []byte, v any) error { return std.Unmarshal(data, v) }
