// Package tracker is the client-side mutation tracker: bookkeeping for
// every locally-originated mutation between the moment it's sent and
// the moment it's safely baked into a snapshot, confirmed, superseded,
// or timed out.
package tracker

import (
	"sync"
	"time"
)

// State is one of a tracked mutation's four possible lifecycles.
type State int

const (
	Pending State = iota
	Confirmed
	Superseded
	Lost
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	case Superseded:
		return "superseded"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

// Tracked is one entry in the tracker's map.
type Tracked struct {
	Seq      int64
	TrackID  string // entity the mutation targets, empty if session-wide
	Step     int    // -1 when the mutation isn't step-addressed
	State    State
	SentAt   time.Time
	// ConfirmedAtServerSeq is set by Confirm when the authority supplied
	// a serverSeq with the echo. Zero means "confirmed, but we don't
	// know at which serverSeq it landed" (see ClearOnSnapshot's age
	// fallback).
	ConfirmedAtServerSeq int64
}

const (
	// DefaultMutationTimeout is how long a pending mutation may go
	// unconfirmed before pruneOldMutations marks it lost.
	DefaultMutationTimeout = 30 * time.Second

	// DefaultMaxConfirmedAge bounds how long a confirmed mutation
	// without a known serverSeq survives a snapshot it can't otherwise
	// be proven safe against.
	DefaultMaxConfirmedAge = 60 * time.Second
)

// Tracker is safe for concurrent use: the client sync engine's receive
// loop and its outbound-send path can run on different goroutines, and
// every method takes the mutex.
type Tracker struct {
	mu              sync.Mutex
	entries         map[int64]*Tracked
	mutationTimeout time.Duration
	maxConfirmedAge time.Duration
}

// New returns a Tracker with the default timeouts.
func New() *Tracker {
	return &Tracker{
		entries:         make(map[int64]*Tracked),
		mutationTimeout: DefaultMutationTimeout,
		maxConfirmedAge: DefaultMaxConfirmedAge,
	}
}

// WithTimeouts overrides the default timeout/age window, mainly for
// tests that want to exercise eviction without sleeping.
func (t *Tracker) WithTimeouts(mutationTimeout, maxConfirmedAge time.Duration) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mutationTimeout = mutationTimeout
	t.maxConfirmedAge = maxConfirmedAge
	return t
}

// Track records a newly sent mutation as pending, starting its eviction
// clock at `now`.
func (t *Tracker) Track(seq int64, trackID string, step int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[seq] = &Tracked{
		Seq:     seq,
		TrackID: trackID,
		Step:    step,
		State:   Pending,
		SentAt:  now,
	}
}

// Confirm flips a tracked mutation to confirmed. serverSeq of 0 means
// the caller has no serverSeq to record (treated as "unknown" by
// ClearOnSnapshot's fallback path).
func (t *Tracker) Confirm(seq int64, serverSeq int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[seq]
	if !ok {
		return
	}
	e.State = Confirmed
	e.ConfirmedAtServerSeq = serverSeq
}

// MarkSuperseded flips a tracked mutation to superseded and removes it
// immediately - a later-writer (possibly this same client, possibly
// another player) has already won the conflict.
func (t *Tracker) MarkSuperseded(seq int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, seq)
}

// MarkLost flips a tracked mutation to lost and removes it - the
// authority rejected it, or it will never be confirmed.
func (t *Tracker) MarkLost(seq int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, seq)
}

// PruneOldMutations moves every pending entry older than the tracker's
// mutationTimeout to lost.
func (t *Tracker) PruneOldMutations(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for seq, e := range t.entries {
		if e.State == Pending && now.Sub(e.SentAt) >= t.mutationTimeout {
			delete(t.entries, seq)
		}
	}
}

// ClearOnSnapshot implements the snapshot-before-echo race handling:
// a confirmed mutation is removed once it's provably baked into a
// snapshot (confirmedAtServerSeq <= snapshotServerSeq), or, when no
// serverSeq is known for either side, once it's older than
// maxConfirmedAge. Pending mutations are never touched here - they must
// survive a snapshot that arrived before their echo.
func (t *Tracker) ClearOnSnapshot(snapshotServerSeq int64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for seq, e := range t.entries {
		if e.State != Confirmed {
			continue
		}
		if e.ConfirmedAtServerSeq > 0 && snapshotServerSeq > 0 {
			if e.ConfirmedAtServerSeq <= snapshotServerSeq {
				delete(t.entries, seq)
			}
			continue
		}
		if now.Sub(e.SentAt) > t.maxConfirmedAge {
			delete(t.entries, seq)
		}
	}
}

// FindMutationsForStep returns every still-tracked mutation addressing
// (trackID, step), pending or confirmed, in seq order. The client sync
// engine uses this to decide whether an incoming remote value for a
// step should be accepted or held against the local optimistic value.
func (t *Tracker) FindMutationsForStep(trackID string, step int) []Tracked {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Tracked
	for _, e := range t.entries {
		if e.TrackID == trackID && e.Step == step {
			out = append(out, *e)
		}
	}
	sortBySeq(out)
	return out
}

// Get returns the tracked entry for seq, if any.
func (t *Tracker) Get(seq int64) (Tracked, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[seq]
	if !ok {
		return Tracked{}, false
	}
	return *e, true
}

// Len reports how many mutations are currently tracked (any state; the
// map only ever holds pending/confirmed since the others are deleted on
// transition).
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func sortBySeq(entries []Tracked) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Seq > entries[j].Seq; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}
