// Package midivoice is a concrete internal/voice.Voice adapter over the
// MIDI output device located by internal/midiconnector, grounded on
// internal/midiplayer's per-instrument note-on/note-off bookkeeping.
// It is illustrative: the scheduler never imports it directly, only the
// internal/voice.Voice interface.
package midivoice

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/schollz/keyboardia/internal/midiplayer"
	"github.com/schollz/keyboardia/internal/music"
	"github.com/schollz/keyboardia/internal/voice"
)

// Adapter routes every track's Family to a named MIDI output/channel
// pair, resolved once per family via a Route table supplied at
// construction (this sequencer has many tracks but a MIDI interface
// only exposes 16 channels, so several Families may legitimately share
// a route under different presetOrSampleIDs mapped to programs).
type Adapter struct {
	mu     sync.Mutex
	routes map[string]route
	start  time.Time
}

type route struct {
	instrument string
	channel    int
}

// Route associates a voice Family with a MIDI instrument name
// (substring-matched against connected device names, per
// internal/midiconnector) and a 0-indexed channel.
type Route struct {
	Family     string
	Instrument string
	Channel    int
}

// New returns an Adapter with its audio-time zero point set to now, and
// every route pre-registered. Device lookup is lazy: no MIDI I/O occurs
// until the first Trigger for a given family.
func New(routes []Route) *Adapter {
	a := &Adapter{routes: make(map[string]route, len(routes)), start: time.Now()}
	for _, r := range routes {
		a.routes[r.Family] = route{instrument: r.Instrument, channel: r.Channel}
	}
	return a
}

func (a *Adapter) CurrentAudioTime() float64 {
	return time.Since(a.start).Seconds()
}

// IsReady reports whether family has a registered route. presetOrSampleID
// is unused: a MIDI program is selected by note range/channel convention
// upstream of this adapter, not by a sample lookup.
func (a *Adapter) IsReady(family, presetOrSampleID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.routes[family]
	return ok
}

// EnsureReady is a no-op beyond checking the route exists: midiplayer
// opens the underlying device lazily on first NoteOn, there is no
// separate warm-up step for a MIDI output.
func (a *Adapter) EnsureReady(ctx context.Context, family, presetOrSampleID string) error {
	a.mu.Lock()
	_, ok := a.routes[family]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("midivoice: no route registered for family %q", family)
	}
	return nil
}

// Trigger schedules a note-on, sleeping until t.AtAudioTime if it's in
// the future, then asks internal/midiplayer to hold the note for
// t.DurationSec and send the matching note-off. A family with no route
// drops the trigger silently.
func (a *Adapter) Trigger(t voice.Trigger) {
	a.mu.Lock()
	r, ok := a.routes[t.Family]
	a.mu.Unlock()
	if !ok {
		log.Printf("[midivoice] dropping trigger for unrouted family %q", t.Family)
		return
	}

	delay := t.AtAudioTime - a.CurrentAudioTime()
	fire := func() {
		if err := midiplayer.NoteOn(r.instrument, float64(t.MIDIPitch), t.Velocity*127, t.DurationSec, r.channel); err != nil {
			log.Printf("[midivoice] note-on failed for %s ch%d (%s): %v", r.instrument, r.channel, music.MidiToNoteName(t.MIDIPitch), err)
		}
	}
	if delay <= 0 {
		fire()
		return
	}
	time.AfterFunc(time.Duration(delay*float64(time.Second)), fire)
}

// CancelAll stops every note currently sounding on every routed
// instrument/channel pair. Triggers still waiting on their AfterFunc
// delay are not cancelled: each one still fires its note-on after
// CancelAll returns.
func (a *Adapter) CancelAll() {
	a.mu.Lock()
	routes := make([]route, 0, len(a.routes))
	for _, r := range a.routes {
		routes = append(routes, r)
	}
	a.mu.Unlock()
	for _, r := range routes {
		midiplayer.StopAll(r.instrument, r.channel)
	}
}
