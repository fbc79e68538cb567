package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schollz/keyboardia/internal/clock"
	"github.com/schollz/keyboardia/internal/lifecycle"
	"github.com/schollz/keyboardia/internal/persistence"
	"github.com/schollz/keyboardia/internal/scheduler"
	"github.com/schollz/keyboardia/internal/session"
	"github.com/schollz/keyboardia/internal/voice/midivoice"
)

func newPlayCmd() *cobra.Command {
	var dataDir, sessionID string
	var routeFlags []string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Drive a saved session headlessly against a MIDI output",
		RunE: func(cmd *cobra.Command, args []string) error {
			routes, err := parseRoutes(routeFlags)
			if err != nil {
				return err
			}
			return runPlay(dataDir, sessionID, routes)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "directory session records are persisted under")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "id of the session record to play (required)")
	cmd.Flags().StringArrayVar(&routeFlags, "route", nil, "family=instrument:channel, repeatable")
	cmd.MarkFlagRequired("session-id")

	return cmd
}

// parseRoutes turns "kick808=MidiOut1:1" style flags into routes. The
// channel is 1-indexed on the command line, matching internal/midiplayer's
// own "midi NAME CHANNEL" convention, and converted to midivoice's
// 0-indexed Route.Channel here.
func parseRoutes(flags []string) ([]midivoice.Route, error) {
	routes := make([]midivoice.Route, 0, len(flags))
	for _, f := range flags {
		family, rest, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("play: invalid --route %q, want family=instrument:channel", f)
		}
		instrument, chanStr, ok := strings.Cut(rest, ":")
		if !ok {
			return nil, fmt.Errorf("play: invalid --route %q, want family=instrument:channel", f)
		}
		channel, err := strconv.Atoi(chanStr)
		if err != nil || channel < 1 || channel > 16 {
			return nil, fmt.Errorf("play: invalid channel in --route %q: want 1-16", f)
		}
		routes = append(routes, midivoice.Route{Family: family, Instrument: instrument, Channel: channel - 1})
	}
	return routes, nil
}

func runPlay(dataDir, sessionID string, routes []midivoice.Route) error {
	store, err := persistence.NewFileStore(dataDir)
	if err != nil {
		return err
	}

	state, _, err := store.Load(sessionID)
	if err != nil {
		return fmt.Errorf("play: load %s: %w", sessionID, err)
	}

	vc := midivoice.New(routes)
	sched := scheduler.New(clock.NewReal(), vc)

	lifecycle.Manager.Register("scheduler", sched.Stop)
	lifecycle.NotifyOnSignal()

	sched.Start(func() session.Session { return state })
	log.Printf("play: scheduling session %s at %d bpm across %d routes", sessionID, state.Tempo, len(routes))

	select {} // runs until lifecycle.NotifyOnSignal's handler tears down and exits
}
