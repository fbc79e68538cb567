// Command keyboardia runs the collaborative step-sequencer: the serve
// subcommand hosts the live-session authority and its REST surface,
// play drives a session headlessly against a MIDI voice, and migrate
// upgrades every saved session record to the current on-disk format.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "keyboardia",
		Short: "Multi-user realtime collaborative step sequencer",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newPlayCmd())
	root.AddCommand(newMigrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
