package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/schollz/keyboardia/internal/persistence"
)

func newMigrateCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Force every saved session record to the current on-disk format",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(dataDir)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "directory session records are persisted under")

	return cmd
}

func runMigrate(dataDir string) error {
	store, err := persistence.NewFileStore(dataDir)
	if err != nil {
		return err
	}

	ids, err := store.List()
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := store.Migrate(id); err != nil {
			log.Printf("migrate: %s: %v", id, err)
			continue
		}
		log.Printf("migrate: %s upgraded to version %d", id, persistence.CurrentVersion)
	}
	return nil
}
