package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/spf13/cobra"

	"github.com/schollz/keyboardia/internal/authority"
	"github.com/schollz/keyboardia/internal/httpapi"
	"github.com/schollz/keyboardia/internal/lifecycle"
	"github.com/schollz/keyboardia/internal/persistence"
)

func newServeCmd() *cobra.Command {
	var addr, dataDir, cookieSecret string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the live-session authority and its REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, dataDir, cookieSecret)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "directory session records are persisted under")
	cmd.Flags().StringVar(&cookieSecret, "cookie-secret", "keyboardia-dev-secret", "signing key for the playerId cookie")

	return cmd
}

func runServe(addr, dataDir, cookieSecret string) error {
	store, err := persistence.NewFileStore(dataDir)
	if err != nil {
		return err
	}

	hub := authority.NewHub(store)
	cookies := sessions.NewCookieStore([]byte(cookieSecret))
	router := httpapi.NewRouter(hub, store, cookies)

	server := &http.Server{Addr: addr, Handler: router}

	lifecycle.Manager.Register("authority-hub", hub.Shutdown)
	lifecycle.Manager.Register("http-server", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("serve: http server shutdown: %v", err)
		}
	})
	lifecycle.NotifyOnSignal()

	log.Printf("serve: listening on %s (data dir %s)", addr, dataDir)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
