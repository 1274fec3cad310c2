package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mymy770/Clara/internal/httpapi"
	"github.com/mymy770/Clara/internal/logging"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			settings.HTTPAddr = serveAddr
		}

		store, fs, err := buildStores(settings)
		if err != nil {
			return err
		}
		defer store.Close()

		model, err := buildModel(settings)
		if err != nil {
			return err
		}

		server := httpapi.NewServer(settings, model, store, fs)
		logging.Get().Info("HTTP server listening", "addr", settings.HTTPAddr)
		return http.ListenAndServe(settings.HTTPAddr, server.Handler())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides settings)")
}
