package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jlucaso1/pr-agent-go/internal/server"
)

const defaultServePort = "3000"

// newServeCmd starts the webhook HTTP server, listening on PORT (env var,
// default 3000) on all interfaces. Grounded on orig/server/mod.rs's
// start_server.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseConfigOverrides(args)
			if err != nil {
				return err
			}
			settings, opts, err := bootstrapSettings(overrides)
			if err != nil {
				return err
			}

			port := os.Getenv("PORT")
			if port == "" {
				port = defaultServePort
			}
			addr := fmt.Sprintf(":%s", port)

			srv := server.New(settings, opts, addr)
			return srv.ListenAndServe(cmd.Context())
		},
	}
}
