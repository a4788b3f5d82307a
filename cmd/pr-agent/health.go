package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultHealthPort = "3000"

// newHealthCmd returns a Docker-HEALTHCHECK-friendly command: a single GET
// against the webhook server's own health endpoint, no settings
// initialization at all, since a misconfigured settings layer (a missing
// API key, say) must never fail a liveness probe. Grounded on orig/cli.rs's
// health_check.
func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the webhook server is healthy (for Docker HEALTHCHECK)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthCheck()
		},
	}
}

func runHealthCheck() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultHealthPort
	}
	url := fmt.Sprintf("http://127.0.0.1:%s/", port)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health check failed: status %s", resp.Status)
	}
	return nil
}
