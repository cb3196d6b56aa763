package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flavorbuddy/web/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

var checkOpts struct {
	url     string
	timeout time.Duration
}

// checkCmd probes a running server, for container health checks
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the readiness endpoint of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := checkOpts.url
		if target == "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			target = readinessURL(cfg)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), checkOpts.timeout)
		defer cancel()

		status, err := probe(ctx, target)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), status)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkOpts.url, "url", "", "readiness URL (default: derived from config)")
	checkCmd.Flags().DurationVar(&checkOpts.timeout, "timeout", 5*time.Second, "request timeout")
}

func readinessURL(cfg *config.Config) string {
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d%s", host, cfg.Server.Port, cfg.Monitoring.ReadinessPath)
}

func probe(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("probe %s: status %d (%s)", url, resp.StatusCode, body.Status)
	}
	return body.Status, nil
}
