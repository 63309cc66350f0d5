package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gramsetu/gramsetu-go/internal/config"
	"github.com/gramsetu/gramsetu-go/internal/session"
)

// Session state constants for status reporting.
const (
	sessionStateMissing = "not logged in"
	sessionStatePresent = "logged in"
)

// statusReport is the machine-readable shape of the status command.
type statusReport struct {
	SessionState string `json:"session_state"`
	UserID       string `json:"user_id,omitempty"`
	Role         string `json:"role,omitempty"`
	BaseURL      string `json:"base_url,omitempty"`
	Tenant       string `json:"tenant,omitempty"`
	SessionPath  string `json:"session_path"`
}

func newStatusCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session and cache status",
		Long: `Display the local session state and cache statistics.

Reads local state only; it never calls the backend, so it works offline
and never triggers a credential refresh. With --watch, keeps running and
reports session changes made by other processes (a login or logout in a
second terminal) until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and report external session changes")

	return cmd
}

func runStatus(cmd *cobra.Command, watch bool) error {
	logger := buildLogger()

	sessions, err := session.NewStore(config.DefaultSessionPath(), logger)
	if err != nil {
		return err
	}

	report := buildStatusReport(sessions)

	if flagJSON {
		if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
			return err
		}
	} else {
		printStatusReport(report)
	}

	if !watch {
		return nil
	}

	return watchStatus(cmd.Context(), sessions, logger)
}

// watchStatus blocks reporting external session changes until interrupted.
func watchStatus(parent context.Context, sessions *session.Store, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := session.NewWatcher(sessions, logger)
	watcher.OnChange = func(sess *session.Session) {
		if flagJSON {
			_ = json.NewEncoder(os.Stdout).Encode(buildStatusReport(sessions))
			return
		}

		if sess == nil {
			fmt.Printf("Session:  %s\n", sessionStateMissing)
			return
		}

		fmt.Printf("Session:  %s as %s (%s)\n", sessionStatePresent, sess.UserID, sess.Role)
	}

	err := watcher.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func buildStatusReport(sessions *session.Store) statusReport {
	cfg := cfgHolder.Config()

	report := statusReport{
		SessionState: sessionStateMissing,
		BaseURL:      cfg.API.BaseURL,
		Tenant:       cfg.API.Tenant,
		SessionPath:  sessions.Path(),
	}

	if sess := sessions.Current(); sess != nil {
		report.SessionState = sessionStatePresent
		report.UserID = sess.UserID
		report.Role = sess.Role
	}

	return report
}

func printStatusReport(report statusReport) {
	fmt.Printf("Session:  %s\n", report.SessionState)

	if report.UserID != "" {
		fmt.Printf("User:     %s (%s)\n", report.UserID, report.Role)
	}

	if report.BaseURL != "" {
		fmt.Printf("Backend:  %s (tenant %s)\n", report.BaseURL, report.Tenant)
	}

	fmt.Printf("State:    %s\n", report.SessionPath)
}
