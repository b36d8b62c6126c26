package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/eventd/internal/httpapi"
	"github.com/sandeepkv93/eventd/internal/scheduler"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the events API and fire reminders",
		Long: `Start the JSON API on the configured listen address.

When reminders are enabled, upcoming occurrences are planned on the refresh
schedule and each reminder is logged when it fires.`,
		RunE: runServe,
	}
	cmd.Flags().String("listen", "", "listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}

	svc, closeStore, err := initService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer closeStore()

	engine, stopReminders, err := startReminders(ctx, cfg, svc)
	if err != nil {
		return err
	}
	defer stopReminders()
	if engine != nil {
		go logReminders(ctx, engine.C())
	}

	var auth *httpapi.BasicAuth
	if cfg.BasicAuth != nil {
		auth = &httpapi.BasicAuth{Username: cfg.BasicAuth.Username, Password: cfg.BasicAuth.Password}
	}
	server := httpapi.NewServer(svc, httpapi.Options{BasicAuth: auth, Logger: slog.Default()})
	return server.ListenAndServe(ctx, cfg.Listen)
}

func logReminders(ctx context.Context, ch <-chan scheduler.Reminder) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-ch:
			if !ok {
				return
			}
			slog.Info("reminder",
				"event_id", r.EventID,
				"title", r.Title,
				"starts_at", r.StartsAt.Format("2006-01-02T15:04:05Z07:00"),
				"trigger_at", r.TriggerAt.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
}
