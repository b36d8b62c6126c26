package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/eventd/internal/ics"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all events as iCalendar",
		Long: `Write every stored event to an .ics file. Recurring events are written
once with an RRULE so calendar clients expand them on their side.`,
		RunE: runExport,
	}
	cmd.Flags().StringP("output", "o", "-", "output file, - for stdout")
	cmd.Flags().String("name", "eventd", "calendar name (X-WR-CALNAME)")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	output, _ := cmd.Flags().GetString("output")
	name, _ := cmd.Flags().GetString("name")

	svc, closeStore, err := initService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer closeStore()

	events, err := svc.All(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				slog.Error("failed to close export file", "error", closeErr)
			}
		}()
		w = f
	}

	if err := ics.Export(w, events, ics.Options{CalendarName: name}); err != nil {
		return err
	}
	slog.Info("calendar exported", "events", len(events), "output", output)
	return nil
}
