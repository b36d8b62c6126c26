package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/eventd/internal/agenda"
	"github.com/sandeepkv93/eventd/internal/commands"
	"github.com/sandeepkv93/eventd/internal/scheduler"
)

func agendaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Browse occurrences in an interactive agenda",
		Long: `Open the terminal agenda. Use h/l to move by span, j/k to move the cursor,
t for today and : for the command line (goto, span, today, next, prev).`,
		RunE: runAgenda,
	}
	cmd.Flags().String("span", string(commands.SpanWeek), "initial span (day, week, month)")
	return cmd
}

func runAgenda(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	spanRaw, _ := cmd.Flags().GetString("span")
	span := commands.Span(spanRaw)
	if !span.IsValid() {
		return fmt.Errorf("--span: unknown span %q", spanRaw)
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
	var reminders <-chan scheduler.Reminder
	if engine != nil {
		reminders = engine.C()
	}

	m := agenda.New(ctx, svc, agenda.Options{
		Location:  svc.Location(),
		Span:      span,
		Reminders: reminders,
	})
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("agenda failed: %w", err)
	}
	return nil
}
