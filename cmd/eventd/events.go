package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sandeepkv93/eventd/internal/model"
	"github.com/sandeepkv93/eventd/internal/service"
	"github.com/sandeepkv93/eventd/internal/views"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an event",
		Long: `Create a one-off or recurring event.

Times are RFC 3339 or "YYYY-MM-DD HH:MM" in the configured timezone. Passing
--freq makes the event recurring.`,
		Example: `  eventd add --title Standup --start "2025-01-06 09:00" --duration 15m --freq weekly --weekdays MON,WED,FRI
  eventd add --title "Team lunch" --start "2025-01-10 12:00" --freq monthly --weekday FRI --ordinal 2 --until 2025-12-31`,
		RunE: runAdd,
	}
	cmd.Flags().String("title", "", "event title")
	cmd.Flags().String("description", "", "event description (markdown)")
	cmd.Flags().String("location", "", "event location")
	cmd.Flags().String("start", "", "start time")
	cmd.Flags().String("end", "", "end time")
	cmd.Flags().Duration("duration", time.Hour, "duration when --end is not given")
	cmd.Flags().String("freq", "", "recurrence frequency (daily, weekly, monthly, yearly)")
	cmd.Flags().Int("interval", 1, "repeat every N periods")
	cmd.Flags().String("until", "", "last date of the recurrence (YYYY-MM-DD)")
	cmd.Flags().StringSlice("weekdays", nil, "weekly subset, e.g. MON,WED")
	cmd.Flags().String("weekday", "", "weekday for the Nth-weekday-of-month pattern")
	cmd.Flags().Int("ordinal", 0, "N for the Nth-weekday-of-month pattern (1-5)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func runAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	svc, closeStore, err := initService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer closeStore()

	in, err := eventInputFromFlags(cmd, svc.Location())
	if err != nil {
		return err
	}
	ev, err := svc.Create(ctx, in)
	if err != nil {
		return describeServiceError(cmd.ErrOrStderr(), err)
	}
	slog.Debug("event created", "id", ev.ID)
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("created "+ev.ID))
	return nil
}

func eventInputFromFlags(cmd *cobra.Command, loc *time.Location) (service.EventInput, error) {
	flags := cmd.Flags()
	title, _ := flags.GetString("title")
	description, _ := flags.GetString("description")
	location, _ := flags.GetString("location")
	startRaw, _ := flags.GetString("start")
	endRaw, _ := flags.GetString("end")
	duration, _ := flags.GetDuration("duration")

	start, err := parseWhen(startRaw, loc)
	if err != nil {
		return service.EventInput{}, fmt.Errorf("--start: %w", err)
	}
	end := start.Add(duration)
	if endRaw != "" {
		if end, err = parseWhen(endRaw, loc); err != nil {
			return service.EventInput{}, fmt.Errorf("--end: %w", err)
		}
	}
	in := service.EventInput{
		Title:       title,
		Description: description,
		Location:    location,
		Start:       &start,
		End:         &end,
	}

	freqRaw, _ := flags.GetString("freq")
	if freqRaw == "" {
		return in, nil
	}
	freq, err := model.ParseFrequency(freqRaw)
	if err != nil {
		return service.EventInput{}, fmt.Errorf("--freq: %w", err)
	}
	interval, _ := flags.GetInt("interval")
	spec := model.RecurrenceSpec{Frequency: freq, Interval: interval}

	if untilRaw, _ := flags.GetString("until"); untilRaw != "" {
		until, err := time.Parse(time.DateOnly, untilRaw)
		if err != nil {
			return service.EventInput{}, fmt.Errorf("--until: invalid date %q", untilRaw)
		}
		spec.EndDate = &until
	}
	weekdays, _ := flags.GetStringSlice("weekdays")
	for _, d := range weekdays {
		spec.Weekdays = append(spec.Weekdays, model.WeekdayCode(strings.ToUpper(strings.TrimSpace(d))))
	}
	if weekday, _ := flags.GetString("weekday"); weekday != "" {
		code := model.WeekdayCode(strings.ToUpper(weekday))
		spec.Weekday = &code
	}
	if flags.Changed("ordinal") {
		ordinal, _ := flags.GetInt("ordinal")
		spec.Ordinal = &ordinal
	}
	in.IsRecurring = true
	in.Recurrence = &spec
	return in, nil
}

// describeServiceError prints field errors as YAML and returns a short error.
func describeServiceError(w io.Writer, err error) error {
	var verr *service.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	out, marshalErr := yaml.Marshal(verr.Fields)
	if marshalErr != nil {
		return err
	}
	fmt.Fprint(w, string(out))
	return errors.New("event rejected")
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events or the occurrences in a date window",
		Long: `Without --from/--to, list stored events by start time. With both, list
every occurrence in the inclusive window, expanding recurring events.`,
		RunE: runList,
	}
	cmd.Flags().String("from", "", "first date of the window (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "last date of the window (YYYY-MM-DD)")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("page-size", 0, "page size (default from config)")
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	svc, closeStore, err := initService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer closeStore()

	fromRaw, _ := cmd.Flags().GetString("from")
	toRaw, _ := cmd.Flags().GetString("to")
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("page-size")
	req := service.PageRequest{Page: page, Size: size}
	out := cmd.OutOrStdout()

	if fromRaw == "" || toRaw == "" {
		res, err := svc.List(ctx, req)
		if err != nil {
			return describeServiceError(cmd.ErrOrStderr(), err)
		}
		rows := make([]listRow, 0, len(res.Results))
		for _, ev := range res.Results {
			rows = append(rows, listRow{id: ev.ID, start: ev.Start, end: ev.End, title: ev.Title, repeats: ruleSummary(ev.Recurrence)})
		}
		return writeList(out, rows, res.Count, res.Page)
	}

	loc := svc.Location()
	from, err := parseDate(fromRaw, loc)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parseDate(toRaw, loc)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	res, err := svc.ListWindowPage(ctx, from, to, req)
	if err != nil {
		return describeServiceError(cmd.ErrOrStderr(), err)
	}
	rows := make([]listRow, 0, len(res.Results))
	for _, inst := range res.Results {
		repeats := ""
		if inst.Expanded {
			repeats = "yes"
		}
		rows = append(rows, listRow{id: inst.EventID, start: inst.Start, end: inst.End, title: inst.Title, repeats: repeats})
	}
	return writeList(out, rows, res.Count, res.Page)
}

type listRow struct {
	id      string
	start   time.Time
	end     time.Time
	title   string
	repeats string
}

func writeList(out io.Writer, rows []listRow, count, page int) error {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No events found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Start"),
		headerStyle.Render("End"),
		headerStyle.Render("Title"),
		headerStyle.Render("Repeats")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.id,
			r.start.Format("2006-01-02 15:04"),
			r.end.Format("15:04"),
			r.title,
			r.repeats); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\npage %d, %d total\n", page, count)
	return nil
}

func ruleSummary(spec *model.RecurrenceSpec) string {
	if spec == nil {
		return ""
	}
	return spec.String()
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeStore, err := initService(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize service: %w", err)
			}
			defer closeStore()

			ev, err := svc.Get(ctx, args[0])
			if err != nil {
				if errors.Is(err, service.ErrNotFound) {
					return fmt.Errorf("event %s not found", args[0])
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), views.RenderMarkdown(views.EventMarkdown(views.EventDetailData{
				Title:       ev.Title,
				When:        fmt.Sprintf("%s to %s", ev.Start.Format("2006-01-02 15:04"), ev.End.Format("2006-01-02 15:04")),
				Location:    ev.Location,
				Recurrence:  ruleSummary(ev.Recurrence),
				Description: ev.Description,
				EventID:     ev.ID,
			})))
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an event and its recurrence rule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeStore, err := initService(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize service: %w", err)
			}
			defer closeStore()

			if err := svc.Delete(ctx, args[0]); err != nil {
				if errors.Is(err, service.ErrNotFound) {
					return fmt.Errorf("event %s not found", args[0])
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Event deleted successfully"))
			return nil
		},
	}
}
