package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sandeepkv93/eventd/internal/model"
)

// WindowLister is satisfied by service.EventService.
type WindowLister interface {
	ListWindow(ctx context.Context, from, to time.Time) ([]model.Instance, error)
}

type PlannerConfig struct {
	// Lead is how long before an occurrence its reminder fires.
	Lead time.Duration
	// Horizon bounds how far ahead each pass looks.
	Horizon time.Duration
	// Refresh is a standard five-field cron expression.
	Refresh  string
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// Planner periodically expands upcoming occurrences and feeds their
// reminders into an Engine.
type Planner struct {
	lister WindowLister
	engine *Engine
	cfg    PlannerConfig
	cron   *cron.Cron
}

func NewPlanner(lister WindowLister, engine *Engine, cfg PlannerConfig) (*Planner, error) {
	if cfg.Horizon <= 0 {
		cfg.Horizon = 24 * time.Hour
	}
	if cfg.Lead < 0 {
		return nil, fmt.Errorf("scheduler: negative reminder lead %s", cfg.Lead)
	}
	if cfg.Refresh == "" {
		cfg.Refresh = "*/5 * * * *"
	}
	if _, err := cron.ParseStandard(cfg.Refresh); err != nil {
		return nil, fmt.Errorf("scheduler: refresh schedule %q: %w", cfg.Refresh, err)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Planner{
		lister: lister,
		engine: engine,
		cfg:    cfg,
		cron:   cron.New(cron.WithLocation(cfg.Location)),
	}, nil
}

// Refresh schedules every reminder that falls inside the horizon and returns
// how many were new.
func (p *Planner) Refresh(ctx context.Context) (int, error) {
	now := p.cfg.Now().In(p.cfg.Location)
	until := now.Add(p.cfg.Horizon + p.cfg.Lead)

	instances, err := p.lister.ListWindow(ctx, now, until)
	if err != nil {
		return 0, fmt.Errorf("list upcoming occurrences: %w", err)
	}

	added := 0
	for _, inst := range instances {
		if !inst.Start.After(now) {
			continue
		}
		trigger := inst.Start.Add(-p.cfg.Lead)
		if trigger.After(now.Add(p.cfg.Horizon)) {
			continue
		}
		if trigger.Before(now) {
			trigger = now
		}
		ok, err := p.engine.Schedule(Reminder{
			Key:       ReminderKey(inst.EventID, inst.Start),
			EventID:   inst.EventID,
			Title:     inst.Title,
			StartsAt:  inst.Start,
			TriggerAt: trigger,
		})
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	forgotten := p.engine.Forget(now.Add(-p.cfg.Horizon))
	p.cfg.Logger.Debug("reminders planned", "added", added, "pending", p.engine.Pending(), "forgotten", forgotten)
	return added, nil
}

// Start runs one pass immediately, then on the refresh schedule until ctx
// is cancelled or Stop is called.
func (p *Planner) Start(ctx context.Context) error {
	if _, err := p.Refresh(ctx); err != nil {
		return err
	}
	if _, err := p.cron.AddFunc(p.cfg.Refresh, func() {
		if _, err := p.Refresh(ctx); err != nil {
			p.cfg.Logger.Error("reminder refresh failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduler: add refresh job: %w", err)
	}
	p.cron.Start()
	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop halts the refresh schedule and waits for a running pass to finish.
func (p *Planner) Stop() {
	<-p.cron.Stop().Done()
}
