package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sandeepkv93/eventd/internal/config"
	"github.com/sandeepkv93/eventd/internal/scheduler"
	"github.com/sandeepkv93/eventd/internal/service"
	"github.com/sandeepkv93/eventd/internal/storage"
)

// openStore opens the configured database, creating its directory on first use.
func openStore(c *config.Config) (*storage.SQLiteRepository, error) {
	dbPath, err := c.DatabasePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// initService opens and migrates the store and builds the event service on
// top of it. The returned func closes the store.
func initService(_ context.Context, c *config.Config) (*service.EventService, func(), error) {
	store, err := openStore(c)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("failed to close storage", "error", closeErr)
		}
	}
	if err := storage.MigrateUp(store.DB()); err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	loc, err := c.Location()
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	svc := service.New(store, service.Options{
		Location:      loc,
		MaxWindowDays: c.MaxWindowDays,
		PageSize:      c.PageSize,
		Logger:        slog.Default(),
	})
	return svc, closeStore, nil
}

// startReminders runs the reminder engine and its planner until ctx is done.
// It returns nil when reminders are disabled.
func startReminders(ctx context.Context, c *config.Config, svc *service.EventService) (*scheduler.Engine, func(), error) {
	if !c.Reminders.Enabled {
		return nil, func() {}, nil
	}
	engine := scheduler.NewEngine(c.Reminders.Buffer)
	planner, err := scheduler.NewPlanner(svc, engine, scheduler.PlannerConfig{
		Lead:     time.Duration(c.Reminders.LeadMinutes) * time.Minute,
		Horizon:  time.Duration(c.Reminders.HorizonHours) * time.Hour,
		Refresh:  c.Reminders.Refresh,
		Location: svc.Location(),
		Logger:   slog.Default(),
	})
	if err != nil {
		return nil, nil, err
	}
	engine.Start()
	if err := planner.Start(ctx); err != nil {
		engine.Stop()
		return nil, nil, fmt.Errorf("failed to plan reminders: %w", err)
	}
	stop := func() {
		planner.Stop()
		engine.Stop()
		if dropped := engine.Dropped(); dropped > 0 {
			slog.Warn("reminders dropped", "count", dropped)
		}
	}
	return engine, stop, nil
}

// parseWhen accepts RFC 3339 or a local "YYYY-MM-DD HH:MM" in loc.
func parseWhen(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or YYYY-MM-DD HH:MM", value)
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD", value)
	}
	return t, nil
}
