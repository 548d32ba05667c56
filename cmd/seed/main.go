// Package main seeds the TitleKeep database with the default title catalog
// and settings. The seed is idempotent and safe to run on every deploy.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/titlekeep/titlekeep-server/internal/config"
	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/errors"
	"github.com/titlekeep/titlekeep-server/internal/logger"
	"github.com/titlekeep/titlekeep-server/internal/store"
	"github.com/titlekeep/titlekeep-server/internal/store/sqlite"
)

var defaultTitles = []domain.Title{
	{Name: "Guardian of Harmony", IconURL: "/static/icons/guardian_harmony.png", Requestable: false, Perpetual: true},
	{Name: "Guardian of Fire", IconURL: "/static/icons/guardian_fire.png", Requestable: true},
	{Name: "Guardian of Water", IconURL: "/static/icons/guardian_water.png", Requestable: true},
	{Name: "Guardian of Earth", IconURL: "/static/icons/guardian_earth.png", Requestable: true},
	{Name: "Guardian of Air", IconURL: "/static/icons/guardian_air.png", Requestable: true},
	{Name: "Architect", IconURL: "/static/icons/architect.png", Requestable: true},
	{Name: "General", IconURL: "/static/icons/general.png", Requestable: true},
	{Name: "Governor", IconURL: "/static/icons/governor.png", Requestable: true},
	{Name: "Prefect", IconURL: "/static/icons/prefect.png", Requestable: true},
}

var defaultSettings = map[string]string{
	domain.SettingShiftHours:       "12",
	domain.SettingRemindersEnabled: "false",
	domain.SettingReminderLead:     "15",
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	st, err := sqlite.Open(cfg.DatabasePath(), log.Logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	for i, title := range defaultTitles {
		title.SortOrder = i
		if err := st.UpsertTitle(ctx, &title); err != nil {
			return fmt.Errorf("seed title %q: %w", title.Name, err)
		}
	}
	log.Info("Title catalog seeded", "titles", len(defaultTitles))

	// Settings are only written when absent so admin changes survive reseeds.
	for key, value := range defaultSettings {
		_, err := st.GetSetting(ctx, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("read setting %q: %w", key, err)
		}
		if err := st.SetSetting(ctx, key, value); err != nil {
			return fmt.Errorf("seed setting %q: %w", key, err)
		}
		log.Info("Setting seeded", "key", key, "value", value)
	}

	log.Info("Seed complete", "database", cfg.DatabasePath())
	return nil
}
