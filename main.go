package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/studycompanion/internal/config"
	"github.com/sadopc/studycompanion/internal/export"
	"github.com/sadopc/studycompanion/internal/notify"
	"github.com/sadopc/studycompanion/internal/pomodoro"
	"github.com/sadopc/studycompanion/internal/store"
	"github.com/sadopc/studycompanion/internal/tui"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := config.NewFlagSet()
	cfg, err := config.Load(flags, args)
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stdout, "Usage: studycompanion [flags]\n\n%s", flags.FlagUsages())
		return nil
	}
	if err != nil {
		return err
	}

	logger, logFile, err := config.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("%v; logging disabled", err))
		if logger, logFile, err = config.NewLogger("", cfg.LogLevel); err != nil {
			return err
		}
	}
	defer logFile.Close()
	for _, w := range cfg.Warnings {
		logger.Warn("config", "warning", w)
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	s, err := store.New(cfg.DBPath, logger)
	if err != nil {
		// Keep working for this session; nothing will survive a restart.
		logger.Warn("database unavailable, using in-memory storage", "path", cfg.DBPath, "error", err)
		fmt.Fprintf(os.Stderr, "warning: %v; changes will not be saved\n", err)
		if s, err = store.NewMemory(logger); err != nil {
			return fmt.Errorf("open in-memory store: %w", err)
		}
	}
	defer s.Close()

	if cfg.Export != "" {
		return runExport(s, cfg)
	}

	n := notify.New(s, notify.Options{
		Sound:   cfg.Sound,
		Desktop: cfg.DesktopNotifications,
		Logger:  logger,
	})
	engine := pomodoro.New(pomodoro.Config{
		Store:    s,
		Reporter: s,
		Sessions: s,
		Notifier: n,
		Logger:   logger,
	})
	app := tui.NewApp(s, engine, n)
	engine.Start()
	defer engine.Close()

	logger.Info("starting", "db", cfg.DBPath, "config", cfg.ConfigFile)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func runExport(s *store.Store, cfg *config.Config) error {
	f, err := export.ParseFormat(cfg.Export)
	if err != nil {
		return err
	}
	logs, subjects := s.ListSessions(), s.ListSubjects()
	if cfg.Output == "" {
		return export.Write(os.Stdout, f, logs, subjects)
	}
	if err := export.ToFile(cfg.Output, f, logs, subjects); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %d sessions to %s\n", len(logs), cfg.Output)
	return nil
}
