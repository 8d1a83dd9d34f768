package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/jwebster45206/pale-notes/internal/config"
	"github.com/jwebster45206/pale-notes/internal/engine"
	"github.com/jwebster45206/pale-notes/internal/logger"
	"github.com/jwebster45206/pale-notes/internal/services"
	backend "github.com/jwebster45206/pale-notes/internal/storage"
	"github.com/jwebster45206/pale-notes/pkg/meta"
	"github.com/jwebster45206/pale-notes/pkg/storage"
	"github.com/jwebster45206/pale-notes/pkg/story"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out, closeLog, err := logger.Output(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLog() // Ignore error in defer
	}()
	log := logger.Setup(cfg, out)

	store, err := backend.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	prefs, err := loadPreferences(ctx, store, cfg, log)
	if err != nil {
		return err
	}
	if cfg.LLMAPIKey == "" {
		return errors.New("no API key configured; set LLM_API_KEY or add it to .env")
	}

	catalog, err := story.LoadCatalog(cfg.StoryData)
	if err != nil {
		return err
	}
	log.Info("Catalog loaded", "events", len(catalog.Events), "items", len(catalog.Items))

	llm := services.NewOpenAIService(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, log)

	presenter := &programPresenter{}
	eng := engine.New(engine.Deps{
		LLM:       llm,
		Store:     store,
		Catalog:   catalog,
		Presenter: presenter,
		Logger:    log,
	}, engine.Options{
		HistoryWindow:     cfg.HistoryWindow,
		SummaryInterval:   cfg.SummaryInterval,
		SummaryMinHistory: cfg.SummaryMinHistory,
	})
	defer eng.Close()

	// Load renders, so it must run before the program is attached.
	hasSave, err := eng.Load(ctx)
	if err != nil {
		return err
	}

	p := tea.NewProgram(NewConsoleUI(eng, store, prefs, hasSave),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	presenter.Attach(p)
	go drainSummaryErrors(eng, p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// loadPreferences reads stored preferences and lets them fill in any LLM
// setting the environment left empty.
func loadPreferences(ctx context.Context, store storage.Storage, cfg *config.Config, log *slog.Logger) (*meta.Preferences, error) {
	prefs, err := store.LoadPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if prefs == nil {
		prefs = meta.DefaultPreferences()
	}

	if cfg.LLMAPIKey == "" && prefs.APIKey != "" {
		cfg.LLMAPIKey = prefs.APIKey
	}
	if prefs.BaseURL != "" && os.Getenv("LLM_BASE_URL") == "" {
		cfg.LLMBaseURL = prefs.BaseURL
	}
	if prefs.Model != "" && os.Getenv("LLM_MODEL") == "" {
		cfg.LLMModel = prefs.Model
	}
	log.Debug("Preferences loaded", "theme", prefs.Theme, "model", cfg.LLMModel)
	return prefs, nil
}
