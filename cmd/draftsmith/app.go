package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/draftsmith/internal/apperr"
	"github.com/kalambet/draftsmith/internal/catalog"
	"github.com/kalambet/draftsmith/internal/completion"
	"github.com/kalambet/draftsmith/internal/composer"
	"github.com/kalambet/draftsmith/internal/config"
	"github.com/kalambet/draftsmith/internal/engine"
	"github.com/kalambet/draftsmith/internal/generator"
	"github.com/kalambet/draftsmith/internal/intent"
	"github.com/kalambet/draftsmith/internal/profile"
	"github.com/kalambet/draftsmith/internal/storage"
	"github.com/kalambet/draftsmith/internal/style"
)

// app is the wired set of components one command works with.
type app struct {
	cfg       config.Config
	userID    string
	store     *storage.Store
	catalog   *catalog.Catalog
	profiles  *profile.Manager
	learner   *profile.Learner
	completer *completion.Service
	generator *generator.Generator
	style     style.Options
}

// loadConfig is swapped in tests.
var loadConfig = config.Load

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)

	cat, err := catalog.Load(cfg.Templates.Dir)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(cat.Categories(), cfg.Intent.DefaultCategory) {
		return nil, apperr.New(apperr.InvalidRequest,
			"invalid configuration: intent.default_category %q is not a template category (have %s)",
			cfg.Intent.DefaultCategory, strings.Join(cat.Categories(), ", "))
	}

	eng, err := engine.Detect(engine.DetectConfig{
		Backend: cfg.Completion.Backend,
		BaseURL: cfg.Completion.BaseURL,
		APIKey:  cfg.Completion.APIKey,
	})
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	a := &app{cfg: cfg, userID: cfg.User.ID, store: store, catalog: cat}
	if userFlag != "" {
		a.userID = userFlag
	}
	a.style = style.Options{
		LearningRate:        cfg.Style.LearningRate,
		MinEmails:           cfg.Style.MinEmails,
		ConfidenceThreshold: cfg.Style.ConfidenceThreshold,
		MaxPhrases:          cfg.Style.MaxPhrases,
	}
	a.profiles = profile.NewManager(store)
	a.learner = profile.NewLearner(a.profiles, style.NewAnalyzer(a.style), store)

	copts := completion.DefaultOptions()
	copts.Model = cfg.Completion.Model
	copts.Timeout = cfg.Completion.Timeout
	copts.MaxRetries = cfg.Completion.MaxRetries
	copts.RetryDelay = cfg.Completion.RetryDelay
	a.completer = completion.New(eng, copts)

	detector := intent.NewDetector(intent.Options{
		DefaultCategory:     cfg.Intent.DefaultCategory,
		ConfidenceThreshold: cfg.Intent.ConfidenceThreshold,
		MaxQuestions:        cfg.Intent.MaxQuestions,
	}, cat.Categories())

	a.generator = generator.New(generator.Deps{
		Catalog:   cat,
		Detector:  detector,
		Composer:  composer.New(composer.Options{Style: a.style}),
		Completer: a.completer,
		Profiles:  a.profiles,
		History:   store,
	}, generator.Options{
		Temperature: cfg.Generation.Temperature,
		MaxTokens:   cfg.Generation.MaxTokens,
		UserName:    cfg.User.Name,
		Style:       a.style,
	})
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
	}
}

// withApp opens the app for the duration of a command.
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}
