package main

import (
	"context"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/clickup"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "leadgen.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func newClickUpClient() clickup.Client {
	opts := []clickup.Option{
		clickup.WithRateLimit(cfg.ClickUp.RatePerSec),
		clickup.WithRetryConfig(resilience.FromRetryConfig(
			cfg.ClickUp.Retry.MaxAttempts,
			cfg.ClickUp.Retry.InitialBackoffMs,
			cfg.ClickUp.Retry.MaxBackoffMs,
			cfg.ClickUp.Retry.Multiplier,
			cfg.ClickUp.Retry.JitterFraction,
		)),
		clickup.WithCircuitBreaker(resilience.FromCircuitConfig(
			cfg.ClickUp.Circuit.FailureThreshold,
			cfg.ClickUp.Circuit.ResetTimeoutSecs,
		)),
	}
	if cfg.ClickUp.BaseURL != "" {
		opts = append(opts, clickup.WithBaseURL(cfg.ClickUp.BaseURL))
	}
	return clickup.NewClient(cfg.ClickUp.Token, opts...)
}

// resolveMapping returns the custom-field mapping for the list, preferring
// the cached mapping file and falling back to live field discovery. A fresh
// discovery result is cached for the next invocation.
func resolveMapping(ctx context.Context, client clickup.Client, listID string) (clickup.FieldMapping, error) {
	if cached, err := clickup.LoadFieldMapping(cfg.ClickUp.MappingFile); err == nil && cached.Complete() {
		return *cached, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		zap.L().Warn("ignoring unreadable mapping file",
			zap.String("path", cfg.ClickUp.MappingFile),
			zap.Error(err),
		)
	}

	fields, err := client.ListFields(ctx, listID)
	if err != nil {
		return clickup.FieldMapping{}, eris.Wrapf(err, "discover fields for list %s", listID)
	}

	mapping := clickup.ResolveFieldMapping(fields)
	if !mapping.Complete() {
		return clickup.FieldMapping{}, eris.Errorf(
			"list %s is missing required custom fields (need company, email, phone, and an estimated value field; run `leadgen-cli discover --list %s` to inspect)",
			listID, listID,
		)
	}

	if err := mapping.Save(cfg.ClickUp.MappingFile); err != nil {
		zap.L().Warn("could not cache field mapping",
			zap.String("path", cfg.ClickUp.MappingFile),
			zap.Error(err),
		)
	}
	return mapping, nil
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
