package main

import (
	"context"
	"math/rand"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-enrich/internal/model"
	"github.com/sells-group/crm-enrich/internal/resilience"
	"github.com/sells-group/crm-enrich/internal/store"
	"github.com/sells-group/crm-enrich/internal/syncer"
	"github.com/sells-group/crm-enrich/pkg/anthropic"
	"github.com/sells-group/crm-enrich/pkg/datagen"
	"github.com/sells-group/crm-enrich/pkg/exa"
	"github.com/sells-group/crm-enrich/pkg/linkup"
)

// initStore opens the configured backend. Missing connection settings are a
// fatal config failure, reported before any work starts.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url not configured (set DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initDatagen builds the gateway client. The gateway fronts Gmail search and
// LinkedIn tools, so nearly every command needs it.
func initDatagen() (datagen.Client, error) {
	if cfg.Datagen.Key == "" {
		return nil, eris.New("datagen.key not configured (set DATAGEN_API_KEY)")
	}
	return datagen.NewClient(cfg.Datagen.Key,
		datagen.WithBaseURL(cfg.Datagen.BaseURL),
		datagen.WithRateLimit(cfg.Datagen.RateLimit),
	), nil
}

// initLinkup returns nil when no key is configured; the resolver skips
// providers without clients.
func initLinkup() linkup.Client {
	if cfg.Linkup.Key == "" {
		return nil
	}
	return linkup.NewClient(cfg.Linkup.Key, linkup.WithBaseURL(cfg.Linkup.BaseURL))
}

// initExa returns nil when no key is configured.
func initExa() exa.Client {
	if cfg.Exa.Key == "" {
		return nil
	}
	return exa.NewClient(cfg.Exa.Key, exa.WithBaseURL(cfg.Exa.BaseURL))
}

func initAnthropic() (anthropic.Client, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic.key not configured (set ANTHROPIC_API_KEY)")
	}
	return anthropic.NewClient(cfg.Anthropic.Key), nil
}

// pauseJitter sleeps a random 0.5-2s to spread load on the gateway, the same
// spacing the sync orchestrator uses between mail queries. Returns early on
// cancellation.
func pauseJitter(ctx context.Context) {
	d := 500*time.Millisecond + time.Duration(rand.Int63n(int64(1500*time.Millisecond)))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// recordRun writes a run audit row. Failures are logged rather than
// returned; the command's own work already finished.
func recordRun(ctx context.Context, st store.Store, command string, startedAt time.Time, processed, succeeded, failed int) {
	// The audit row should land even when the run was interrupted.
	ctx = context.WithoutCancel(ctx)
	err := st.RecordRun(ctx, model.RunRecord{
		Command:    command,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Processed:  processed,
		Succeeded:  succeeded,
		Failed:     failed,
	})
	if err != nil {
		zap.L().Warn("failed to record run", zap.String("command", command), zap.Error(err))
	}
}

// syncerOptions translates sync config into syncer options.
func syncerOptions() []syncer.Option {
	opts := []syncer.Option{
		syncer.WithWorkers(cfg.Sync.MaxWorkers),
		syncer.WithJitter(
			time.Duration(cfg.Sync.MinJitterSecs*float64(time.Second)),
			time.Duration(cfg.Sync.MaxJitterSecs*float64(time.Second)),
		),
	}
	if cfg.Sync.RetryAttempts > 1 {
		opts = append(opts, syncer.WithRetry(resilience.Attempts(cfg.Sync.RetryAttempts)))
	}
	return opts
}
