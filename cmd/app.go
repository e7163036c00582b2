package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/client"
	"github.com/josephgoksu/concierge/internal/config"
	"github.com/josephgoksu/concierge/internal/logger"
	"github.com/josephgoksu/concierge/internal/request"
	"github.com/josephgoksu/concierge/internal/storage"
	"github.com/josephgoksu/concierge/internal/task"
	"github.com/josephgoksu/concierge/internal/telemetry"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by every command for one invocation.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	telemetry telemetry.Client
	fs        afero.Fs
	started   time.Time
}

var current *app

func initApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	if verbose && cfg.Log.Level == config.DefaultLogLevel {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(cmd.ErrOrStderr(), logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	logger.SetBasePath(cfg.DataDir())
	logger.SetVersion(version)
	logger.SetCommand(cmd.CommandPath())

	current = &app{
		cfg:       cfg,
		log:       log,
		telemetry: openTelemetry(cfg, log),
		fs:        afero.NewOsFs(),
		started:   time.Now(),
	}
	return nil
}

func openTelemetry(cfg *config.Config, log *slog.Logger) telemetry.Client {
	if cfg.Telemetry.Disabled || cfg.Telemetry.APIKey == "" {
		return telemetry.NewNoopClient()
	}
	dir, err := config.GetGlobalConfigDir()
	if err != nil {
		return telemetry.NewNoopClient()
	}
	tcfg, err := telemetry.NewStore(afero.NewOsFs(), dir).Load()
	if err != nil {
		log.Debug("telemetry config unreadable", "error", err)
		return telemetry.NewNoopClient()
	}
	c, err := telemetry.New(telemetry.ClientConfig{
		APIKey:   cfg.Telemetry.APIKey,
		Endpoint: cfg.Telemetry.Endpoint,
		Version:  version,
		Config:   tcfg,
	})
	if err != nil {
		log.Debug("telemetry disabled", "error", err)
		return telemetry.NewNoopClient()
	}
	return c
}

// closeApp records the command outcome and flushes telemetry. It runs once,
// from PostRun on success or from ExecuteContext on failure.
func closeApp(cmd *cobra.Command, runErr error) {
	if current == nil {
		return
	}
	a := current
	current = nil

	props := telemetry.Properties{
		"duration_ms": time.Since(a.started).Milliseconds(),
		"success":     runErr == nil,
	}
	if cmd != nil {
		props["command"] = cmd.Name()
	}
	event := telemetry.EventCommandExecuted
	if runErr != nil {
		event = telemetry.EventCommandError
		props["error_type"] = errorType(runErr)
	}
	a.telemetry.Track(event, props)
	_ = a.telemetry.Close()
}

func isJSON() bool {
	return viper.GetBool("json")
}

func isVerbose() bool {
	return viper.GetBool("verbose")
}

func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

// openCatalog loads the catalog and follows the override file when
// catalog.watch is set. The caller stops the watcher.
func openCatalog(ctx context.Context, a *app) (*catalog.Watcher, error) {
	w, err := catalog.NewWatcher(a.fs, a.cfg.Catalog.Path, a.log)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if a.cfg.Catalog.Watch {
		if err := w.Start(ctx); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func openLocalStore(a *app) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(a.cfg.DataDir(), storage.Options{ListingLag: a.cfg.Storage.ListingLag})
	if err != nil {
		return nil, fmt.Errorf("open task store in %s: %w", a.cfg.DataDir(), err)
	}
	a.log.Debug("task store opened", "path", store.Path())
	return store, nil
}

// backend is the task API as the CLI sees it, local or remote.
type backend interface {
	request.TaskCreator
	ListTasks(ctx context.Context) ([]task.Task, error)
	GetTask(ctx context.Context, id int64) (task.Task, error)
}

// openBackend returns the SQLite store when local is set and the HTTP client
// otherwise. The returned func releases it.
func openBackend(a *app, local bool) (backend, func(), error) {
	if local {
		store, err := openLocalStore(a)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	c, err := client.New(a.cfg.API.URL, client.Options{
		Timeout:     a.cfg.API.Timeout,
		ListRetries: a.cfg.API.ListRetries,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, func() {}, nil
}
