package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var scheduleParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// ParseSchedule parses a 5-field cron expression or an "@every"/"@hourly"
// style descriptor. Timezone prefixes are rejected; schedules run in UTC.
func ParseSchedule(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, errors.New("catalog: watch schedule is required")
	}
	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, errors.New("catalog: watch schedule must not carry a timezone prefix")
	}
	schedule, err := scheduleParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("catalog: invalid watch schedule: %w", err)
	}
	return schedule, nil
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	Directory string
	Schedule  string
	Store     Store
	Logger    *slog.Logger
	Build     BuildOptions
	// OnSync is called after every successful rescan.
	OnSync func(Snapshot, SyncResult)
}

// Watcher rescans a directory on a cron schedule and syncs the results into
// a store. Runs never overlap.
type Watcher struct {
	cfg      WatcherConfig
	schedule cron.Schedule
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	done    chan struct{}
	lastErr error
}

// NewWatcher validates cfg and returns a stopped watcher.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if strings.TrimSpace(cfg.Directory) == "" {
		return nil, errors.New("catalog: watch directory is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("catalog: watch store is required")
	}
	schedule, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Build.Logger == nil {
		cfg.Build.Logger = logger
	}
	return &Watcher{
		cfg:      cfg,
		schedule: schedule,
		logger:   logger.With("component", "catalog.watcher", "directory", cfg.Directory),
	}, nil
}

// RunOnce performs one build and sync.
func (w *Watcher) RunOnce(ctx context.Context) (Snapshot, SyncResult, error) {
	snapshot, err := Build(ctx, w.cfg.Directory, w.cfg.Build)
	if err != nil {
		w.setLastErr(err)
		return Snapshot{}, SyncResult{}, err
	}
	result, err := Sync(ctx, w.cfg.Store, snapshot)
	if err != nil {
		w.setLastErr(err)
		return snapshot, result, err
	}
	w.setLastErr(nil)

	if result.Changed() {
		w.logger.Info("catalog changed",
			"added", len(result.Added),
			"updated", len(result.Updated),
			"removed", len(result.Removed),
		)
	}
	if w.cfg.OnSync != nil {
		w.cfg.OnSync(snapshot, result)
	}
	return snapshot, result, nil
}

// Start schedules rescans until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return
	}

	logger := cronLogger{logger: w.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithParser(scheduleParser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(w.schedule, cron.FuncJob(func() {
		if _, _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("catalog rescan failed", "error", err)
		}
	}))
	c.Start()
	done := make(chan struct{})
	w.cron = c
	w.done = done

	go func() {
		select {
		case <-ctx.Done():
			w.stop(done)
		case <-done:
		}
	}()
}

// Stop halts scheduling and waits for a running rescan to finish.
func (w *Watcher) Stop() {
	w.stop(nil)
}

// stop halts the cron started with done, or the current one when done is
// nil. A stale caller from an earlier Start is a no-op.
func (w *Watcher) stop(done chan struct{}) {
	w.mu.Lock()
	if w.cron == nil || (done != nil && done != w.done) {
		w.mu.Unlock()
		return
	}
	c := w.cron
	close(w.done)
	w.cron = nil
	w.done = nil
	w.mu.Unlock()
	<-c.Stop().Done()
}

// LastError returns the error of the most recent run, if any.
func (w *Watcher) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Watcher) setLastErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = err
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
