package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	tea "github.com/charmbracelet/bubbletea"

	"burnpace/internal/auth"
	"burnpace/internal/config"
	"burnpace/internal/health"
	"burnpace/internal/log"
	"burnpace/internal/notify"
	"burnpace/internal/remote"
	"burnpace/internal/server"
	"burnpace/internal/service"
	"burnpace/internal/store"
	"burnpace/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "burnpace: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	debug      bool
	demo       bool
	serve      bool
	warm       bool
	sync       bool
	configPath string
}

func parseFlags() options {
	var o options
	flag.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&o.demo, "demo", false, "Run on generated sample data in an in-memory store")
	flag.BoolVar(&o.serve, "serve", false, "Serve the summary feed over HTTP instead of the TUI")
	flag.BoolVar(&o.warm, "warm", false, "Recompute every weekday's cached curve and exit")
	flag.BoolVar(&o.sync, "sync", false, "Copy samples from the remote API and exit")
	flag.StringVar(&o.configPath, "config", "", "Config file (default ~/.burnpace/config.json)")
	flag.Parse()
	return o
}

func run() error {
	opts := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if cfg == nil || err != nil {
		return err
	}

	if err := initLogging(opts); err != nil {
		return err
	}
	defer log.Sync()

	var db *store.DB
	if opts.demo {
		db, err = store.OpenPath(":memory:")
	} else {
		db, err = store.Open()
	}
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := seedMoveGoal(db, cfg.Engine.DefaultMoveGoal); err != nil {
		return err
	}

	now := time.Now
	lookback := cfg.Engine.LookbackDays

	// Pick where samples come from
	var (
		reader  health.SampleReader = db
		syncSvc *service.SyncService
	)
	switch {
	case opts.demo:
		reader = health.Demo(now(), cfg.Engine.DefaultMoveGoal)
	case cfg.HasRemote():
		client, err := remoteClient(ctx, db, cfg)
		if err != nil {
			return err
		}
		syncSvc = service.NewSyncService(client, db, lookback)
		reader = health.Mirror{Local: db, Remote: client}
	}

	if opts.sync {
		if syncSvc == nil {
			return errors.New("-sync needs remote.base_url in the config file")
		}
		return runSync(ctx, syncSvc, now())
	}

	source := health.NewSampleSource(reader, lookback)

	if opts.warm {
		return runWarm(ctx, service.NewWarmService(source, db), now())
	}

	refreshSvc := service.NewRefreshService(source, db, notifier(cfg), service.RefreshOptions{
		FreshnessTolerance: cfg.FreshnessTolerance(),
		DefaultMoveGoal:    cfg.Engine.DefaultMoveGoal,
	})
	var refresher tui.Refresher = refreshSvc
	if syncSvc != nil {
		refresher = service.NewLiveRefresher(syncSvc, refreshSvc)
	}
	querySvc := service.NewQueryService(db)

	if opts.serve {
		fmt.Printf("Serving summary feed on http://%s/api/summary\n", cfg.Server.Addr)
		return server.New(refresher, querySvc, now).ListenAndServe(ctx, cfg.Server.Addr)
	}

	app := tui.NewApp(tui.Services{
		Refresher: refresher,
		Query:     querySvc,
		Warm:      service.NewWarmService(source, db),
		Sync:      syncSvc,
	}, tui.NewUnits(cfg.Display), now)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// loadConfig returns a nil config without error when the user has to edit
// the config file first.
func loadConfig(opts options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}

	if errors.Is(err, config.ErrNoConfig) {
		if opts.configPath != "" {
			return nil, fmt.Errorf("config file %s not found", opts.configPath)
		}
		if opts.demo {
			defaults := config.DefaultConfig()
			return &defaults, nil
		}
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file at:\n  %s/config.json\n\n", configDir)
		fmt.Println("Add your health API credentials, or clear remote.base_url to use local samples only.")
		fmt.Println("Run with -demo to try burnpace on generated data.")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Config validation failed: %v\n", err)
		return nil, nil
	}
	return cfg, nil
}

// initLogging logs to a file while the TUI owns the terminal.
func initLogging(opts options) error {
	if opts.serve || opts.sync || opts.warm {
		return log.Init(opts.debug)
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	return log.InitFile(filepath.Join(dir, "burnpace.log"), opts.debug)
}

func seedMoveGoal(db *store.DB, goal float64) error {
	_, ok, err := db.GetFloat(store.KeyMoveGoal)
	if err != nil {
		return fmt.Errorf("reading move goal: %w", err)
	}
	if ok {
		return nil
	}
	return db.SetFloat(store.KeyMoveGoal, goal)
}

func notifier(cfg *config.Config) notify.Notifier {
	n := notify.Multi{notify.Log{}}
	if cfg.Notify.Enabled {
		n = append(n, notify.NewDesktop(cfg.Notify.AppName))
	}
	return n
}

// remoteClient builds an API client from stored tokens, running the OAuth
// flow when there are none or they no longer refresh.
func remoteClient(ctx context.Context, db *store.DB, cfg *config.Config) (*remote.Client, error) {
	oauthCfg := auth.NewOAuthConfig(cfg.Remote)

	storedAuth, err := db.GetAuth()
	if errors.Is(err, store.ErrNoAuth) {
		fmt.Println("No authentication found. Starting OAuth flow...")
		if storedAuth, err = authenticate(ctx, db, oauthCfg); err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking auth: %w", err)
	}

	persist := func(t *oauth2.Token) error {
		return db.UpdateTokens(t.AccessToken, t.RefreshToken, t.Expiry)
	}
	tokenSource := auth.NewTokenSource(oauthCfg, auth.TokenFromStored(storedAuth), persist)

	if _, err := tokenSource.Token(); err != nil {
		log.Warnw("stored token refresh failed", "error", err)
		fmt.Println("Stored token is invalid or expired. Re-authenticating...")
		if storedAuth, err = authenticate(ctx, db, oauthCfg); err != nil {
			return nil, fmt.Errorf("re-authentication: %w", err)
		}
		tokenSource = auth.NewTokenSource(oauthCfg, auth.TokenFromStored(storedAuth), persist)
	}

	return remote.NewClient(cfg.Remote.BaseURL, tokenSource), nil
}

func authenticate(ctx context.Context, db *store.DB, oauthCfg *oauth2.Config) (*store.Auth, error) {
	result, err := auth.Authenticate(ctx, oauthCfg, os.Stdout)
	if err != nil {
		return nil, err
	}

	storedAuth := result.Stored()
	if err := db.SaveAuth(storedAuth); err != nil {
		return nil, fmt.Errorf("saving auth: %w", err)
	}

	fmt.Println()
	if storedAuth.Subject != "" {
		fmt.Printf("Successfully authenticated as %s!\n", storedAuth.Subject)
	} else {
		fmt.Println("Successfully authenticated!")
	}
	return storedAuth, nil
}

func runSync(ctx context.Context, svc *service.SyncService, now time.Time) error {
	progress := make(chan service.SyncProgress, 16)
	go func() {
		for p := range progress {
			if p.Phase == "samples" && p.Completed > 0 {
				fmt.Printf("\r  %d/%d days", p.Completed, p.Total)
			}
		}
	}()

	result, err := svc.Sync(ctx, now, progress)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("Stored %d of %d fetched samples, pruned %d\n", result.SamplesStored, result.SamplesFetched, result.Pruned)
	for _, e := range result.Errors {
		fmt.Printf("  error: %v\n", e)
	}
	return nil
}

func runWarm(ctx context.Context, svc *service.WarmService, now time.Time) error {
	result, err := svc.WarmWeekdays(ctx, now)
	if err != nil {
		return fmt.Errorf("warming weekdays: %w", err)
	}

	fmt.Printf("Recomputed %d weekdays\n", result.Written)
	for wd, e := range result.Errors {
		fmt.Printf("  %s: %v\n", wd, e)
	}
	return nil
}
