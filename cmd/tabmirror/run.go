package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/entrhq/tabmirror/pkg/browser"
	appconfig "github.com/entrhq/tabmirror/pkg/config"
	"github.com/entrhq/tabmirror/pkg/executor/cli"
	"github.com/entrhq/tabmirror/pkg/executor/tui"
	"github.com/entrhq/tabmirror/pkg/logging"
	"github.com/entrhq/tabmirror/pkg/mirror"
)

// snapshotBuffer bounds queued status updates; older updates are dropped
// when the interface falls behind.
const snapshotBuffer = 16

// run executes the main application logic
func run(ctx context.Context, config *Config) error {
	if err := appconfig.Initialize(config.ConfigPath); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}
	mirrorSection := appconfig.GetMirror()
	browserSection := appconfig.GetBrowser()
	if mirrorSection == nil || browserSection == nil {
		return errors.New("configuration sections missing")
	}

	if err := applyFlags(config, mirrorSection, browserSection); err != nil {
		return err
	}
	if config.Save {
		if err := appconfig.Global().SaveAll(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
	}

	settings, err := appconfig.LoadSettings(mirrorSection)
	if err != nil {
		return fmt.Errorf("failed to load device profiles: %w", err)
	}
	if config.ListDevices {
		listDevices(settings)
		return nil
	}

	level, _ := logging.ParseLevel(config.LogLevel)
	logging.SetLevel(level)
	appLog := newLogger("app")
	defer appLog.Close()

	if name, _ := mirrorSection.GetDevice(); !settings.HasDevice(name) {
		appLog.Warnf("unknown device %q, using %s", name, settings.Device().Name)
	}

	filter, err := mirrorSection.URLFilter()
	if err != nil {
		return fmt.Errorf("invalid intercept patterns: %w", err)
	}

	manager := browser.NewManager()
	if err := manager.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := manager.Shutdown(); err != nil {
			appLog.Warnf("browser shutdown: %v", err)
		}
	}()

	hostLog := newLogger("browser")
	defer hostLog.Close()
	host, err := manager.Launch(browser.Options{
		Headless:   browserSection.GetHeadless(),
		ScreenSize: browserSection.GetScreenSize(),
		Logger:     hostLog,
	})
	if err != nil {
		return err
	}

	updates := make(chan mirror.Snapshot, snapshotBuffer)
	notify := func(snap mirror.Snapshot) {
		publish(updates, snap)
	}

	syncLog := newLogger("mirror")
	defer syncLog.Close()
	synchronizer := mirror.NewSynchronizer(host, settings,
		mirror.WithLogger(syncLog),
		mirror.WithEchoWindow(browserSection.GetEchoWindow()),
		mirror.WithURLFilter(filter),
		mirror.WithChangeNotifier(notify),
	)
	host.SetHeaderRewriter(synchronizer.Rewriter().Handler())

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	syncDone := make(chan error, 1)
	go func() {
		syncDone <- synchronizer.Run(runCtx)
	}()

	if _, err := host.OpenWindow(ctx, browserSection.GetStartURL()); err != nil {
		return fmt.Errorf("failed to open desktop window: %w", err)
	}
	appLog.Infof("desktop window open at %s, device %s", browserSection.GetStartURL(), settings.Device().Name)

	var execErr error
	if config.NoTUI {
		executor := cli.NewExecutor(synchronizer, updates, cli.WithAutoStart(config.AutoStart))
		execErr = executor.Run(ctx)
	} else {
		if config.AutoStart {
			go func() {
				if err := synchronizer.StartSession(runCtx, mirror.Trigger{WindowID: mirror.NoWindow}); err != nil {
					appLog.Warnf("auto start: %v", err)
				}
			}()
		}
		executor := tui.NewExecutor(synchronizer, updates,
			tui.WithDevice(settings.Device().Name),
			tui.WithLogPath(appLog.LogPath()),
		)
		execErr = executor.Run(ctx)
	}

	stop()
	if err := <-syncDone; err != nil && !errors.Is(err, context.Canceled) {
		appLog.Errorf("synchronizer stopped: %v", err)
	}
	if execErr != nil && !errors.Is(execErr, context.Canceled) {
		return execErr
	}
	return nil
}

// publish queues snap without blocking, discarding the oldest queued
// snapshot while the buffer is full.
func publish(updates chan mirror.Snapshot, snap mirror.Snapshot) {
	for {
		select {
		case updates <- snap:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
	}
}

// applyFlags copies explicitly given flags over the loaded sections.
func applyFlags(config *Config, mirrorSection *appconfig.MirrorSection, browserSection *appconfig.BrowserSection) error {
	if config.set["device"] {
		mirrorSection.SetDevice(config.Device)
	}
	if config.set["mode"] {
		mirrorSection.SetStartSession(mirror.SessionMode(config.Mode))
	}
	if config.set["scroll-lock"] {
		mirrorSection.SetScrollLock(mirror.ScrollLock(config.ScrollLock))
	}
	if config.set["headless"] {
		browserSection.SetHeadless(config.Headless)
	}
	if config.set["url"] {
		browserSection.SetStartURL(config.StartURL)
	}

	if err := mirrorSection.Validate(); err != nil {
		return fmt.Errorf("invalid mirror settings: %w", err)
	}
	if err := browserSection.Validate(); err != nil {
		return fmt.Errorf("invalid browser settings: %w", err)
	}
	return nil
}

func listDevices(settings *appconfig.Settings) {
	catalog := settings.Catalog()
	current := settings.Device().Name
	for _, name := range catalog.Names() {
		p, _ := catalog.Lookup(name)
		marker := " "
		if p.Name == current {
			marker = "*"
		}
		fmt.Fprintf(os.Stdout, "%s %-12s %4dx%-4d %s\n", marker, p.Name, p.Width, p.Height, p.UserAgent)
	}
}

// newLogger opens a component logger, falling back to stderr.
func newLogger(component string) *logging.Logger {
	logger, err := logging.NewLogger(component)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return logger
}
