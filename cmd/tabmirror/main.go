// Package main provides the tabmirror application. It launches Chromium,
// opens a desktop window and, on request, mirrors the focused tab into a
// second window that emulates a mobile device.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/tabmirror/pkg/logging"
)

const version = "0.1.0" // Version of tabmirror

// Config holds the command line configuration. Empty values leave the
// corresponding setting from the config file untouched.
type Config struct {
	ConfigPath  string
	StartURL    string
	Device      string
	Mode        string
	ScrollLock  string
	LogLevel    string
	Headless    bool
	NoTUI       bool
	AutoStart   bool
	Save        bool
	ListDevices bool
	ShowVersion bool

	// set records which flags were given explicitly
	set map[string]bool
}

func main() {
	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("tabmirror v%s\n", version)
		return
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if runErr := run(ctx, config); runErr != nil {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *Config {
	config := &Config{set: make(map[string]bool)}

	flag.StringVar(&config.ConfigPath, "config", "", "Path to the config file (default: ~/.tabmirror/config.json)")
	flag.StringVar(&config.StartURL, "url", "", "URL to open in the desktop window")
	flag.StringVar(&config.Device, "device", "", "Device profile to emulate (see -list-devices)")
	flag.StringVar(&config.Mode, "mode", "", "Session start mode: reuse or new")
	flag.StringVar(&config.ScrollLock, "scroll-lock", "", "Mirror scroll positions: on or off")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flag.BoolVar(&config.Headless, "headless", false, "Run Chromium without visible windows")
	flag.BoolVar(&config.NoTUI, "no-tui", false, "Use the line-oriented interface instead of the TUI")
	flag.BoolVar(&config.AutoStart, "start", false, "Start a mirror session as soon as the desktop window opens")
	flag.BoolVar(&config.Save, "save", false, "Save the effective settings to the config file")
	flag.BoolVar(&config.ListDevices, "list-devices", false, "List available device profiles and exit")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tabmirror - mirror desktop browser tabs into a mobile window\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tabmirror [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tabmirror -url https://example.com\n")
		fmt.Fprintf(os.Stderr, "  tabmirror -url https://example.com -device \"Pixel 7\" -start\n")
		fmt.Fprintf(os.Stderr, "  tabmirror -mode new -scroll-lock on -save\n")
		fmt.Fprintf(os.Stderr, "  tabmirror -no-tui -headless -start -url https://example.com\n")
	}

	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		config.set[f.Name] = true
	})
	return config
}

// validate checks flag values that do not need the config file
func (c *Config) validate() error {
	if c.Mode != "" && c.Mode != "reuse" && c.Mode != "new" {
		return fmt.Errorf("invalid -mode %q: expected reuse or new", c.Mode)
	}
	if c.ScrollLock != "" && c.ScrollLock != "on" && c.ScrollLock != "off" {
		return fmt.Errorf("invalid -scroll-lock %q: expected on or off", c.ScrollLock)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
