package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Manager owns the Playwright driver and the Chromium instance behind a Host.
type Manager struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	browser     playwright.Browser
	host        *Host
	initialized bool
}

// NewManager creates a new manager.
func NewManager() *Manager {
	return &Manager{}
}

// Initialize installs and starts the Playwright driver.
// This must be called before Launch.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Discard driver output so it does not interfere with the TUI
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Launch starts Chromium and returns a Host driving it. Only one host can be
// running at a time.
func (m *Manager) Launch(opts Options) (*Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("browser manager not initialized")
	}
	if m.host != nil {
		return nil, fmt.Errorf("browser already running")
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	browser, err := m.playwright.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	m.browser = browser
	m.host = newHost(browser, opts)
	return m.host, nil
}

// Shutdown closes the host, the browser and the driver. Errors are ignored
// so that cleanup always completes.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.host != nil {
		_ = m.host.Close() // Ignore errors, continue cleanup
		m.host = nil
	}
	if m.browser != nil {
		_ = m.browser.Close() // Ignore errors, continue cleanup
		m.browser = nil
	}

	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.playwright = nil
	}

	m.initialized = false
	return nil
}
