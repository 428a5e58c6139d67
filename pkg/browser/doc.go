// Package browser runs the mirror against a Chromium instance driven by
// Playwright.
//
// Each browser context is presented as one window and each page as one tab.
// Tab and window ids are small integers assigned in creation order. Lifecycle
// events come from Playwright callbacks and from a content script injected
// into every page, which also reports window focus, tab activation and scroll
// positions through an exposed binding.
//
// Playwright callbacks only update bookkeeping and queue events. Everything
// that talks to the browser runs on the caller's goroutine.
package browser
