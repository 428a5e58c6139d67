package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

// setWindowBounds moves the OS window hosting page through the Chrome
// DevTools Protocol.
func setWindowBounds(ctx playwright.BrowserContext, page playwright.Page, bounds mirror.Bounds) error {
	session, err := ctx.NewCDPSession(page)
	if err != nil {
		return fmt.Errorf("failed to open CDP session: %w", err)
	}
	defer session.Detach()

	res, err := session.Send("Browser.getWindowForTarget", map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("failed to find browser window: %w", err)
	}
	windowID, err := parseWindowID(res)
	if err != nil {
		return err
	}

	if _, err := session.Send("Browser.setWindowBounds", boundsParams(windowID, bounds)); err != nil {
		return fmt.Errorf("failed to set window bounds: %w", err)
	}
	return nil
}

func parseWindowID(res interface{}) (int, error) {
	m, ok := res.(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("unexpected getWindowForTarget result %T", res)
	}
	switch id := m["windowId"].(type) {
	case float64:
		return int(id), nil
	case int:
		return id, nil
	default:
		return 0, fmt.Errorf("getWindowForTarget result has no windowId")
	}
}

func boundsParams(windowID int, b mirror.Bounds) map[string]interface{} {
	return map[string]interface{}{
		"windowId": windowID,
		"bounds": map[string]interface{}{
			"left":        b.Left,
			"top":         b.Top,
			"width":       b.Width,
			"height":      b.Height,
			"windowState": "normal",
		},
	}
}

func parseScreenSize(res interface{}) (mirror.Size, error) {
	m, ok := res.(map[string]interface{})
	if !ok {
		return mirror.Size{}, fmt.Errorf("unexpected screen size result %T", res)
	}
	width, wok := toInt(m["width"])
	height, hok := toInt(m["height"])
	if !wok || !hok || width <= 0 || height <= 0 {
		return mirror.Size{}, fmt.Errorf("invalid screen size %v", m)
	}
	return mirror.Size{Width: width, Height: height}, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
