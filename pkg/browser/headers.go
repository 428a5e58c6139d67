package browser

import (
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/tabmirror/pkg/mirror"
)

func toHeaders(pairs []playwright.NameValue) []mirror.Header {
	headers := make([]mirror.Header, len(pairs))
	for i, p := range pairs {
		headers[i] = mirror.Header{Name: p.Name, Value: p.Value}
	}
	return headers
}

// toHeaderMap flattens headers for Route.Continue. Names are compared
// case-insensitively and a later header replaces an earlier one.
func toHeaderMap(headers []mirror.Header) map[string]string {
	out := make(map[string]string, len(headers))
	names := make(map[string]string, len(headers))
	for _, h := range headers {
		key := strings.ToLower(h.Name)
		if prev, ok := names[key]; ok {
			delete(out, prev)
		}
		names[key] = h.Name
		out[h.Name] = h.Value
	}
	return out
}

func sameHeaders(a, b []mirror.Header) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
