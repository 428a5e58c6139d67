package mirror

// UserAgentHeader is the header replaced on mobile-side requests.
const UserAgentHeader = "User-Agent"

// RequestRewriter replaces the User-Agent of requests issued by mobile-side
// tabs with the emulated device's user agent.
type RequestRewriter struct {
	pairs    *PairStore
	settings Settings
	filter   *URLFilter
}

// NewRequestRewriter creates a rewriter. A nil filter intercepts every URL.
func NewRequestRewriter(pairs *PairStore, settings Settings, filter *URLFilter) *RequestRewriter {
	return &RequestRewriter{
		pairs:    pairs,
		settings: settings,
		filter:   filter,
	}
}

// Rewrite returns the headers to send for a request from tab.
//
// For a mobile-side tab the first header named exactly "User-Agent" is
// removed and the device user agent is appended. Lookup is case-sensitive and
// only the first match is removed. All other requests are returned unchanged.
func (r *RequestRewriter) Rewrite(tab TabID, url string, headers []Header) []Header {
	if !r.applies(tab, url) {
		return headers
	}

	ua := r.settings.Device().UserAgent
	if ua == "" {
		return headers
	}

	out := make([]Header, 0, len(headers)+1)
	removed := false
	for _, h := range headers {
		if !removed && h.Name == UserAgentHeader {
			removed = true
			continue
		}
		out = append(out, h)
	}
	return append(out, Header{Name: UserAgentHeader, Value: ua})
}

// Handler adapts the rewriter to the host's interception hook.
func (r *RequestRewriter) Handler() HeaderRewriter {
	return r.Rewrite
}

func (r *RequestRewriter) applies(tab TabID, url string) bool {
	if !tab.Valid() || !r.filter.Match(url) {
		return false
	}
	return r.pairs.Side(tab) == SideMobile
}
