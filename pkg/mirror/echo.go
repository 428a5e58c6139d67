package mirror

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/idna"
)

// DefaultEchoWindow bounds how long an expected echo stays outstanding.
const DefaultEchoWindow = 5 * time.Second

type echoKey struct {
	kind EventType
	tab  TabID
	url  string
}

type echoEntry struct {
	key     echoKey
	expires time.Time
}

// echoLedger records the events our own commands are expected to produce so
// they can be dropped when the host reports them.
type echoLedger struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	byTag  map[string]echoEntry
	byKey  map[echoKey][]string
}

func newEchoLedger(window time.Duration) *echoLedger {
	if window <= 0 {
		window = DefaultEchoWindow
	}
	return &echoLedger{
		window: window,
		now:    time.Now,
		byTag:  make(map[string]echoEntry),
		byKey:  make(map[echoKey][]string),
	}
}

// expect registers an expected echo and returns the origin tag to attach to
// the command. tab may be NoTab when the tab id is not known in advance.
func (l *echoLedger) expect(kind EventType, tab TabID, rawURL string) string {
	tag := uuid.NewString()
	key := echoKey{kind: kind, tab: tab, url: normalizeURL(rawURL)}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()

	l.byTag[tag] = echoEntry{key: key, expires: l.now().Add(l.window)}
	if tab.Valid() {
		l.byKey[key] = append(l.byKey[key], tag)
	}
	return tag
}

// forget drops an expectation whose command failed.
func (l *echoLedger) forget(tag string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(tag)
}

// consume reports whether ev is the echo of one of our commands and, if so,
// removes the matching expectation.
func (l *echoLedger) consume(ev Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()

	if ev.Origin != "" {
		if _, ok := l.byTag[ev.Origin]; ok {
			l.removeLocked(ev.Origin)
			return true
		}
	}

	key := echoKey{kind: ev.Type, tab: ev.Tab.ID}
	if ev.Type == EventTabUpdated {
		key.url = normalizeURL(ev.URL)
	}
	tags := l.byKey[key]
	if len(tags) == 0 {
		return false
	}
	l.removeLocked(tags[0])
	return true
}

func (l *echoLedger) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byTag = make(map[string]echoEntry)
	l.byKey = make(map[echoKey][]string)
}

func (l *echoLedger) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	return len(l.byTag)
}

func (l *echoLedger) pruneLocked() {
	now := l.now()
	for tag, entry := range l.byTag {
		if now.After(entry.expires) {
			l.removeLocked(tag)
		}
	}
}

func (l *echoLedger) removeLocked(tag string) {
	entry, ok := l.byTag[tag]
	if !ok {
		return
	}
	delete(l.byTag, tag)

	tags := l.byKey[entry.key]
	for i, t := range tags {
		if t == tag {
			tags = append(tags[:i], tags[i+1:]...)
			break
		}
	}
	if len(tags) == 0 {
		delete(l.byKey, entry.key)
	} else {
		l.byKey[entry.key] = tags
	}
}

// normalizeURL makes URLs reported by the host comparable with the ones we
// requested: scheme and host are lower-cased and IDN hosts use their ASCII form.
func normalizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	if port := u.Port(); port != "" {
		host = host + ":" + port
	}
	u.Host = host
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
