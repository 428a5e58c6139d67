package mirror

import (
	"fmt"

	"github.com/gobwas/glob"
)

// URLFilter selects which request URLs are subject to header rewriting.
// Patterns are globs without separators, so "*" also spans "/".
type URLFilter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewURLFilter compiles include and exclude patterns.
func NewURLFilter(include, exclude []string) (*URLFilter, error) {
	f := &URLFilter{}

	for _, pattern := range include {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid intercept pattern '%s': %w", pattern, err)
		}
		f.include = append(f.include, g)
	}

	for _, pattern := range exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
		f.exclude = append(f.exclude, g)
	}

	return f, nil
}

// Match reports whether url should be intercepted. Exclusions win; an empty
// include list matches everything.
func (f *URLFilter) Match(url string) bool {
	if f == nil {
		return true
	}

	for _, pattern := range f.exclude {
		if pattern.Match(url) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}

	for _, pattern := range f.include {
		if pattern.Match(url) {
			return true
		}
	}

	return false
}
