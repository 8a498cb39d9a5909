package watcher

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// regexPrefix marks an exclusion pattern as a regular expression rather than a glob.
const regexPrefix = "re:"

// Filter decides whether a path below a job root is excluded from watching
// and reporting. A nil or empty Filter excludes nothing.
type Filter struct {
	patterns []string
	globs    []glob.Glob
	regexps  []*regexp.Regexp
}

// NewFilter compiles exclusion patterns. Globs use '/' as separator and
// match the whole relative path or any trailing suffix of it. Patterns
// starting with "re:" are regular expressions matched anywhere in the
// relative path. Blank patterns are skipped.
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{}
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		f.patterns = append(f.patterns, p)

		if expr, ok := strings.CutPrefix(p, regexPrefix); ok {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
			}
			f.regexps = append(f.regexps, re)
			continue
		}

		p = strings.TrimPrefix(p, "/")
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
		}
		f.globs = append(f.globs, g)

		if !strings.HasPrefix(p, "**/") {
			g, err = glob.Compile("**/"+p, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
			}
			f.globs = append(f.globs, g)
		}
	}
	return f, nil
}

// Patterns returns the patterns the filter was built from.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	return f.patterns
}

// Excluded reports whether rel, a path relative to the job root, matches any
// pattern. The root itself ("") is never excluded.
func (f *Filter) Excluded(rel string) bool {
	if f == nil || rel == "" {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, g := range f.globs {
		if g.Match(rel) {
			return true
		}
	}
	for _, re := range f.regexps {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}
