package exclude

import (
	"path"
	"strings"
)

type Matcher struct {
	patterns []string
}

func DefaultPatterns() []string {
	return []string{
		".git/",
		".DS_Store",
		"._*",
		".Trash-*/",
		"lost+found/",
		"*.tmp",
		"*.swp",
		"*.part",
		".cache/",
		"node_modules/",
	}
}

func New(patterns []string) *Matcher {
	merged := append([]string{}, DefaultPatterns()...)
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		merged = append(merged, p)
	}
	return &Matcher{patterns: merged}
}

// Patterns returns the effective pattern list, defaults first
func (m *Matcher) Patterns() []string {
	return append([]string{}, m.patterns...)
}

// Args renders the patterns as rsync --exclude flags
func (m *Matcher) Args() []string {
	args := make([]string, 0, len(m.patterns))
	for _, p := range m.patterns {
		args = append(args, "--exclude="+p)
	}
	return args
}

// IsExcluded reports whether the relative path matches any pattern.
// Used for previews; during a sync rsync applies the same patterns itself.
func (m *Matcher) IsExcluded(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = strings.TrimPrefix(relPath, "./")
	for _, p := range m.patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "/") {
			dirPattern := strings.TrimSuffix(p, "/")
			if relPath == dirPattern || strings.HasPrefix(relPath, dirPattern+"/") {
				return true
			}
			if matchesSegment(relPath, dirPattern) {
				return true
			}
			continue
		}
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, relPath); ok {
				return true
			}
			base := path.Base(relPath)
			if ok, _ := path.Match(p, base); ok {
				return true
			}
			continue
		}
		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		if !isDir && path.Base(relPath) == p {
			return true
		}
	}
	return false
}

// matchesSegment reports whether any path segment matches the dir pattern
func matchesSegment(relPath, pattern string) bool {
	for _, seg := range strings.Split(relPath, "/") {
		if ok, _ := path.Match(pattern, seg); ok {
			return true
		}
	}
	return false
}
