package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Matcher holds compiled patterns and answers ignore queries.
// Safe for concurrent use.
type Matcher struct {
	mu    sync.RWMutex
	rules []compiled
}

// compiled is one pattern ready for matching.
type compiled struct {
	src      string         // effective pattern after escape handling
	re       *regexp.Regexp // compiled form
	negate   bool           // leading !
	dirOnly  bool           // trailing /
	anchored bool           // leading / or internal /
	base     string         // subtree a nested .gitignore applies to
}

// New returns an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// FromFile builds a Matcher from one gitignore file. Patterns apply
// relative to base ("" for the project root).
func FromFile(path, base string) (*Matcher, error) {
	m := New()
	if err := m.AddFromFile(path, base); err != nil {
		return nil, err
	}
	return m, nil
}

// Match reports whether path should be ignored. Rules are evaluated in
// the order they were added; a later negation un-ignores the path.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = filepath.ToSlash(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var ignored bool
	for _, c := range m.rules {
		if c.matches(path, isDir) {
			ignored = !c.negate
		}
	}
	return ignored
}

// AddPattern adds a root-level pattern.
func (m *Matcher) AddPattern(p string) {
	m.AddPatternWithBase(p, "")
}

// AddPatternWithBase adds a pattern scoped to the given base directory,
// the way a nested .gitignore scopes its patterns to its own subtree.
func (m *Matcher) AddPatternWithBase(p, base string) {
	c, ok := parsePattern(p, base)
	if !ok {
		return
	}
	m.mu.Lock()
	m.rules = append(m.rules, c)
	m.mu.Unlock()
}

// AddFromFile reads patterns from a gitignore file, scoping them to base.
func (m *Matcher) AddFromFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open gitignore: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m.AddPatternWithBase(sc.Text(), base)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read gitignore: %w", err)
	}
	return nil
}

// parsePattern compiles one gitignore line. The second return is false
// for blank lines and comments.
func parsePattern(p, base string) (compiled, bool) {
	// A backslash-escaped trailing space survives trimming
	keepSpace := strings.HasSuffix(p, `\ `)

	p = strings.TrimSpace(p)
	if p == "" || (strings.HasPrefix(p, "#") && !strings.HasPrefix(p, `\#`)) {
		return compiled{}, false
	}

	c := compiled{base: base}
	switch {
	case strings.HasPrefix(p, `\#`), strings.HasPrefix(p, `\!`):
		p = p[1:] // drop the escape, keep the literal # or !
	case strings.HasPrefix(p, "!"):
		c.negate = true
		p = p[1:]
	}
	c.src = p

	if keepSpace && strings.HasSuffix(p, `\`) {
		p = strings.TrimSuffix(p, `\`) + " "
	}
	if strings.HasSuffix(p, "/") {
		c.dirOnly = true
		p = strings.TrimSuffix(p, "/")
	}
	if strings.HasPrefix(p, "/") {
		c.anchored = true
		p = strings.TrimPrefix(p, "/")
	}
	// "doc/frotz" means /doc/frotz, not **/doc/frotz
	if strings.Contains(p, "/") && !strings.HasPrefix(p, "**/") && !strings.HasPrefix(p, "*") {
		c.anchored = true
	}

	c.re = regexp.MustCompile("^" + toRegex(p) + "$")
	return c, true
}

// matches reports whether one rule applies to path.
// A dirOnly pattern also matches files inside the matched directory:
// "temp/" ignores temp/file.go.
func (c compiled) matches(path string, isDir bool) bool {
	path, ok := c.rebase(path)
	if !ok {
		return false
	}

	if c.anchored {
		if c.re.MatchString(path) {
			return !c.dirOnly || isDir
		}
		// An anchored dirOnly pattern still covers everything below
		// the directory it names
		return c.dirOnly && c.matchesParent(path)
	}

	parts := strings.Split(path, "/")
	last := len(parts) - 1

	if c.dirOnly {
		for _, part := range parts[:last] {
			if c.re.MatchString(part) {
				return true
			}
		}
		return isDir && c.re.MatchString(parts[last])
	}

	if c.re.MatchString(path) {
		return true
	}
	for _, part := range parts {
		if c.re.MatchString(part) {
			return true
		}
	}
	return false
}

// rebase strips the rule's base directory from path. The second return
// is false when path lies outside the base entirely.
func (c compiled) rebase(path string) (string, bool) {
	if c.base == "" {
		return path, true
	}
	if path == c.base {
		return filepath.Base(path), true
	}
	if rel, ok := strings.CutPrefix(path, c.base+"/"); ok {
		return rel, true
	}
	return "", false
}

// matchesParent reports whether the pattern names one of path's parent
// directories.
func (c compiled) matchesParent(path string) bool {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' && c.re.MatchString(path[:i]) {
			return true
		}
	}
	return false
}

// toRegex translates gitignore glob syntax to a regular expression.
// * never crosses a /, ? matches one non-/ character, ** crosses
// directory boundaries.
func toRegex(pattern string) string {
	var out strings.Builder

	for i := 0; i < len(pattern); {
		switch c := pattern[i]; c {
		case '*':
			i = writeStars(&out, pattern, i)

		case '?':
			out.WriteString("[^/]")
			i++

		case '[':
			// Character classes pass through unchanged; an unclosed
			// bracket is literal
			if end := strings.IndexByte(pattern[i:], ']'); end > 0 {
				out.WriteString(pattern[i : i+end+1])
				i += end + 1
			} else {
				out.WriteString(`\[`)
				i++
			}

		case '\\':
			if i+1 < len(pattern) {
				out.WriteString(regexp.QuoteMeta(string(pattern[i+1])))
				i += 2
			} else {
				out.WriteString(`\\`)
				i++
			}

		default:
			// QuoteMeta leaves ordinary characters alone and escapes
			// regex metacharacters
			out.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	return out.String()
}

// writeStars emits the regex for the star run starting at i and returns
// the index just past what it consumed.
func writeStars(out *strings.Builder, pattern string, i int) int {
	if strings.HasPrefix(pattern[i:], "**") {
		switch {
		case strings.HasPrefix(pattern[i+2:], "/"):
			// **/ spans zero or more directories
			out.WriteString("(?:.*/)?")
			return i + 3
		case i == 0 || pattern[i-1] == '/':
			// A bare ** crosses directory boundaries
			out.WriteString(".*")
			return i + 2
		}
	}
	out.WriteString("[^/]*")
	return i + 1
}
