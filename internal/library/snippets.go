// Package library loads the user snippet and script collections available
// to a project.
package library

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
)

// SnippetExt is the extension of snippet files.
const SnippetExt = ".snippets"

// Snippet is a named text template.
type Snippet struct {
	Trigger     string
	Scopes      []string
	Description string
	Body        string
	Source      string // file the snippet was read from
}

// InScope reports whether the snippet applies to scope. A snippet without
// scopes applies everywhere.
func (s Snippet) InScope(scope string) bool {
	if len(s.Scopes) == 0 {
		return true
	}
	for _, sc := range s.Scopes {
		if sc == scope {
			return true
		}
	}
	return false
}

// ParseSnippets reads the snippet file format:
//
//	snippet <trigger>
//	- scope c, chdr
//	- desc Short description
//		body lines, indented with one tab
//
// Lines starting with '#' outside a body are comments.
func ParseSnippets(r io.Reader, source string) ([]Snippet, error) {
	var out []Snippet
	var cur *Snippet
	var body []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Body = strings.Join(body, "\n")
		out = append(out, *cur)
		cur, body = nil, nil
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "snippet "):
			flush()
			trigger := strings.TrimSpace(strings.TrimPrefix(line, "snippet "))
			if trigger == "" {
				return nil, errors.NewInvalidDataError("snippets", source+": snippet without trigger")
			}
			cur = &Snippet{Trigger: trigger, Source: source}
		case strings.HasPrefix(line, "\t"):
			if cur == nil {
				return nil, errors.NewInvalidDataError("snippets", source+": body outside a snippet")
			}
			body = append(body, strings.TrimPrefix(line, "\t"))
		case strings.HasPrefix(line, "- scope "):
			if cur == nil {
				return nil, errors.NewInvalidDataError("snippets", source+": scope outside a snippet")
			}
			for _, sc := range strings.Split(strings.TrimPrefix(line, "- scope "), ",") {
				if sc = strings.TrimSpace(sc); sc != "" {
					cur.Scopes = append(cur.Scopes, sc)
				}
			}
		case strings.HasPrefix(line, "- desc "):
			if cur == nil {
				return nil, errors.NewInvalidDataError("snippets", source+": desc outside a snippet")
			}
			cur.Description = strings.TrimSpace(strings.TrimPrefix(line, "- desc "))
		case strings.TrimSpace(line) == "", strings.HasPrefix(line, "#"):
		default:
			return nil, errors.NewInvalidDataError("snippets", fmt.Sprintf("%s: unexpected line %d", source, lineNo))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", source)
	}
	flush()
	return out, nil
}

// Snippets is the loaded snippet collection. Later directories override
// earlier ones for the same trigger and scope set.
type Snippets struct {
	mu       sync.RWMutex
	snippets map[string]Snippet // trigger + scopes
	logger   *logging.Logger
}

// NewSnippets creates an empty collection.
func NewSnippets(logger *logging.Logger) *Snippets {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Snippets{snippets: make(map[string]Snippet), logger: logger.WithComponent("snippets")}
}

// LoadDirs reads every *.snippets file in dirs. Missing directories are
// skipped. A file that fails to parse is logged and skipped.
func (s *Snippets) LoadDirs(ctx context.Context, dirs ...string) error {
	loaded := 0
	for _, dir := range dirs {
		files, err := listFiles(dir, func(name string) bool { return strings.HasSuffix(name, SnippetExt) })
		if err != nil {
			return err
		}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return errors.NewCanceledError("snippet loading", err)
			}
			parsed, err := parseSnippetFile(path)
			if err != nil {
				s.logger.Warn("skipping snippet file", "path", path, "error", err.Error())
				continue
			}
			s.mu.Lock()
			for _, sn := range parsed {
				s.snippets[snippetKey(sn)] = sn
			}
			s.mu.Unlock()
			loaded += len(parsed)
		}
	}
	s.logger.Debug("loaded snippets", "count", loaded)
	return nil
}

func parseSnippetFile(path string) ([]Snippet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseSnippets(f, path)
}

func snippetKey(s Snippet) string {
	scopes := append([]string(nil), s.Scopes...)
	sort.Strings(scopes)
	return s.Trigger + "\x00" + strings.Join(scopes, ",")
}

// Len returns the number of snippets.
func (s *Snippets) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snippets)
}

// ForScope returns the snippets applying to scope, ordered by trigger.
func (s *Snippets) ForScope(scope string) []Snippet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Snippet
	for _, sn := range s.snippets {
		if sn.InScope(scope) {
			out = append(out, sn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Trigger < out[j].Trigger })
	return out
}

// listFiles returns the regular files in dir accepted by match, sorted.
func listFiles(dir string, match func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && match(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
