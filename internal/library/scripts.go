package library

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
)

// Script is a user script found in a scripts directory.
type Script struct {
	Name     string // base name without extension
	Path     string
	Language string
}

// ScriptLanguages maps file extensions to the languages scripts may be
// written in.
var ScriptLanguages = map[string]string{
	".js":  "javascript",
	".py":  "python",
	".lua": "lua",
	".sh":  "shell",
}

// Scripts is the set of scripts available to a project.
type Scripts struct {
	mu      sync.RWMutex
	scripts map[string]Script // by name
	logger  *logging.Logger
}

// NewScripts creates an empty set.
func NewScripts(logger *logging.Logger) *Scripts {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Scripts{scripts: make(map[string]Script), logger: logger.WithComponent("scripts")}
}

// LoadDirs registers the scripts in dirs. A script in a later directory
// replaces one of the same name from an earlier directory.
func (s *Scripts) LoadDirs(ctx context.Context, dirs ...string) error {
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return errors.NewCanceledError("script loading", err)
		}
		files, err := listFiles(dir, func(name string) bool {
			_, ok := ScriptLanguages[filepath.Ext(name)]
			return ok
		})
		if err != nil {
			return err
		}
		s.mu.Lock()
		for _, path := range files {
			ext := filepath.Ext(path)
			name := strings.TrimSuffix(filepath.Base(path), ext)
			s.scripts[name] = Script{Name: name, Path: path, Language: ScriptLanguages[ext]}
		}
		s.mu.Unlock()
	}
	s.logger.Debug("loaded scripts", "count", s.Len())
	return nil
}

// Get returns the script named name.
func (s *Scripts) Get(name string) (Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scripts[name]
	if !ok {
		return Script{}, errors.NewNotFoundError("script", name)
	}
	return sc, nil
}

// Len returns the number of scripts.
func (s *Scripts) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scripts)
}

// List returns the scripts ordered by name.
func (s *Scripts) List() []Script {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Script, 0, len(s.scripts))
	for _, sc := range s.scripts {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
