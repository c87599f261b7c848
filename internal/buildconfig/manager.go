// Package buildconfig manages the build configurations of a project, stored
// in a .buildconfig.yaml file at the project root.
//
// The file is only written when a configuration was changed, so opening a
// project never leaves a new file behind.
package buildconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
	"github.com/Iron-Ham/idecore/internal/store"
)

// FileName is the configuration file at the project root.
const FileName = ".buildconfig.yaml"

// DefaultID is the id of the configuration created when none exist.
const DefaultID = "default"

// Configuration is one way of building the project.
type Configuration struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Runtime     string            `yaml:"runtime"`
	Prefix      string            `yaml:"prefix,omitempty"`
	ConfigOpts  string            `yaml:"config-opts,omitempty"`
	AppendPath  string            `yaml:"append-path,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Default     bool              `yaml:"default,omitempty"`
}

type file struct {
	Configurations []Configuration `yaml:"configurations"`
}

// Manager owns the configurations of one project. It is safe for
// concurrent use.
type Manager struct {
	mu      sync.Mutex
	path    string
	configs []Configuration
	current string
	dirty   bool
	logger  *logging.Logger
}

// NewManager creates a manager for the project rooted at projectDir.
func NewManager(projectDir string, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Manager{
		path:   filepath.Join(projectDir, FileName),
		logger: logger.WithComponent("buildconfig"),
	}
}

// Path returns the configuration file path.
func (m *Manager) Path() string {
	return m.path
}

// Init loads the configuration file. Without one, a single host
// configuration is created in memory.
func (m *Manager) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCanceledError("build configuration init", err)
	}

	var f file
	data, err := os.ReadFile(m.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return errors.NewInvalidDataError("build configuration", err.Error()).WithCause(err)
		}
	case os.IsNotExist(err):
	default:
		return errors.Wrapf(err, "failed to read %s", m.path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = nil
	m.dirty = false
	seen := make(map[string]bool)
	for _, c := range f.Configurations {
		if c.ID == "" || seen[c.ID] {
			m.logger.Warn("skipping configuration with missing or duplicate id", "id", c.ID)
			m.dirty = true
			continue
		}
		seen[c.ID] = true
		if c.Runtime == "" {
			c.Runtime = "host"
		}
		m.configs = append(m.configs, c)
	}
	if len(m.configs) == 0 {
		m.configs = []Configuration{{ID: DefaultID, Name: "Default", Runtime: "host", Default: true}}
	}

	m.current = m.configs[0].ID
	for _, c := range m.configs {
		if c.Default {
			m.current = c.ID
			break
		}
	}
	m.logger.Debug("loaded build configurations", "count", len(m.configs), "current", m.current)
	return nil
}

// Save writes the configurations if any changed since Init.
func (m *Manager) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCanceledError("build configuration save", err)
	}

	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	f := file{Configurations: make([]Configuration, len(m.configs))}
	for i, c := range m.configs {
		c.Default = c.ID == m.current
		f.Configurations[i] = c
	}
	m.mu.Unlock()

	data, err := yaml.Marshal(&f)
	if err != nil {
		return errors.Wrap(err, "failed to encode build configurations")
	}
	if err := store.WriteFile(m.path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", m.path)
	}

	m.mu.Lock()
	m.dirty = false
	m.mu.Unlock()
	m.logger.Info("saved build configurations", "path", m.path)
	return nil
}

// Configurations returns a copy of the configurations in file order.
func (m *Manager) Configurations() []Configuration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Configuration, len(m.configs))
	copy(out, m.configs)
	return out
}

// Current returns the active configuration.
func (m *Manager) Current() (Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.configs {
		if c.ID == m.current {
			return c, nil
		}
	}
	return Configuration{}, errors.NewNotFoundError("build configuration", m.current)
}

// SetCurrent makes id the active configuration.
func (m *Manager) SetCurrent(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexLocked(id) < 0 {
		return errors.NewNotFoundError("build configuration", id)
	}
	if m.current != id {
		m.current = id
		m.dirty = true
	}
	return nil
}

// Add appends c, renaming its id if taken, and returns the id used.
func (m *Manager) Add(c Configuration) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = DefaultID
	}
	for m.indexLocked(c.ID) >= 0 {
		c.ID = nextID(c.ID)
	}
	if c.Runtime == "" {
		c.Runtime = "host"
	}
	c.Default = false
	m.configs = append(m.configs, c)
	m.dirty = true
	return c.ID
}

// Update applies fn to the configuration id.
func (m *Manager) Update(id string, fn func(*Configuration)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return errors.NewNotFoundError("build configuration", id)
	}
	fn(&m.configs[i])
	m.configs[i].ID = id
	m.dirty = true
	return nil
}

// Remove deletes the configuration id. The last configuration cannot be
// removed.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return errors.NewNotFoundError("build configuration", id)
	}
	if len(m.configs) == 1 {
		return errors.NewNotSupportedError("remove last configuration", "buildconfig")
	}
	m.configs = append(m.configs[:i], m.configs[i+1:]...)
	if m.current == id {
		m.current = m.configs[0].ID
	}
	m.dirty = true
	return nil
}

// Environ returns the environment of c as sorted KEY=VALUE pairs.
func (c Configuration) Environ() []string {
	out := make([]string, 0, len(c.Environment))
	for k, v := range c.Environment {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) indexLocked(id string) int {
	for i, c := range m.configs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// nextID turns "name" into "name-2" and "name-2" into "name-3".
func nextID(id string) string {
	if i := strings.LastIndexByte(id, '-'); i >= 0 {
		if n, err := strconv.ParseUint(id[i+1:], 10, 64); err == nil {
			return fmt.Sprintf("%s-%d", id[:i], n+1)
		}
	}
	return id + "-2"
}
