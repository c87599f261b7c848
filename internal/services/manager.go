package services

import (
	"context"
	"sync"
	"time"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
	"github.com/Iron-Ham/idecore/internal/registry"
)

// Service is a long-lived component bound to one project context.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	// ContextLoaded is called once bring-up has completed.
	ContextLoaded(ctx context.Context)
	Stop(ctx context.Context) error
}

// Status of a managed service.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
)

// Info is a snapshot of one managed service.
type Info struct {
	Name      string
	Status    Status
	StartedAt *time.Time
	StoppedAt *time.Time
	Err       error
}

// Callbacks observe service transitions.
type Callbacks struct {
	OnStatusChange func(name string, oldStatus, newStatus Status)
	OnError        func(name string, err error)
}

type managed struct {
	svc Service
	Info
}

// Manager runs the services registered for a context.
type Manager struct {
	registry  *registry.Registry[Service]
	callbacks Callbacks
	logger    *logging.Logger

	mu      sync.RWMutex
	managed map[string]*managed
	started []string // names in start order
	loaded  bool
}

// NewManager creates a manager over reg. A nil registry manages nothing.
func NewManager(reg *registry.Registry[Service], callbacks Callbacks, logger *logging.Logger) *Manager {
	if reg == nil {
		reg = registry.New[Service]("service")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Manager{
		registry:  reg,
		callbacks: callbacks,
		logger:    logger.WithComponent("services"),
		managed:   make(map[string]*managed),
	}
}

// StartAll starts every registered service in priority order. The first
// failure stops services started so far and is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, e := range m.registry.Entries() {
		if err := ctx.Err(); err != nil {
			_ = m.StopAll(context.WithoutCancel(ctx))
			return errors.NewCanceledError("service start", err)
		}

		m.mu.Lock()
		if _, exists := m.managed[e.Name]; exists {
			m.mu.Unlock()
			continue
		}
		ms := &managed{svc: e.Value, Info: Info{Name: e.Name, Status: StatusPending}}
		m.managed[e.Name] = ms
		m.mu.Unlock()

		if err := e.Value.Start(ctx); err != nil {
			m.setStatus(ms, StatusFailed, err)
			m.logger.Error("service failed to start", "service", e.Name, "error", err.Error())
			_ = m.StopAll(context.WithoutCancel(ctx))
			return errors.Wrapf(err, "failed to start service %s", e.Name)
		}

		m.mu.Lock()
		m.started = append(m.started, e.Name)
		m.mu.Unlock()
		m.setStatus(ms, StatusRunning, nil)
		m.logger.Info("service started", "service", e.Name)
	}
	return nil
}

// ContextLoaded notifies every running service once. Later calls do
// nothing.
func (m *Manager) ContextLoaded(ctx context.Context) {
	m.mu.Lock()
	if m.loaded {
		m.mu.Unlock()
		return
	}
	m.loaded = true
	var running []Service
	for _, name := range m.started {
		if ms := m.managed[name]; ms.Status == StatusRunning {
			running = append(running, ms.svc)
		}
	}
	m.mu.Unlock()

	for _, svc := range running {
		svc.ContextLoaded(ctx)
	}
}

// StopAll stops running services in reverse start order. Stop errors are
// logged and collected; every service is asked to stop.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	names := m.started
	m.started = nil
	m.mu.Unlock()

	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		m.mu.RLock()
		ms := m.managed[names[i]]
		m.mu.RUnlock()
		if ms == nil {
			continue
		}

		if err := ms.svc.Stop(ctx); err != nil {
			m.setStatus(ms, StatusFailed, err)
			m.logger.Warn("service failed to stop", "service", ms.Name, "error", err.Error())
			errs = append(errs, errors.Wrapf(err, "failed to stop service %s", ms.Name))
			continue
		}
		m.setStatus(ms, StatusStopped, nil)
		m.logger.Info("service stopped", "service", ms.Name)
	}
	return errors.Join(errs...)
}

// Get returns a snapshot of the service named name.
func (m *Manager) Get(name string) (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.managed[name]
	if !ok {
		return Info{}, false
	}
	return ms.Info, true
}

// Service returns the running service named name.
func (m *Manager) Service(name string) (Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.managed[name]
	if !ok || ms.Status != StatusRunning {
		return nil, errors.NewNotFoundError("service", name)
	}
	return ms.svc, nil
}

// List returns snapshots of all managed services in start order.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.managed))
	for _, e := range m.registry.Entries() {
		if ms, ok := m.managed[e.Name]; ok {
			out = append(out, ms.Info)
		}
	}
	return out
}

// RunningCount returns how many services are running.
func (m *Manager) RunningCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, ms := range m.managed {
		if ms.Status == StatusRunning {
			n++
		}
	}
	return n
}

func (m *Manager) setStatus(ms *managed, status Status, err error) {
	now := time.Now()
	m.mu.Lock()
	old := ms.Status
	ms.Status = status
	ms.Err = err
	switch status {
	case StatusRunning:
		ms.StartedAt = &now
	case StatusStopped, StatusFailed:
		ms.StoppedAt = &now
	}
	m.mu.Unlock()

	if m.callbacks.OnStatusChange != nil && old != status {
		m.callbacks.OnStatusChange(ms.Name, old, status)
	}
	if err != nil && m.callbacks.OnError != nil {
		m.callbacks.OnError(ms.Name, err)
	}
}
