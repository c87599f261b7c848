// Package search runs a query against every registered search provider of a
// project and merges the results.
package search

import (
	"context"
	"sort"
	"sync"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
	"github.com/Iron-Ham/idecore/internal/registry"
	"github.com/Iron-Ham/idecore/internal/worker"
)

// Result is one search hit.
type Result struct {
	Title    string
	Subtitle string
	URI      string
	Score    float64 // higher is better
	Provider string
}

// Provider answers queries for one kind of content.
type Provider interface {
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, query string, max int) ([]Result, error)

// Search implements Provider.
func (f ProviderFunc) Search(ctx context.Context, query string, max int) ([]Result, error) {
	return f(ctx, query, max)
}

// Engine queries providers concurrently on a worker pool.
type Engine struct {
	providers *registry.Registry[Provider]
	pool      *worker.Pool
	logger    *logging.Logger
}

// NewEngine creates an engine over providers. A nil registry starts empty.
func NewEngine(providers *registry.Registry[Provider], pool *worker.Pool, logger *logging.Logger) *Engine {
	if providers == nil {
		providers = registry.New[Provider]("search provider")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Engine{providers: providers, pool: pool, logger: logger.WithComponent("search")}
}

// Providers returns the provider registry.
func (e *Engine) Providers() *registry.Registry[Provider] {
	return e.providers
}

// Search returns at most max results across all providers, best first.
// A failing provider is logged and contributes nothing. Only cancellation
// of ctx fails the search.
func (e *Engine) Search(ctx context.Context, query string, max int) ([]Result, error) {
	if max <= 0 {
		return nil, nil
	}

	entries := e.providers.Entries()
	var (
		mu      sync.Mutex
		results []Result
		wg      sync.WaitGroup
	)
	for _, entry := range entries {
		wg.Add(1)
		run := func(ctx context.Context) error {
			found, err := entry.Value.Search(ctx, query, max)
			if err != nil {
				return err
			}
			for i := range found {
				found[i].Provider = entry.Name
			}
			mu.Lock()
			results = append(results, found...)
			mu.Unlock()
			return nil
		}

		var errCh <-chan error
		if e.pool != nil {
			errCh = worker.Go(ctx, e.pool, run)
		} else {
			ch := make(chan error, 1)
			go func() { ch <- run(ctx) }()
			errCh = ch
		}
		go func(name string) {
			defer wg.Done()
			if err := <-errCh; err != nil && !errors.IsCanceled(err) {
				e.logger.Warn("search provider failed", "provider", name, "error", err.Error())
			}
		}(entry.Name)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.NewCanceledError("search", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Title < results[j].Title
	})
	if len(results) > max {
		results = results[:max]
	}
	return results, nil
}
