package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/compozy/pieceagent/pkg/config"
	"github.com/compozy/pieceagent/pkg/logger"
	"golang.org/x/sync/semaphore"
)

// DefaultInstallConcurrency caps simultaneous installer calls.
const DefaultInstallConcurrency = 5

// Installer makes one declared tool available, for example by installing
// its piece.
type Installer interface {
	Install(ctx context.Context, decl Declaration) error
}

// Refresher is the catalog state reloaded after installs.
type Refresher interface {
	Refresh(ctx context.Context)
}

// InstallAll installs decls with at most limit calls in flight. A limit of
// zero reads resolver.install_concurrency from the context configuration.
// Every declaration is attempted; failures are joined.
func InstallAll(ctx context.Context, installer Installer, decls []Declaration, limit int) error {
	if limit <= 0 {
		limit = config.FromContext(ctx).Resolver.InstallConcurrency
	}
	if limit <= 0 {
		limit = DefaultInstallConcurrency
	}
	log := logger.FromContext(ctx)
	sem := semaphore.NewWeighted(int64(limit))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, decl := range decls {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			if err := installer.Install(ctx, decl); err != nil {
				log.Warn("Failed to install tool", "tool", decl.Name, "kind", decl.Kind, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("install %s: %w", decl.Name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Sync installs decls then refreshes the catalog so newly installed
// metadata is visible, even when some installs failed.
func Sync(ctx context.Context, installer Installer, catalog Refresher, decls []Declaration, limit int) error {
	err := InstallAll(ctx, installer, decls, limit)
	if catalog != nil {
		catalog.Refresh(ctx)
	}
	logger.FromContext(ctx).Debug("Tools synced", "count", len(decls), "failed", err != nil)
	return err
}
