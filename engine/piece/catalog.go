package piece

import (
	"context"
	"fmt"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/pkg/logger"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const defaultCatalogSize = 256

// MetadataSource loads piece metadata from wherever pieces are published.
type MetadataSource interface {
	LoadPiece(ctx context.Context, name, version string) (*Metadata, error)
}

// Catalog is the process-scoped piece metadata cache. It is created once,
// injected into the components that look up actions, and emptied through
// Refresh when the piece sync reports new versions.
type Catalog struct {
	source MetadataSource
	cache  *lru.Cache[string, *Metadata]
	group  singleflight.Group
}

func NewCatalog(source MetadataSource, size int) (*Catalog, error) {
	if source == nil {
		return nil, core.Errorf(core.ErrCodeInvalidConfig, map[string]any{"field": "source"},
			"metadata source cannot be nil")
	}
	if size <= 0 {
		size = defaultCatalogSize
	}
	cache, err := lru.New[string, *Metadata](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}
	return &Catalog{source: source, cache: cache}, nil
}

func cacheKey(name, version string) string {
	return name + "@" + version
}

// GetPiece returns cached metadata, loading it once per key on a miss even
// under concurrent callers.
func (c *Catalog) GetPiece(ctx context.Context, name, version string) (*Metadata, error) {
	key := cacheKey(name, version)
	if md, ok := c.cache.Get(key); ok {
		return md, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		md, err := c.source.LoadPiece(ctx, name, version)
		if err != nil {
			return nil, err
		}
		if md == nil {
			return nil, nil
		}
		c.cache.Add(key, md)
		return md, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load piece %s: %w", key, err)
	}
	md, _ := v.(*Metadata)
	return md, nil
}

// GetActionOrThrow implements ActionLookup.
func (c *Catalog) GetActionOrThrow(ctx context.Context, ref ActionRef) (*Action, error) {
	md, err := c.GetPiece(ctx, ref.PieceName, ref.PieceVersion)
	if err != nil {
		return nil, err
	}
	if md != nil {
		if action, ok := md.Actions[ref.ActionName]; ok {
			return &action, nil
		}
	}
	return nil, core.Errorf(core.ErrCodeActionNotFound, map[string]any{
		"piece":   ref.PieceName,
		"version": ref.PieceVersion,
		"action":  ref.ActionName,
	}, "action %s not found", ref)
}

// Refresh drops every cached entry.
func (c *Catalog) Refresh(ctx context.Context) {
	n := c.cache.Len()
	c.cache.Purge()
	logger.FromContext(ctx).Debug("Piece catalog refreshed", "evicted", n)
}

// Len reports how many piece versions are cached.
func (c *Catalog) Len() int {
	return c.cache.Len()
}
