package cache

import (
	"context"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
)

// EntityCache keeps serialized entities close to the REST surface. Every
// mutation path deletes the cached entry so the client's re-fetch after a
// write always observes the stored state.
type EntityCache interface {
	// GetEntity gets an entity from the cache. A miss returns (nil, nil).
	GetEntity(ctx context.Context, id string) (*model.Entity, error)
	// SetEntity sets an entity in the cache.
	SetEntity(ctx context.Context, entity *model.Entity) error
	// DeleteEntity removes an entity from the cache.
	DeleteEntity(ctx context.Context, id string) error
}
