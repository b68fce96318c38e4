package service

import (
	"context"
	"errors"
	"os"

	"gorm.io/gorm"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/store"
)

// NewBucketService creates a new BucketService.
func NewBucketService(store store.Store, entities *EntityService) *BucketService {
	return &BucketService{
		store:    store,
		entities: entities,
	}
}

// BucketService manages data buckets and their targeting by notebook
// entities. Buckets are entities of type Bucket living outside the
// notebook trees.
type BucketService struct {
	store    store.Store
	entities *EntityService
}

// CreateBucket creates a named bucket. When a filesystem location is
// given it must exist.
func (s *BucketService) CreateBucket(ctx context.Context, name, user, location string) (*model.Entity, error) {
	if location != "" {
		if _, err := os.Stat(location); err != nil {
			return nil, ErrLocationNotFound
		}
	}

	existing, err := s.store.ListEntitiesByType(ctx, model.TypeBucket)
	if err != nil {
		return nil, err
	}
	for _, bucket := range existing {
		if bucket.Name == name {
			return nil, ErrBucketExists
		}
	}

	bucket := model.NewEntity(name, user, model.TypeBucket, "")
	if err := s.store.CreateEntity(ctx, bucket); err != nil {
		return nil, err
	}

	return bucket, nil
}

// ListBuckets returns every non-deleted bucket.
func (s *BucketService) ListBuckets(ctx context.Context) ([]*model.Entity, error) {
	return s.store.ListEntitiesByType(ctx, model.TypeBucket)
}

// TargetBucket points an entity at a bucket.
func (s *BucketService) TargetBucket(ctx context.Context, entityID, bucketID string) error {
	bucket, err := s.store.GetEntity(ctx, bucketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntityNotFound
		}
		return err
	}
	if bucket.Type != model.TypeBucket {
		return ErrNotABucket
	}

	entity, err := s.store.GetEntity(ctx, entityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntityNotFound
		}
		return err
	}

	ids := entity.BucketIDs()
	for _, id := range ids {
		if id == bucketID {
			return nil
		}
	}
	entity.SetBucketIDs(append(ids, bucketID))
	if err := s.store.UpdateEntity(ctx, entity); err != nil {
		return err
	}

	s.entities.invalidate(ctx, entityID)
	return nil
}

// UnsetTargetBucket removes a bucket from an entity's targets.
func (s *BucketService) UnsetTargetBucket(ctx context.Context, entityID, bucketID string) error {
	entity, err := s.store.GetEntity(ctx, entityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntityNotFound
		}
		return err
	}

	ids := entity.BucketIDs()
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != bucketID {
			kept = append(kept, id)
		}
	}
	entity.SetBucketIDs(kept)
	if err := s.store.UpdateEntity(ctx, entity); err != nil {
		return err
	}

	s.entities.invalidate(ctx, entityID)
	return nil
}
