package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/store"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/tester"
)

func newTestBucketService() (*BucketService, *EntityService) {
	tester.RemoveDBFile()
	tester.Setup()
	entities := NewEntityService(store.NewGormStore(tester.TestDB()), nil, tester.MediaDir())
	return NewBucketService(store.NewGormStore(tester.TestDB()), entities), entities
}

func TestBucketService_Create(t *testing.T) {
	svc, _ := newTestBucketService()
	ctx := context.TODO()

	bucket, err := svc.CreateBucket(ctx, "runs", testUser, "")
	assert.NoError(t, err)
	assert.Equal(t, model.TypeBucket, bucket.Type)

	_, err = svc.CreateBucket(ctx, "runs", testUser, "")
	assert.ErrorIs(t, err, ErrBucketExists)

	_, err = svc.CreateBucket(ctx, "elsewhere", testUser, "/no/such/location")
	assert.ErrorIs(t, err, ErrLocationNotFound)

	buckets, err := svc.ListBuckets(ctx)
	assert.NoError(t, err)
	assert.Len(t, buckets, 1)
}

func TestBucketService_CreateWithLocation(t *testing.T) {
	svc, _ := newTestBucketService()
	ctx := context.TODO()

	location := t.TempDir()
	bucket, err := svc.CreateBucket(ctx, "runs", testUser, location)
	assert.NoError(t, err)
	assert.NotEmpty(t, bucket.ID)
}

func TestBucketService_HoldsInstances(t *testing.T) {
	svc, entities := newTestBucketService()
	ctx := context.TODO()

	bucket, err := svc.CreateBucket(ctx, "runs", testUser, "")
	assert.NoError(t, err)

	instance, err := entities.CreateEntity(ctx, "run-001", testUser, model.TypeInstance, bucket.ID, "")
	assert.NoError(t, err)
	assert.Equal(t, model.TypeInstance, instance.Type)

	got, err := entities.GetEntity(ctx, bucket.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{instance.ID}, got.ChildIDs())

	// instances are leaves
	_, err = entities.CreateEntity(ctx, "nested", testUser, model.TypeInstance, instance.ID, "")
	assert.ErrorIs(t, err, ErrInvalidChildType)
}

func TestBucketService_TargetAndUnset(t *testing.T) {
	svc, entities := newTestBucketService()
	ctx := context.TODO()

	library, err := entities.CreateLibrary(ctx, "lib", testUser)
	assert.NoError(t, err)
	bucket, err := svc.CreateBucket(ctx, "runs", testUser, "")
	assert.NoError(t, err)

	assert.NoError(t, svc.TargetBucket(ctx, library.ID, bucket.ID))

	// targeting the same bucket twice keeps one reference
	assert.NoError(t, svc.TargetBucket(ctx, library.ID, bucket.ID))

	got, err := entities.GetEntity(ctx, library.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{bucket.ID}, got.BucketIDs())

	assert.NoError(t, svc.UnsetTargetBucket(ctx, library.ID, bucket.ID))
	got, err = entities.GetEntity(ctx, library.ID)
	assert.NoError(t, err)
	assert.Empty(t, got.BucketIDs())
}

func TestBucketService_TargetRejectsNonBucket(t *testing.T) {
	svc, entities := newTestBucketService()
	ctx := context.TODO()

	library, err := entities.CreateLibrary(ctx, "lib", testUser)
	assert.NoError(t, err)
	other, err := entities.CreateLibrary(ctx, "other", testUser)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.TargetBucket(ctx, library.ID, other.ID), ErrNotABucket)
	assert.ErrorIs(t, svc.TargetBucket(ctx, library.ID, "missing"), ErrEntityNotFound)
}
