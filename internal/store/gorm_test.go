package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/tester"
)

func TestMain(m *testing.M) {
	tester.Setup()
	code := m.Run()

	os.Exit(code)
}

func newTestStore() *GormStore {
	tester.RemoveDBFile()
	tester.Setup()
	return NewGormStore(tester.TestDB())
}

func TestGormStore_EntityRoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.TODO()

	entity := model.NewEntity("lib", "alice@example.com", model.TypeLibrary, "")
	assert.NoError(t, s.CreateEntity(ctx, entity))

	got, err := s.GetEntity(ctx, entity.ID)
	assert.NoError(t, err)
	assert.Equal(t, "lib", got.Name)
	assert.Equal(t, model.TypeLibrary, got.Type)

	_, err = s.GetEntity(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGormStore_ListEntitiesFromIDsOmitsMissing(t *testing.T) {
	s := newTestStore()
	ctx := context.TODO()

	e1 := model.NewEntity("a", "u", model.TypeLibrary, "")
	e2 := model.NewEntity("b", "u", model.TypeLibrary, "")
	assert.NoError(t, s.CreateEntity(ctx, e1))
	assert.NoError(t, s.CreateEntity(ctx, e2))

	got, err := s.ListEntitiesFromIDs(ctx, []string{e1.ID, "still-loading", e2.ID})
	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGormStore_ListEntitiesByTypeSkipsDeleted(t *testing.T) {
	s := newTestStore()
	ctx := context.TODO()

	e1 := model.NewEntity("a", "u", model.TypeBucket, "")
	e2 := model.NewEntity("b", "u", model.TypeBucket, "")
	assert.NoError(t, s.CreateEntity(ctx, e1))
	assert.NoError(t, s.CreateEntity(ctx, e2))
	assert.NoError(t, s.SoftDeleteEntity(ctx, e2.ID))

	got, err := s.ListEntitiesByType(ctx, model.TypeBucket)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, e1.ID, got[0].ID)
}

func TestGormStore_SoftDeleteMissing(t *testing.T) {
	s := newTestStore()
	assert.ErrorIs(t, s.SoftDeleteEntity(context.TODO(), "missing"), gorm.ErrRecordNotFound)
}

func TestGormStore_ListRecentlyUpdated(t *testing.T) {
	s := newTestStore()
	ctx := context.TODO()

	entity := model.NewEntity("a", "u", model.TypeLibrary, "")
	assert.NoError(t, s.CreateEntity(ctx, entity))

	got, err := s.ListRecentlyUpdated(ctx, time.Now().Add(-time.Minute))
	assert.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.ListRecentlyUpdated(ctx, time.Now().Add(time.Minute))
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestGormStore_ContentBlockScopedToEntity(t *testing.T) {
	s := newTestStore()
	ctx := context.TODO()

	entity := model.NewEntity("a", "u", model.TypeLibrary, "")
	assert.NoError(t, s.CreateEntity(ctx, entity))

	block := model.NewTextBlock(entity.ID, "u", "note")
	assert.NoError(t, s.CreateContentBlock(ctx, block))

	got, err := s.GetContentBlock(ctx, entity.ID, block.ID)
	assert.NoError(t, err)
	assert.Equal(t, block.ID, got.ID)

	_, err = s.GetContentBlock(ctx, "other-entity", block.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGormStore_TransactionRollsBack(t *testing.T) {
	s := newTestStore()
	ctx := context.TODO()

	entity := model.NewEntity("a", "u", model.TypeLibrary, "")
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx Store) error {
		if err := tx.CreateEntity(ctx, entity); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetEntity(ctx, entity.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
