package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) CreateEntity(ctx context.Context, entity *model.Entity) error {
	return model.CreateEntity(g.db.WithContext(ctx), entity)
}

func (g *GormStore) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	return model.GetEntity(g.db.WithContext(ctx), id)
}

func (g *GormStore) ListEntitiesByType(ctx context.Context, entityType string) ([]*model.Entity, error) {
	return model.GetEntitiesByType(g.db.WithContext(ctx), entityType)
}

func (g *GormStore) ListEntitiesFromIDs(ctx context.Context, ids []string) ([]*model.Entity, error) {
	entities := make([]*model.Entity, 0)
	err := g.db.WithContext(ctx).
		Preload("ContentBlocks").
		Where("id in (?)", ids).
		Find(&entities).Error
	return entities, err
}

func (g *GormStore) ListRecentlyUpdated(ctx context.Context, since time.Time) ([]*model.Entity, error) {
	entities := make([]*model.Entity, 0)
	err := g.db.WithContext(ctx).
		Preload("ContentBlocks").
		Where("updated_at > ?", since).
		Find(&entities).Error
	return entities, err
}

func (g *GormStore) UpdateEntity(ctx context.Context, entity *model.Entity) error {
	return model.UpdateEntity(g.db.WithContext(ctx), entity)
}

func (g *GormStore) SoftDeleteEntity(ctx context.Context, id string) error {
	result := g.db.WithContext(ctx).
		Model(&model.Entity{}).
		Where("id = ?", id).
		Update("deleted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (g *GormStore) CreateContentBlock(ctx context.Context, block *model.ContentBlock) error {
	return model.CreateContentBlock(g.db.WithContext(ctx), block)
}

func (g *GormStore) GetContentBlock(ctx context.Context, entityID, blockID string) (*model.ContentBlock, error) {
	return model.GetContentBlock(g.db.WithContext(ctx), entityID, blockID)
}

func (g *GormStore) UpdateContentBlock(ctx context.Context, block *model.ContentBlock) error {
	return model.UpdateContentBlock(g.db.WithContext(ctx), block)
}

func (g *GormStore) CreateComment(ctx context.Context, comment *model.Comment) error {
	return model.CreateComment(g.db.WithContext(ctx), comment)
}

func (g *GormStore) GetComment(ctx context.Context, entityID, commentID string) (*model.Comment, error) {
	return model.GetComment(g.db.WithContext(ctx), entityID, commentID)
}

func (g *GormStore) UpdateComment(ctx context.Context, comment *model.Comment) error {
	return model.UpdateComment(g.db.WithContext(ctx), comment)
}

func (g *GormStore) CreateUser(ctx context.Context, user *model.User) error {
	return model.CreateUser(g.db.WithContext(ctx), user)
}

func (g *GormStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	return model.GetUsers(g.db.WithContext(ctx))
}

func (g *GormStore) GetUser(ctx context.Context, email string) (*model.User, error) {
	return model.GetUser(g.db.WithContext(ctx), email)
}

func (g *GormStore) SetUserColor(ctx context.Context, email, color string) error {
	result := g.db.WithContext(ctx).
		Model(&model.User{}).
		Where("email = ?", email).
		Update("color", color)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(NewGormStore(tx))
	})
}
