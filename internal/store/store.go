package store

import (
	"context"
	"time"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
)

type Store interface {
	EntityStore
	ContentBlockStore
	CommentStore
	UserStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type EntityStore interface {
	// CreateEntity creates a new entity.
	CreateEntity(ctx context.Context, entity *model.Entity) error
	// GetEntity retrieves an entity by ID, with its content blocks and comments.
	GetEntity(ctx context.Context, id string) (*model.Entity, error)
	// ListEntitiesByType retrieves all non-deleted entities of the given type.
	ListEntitiesByType(ctx context.Context, entityType string) ([]*model.Entity, error)
	// ListEntitiesFromIDs retrieves entities by IDs. Missing IDs are omitted.
	ListEntitiesFromIDs(ctx context.Context, ids []string) ([]*model.Entity, error)
	// ListRecentlyUpdated retrieves entities updated since the given time.
	ListRecentlyUpdated(ctx context.Context, since time.Time) ([]*model.Entity, error)
	// UpdateEntity saves an entity.
	UpdateEntity(ctx context.Context, entity *model.Entity) error
	// SoftDeleteEntity flags an entity as deleted without removing the row.
	SoftDeleteEntity(ctx context.Context, id string) error
}

type ContentBlockStore interface {
	// CreateContentBlock creates a new content block under its entity.
	CreateContentBlock(ctx context.Context, block *model.ContentBlock) error
	// GetContentBlock retrieves a content block scoped to its owning entity.
	GetContentBlock(ctx context.Context, entityID, blockID string) (*model.ContentBlock, error)
	// UpdateContentBlock saves a content block.
	UpdateContentBlock(ctx context.Context, block *model.ContentBlock) error
}

type CommentStore interface {
	// CreateComment creates a new comment with its replies.
	CreateComment(ctx context.Context, comment *model.Comment) error
	// GetComment retrieves a comment scoped to its entity.
	GetComment(ctx context.Context, entityID, commentID string) (*model.Comment, error)
	// UpdateComment saves a comment and any new replies.
	UpdateComment(ctx context.Context, comment *model.Comment) error
}

type UserStore interface {
	// CreateUser registers a user.
	CreateUser(ctx context.Context, user *model.User) error
	// ListUsers retrieves every known user.
	ListUsers(ctx context.Context) ([]*model.User, error)
	// GetUser retrieves a user by email.
	GetUser(ctx context.Context, email string) (*model.User, error)
	// SetUserColor updates a user's avatar color.
	SetUserColor(ctx context.Context, email, color string) error
}
