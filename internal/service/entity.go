package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/cache"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/store"
)

// NewEntityService creates a new EntityService. The cache may be nil, in
// which case every read goes to the store.
func NewEntityService(store store.Store, cache cache.EntityCache, mediaDir string) *EntityService {
	return &EntityService{
		store:    store,
		cache:    cache,
		mediaDir: mediaDir,
	}
}

// EntityService owns every mutation of the entity graph. Reads go through
// the cache; every write invalidates the touched entities so the client's
// re-fetch after a successful mutation observes stored state.
type EntityService struct {
	store    store.Store
	cache    cache.EntityCache
	mediaDir string
}

// GetEntity retrieves one entity with its content blocks and comments.
func (s *EntityService) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	if s.cache != nil {
		entity, err := s.cache.GetEntity(ctx, id)
		if err != nil {
			logrus.Warnf("entity cache read failed for %s: %v", id, err)
		} else if entity != nil {
			return entity, nil
		}
	}

	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetEntity(ctx, entity); err != nil {
			logrus.Warnf("entity cache write failed for %s: %v", id, err)
		}
	}

	return entity, nil
}

// CreateLibrary creates a root entity. Libraries have no parent and are the
// only type creatable without one.
func (s *EntityService) CreateLibrary(ctx context.Context, name, user string) (*model.Entity, error) {
	library := model.NewEntity(name, user, model.TypeLibrary, "")
	if err := s.store.CreateEntity(ctx, library); err != nil {
		return nil, err
	}
	logrus.Infof("library %s created with id %s", name, library.ID)
	return library, nil
}

// ListLibraries returns every non-deleted library.
func (s *EntityService) ListLibraries(ctx context.Context) ([]*model.Entity, error) {
	return s.store.ListEntitiesByType(ctx, model.TypeLibrary)
}

// CreateEntity creates a sub-entity under parent, validating the type
// against the hierarchy table. The new entity is appended to the parent's
// children and explicit order, optionally right after underChild.
func (s *EntityService) CreateEntity(ctx context.Context, name, user, entityType, parentID, underChild string) (*model.Entity, error) {
	if entityType == model.TypeLibrary {
		return nil, ErrLibraryThroughEntities
	}
	if !model.ValidType(entityType) {
		return nil, ErrInvalidType
	}

	var entity *model.Entity
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		parent, err := tx.GetEntity(ctx, parentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntityNotFound
			}
			return err
		}

		if !model.CanParent(parent.Type, entityType) {
			return ErrInvalidChildType
		}

		entity = model.NewEntity(name, user, entityType, parentID)
		if err := tx.CreateEntity(ctx, entity); err != nil {
			return err
		}

		parent.AddChild(entity.ID)
		if underChild != "" {
			moveOrderEntryAfter(parent, entity.ID, underChild)
		}
		return tx.UpdateEntity(ctx, parent)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, parentID)
	return entity, nil
}

// RenameEntity changes an entity's name, keeping the previous one.
func (s *EntityService) RenameEntity(ctx context.Context, id, name string) error {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntityNotFound
		}
		return err
	}

	entity.Rename(name)
	if err := s.store.UpdateEntity(ctx, entity); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

// ToggleBookmark flips the entity's bookmark flag.
func (s *EntityService) ToggleBookmark(ctx context.Context, id string) error {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntityNotFound
		}
		return err
	}

	entity.Bookmarked = !entity.Bookmarked
	if err := s.store.UpdateEntity(ctx, entity); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

// DeleteEntity soft-deletes an entity. The row and the parent's children
// reference stay; consumers filter on the flag.
func (s *EntityService) DeleteEntity(ctx context.Context, id string) error {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntityNotFound
		}
		return err
	}

	if err := s.store.SoftDeleteEntity(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.invalidate(ctx, entity.Parent)
	return nil
}

// Structure is a skeleton view of a subtree: names, ids and types only.
type Structure struct {
	Name     string       `json:"name"`
	ID       string       `json:"id"`
	Children []*Structure `json:"children"`
	Type     string       `json:"type"`
}

// GetStructure builds the skeleton tree rooted at id, skipping deleted
// entities. Children that fail to resolve are logged and skipped rather
// than failing the whole tree.
func (s *EntityService) GetStructure(ctx context.Context, id string) (*Structure, error) {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}
	if entity.Deleted {
		return nil, ErrEntityNotFound
	}

	return s.structure(ctx, entity), nil
}

func (s *EntityService) structure(ctx context.Context, entity *model.Entity) *Structure {
	node := &Structure{Name: entity.Name, ID: entity.ID, Type: entity.Type, Children: []*Structure{}}

	ids := entity.ChildIDs()
	if len(ids) == 0 {
		return node
	}

	children, err := s.store.ListEntitiesFromIDs(ctx, ids)
	if err != nil {
		logrus.Warnf("skipping children of %s: %v", entity.ID, err)
		return node
	}
	byID := make(map[string]*model.Entity, len(children))
	for _, child := range children {
		byID[child.ID] = child
	}

	// children list order, missing IDs are still loading
	for _, childID := range ids {
		child, ok := byID[childID]
		if !ok || child.Deleted {
			continue
		}
		node.Children = append(node.Children, s.structure(ctx, child))
	}

	return node
}

// NotebookParent walks up the tree until it finds the notebook holding the
// entity. A notebook answers with itself; a library has none.
func (s *EntityService) NotebookParent(ctx context.Context, id string) (string, error) {
	current, err := s.store.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrEntityNotFound
		}
		return "", err
	}

	for {
		switch current.Type {
		case model.TypeNotebook:
			return current.ID, nil
		case model.TypeLibrary:
			return "", ErrNoNotebookParent
		}
		if current.Parent == "" {
			return "", ErrNoNotebookParent
		}
		current, err = s.store.GetEntity(ctx, current.Parent)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", ErrNoNotebookParent
			}
			return "", err
		}
	}
}

// AddTextBlock appends a new text content block to the entity, placing it
// after underChild in the explicit order when given.
func (s *EntityService) AddTextBlock(ctx context.Context, entityID, user, content, underChild string) (*model.ContentBlock, error) {
	var block *model.ContentBlock
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		entity, err := tx.GetEntity(ctx, entityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntityNotFound
			}
			return err
		}

		block = model.NewTextBlock(entityID, user, content)
		if err := tx.CreateContentBlock(ctx, block); err != nil {
			return err
		}

		entity.AppendOrder(block.ID, model.KindContentBlock)
		if underChild != "" {
			moveOrderEntryAfter(entity, block.ID, underChild)
		}
		return tx.UpdateEntity(ctx, entity)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, entityID)
	return block, nil
}

// EditTextBlock appends a new version to an existing text block.
func (s *EntityService) EditTextBlock(ctx context.Context, entityID, blockID, user, content string) error {
	block, err := s.store.GetContentBlock(ctx, entityID, blockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContentBlockNotFound
		}
		return err
	}

	if err := block.AppendVersion(content, user); err != nil {
		return err
	}
	if err := s.store.UpdateContentBlock(ctx, block); err != nil {
		return err
	}

	s.invalidate(ctx, entityID)
	return nil
}

// DeleteContentBlock soft-deletes a block.
func (s *EntityService) DeleteContentBlock(ctx context.Context, entityID, blockID string) error {
	block, err := s.store.GetContentBlock(ctx, entityID, blockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContentBlockNotFound
		}
		return err
	}

	block.Deleted = true
	if err := s.store.UpdateContentBlock(ctx, block); err != nil {
		return err
	}

	s.invalidate(ctx, entityID)
	return nil
}

// AddImageBlock stores the image bytes under the media directory and
// creates an image block whose first version points at them.
func (s *EntityService) AddImageBlock(ctx context.Context, entityID, user, filename, title string, data []byte, underChild string) (*model.ContentBlock, error) {
	var block *model.ContentBlock
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		entity, err := tx.GetEntity(ctx, entityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntityNotFound
			}
			return err
		}

		blockID := uuid.New().String()
		key, err := s.saveImage(blockID, filename, data)
		if err != nil {
			return err
		}
		block = model.NewImageBlock(entityID, user, key, title)
		block.ID = blockID
		if err := tx.CreateContentBlock(ctx, block); err != nil {
			return err
		}

		entity.AppendOrder(block.ID, model.KindContentBlock)
		if underChild != "" {
			moveOrderEntryAfter(entity, block.ID, underChild)
		}
		return tx.UpdateEntity(ctx, entity)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, entityID)
	return block, nil
}

// EditImageBlock appends a new image version, replacing the stored file
// when data is given and keeping the previous key for a pure retitle.
func (s *EntityService) EditImageBlock(ctx context.Context, entityID, blockID, user, filename, title string, data []byte) error {
	block, err := s.store.GetContentBlock(ctx, entityID, blockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContentBlockNotFound
		}
		return err
	}

	current, err := block.LatestImage()
	if err != nil {
		return err
	}

	key := current.Key
	if len(data) > 0 {
		key, err = s.saveImage(block.ID, filename, data)
		if err != nil {
			return err
		}
	}
	if title == "" {
		title = current.Title
	}

	if err := block.AppendVersion([]string{key, title}, user); err != nil {
		return err
	}
	if err := s.store.UpdateContentBlock(ctx, block); err != nil {
		return err
	}

	s.invalidate(ctx, entityID)
	return nil
}

// ImageContent returns the bytes of an image block's current version. The
// storage key never changes on replacement, which is why image URLs carry a
// cache-busting parameter.
func (s *EntityService) ImageContent(ctx context.Context, entityID, blockID string) ([]byte, error) {
	block, err := s.store.GetContentBlock(ctx, entityID, blockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContentBlockNotFound
		}
		return nil, err
	}

	version, err := block.LatestImage()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.mediaDir, filepath.Base(version.Key)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrContentBlockNotFound
		}
		return nil, err
	}

	return data, nil
}

// AddComment attaches a discussion comment to an entity, or to one of its
// content blocks via targetBlock.
func (s *EntityService) AddComment(ctx context.Context, entityID, targetBlock, user, body string) (*model.Comment, error) {
	if _, err := s.GetEntity(ctx, entityID); err != nil {
		return nil, err
	}

	target := targetBlock
	if target == "" {
		target = entityID
	}
	comment := model.NewComment(entityID, target, user, body)
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.invalidate(ctx, entityID)
	return comment, nil
}

// AddCommentReply appends a reply to an existing comment.
func (s *EntityService) AddCommentReply(ctx context.Context, entityID, commentID, user, body string) error {
	comment, err := s.store.GetComment(ctx, entityID, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	comment.AddReply(user, body)
	if err := s.store.UpdateComment(ctx, comment); err != nil {
		return err
	}

	s.invalidate(ctx, entityID)
	return nil
}

// ResolveComment marks a comment resolved. Resolved comments stay stored
// but clients stop rendering them.
func (s *EntityService) ResolveComment(ctx context.Context, entityID, commentID string) error {
	comment, err := s.store.GetComment(ctx, entityID, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	comment.Resolved = true
	if err := s.store.UpdateComment(ctx, comment); err != nil {
		return err
	}

	s.invalidate(ctx, entityID)
	return nil
}

func (s *EntityService) saveImage(blockID, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.mediaDir, os.ModePerm); err != nil {
		return "", err
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".png"
	}
	key := blockID + ext
	if err := os.WriteFile(filepath.Join(s.mediaDir, key), data, 0o644); err != nil {
		return "", err
	}

	return key, nil
}

func (s *EntityService) invalidate(ctx context.Context, id string) {
	if s.cache == nil || id == "" {
		return
	}
	if err := s.cache.DeleteEntity(ctx, id); err != nil {
		logrus.Warnf("entity cache invalidation failed for %s: %v", id, err)
	}
}

// moveOrderEntryAfter moves the entry for id directly after the last entry
// for afterID. Nothing happens when afterID is not in the order.
func moveOrderEntryAfter(entity *model.Entity, id, afterID string) {
	entries := entity.OrderEntries()

	var moved *model.OrderEntry
	kept := make([]model.OrderEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == id && moved == nil {
			m := entry
			moved = &m
			continue
		}
		kept = append(kept, entry)
	}
	if moved == nil {
		return
	}

	anchor := -1
	for i, entry := range kept {
		if entry.ID == afterID {
			anchor = i
		}
	}
	if anchor == -1 {
		kept = append(kept, *moved)
	} else {
		kept = append(kept[:anchor+1], append([]model.OrderEntry{*moved}, kept[anchor+1:]...)...)
	}

	entity.Order = nil
	for _, entry := range kept {
		entity.AppendOrder(entry.ID, entry.Kind)
	}
}
