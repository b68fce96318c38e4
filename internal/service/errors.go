package service

import "errors"

var (
	// ErrEntityNotFound is returned when an entity lookup misses.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrContentBlockNotFound is returned when a content block lookup misses.
	ErrContentBlockNotFound = errors.New("content block not found")
	// ErrCommentNotFound is returned when a comment lookup misses.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidType is returned when an entity type is outside the hierarchy table.
	ErrInvalidType = errors.New("entity type is not allowed")
	// ErrInvalidChildType is returned when the parent type cannot hold the requested child type.
	ErrInvalidChildType = errors.New("parent cannot have children of that type")
	// ErrLibraryThroughEntities is returned when a library creation goes through the generic entity endpoint.
	ErrLibraryThroughEntities = errors.New("libraries cannot be created through this endpoint")
	// ErrNoNotebookParent is returned when an entity has no notebook ancestor.
	ErrNoNotebookParent = errors.New("entity is not inside a notebook")
	// ErrNotABucket is returned when a bucket operation targets a non-bucket entity.
	ErrNotABucket = errors.New("entity is not a bucket")
	// ErrBucketExists is returned when a bucket with the same name already exists.
	ErrBucketExists = errors.New("bucket with that name already exists")
	// ErrLocationNotFound is returned when a bucket location does not exist.
	ErrLocationNotFound = errors.New("bucket location not found")
	// ErrUserExists is returned when registering an already known user.
	ErrUserExists = errors.New("user already exists")
)
