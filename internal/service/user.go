package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/toolsforexperiments/lab-dragon-sub000/internal/model"
	"github.com/toolsforexperiments/lab-dragon-sub000/internal/store"
)

// NewUserService creates a new UserService.
func NewUserService(store store.Store) *UserService {
	return &UserService{
		store: store,
	}
}

// UserService manages the known-author table behind the presence UI.
type UserService struct {
	store store.Store
}

// AddUser registers a user.
func (s *UserService) AddUser(ctx context.Context, email, name string) error {
	_, err := s.store.GetUser(ctx, email)
	if err == nil {
		return ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return s.store.CreateUser(ctx, &model.User{Email: email, Name: name})
}

// ListUsers returns every known user.
func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.store.ListUsers(ctx)
}

// SetUserColor updates the avatar color of a user.
func (s *UserService) SetUserColor(ctx context.Context, email, color string) error {
	err := s.store.SetUserColor(ctx, email, color)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
