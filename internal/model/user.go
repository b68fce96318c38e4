package model

import (
	"time"

	"gorm.io/gorm"
)

// User is a known author. Color drives avatar rendering in clients.
type User struct {
	Email     string    `gorm:"primaryKey;not null" json:"email"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func CreateUser(db *gorm.DB, user *User) error {
	return db.Create(user).Error
}

func GetUsers(db *gorm.DB) ([]*User, error) {
	users := make([]*User, 0)
	err := db.Order("email").Find(&users).Error
	if err != nil {
		return nil, err
	}

	return users, nil
}

func GetUser(db *gorm.DB, email string) (*User, error) {
	user := &User{}
	err := db.Where("email = ?", email).First(user).Error
	if err != nil {
		return nil, err
	}

	return user, nil
}
