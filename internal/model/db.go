package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Entity{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&ContentBlock{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Comment{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Reply{}); err != nil {
		return err
	}

	return db.AutoMigrate(&User{})
}
