package database

import (
	"context"
	"fmt"

	"github.com/defect-tracker/models"
	"gorm.io/gorm"
)

// Models lists every table managed by the application, parents first
func Models() []interface{} {
	return []interface{}{
		&models.Role{},
		&models.User{},
		&models.Project{},
		&models.Defect{},
		&models.DefectComment{},
		&models.DefectAttachment{},
		&models.CommentAttachment{},
	}
}

// Migrate migrates the database schema
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
