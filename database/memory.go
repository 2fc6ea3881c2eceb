package database

import (
	"context"

	"github.com/defect-tracker/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenMemory opens a private in-memory SQLite database with the schema applied
func OpenMemory(log *zap.Logger) (*gorm.DB, error) {
	db, err := Open(config.DBCfg{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1",
	}, log)
	if err != nil {
		return nil, err
	}
	if err := Migrate(context.Background(), db); err != nil {
		return nil, err
	}
	return db, nil
}
