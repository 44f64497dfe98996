package sqlite

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps a GORM handle over an embedded sqlite file, scoped to the two
// tables this gateway actually persists: cooldowns and usage records.
type DB struct {
	gorm *gorm.DB
}

// NewDB opens (creating if necessary) the sqlite file at path and migrates
// the cooldown/usage_record schema.
func NewDB(path string) (*DB, error) {
	g, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := g.AutoMigrate(&cooldownModel{}, &usageRecordModel{}); err != nil {
		return nil, err
	}
	return &DB{gorm: g}, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
