// Package datastore opens the Manager's relational store and migrates its
// schema. SQLite is the default backend; MySQL is supported for shared
// deployments.
package datastore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/clusterfleet/manager/internal/conf"
	"github.com/clusterfleet/manager/internal/datastore/entities"
)

// Open connects to the configured database and applies the schema.
func Open(settings *conf.DatabaseSettings) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch settings.Dialect {
	case "sqlite":
		dialector = sqlite.Open(settings.Path)
	case "mysql":
		dialector = mysql.Open(settings.DSN)
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", settings.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", settings.Dialect, err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates all Manager tables. Idempotent.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&entities.AlarmCondition{},
		&entities.AlarmConditionLink{},
		&entities.AlarmAction{},
		&entities.AlarmTemplate{},
		&entities.AlarmTemplateAction{},
		&entities.AlarmEvent{},
		&entities.Node{},
		&entities.MetricSample{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
