package resource

import (
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"slowdown-service/pkg/config"
	"slowdown-service/pkg/manager"
)

var (
	mysqlResourceOnce sync.Once
	mysqlSingleton    *MysqlResource
)

// MysqlResource manages the lifecycle of the shared gorm connection. The
// database is optional; with database.enabled=false the resource opens as a
// no-op and MainDB returns nil.
type MysqlResource struct {
	db *gorm.DB
}

// DefaultMysqlResource returns the global MySQL resource instance.
func DefaultMysqlResource() *MysqlResource {
	mysqlResourceOnce.Do(func() {
		mysqlSingleton = &MysqlResource{}
	})
	return mysqlSingleton
}

// MustOpen establishes the database connection using global configuration.
func (r *MysqlResource) MustOpen() {
	if r.db != nil {
		return
	}

	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized")
	}
	if !cfg.Database.Enabled {
		return
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic("failed to get sql.DB: " + err.Error())
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	lifetime := cfg.Database.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	sqlDB.SetConnMaxLifetime(lifetime)

	r.db = db
}

// Close tidy ups the underlying connection pool.
func (r *MysqlResource) Close() {
	if r.db == nil {
		return
	}
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// MainDB exposes the shared gorm handle; nil when the database is disabled.
func (r *MysqlResource) MainDB() *gorm.DB {
	return r.db
}

// MySqlResourcePlugin wires the resource into the manager.
type MySqlResourcePlugin struct{}

// Name identifies the plugin slot.
func (p *MySqlResourcePlugin) Name() string {
	return "mysql"
}

// MustCreateResource returns the singleton MySQL resource for registration.
func (p *MySqlResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMysqlResource()
}
