package repository

import (
	"EncounterSync/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// OpenSQLite 纯 Go 的 sqlite 连接（本地开发与测试）
func OpenSQLite(path string, cfg *gorm.Config) (*gorm.DB, error) {
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, cfg)
}

// AutoMigrate 建表/补列
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.PlatformAccount{},
		&model.VideoAccount{},
		&model.AccountLink{},
		&model.Vote{},
		&model.ActivityInstance{},
		&model.Participation{},
		&model.Clip{},
	)
}
