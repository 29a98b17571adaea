package repo

import (
	"github.com/quantline/signal-engine/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Signal{}, &entity.GroupBinding{})
}
