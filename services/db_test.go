package services

import (
	"path/filepath"
	"testing"

	"quest-reward-system/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Quest{},
		&models.QuestSubmission{},
		&models.User{},
		&models.UserStats{},
		&models.XPRecord{},
		&models.BadgeType{},
		&models.UserBadge{},
	))
	return db
}
