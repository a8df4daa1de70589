package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rigfleet/app/models"
	"rigfleet/app/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Mỗi test một DB memory riêng, shared cache để pool của gorm thấy chung
	// một DB.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.Worker{},
		&models.WorkerTag{},
		&models.WorkerMessage{},
		&models.Command{},
		&models.OCProfile{},
		&models.Container{},
		&models.ContainerCell{},
		&models.Schedule{},
		&models.AsyncRequest{},
	))
	return gdb
}

func seedWorker(t *testing.T, gdb *gorm.DB, uuid, algo string, tagIDs ...uint) {
	t.Helper()
	workers := repo.NewWorkerRepository(gdb)
	require.NoError(t, workers.Upsert(&models.Worker{
		UUID: uuid, FarmID: 1, Name: uuid, Platform: models.PlatformRig, Active: true, Algo: algo,
	}))
	if len(tagIDs) > 0 {
		require.NoError(t, workers.ReplaceTags(uuid, tagIDs))
	}
}

func intp(v int) *int { return &v }

func uintp(v uint) *uint { return &v }
