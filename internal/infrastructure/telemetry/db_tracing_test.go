package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100"`
	CreatedAt time.Time
}

func setupTracingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedModel{}))
	return db
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
}

func TestDBTracingRegisterDisabled(t *testing.T) {
	db := setupTracingTestDB(t)

	cfg := DefaultDBTracingConfig()
	plugin := NewDBTracing(cfg, zap.NewNop())

	require.NoError(t, plugin.Register(db))

	// no plugin attached, operations run untouched
	require.NoError(t, db.Create(&tracedModel{Name: "ledger"}).Error)
}

func TestDBTracingRegisterEnabled(t *testing.T) {
	db := setupTracingTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	plugin := NewDBTracing(cfg, zap.NewNop())

	require.NoError(t, plugin.Register(db))

	// instrumented operations still work end to end
	require.NoError(t, db.Create(&tracedModel{Name: "ledger"}).Error)
	var found tracedModel
	require.NoError(t, db.First(&found, "name = ?", "ledger").Error)
	assert.Equal(t, "ledger", found.Name)
}
