package migrations

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lotengine/src/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Trade{}, &DataMigration{}))
	return db
}

func TestRunOnce_AppliesOnlyOnce(t *testing.T) {
	db := newTestDB(t)
	calls := 0
	fn := func(*gorm.DB) error {
		calls++
		return nil
	}

	require.NoError(t, RunOnce(db, "test_once", fn))
	require.NoError(t, RunOnce(db, "test_once", fn))
	assert.Equal(t, 1, calls)

	var count int64
	require.NoError(t, db.Model(&DataMigration{}).Where("id = ?", "test_once").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRunOnce_FailedMigrationIsNotRecorded(t *testing.T) {
	db := newTestDB(t)

	err := RunOnce(db, "test_fail", func(*gorm.DB) error { return errors.New("boom") })
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&DataMigration{}).Where("id = ?", "test_fail").Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunOnce_RejectsEmptyID(t *testing.T) {
	db := newTestDB(t)
	assert.Error(t, RunOnce(db, "", func(*gorm.DB) error { return nil }))
	assert.Error(t, RunOnce(db, "x", nil))
}

func TestUppercaseTradeSymbols(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Exec(
		"INSERT INTO trades (id, user_id, strategy_id, trade_type, symbol, amount, price, total_value, executed_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		"t1", "u1", "s1", "BUY", " btc-eur", "1", "100", "0", now, now,
	).Error)

	require.NoError(t, Run(db))

	var sym string
	require.NoError(t, db.Raw("SELECT symbol FROM trades WHERE id = ?", "t1").Scan(&sym).Error)
	assert.Equal(t, "BTC-EUR", sym)

	var total float64
	require.NoError(t, db.Raw("SELECT total_value FROM trades WHERE id = ?", "t1").Scan(&total).Error)
	assert.InDelta(t, 100.0, total, 1e-9)
}
