package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"lotengine/src/model"
)

var scope = model.Scope{UserID: "u1", StrategyID: "s1", Symbol: "XRP-EUR"}

func TestPoolStateRepository_LoadMissingReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&PoolStateRepository{}).WithDB(db)

	mock.ExpectQuery(`SELECT \* FROM "pool_states" WHERE .*user_id = \$1 AND strategy_id = \$2 AND symbol = \$3.* LIMIT \$4`).
		WithArgs("u1", "s1", "XRP-EUR", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	state, err := repo.Load(context.Background(), scope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != nil {
		t.Fatalf("expected nil state, got %+v", state)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPoolStateRepository_LoadExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&PoolStateRepository{}).WithDB(db)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "pool_states" WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "strategy_id", "symbol", "secure_filled_qty", "is_armed", "high_water_price", "high_water_at", "last_trailing_stop_price", "created_at", "updated_at"}).
			AddRow(7, "u1", "s1", "XRP-EUR", "400", true, "0.51", now, "0.5049", now, now))

	state, err := repo.Load(context.Background(), scope)
	if err != nil || state == nil {
		t.Fatalf("expected state, got %+v err=%v", state, err)
	}
	if !state.IsArmed || state.LastTrailingStopPrice == nil || !state.LastTrailingStopPrice.Equal(decimal.RequireFromString("0.5049")) {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestPoolStateRepository_UpsertOnScopeConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&PoolStateRepository{}).WithDB(db)

	state := model.NewPoolState(scope)
	state.SecureFilledQty = decimal.RequireFromString("400")

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "pool_states" .* ON CONFLICT \("user_id","strategy_id","symbol"\) DO UPDATE SET "secure_filled_qty"="excluded"."secure_filled_qty"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	if err := repo.Upsert(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPoolStateRepository_UpsertWritesLotPeaks(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&PoolStateRepository{}).WithDB(db)

	state := model.NewPoolState(scope)
	state.LotHighWater = map[string]decimal.Decimal{"b1": decimal.RequireFromString("0.53")}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "pool_states" .*"lot_high_water".* DO UPDATE SET .*"lot_high_water"="excluded"."lot_high_water"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	if err := repo.Upsert(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPoolStateRepository_UpsertError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&PoolStateRepository{}).WithDB(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "pool_states"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if err := repo.Upsert(context.Background(), model.NewPoolState(scope)); err == nil {
		t.Fatalf("expected upsert error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
