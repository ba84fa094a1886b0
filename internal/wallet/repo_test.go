package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mruizcampos/unimarket-backend/pkg/db/models"
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
	"github.com/mruizcampos/unimarket-backend/pkg/pagination"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	accounts := `
CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  balance NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	movements := `
CREATE TABLE IF NOT EXISTS movements (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  description TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(accounts).Error)
	require.NoError(t, db.Exec(movements).Error)
	return db
}

func newAccount(t *testing.T, db *gorm.DB, balance string) *models.Account {
	t.Helper()

	account := &models.Account{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Balance: decimal.RequireFromString(balance),
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func createMovement(t *testing.T, db *gorm.DB, account *models.Account, amount string, created time.Time) *models.Movement {
	t.Helper()

	movement := &models.Movement{
		ID:          uuid.New(),
		AccountID:   account.ID,
		Type:        enums.MovementTypeCredit,
		Amount:      decimal.RequireFromString(amount),
		Description: "test movement",
		CreatedAt:   created,
	}
	require.NoError(t, db.Create(movement).Error)
	return movement
}

func TestRepositoryFindAccountByUserID(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)

	account := newAccount(t, db, "42.50")

	found, err := repo.FindAccountByUserID(context.Background(), account.UserID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
	assert.True(t, found.Balance.Equal(decimal.RequireFromString("42.50")))

	_, err = repo.FindAccountByUserID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateBalance(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)

	account := newAccount(t, db, "10.00")
	require.NoError(t, repo.UpdateBalance(context.Background(), account.ID, decimal.RequireFromString("3.25")))

	found, err := repo.FindAccountByUserID(context.Background(), account.UserID)
	require.NoError(t, err)
	assert.True(t, found.Balance.Equal(decimal.RequireFromString("3.25")))
}

func TestRepositoryListMovements_pagination(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)

	account := newAccount(t, db, "0")
	other := newAccount(t, db, "0")

	now := time.Now().UTC()
	older := createMovement(t, db, account, "5.00", now.Add(-time.Hour))
	newer := createMovement(t, db, account, "7.00", now)
	createMovement(t, db, other, "99.00", now)

	first, err := repo.ListMovements(context.Background(), account.ID, 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, newer.ID, first[0].ID)

	second, err := repo.ListMovements(context.Background(), account.ID, 1, &pagination.Cursor{
		CreatedAt: first[0].CreatedAt,
		ID:        first[0].ID,
	}, nil)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, older.ID, second[0].ID)
	assert.True(t, second[0].Amount.Equal(decimal.RequireFromString("5.00")))
}

func TestRepositoryListMovements_typeFilter(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)

	account := newAccount(t, db, "0")
	now := time.Now().UTC()
	createMovement(t, db, account, "5.00", now.Add(-time.Minute))
	purchase := &models.Movement{
		ID:          uuid.New(),
		AccountID:   account.ID,
		Type:        enums.MovementTypePurchase,
		Amount:      decimal.RequireFromString("3.00"),
		Description: "order#1",
		CreatedAt:   now,
	}
	require.NoError(t, db.Create(purchase).Error)

	filter := enums.MovementTypePurchase
	rows, err := repo.ListMovements(context.Background(), account.ID, 10, nil, &filter)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, purchase.ID, rows[0].ID)
}
