package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{
		Driver: common.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "salesbook.db"),
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(discardLogger()) })
	require.NoError(t, Migrate(ctx, db, discardLogger()))
	return db
}

func sampleReceipt(owner, customer string, at time.Time) *entity.Receipt {
	return &entity.Receipt{
		OwnerID:   owner,
		Customer:  customer,
		CreatedAt: at,
		Items: []entity.ReceiptItem{
			{Item: "Bread", Unit: "2", Price: decimal.RequireFromString("3.50"), Total: decimal.RequireFromString("7.00")},
			{Item: "Milk", Unit: "", Price: decimal.RequireFromString("1.25"), Total: decimal.RequireFromString("1.25")},
		},
	}
}

func TestReceiptRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewReceiptRepository(openTestDB(t), discardLogger())

	footer := "Thanks!"
	in := sampleReceipt("user-1", "Ada", time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC))
	in.FooterMsg = &footer

	created, err := repo.Create(ctx, in)
	require.NoError(t, err)
	require.Positive(t, created.ID)
	require.Len(t, created.Items, 2)
	for _, it := range created.Items {
		require.Equal(t, created.ID, it.ReceiptID)
		require.Positive(t, it.ID)
	}

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", got.Customer)
	require.Equal(t, "user-1", got.OwnerID)
	require.NotNil(t, got.FooterMsg)
	require.Equal(t, footer, *got.FooterMsg)
	require.True(t, got.CreatedAt.Equal(in.CreatedAt))
	require.Len(t, got.Items, 2)
	require.Equal(t, "Bread", got.Items[0].Item)
	require.True(t, got.Total().Equal(decimal.RequireFromString("8.25")))
}

func TestReceiptRepository_GetByIDMissing(t *testing.T) {
	repo := NewReceiptRepository(openTestDB(t), discardLogger())

	_, err := repo.GetByID(context.Background(), 9999)
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrNotFound))
}

func TestReceiptRepository_ListByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewReceiptRepository(openTestDB(t), discardLogger())

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, tc := range []struct {
		owner string
		at    time.Time
	}{
		{"user-1", base.AddDate(0, -1, 5)},
		{"user-1", base.AddDate(0, 0, 2)},
		{"user-1", base.AddDate(0, 0, 20)},
		{"user-2", base.AddDate(0, 0, 3)},
	} {
		_, err := repo.Create(ctx, sampleReceipt(tc.owner, "c", tc.at))
		require.NoError(t, err, "receipt %d", i)
	}

	all, err := repo.ListByOwner(ctx, "user-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	require.True(t, all[1].CreatedAt.After(all[2].CreatedAt))
	for _, r := range all {
		require.Len(t, r.Items, 2)
	}

	from, to := base, base.AddDate(0, 1, 0)
	may, err := repo.ListByOwner(ctx, "user-1", &from, &to)
	require.NoError(t, err)
	require.Len(t, may, 2)

	none, err := repo.ListByOwner(ctx, "nobody", nil, nil)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestReceiptRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewReceiptRepository(openTestDB(t), discardLogger())

	created, err := repo.Create(ctx, sampleReceipt("user-1", "Ada", time.Now().UTC()))
	require.NoError(t, err)

	err = repo.Delete(ctx, created.ID, "user-2")
	require.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, repo.Delete(ctx, created.ID, "user-1"))

	_, err = repo.GetByID(ctx, created.ID)
	require.True(t, errors.Is(err, common.ErrNotFound))

	err = repo.Delete(ctx, created.ID, "user-1")
	require.True(t, errors.Is(err, common.ErrNotFound))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, HealthCheck(context.Background(), db, time.Second, discardLogger()))
}
