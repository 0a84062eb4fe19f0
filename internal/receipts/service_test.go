package receipts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{
		Driver: common.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "receipts.db"),
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(discardLogger()) })
	require.NoError(t, repository.Migrate(ctx, db, discardLogger()))
	return NewService(repository.NewReceiptRepository(db, discardLogger()), discardLogger())
}

func TestCreateReceiptComputesTotals(t *testing.T) {
	svc := newTestService(t)
	body := []byte(`{
		"customer": "Ada",
		"footerMsg": "Thank you",
		"items": [
			{"item": "Bread", "unit": "3", "price": 2.50, "total": 999},
			{"item": "Delivery", "unit": "trip", "price": "4.00"}
		]
	}`)

	rec, err := svc.CreateReceipt(context.Background(), "user-1", body)
	require.NoError(t, err)
	require.Positive(t, rec.ID)
	require.Equal(t, "user-1", rec.OwnerID)
	require.Len(t, rec.Items, 2)
	require.True(t, rec.Items[0].Total.Equal(decimal.RequireFromString("7.50")))
	require.True(t, rec.Items[1].Total.Equal(decimal.RequireFromString("4.00")))
	require.True(t, rec.Total().Equal(decimal.RequireFromString("11.50")))

	got, err := svc.GetReceipt(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, "Thank you", *got.FooterMsg)
}

func TestCreateReceiptRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	tests := []struct {
		name  string
		owner string
		body  string
		want  error
	}{
		{"no owner", "", `{"customer":"a","items":[{"item":"x","price":1}]}`, common.ErrUnauthorized},
		{"not json", "u", `nope`, common.ErrInvalidInput},
		{"missing customer", "u", `{"items":[{"item":"x","price":1}]}`, common.ErrInvalidInput},
		{"blank customer", "u", `{"customer":"   ","items":[{"item":"x","price":1}]}`, common.ErrValidation},
		{"no items", "u", `{"customer":"a","items":[]}`, common.ErrInvalidInput},
		{"negative price", "u", `{"customer":"a","items":[{"item":"x","price":-1}]}`, common.ErrInvalidInput},
		{"bad price string", "u", `{"customer":"a","items":[{"item":"x","price":"1.234"}]}`, common.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateReceipt(context.Background(), tt.owner, []byte(tt.body))
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestListAndDeleteReceipts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	body := []byte(`{"customer":"a","items":[{"item":"x","price":1}]}`)

	first, err := svc.CreateReceipt(ctx, "user-1", body)
	require.NoError(t, err)
	_, err = svc.CreateReceipt(ctx, "user-2", body)
	require.NoError(t, err)

	list, err := svc.ListReceipts(ctx, ListReceiptsRequest{OwnerID: "user-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	today := time.Now().UTC()
	list, err = svc.ListReceipts(ctx, ListReceiptsRequest{OwnerID: "user-1", FromDate: &today, ToDate: &today})
	require.NoError(t, err)
	require.Len(t, list, 1)

	tomorrow := today.AddDate(0, 0, 1)
	_, err = svc.ListReceipts(ctx, ListReceiptsRequest{OwnerID: "user-1", FromDate: &tomorrow, ToDate: &today})
	require.True(t, errors.Is(err, common.ErrInvalidInput))

	require.True(t, errors.Is(svc.DeleteReceipt(ctx, first.ID, "user-2"), common.ErrNotFound))
	require.NoError(t, svc.DeleteReceipt(ctx, first.ID, "user-1"))

	list, err = svc.ListReceipts(ctx, ListReceiptsRequest{OwnerID: "user-1"})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestMonthlySummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	clock := time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	_, err := svc.CreateReceipt(ctx, "user-1", []byte(`{"customer":"march","items":[{"item":"x","price":"10.00"}]}`))
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		clock = time.Date(2024, 5, 1+i, 9, 0, 0, 0, time.UTC)
		_, err := svc.CreateReceipt(ctx, "user-1", []byte(`{"customer":"may","items":[{"item":"x","unit":"2","price":"1.25"}]}`))
		require.NoError(t, err)
	}

	sum, err := svc.MonthlySummary(ctx, "user-1", 5, 2024)
	require.NoError(t, err)
	require.Equal(t, 5, sum.Month)
	require.Equal(t, 6, sum.ReceiptCount)
	require.Len(t, sum.MonthReceipts, 6)
	require.Len(t, sum.RecentReceipts, 5)
	require.True(t, sum.MonthRevenue.Equal(decimal.RequireFromString("15")))
	require.True(t, sum.TotalRevenue.Equal(decimal.RequireFromString("25")))
	require.Equal(t, 6, sum.RecentReceipts[0].CreatedAt.Day())

	// zero month/year means the current month
	sum, err = svc.MonthlySummary(ctx, "user-1", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 5, sum.Month)
	require.Equal(t, 2024, sum.Year)

	_, err = svc.MonthlySummary(ctx, "user-1", 13, 2024)
	require.True(t, errors.Is(err, common.ErrInvalidInput))
}
