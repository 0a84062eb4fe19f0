package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/salesbook/internal/common"
	"github.com/joseph-ayodele/salesbook/internal/entity"
	"github.com/joseph-ayodele/salesbook/internal/qr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory ReceiptGetter that counts lookups.
type fakeStore struct {
	mu       sync.Mutex
	receipts map[int64]*entity.Receipt
	err      error
	lookups  []int64
}

func newFakeStore(recs ...*entity.Receipt) *fakeStore {
	s := &fakeStore{receipts: map[int64]*entity.Receipt{}}
	for _, r := range recs {
		s.receipts[r.ID] = r
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*entity.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, id)
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.receipts[id]
	if !ok {
		return nil, common.NotFoundError("receipt not found")
	}
	return r, nil
}

func (s *fakeStore) calls() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.lookups...)
}

func receipt(id int64) *entity.Receipt {
	return &entity.Receipt{
		ID:        id,
		OwnerID:   "user-1",
		Customer:  "Ada",
		CreatedAt: time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC),
		Items: []entity.ReceiptItem{
			{ID: 1, ReceiptID: id, Item: "Bread", Unit: "2", Price: decimal.RequireFromString("3.50"), Total: decimal.RequireFromString("7.00")},
		},
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int64
		ok      bool
	}{
		{"json id", `{"id":42}`, 42, true},
		{"json id ignores other fields", `{"id":42,"customer":"x","total":9.99,"receiptId":7}`, 42, true},
		{"json receiptId fallback", `{"receiptId":7}`, 7, true},
		{"json null id falls back", `{"id":null,"receiptId":"7"}`, 7, true},
		{"json string id", `{"id":"42"}`, 42, true},
		{"json padded", "  {\"id\": 42}\n", 42, true},
		{"bare number", "42", 42, true},
		{"bare number with spaces", " 42 ", 42, true},
		{"json without key", `{"customer":"x"}`, 0, false},
		{"json fractional id", `{"id":4.5}`, 0, false},
		{"json zero id", `{"id":0}`, 0, false},
		{"json negative id", `{"id":-3}`, 0, false},
		{"json array", `[42]`, 0, false},
		{"json string literal", `"42"`, 0, false},
		{"json null", `null`, 0, false},
		{"broken json", `{"id":42`, 0, false},
		{"garbage", "hello", 0, false},
		{"empty", "", 0, false},
		{"whitespace", "   ", 0, false},
		{"overflow", "99999999999999999999", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.payload)
			if !tt.ok {
				require.ErrorIs(t, err, common.ErrMalformedPayload)
				require.Zero(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		store := newFakeStore(receipt(42))
		got, err := NewResolver(store, discardLogger()).Resolve(ctx, `{"id":42}`)
		require.NoError(t, err)
		require.Equal(t, int64(42), got.ID)
	})

	t.Run("missing is nil not error", func(t *testing.T) {
		store := newFakeStore()
		got, err := NewResolver(store, discardLogger()).Resolve(ctx, "42")
		require.NoError(t, err)
		require.Nil(t, got)
		require.Equal(t, []int64{42}, store.calls())
	})

	t.Run("unusable key skips storage", func(t *testing.T) {
		store := newFakeStore(receipt(42))
		for _, p := range []string{"", "  ", "abc", `{"name":"x"}`, `[1]`} {
			got, err := NewResolver(store, discardLogger()).Resolve(ctx, p)
			require.NoError(t, err)
			require.Nil(t, got)
		}
		require.Empty(t, store.calls())
	})

	t.Run("unusable key is logged as malformed", func(t *testing.T) {
		var logs bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logs, nil))

		got, err := NewResolver(newFakeStore(), logger).Resolve(ctx, `{"name":"x"}`)
		require.NoError(t, err)
		require.Nil(t, got)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
		require.Equal(t, "verify.resolve.malformed", entry["msg"])
		require.Contains(t, entry["error"], common.ErrMalformedPayload.Error())
	})

	t.Run("storage failure", func(t *testing.T) {
		store := newFakeStore()
		store.err = errors.New("connection refused")
		_, err := NewResolver(store, discardLogger()).Resolve(ctx, "42")
		require.Error(t, err)
	})
}

func TestResolverRoundTripsEncodedPayload(t *testing.T) {
	recs := []*entity.Receipt{receipt(1), receipt(42), receipt(9000000001)}
	store := newFakeStore(recs...)
	r := NewResolver(store, discardLogger())

	for _, want := range recs {
		payload, err := qr.EncodePayload(want)
		require.NoError(t, err)
		got, err := r.Resolve(context.Background(), payload)
		require.NoError(t, err)
		require.Same(t, want, got)
	}
}
