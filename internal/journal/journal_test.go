package journal

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"paperdash/internal/db"
	"paperdash/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_NewestFirst(t *testing.T) {
	s := NewMemoryStore(5)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, Entry{Action: types.ActionCancelOrder, Message: fmt.Sprint(i)}))
	}

	got, err := s.Recent(ctx, 2)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Message)
	assert.Equal(t, "1", got[1].Message)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].At.IsZero())
	assert.Greater(t, got[0].ID, got[1].ID)
}

func TestMemoryStore_DropsOldest(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		require.NoError(t, s.Record(ctx, Entry{Message: fmt.Sprint(i)}))
	}

	got, err := s.Recent(ctx, 0)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"6", "5", "4"}, []string{got[0].Message, got[1].Message, got[2].Message})
}

func TestMemoryStore_Empty(t *testing.T) {
	got, err := NewMemoryStore(0).Recent(context.Background(), 10)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStamp_KeepsPresetFields(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	e := stamp(Entry{ID: "fixed", At: at})

	assert.Equal(t, "fixed", e.ID)
	assert.Equal(t, at, e.At)
}

func TestPGStore(t *testing.T) {
	dsn := os.Getenv("JOURNAL_TEST_DSN")
	if dsn == "" {
		t.Skip("JOURNAL_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	s, err := NewPGStore(ctx, pool)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM action_journal`)
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.Record(ctx, Entry{At: base, Action: types.ActionSubmitOrder, Symbol: "AAPL", Side: "buy", Qty: "1", Message: "Order placed successfully: Buy 1 AAPL"}))
	require.NoError(t, s.Record(ctx, Entry{At: base.Add(time.Second), Action: types.ActionCancelAllOrders, Message: "Error cancelling orders: boom", Failed: true}))

	got, err := s.Recent(ctx, 10)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.ActionCancelAllOrders, got[0].Action)
	assert.True(t, got[0].Failed)
	assert.Equal(t, "AAPL", got[1].Symbol)
	assert.True(t, got[1].At.Equal(base))
}
