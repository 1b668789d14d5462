package ticketid_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/support-desk/internal/model"
	"github.com/nhle/support-desk/internal/ticketid"
	"github.com/nhle/support-desk/tests/testutil"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFirstID(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want int64
	}{
		{
			name: "two digit month and day",
			at:   time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC),
			want: 20261015100000,
		},
		{
			name: "zero padded month and day",
			at:   time.Date(2027, 1, 5, 0, 0, 0, 0, time.UTC),
			want: 20270105100000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ticketid.FirstID(tt.at))
		})
	}
}

func TestGenerator_EmptyStoreSeedsSentinel(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	today := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	gen := ticketid.New(s, fixedClock(today))

	id, err := gen.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20261015100000), id)

	sentinel, err := s.GetTicket(ctx, model.SentinelID)
	require.NoError(t, err)
	assert.Equal(t, id, sentinel.TicketID)
	assert.Empty(t, sentinel.Sender)
}

func TestGenerator_StrictlyIncreasing(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	today := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	gen := ticketid.New(s, fixedClock(today))

	var prev int64
	for i := 0; i < 5; i++ {
		id, err := gen.Next(ctx)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, ticketid.FirstID(today), id)
		} else {
			assert.Greater(t, id, prev)
			assert.Equal(t, prev+1, id)
		}
		require.NoError(t, s.InsertTicket(ctx, model.NewTicket(id, "x@example.com", "s", "m", today)))
		prev = id
	}
}

func TestGenerator_KeepsCountingAcrossDays(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	clock := day

	gen := ticketid.New(s, func() time.Time { return clock })

	first, err := gen.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, s.InsertTicket(ctx, model.NewTicket(first, "", "", "", day)))

	clock = day.AddDate(0, 0, 1)
	next, err := gen.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+1, next)
}

// Next and InsertTicket are separate calls, so two generators reading the
// same state are handed the same id. The poller never runs concurrently.
func TestGenerator_ReadThenInsertIsNotAtomic(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	today := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	gen := ticketid.New(s, fixedClock(today))
	first, err := gen.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, s.InsertTicket(ctx, model.NewTicket(first, "", "", "", today)))

	a, err := gen.Next(ctx)
	require.NoError(t, err)
	b, err := gen.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	require.NoError(t, s.InsertTicket(ctx, model.NewTicket(a, "", "", "", today)))
	assert.Error(t, s.InsertTicket(ctx, model.NewTicket(b, "", "", "", today)))
}

func TestGenerator_FirstInsertLostFallsBackToSentinelID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	today := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	gen := ticketid.New(s, fixedClock(today))

	first, err := gen.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, ticketid.FirstID(today), first)

	// The ticket for first is never stored.
	next, err := gen.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(model.SentinelID+1), next)
}

type failingStore struct {
	emptyErr  error
	maxErr    error
	insertErr error
	empty     bool
}

func (f *failingStore) IsEmpty(context.Context) (bool, error) { return f.empty, f.emptyErr }
func (f *failingStore) MaxID(context.Context) (int64, error)  { return 0, f.maxErr }
func (f *failingStore) InsertTicket(context.Context, model.Ticket) error {
	return f.insertErr
}

func TestGenerator_StoreErrors(t *testing.T) {
	boom := errors.New("boom")
	ctx := context.Background()

	tests := []struct {
		name  string
		store *failingStore
	}{
		{name: "is empty fails", store: &failingStore{emptyErr: boom}},
		{name: "sentinel insert fails", store: &failingStore{empty: true, insertErr: boom}},
		{name: "max id fails", store: &failingStore{maxErr: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ticketid.New(tt.store, nil).Next(ctx)
			assert.ErrorIs(t, err, boom)
		})
	}
}
