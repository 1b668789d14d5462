// Package ticketid assigns ticket identifiers.
//
// The first id handed out by a store is the creation date followed by the
// counter base, e.g. 20261015100000 on 15 October 2026. Every later id is
// the store's maximum id plus one, so ids keep counting across days rather
// than restarting at each date.
package ticketid

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nhle/support-desk/internal/model"
)

// counterBase is appended to the YYYYMMDD date of the first id.
const counterBase = "100000"

// Store is the subset of the ticket store the generator reads and seeds.
type Store interface {
	IsEmpty(ctx context.Context) (bool, error)
	MaxID(ctx context.Context) (int64, error)
	InsertTicket(ctx context.Context, t model.Ticket) error
}

// Generator derives the next ticket id from store state.
type Generator struct {
	store Store
	now   func() time.Time
}

// New returns a Generator over s. A nil now uses time.Now.
func New(s Store, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{store: s, now: now}
}

// Next returns the id for the next ticket. On an empty store it inserts the
// sentinel record and returns FirstID for today.
//
// Reading the store and inserting the ticket are separate calls; concurrent
// callers can be handed the same id. If the first ticket is never inserted
// the sentinel is the only record, so the following id is SentinelID+1
// rather than a date-derived one.
func (g *Generator) Next(ctx context.Context) (int64, error) {
	empty, err := g.store.IsEmpty(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking ticket store: %w", err)
	}

	if empty {
		first := FirstID(g.now())
		if err := g.store.InsertTicket(ctx, model.NewSentinel(first)); err != nil {
			return 0, fmt.Errorf("seeding sentinel ticket: %w", err)
		}
		return first, nil
	}

	maxID, err := g.store.MaxID(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading latest ticket id: %w", err)
	}
	return maxID + 1, nil
}

// FirstID returns int(YYYYMMDD + "100000") for the date of t.
func FirstID(t time.Time) int64 {
	id, err := strconv.ParseInt(t.Format("20060102")+counterBase, 10, 64)
	if err != nil {
		// The formatted date is always eight digits.
		panic(fmt.Sprintf("ticketid: formatting first id: %v", err))
	}
	return id
}
