package store

import (
	"context"
	"errors"

	"github.com/nhle/support-desk/internal/model"
)

// ErrNotFound is returned when a ticket id does not exist.
var ErrNotFound = errors.New("ticket not found")

// TicketFilter controls filtering, sorting, and pagination for ticket queries.
type TicketFilter struct {
	Status          *string
	Sender          *string
	IncludeSentinel bool
	SortDesc        bool
	Limit           int
	Offset          int
}

// Store defines the persistence interface for tickets.
//
// Operations are independent calls. Nothing spans reading the max id and
// inserting the next ticket, so two writers racing on the same store can
// collide on a primary key.
type Store interface {
	// IsEmpty reports whether the store holds no records at all,
	// the sentinel included.
	IsEmpty(ctx context.Context) (bool, error)

	// MaxID returns the largest id present, or 0 when empty.
	MaxID(ctx context.Context) (int64, error)

	InsertTicket(ctx context.Context, t model.Ticket) error
	GetTicket(ctx context.Context, id int64) (*model.Ticket, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]model.Ticket, error)
	CountTickets(ctx context.Context, filter TicketFilter) (int, error)
}
