package model

import "time"

// Ticket status constants. Only StatusOpen is produced by the poller.
const (
	StatusOpen = "open"
)

// Placeholder values stored when a message lacks the corresponding field.
const (
	UnknownSender = "Unknown Sender"
	NoSubject     = "No Subject"
	NoContent     = "No Content"
)

// SentinelID is the id of the synthetic record that seeds id generation on
// an empty store.
const SentinelID int64 = 10000000000000

// Ticket is a support request derived from a single inbound email.
type Ticket struct {
	// ID is the primary key. Ids are strictly increasing.
	ID int64 `json:"id" db:"id"`

	// TicketID mirrors ID for real tickets. On the sentinel it holds the
	// first id handed out.
	TicketID int64 `json:"ticket_id" db:"ticket_id"`

	// Sender is the raw From header of the originating message.
	Sender string `json:"sender" db:"sender"`

	Subject string `json:"subject" db:"subject"`

	// Message is the plain-text body.
	Message string `json:"message" db:"message"`

	Status string `json:"status" db:"status"`

	// CreatedAt and UpdatedAt are both set at creation; nil on the sentinel.
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// IsSentinel reports whether t is the id-seeding sentinel record.
func (t Ticket) IsSentinel() bool {
	return t.ID == SentinelID
}

// NewTicket builds an open ticket with defaults applied to empty fields.
func NewTicket(id int64, sender, subject, message string, now time.Time) Ticket {
	if sender == "" {
		sender = UnknownSender
	}
	if subject == "" {
		subject = NoSubject
	}
	if message == "" {
		message = NoContent
	}
	created := now
	updated := now
	return Ticket{
		ID:        id,
		TicketID:  id,
		Sender:    sender,
		Subject:   subject,
		Message:   message,
		Status:    StatusOpen,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

// NewSentinel builds the seed record for an empty store. firstID is the id
// that will be assigned to the first real ticket.
func NewSentinel(firstID int64) Ticket {
	return Ticket{
		ID:       SentinelID,
		TicketID: firstID,
	}
}
