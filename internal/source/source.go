package source

import (
	"context"
	"errors"
	"fmt"
)

// MessageRef identifies a message within the selected mailbox (an IMAP UID).
type MessageRef uint32

// AuthError indicates that logging in to the mail service failed.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error for %s: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// SelectError indicates that the inbox could not be opened.
type SelectError struct {
	Mailbox string
	Err     error
}

func (e *SelectError) Error() string {
	return fmt.Sprintf("selecting %s: %v", e.Mailbox, e.Err)
}

func (e *SelectError) Unwrap() error { return e.Err }

// FetchError indicates that a message could not be retrieved.
type FetchError struct {
	Ref MessageRef
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching message %d: %v", e.Ref, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err (or any error in its chain) is a FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// SendError indicates that the confirmation could not be delivered to the
// submission server.
type SendError struct {
	To  string
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sending confirmation to %s: %v", e.To, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// IsSendError reports whether err (or any error in its chain) is a SendError.
func IsSendError(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr)
}

// TemplateError indicates that the confirmation template could not be read
// or rendered.
type TemplateError struct {
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("rendering template %s: %v", e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// IsTemplateError reports whether err (or any error in its chain) is a
// TemplateError.
func IsTemplateError(err error) bool {
	var tmplErr *TemplateError
	return errors.As(err, &tmplErr)
}

// Mailbox opens authenticated sessions against the inbound mail service.
type Mailbox interface {
	// Connect establishes a secure session and logs in. A rejected login
	// is reported as *AuthError.
	Connect(ctx context.Context) (Session, error)
}

// Session is one authenticated connection to the inbox.
type Session interface {
	// FetchUnseen returns the messages not yet marked seen, in server
	// order. A select or search failure yields an empty result.
	FetchUnseen(ctx context.Context) []MessageRef

	// FetchRaw returns the full RFC 5322 message. Fetching marks the
	// message seen on the server.
	FetchRaw(ctx context.Context, ref MessageRef) ([]byte, error)

	// Close logs out and releases the connection.
	Close() error
}

// Notifier sends the confirmation email for a newly created ticket.
type Notifier interface {
	SendConfirmation(ctx context.Context, to string, ticketID int64) error
}
