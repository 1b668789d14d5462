package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/support-desk/internal/model"
	"github.com/nhle/support-desk/internal/source"
	"github.com/nhle/support-desk/internal/source/email"
)

// DefaultInterval is the pause between poll cycles.
const DefaultInterval = 500 * time.Millisecond

// Clock supplies the current time and the pause between cycles.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until ctx is done, returning ctx.Err() in
	// the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep waits for d or ctx cancellation.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IDGenerator hands out ticket ids.
type IDGenerator interface {
	Next(ctx context.Context) (int64, error)
}

// TicketWriter persists new tickets.
type TicketWriter interface {
	InsertTicket(ctx context.Context, t model.Ticket) error
}

// Options tunes a Poller. Zero values select the defaults.
type Options struct {
	Interval time.Duration

	// MaxCycles stops Run after that many cycles; 0 runs until the
	// context is cancelled.
	MaxCycles int

	Clock  Clock
	Logger *slog.Logger
}

// CycleResult summarises one poll cycle.
type CycleResult struct {
	Unseen   int
	Created  int
	Notified int
	Skipped  int

	// Err is set when the cycle was aborted before listing messages.
	Err error
}

// Poller turns unseen inbox messages into tickets, one cycle at a time.
// Cycles and the messages within them are processed strictly in sequence.
type Poller struct {
	mailbox  source.Mailbox
	tickets  TicketWriter
	ids      IDGenerator
	notifier source.Notifier

	interval  time.Duration
	maxCycles int
	clock     Clock
	logger    *slog.Logger
}

// New creates a Poller over the given collaborators.
func New(
	mailbox source.Mailbox,
	tickets TicketWriter,
	ids IDGenerator,
	notifier source.Notifier,
	opts Options,
) *Poller {
	p := &Poller{
		mailbox:   mailbox,
		tickets:   tickets,
		ids:       ids,
		notifier:  notifier,
		interval:  opts.Interval,
		maxCycles: opts.MaxCycles,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.clock == nil {
		p.clock = SystemClock{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run polls, sleeps for the interval, and repeats. It returns nil after
// MaxCycles cycles, or ctx.Err() once the context is cancelled. Failures
// inside a cycle are logged and never end the loop.
func (p *Poller) Run(ctx context.Context) error {
	for cycle := 1; ; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		p.PollOnce(ctx)

		if p.maxCycles > 0 && cycle >= p.maxCycles {
			return nil
		}

		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return err
		}
	}
}

// PollOnce runs a single connect, list, process cycle.
func (p *Poller) PollOnce(ctx context.Context) CycleResult {
	log := p.logger.With("cycle", uuid.NewString())

	var res CycleResult

	sess, err := p.mailbox.Connect(ctx)
	if err != nil {
		log.Error("failed to connect to mail service", "error", err)
		res.Err = err
		return res
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("failed to close mail session", "error", err)
		}
	}()

	refs := sess.FetchUnseen(ctx)
	res.Unseen = len(refs)
	if len(refs) == 0 {
		log.Info("no new threads found")
		return res
	}

	for i, ref := range refs {
		// Messages already fetched are marked seen; stop only between them.
		if ctx.Err() != nil {
			res.Skipped += len(refs) - i
			break
		}
		p.processMessage(ctx, log, sess, ref, &res)
	}

	log.Info("poll cycle finished",
		"unseen", res.Unseen,
		"created", res.Created,
		"notified", res.Notified,
		"skipped", res.Skipped,
	)
	return res
}

// processMessage fetches, parses, persists and acknowledges one message.
// Any failure abandons the message.
func (p *Poller) processMessage(
	ctx context.Context,
	log *slog.Logger,
	sess source.Session,
	ref source.MessageRef,
	res *CycleResult,
) {
	log = log.With("uid", uint32(ref))

	raw, err := sess.FetchRaw(ctx, ref)
	if err != nil {
		log.Error("failed to fetch message", "error", err)
		res.Skipped++
		return
	}

	parsed := email.ParseMessage(raw)

	id, err := p.ids.Next(ctx)
	if err != nil {
		log.Error("failed to generate ticket id", "error", err)
		res.Skipped++
		return
	}

	ticket := model.NewTicket(id, parsed.Sender, parsed.Subject, parsed.Body, p.clock.Now())
	if err := p.tickets.InsertTicket(ctx, ticket); err != nil {
		log.Error("failed to create ticket", "ticket_id", id, "error", err)
		res.Skipped++
		return
	}
	res.Created++
	log.Info("ticket created", "ticket_id", id, "sender", ticket.Sender)

	if parsed.Sender == "" {
		log.Warn("sender not defined, confirmation not sent", "ticket_id", id)
		return
	}

	if err := p.notifier.SendConfirmation(ctx, parsed.Sender, id); err != nil {
		log.Error("failed to send confirmation",
			"ticket_id", id, "to", parsed.Sender, "error", err)
		return
	}
	res.Notified++
}
