package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/nhle/support-desk/internal/notify"
	"github.com/nhle/support-desk/internal/source"
)

const defaultConfirmationSubject = "Support Ticket Update"

// SMTPSender sends ticket confirmations as HTML mail over SMTP.
type SMTPSender struct {
	cfg      SMTPConfig
	renderer notify.Renderer
	logger   *slog.Logger

	// send delivers a composed message. It dials per message.
	send func(m *gomail.Message) error
}

var _ source.Notifier = (*SMTPSender)(nil)

// NewSMTPSender creates a sender that dials cfg.Host:cfg.Port, upgrading
// with STARTTLS when offered, and authenticates with the mailbox login.
func NewSMTPSender(cfg SMTPConfig, renderer notify.Renderer, logger *slog.Logger) *SMTPSender {
	if cfg.Subject == "" {
		cfg.Subject = defaultConfirmationSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPSender{
		cfg:      cfg,
		renderer: renderer,
		logger:   logger,
		send: func(m *gomail.Message) error {
			return dialer.DialAndSend(m)
		},
	}
}

// SendConfirmation renders the confirmation for ticketID and mails it to
// to, which is the raw From header of the original message.
func (s *SMTPSender) SendConfirmation(
	_ context.Context, to string, ticketID int64,
) error {
	html, err := s.renderer.Render(notify.Confirmation{
		ClientName:   to,
		TicketNumber: ticketID,
	})
	if err != nil {
		return &source.TemplateError{Path: templateName(s.renderer), Err: err}
	}

	m, err := s.compose(to, html)
	if err != nil {
		return &source.SendError{To: to, Err: err}
	}

	if err := s.send(m); err != nil {
		return &source.SendError{To: to, Err: err}
	}

	s.logger.Debug("confirmation sent", "to", to, "ticket_id", ticketID)
	return nil
}

// compose builds the confirmation message.
func (s *SMTPSender) compose(to, html string) (*gomail.Message, error) {
	// Display names may be encoded words in any charset go-message knows.
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient %q: %w", to, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.fromHeader(m))
	m.SetAddressHeader("To", rcpt.Address, rcpt.Name)
	m.SetHeader("Subject", s.cfg.Subject)
	m.SetHeader("Message-Id", fmt.Sprintf("<%s@%s>", uuid.NewString(), s.messageIDDomain()))
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/html", html)

	return m, nil
}

// fromHeader returns SenderName when it is an address, otherwise the login
// address with SenderName as its display name.
func (s *SMTPSender) fromHeader(m *gomail.Message) string {
	name := strings.TrimSpace(s.cfg.SenderName)
	switch {
	case name == "":
		return s.cfg.Username
	case strings.Contains(name, "@"):
		return name
	default:
		return m.FormatAddress(s.cfg.Username, name)
	}
}

func (s *SMTPSender) messageIDDomain() string {
	if i := strings.LastIndex(s.cfg.Username, "@"); i >= 0 && i < len(s.cfg.Username)-1 {
		return s.cfg.Username[i+1:]
	}
	if s.cfg.Host != "" {
		return s.cfg.Host
	}
	return "localhost"
}

// templateName identifies the renderer's template in errors.
func templateName(r notify.Renderer) string {
	if fr, ok := r.(*notify.FileRenderer); ok {
		return fr.Path
	}
	return "confirmation"
}
