package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/support-desk/internal/source"
)

const defaultMailbox = "INBOX"

// IMAPClient wraps go-imap v2 for reading the support inbox.
type IMAPClient struct {
	cfg    IMAPConfig
	logger *slog.Logger

	// dial opens the connection; tests replace it with a plaintext dial.
	dial func(addr string) (*imapclient.Client, error)
}

var _ source.Mailbox = (*IMAPClient)(nil)

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(cfg IMAPConfig, logger *slog.Logger) *IMAPClient {
	if cfg.Mailbox == "" {
		cfg.Mailbox = defaultMailbox
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &IMAPClient{cfg: cfg, logger: logger}
	c.dial = c.dialTLS
	return c
}

// dialTLS uses implicit TLS when configured, STARTTLS otherwise.
func (c *IMAPClient) dialTLS(addr string) (*imapclient.Client, error) {
	if c.cfg.TLS {
		return imapclient.DialTLS(addr, nil)
	}
	return imapclient.DialStartTLS(addr, nil)
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns a session on it. The caller must Close the session.
func (c *IMAPClient) Connect(_ context.Context) (source.Session, error) {
	addr := c.cfg.Host + ":" + c.cfg.Port

	client, err := c.dial(addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &source.AuthError{Username: c.cfg.Username, Err: err}
	}

	return &imapSession{
		client:  client,
		mailbox: c.cfg.Mailbox,
		logger:  c.logger,
	}, nil
}

// imapSession is a logged-in IMAP connection.
type imapSession struct {
	client  *imapclient.Client
	mailbox string
	logger  *slog.Logger
}

// FetchUnseen selects the mailbox and searches for UIDs without \Seen.
func (s *imapSession) FetchUnseen(_ context.Context) []source.MessageRef {
	if _, err := s.client.Select(s.mailbox, nil).Wait(); err != nil {
		s.logger.Error("failed to open mailbox",
			"error", &source.SelectError{Mailbox: s.mailbox, Err: err})
		return nil
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	searchData, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		s.logger.Error("failed to search unseen messages",
			"mailbox", s.mailbox, "error", err)
		return nil
	}

	uids := searchData.AllUIDs()
	refs := make([]source.MessageRef, 0, len(uids))
	for _, uid := range uids {
		refs = append(refs, source.MessageRef(uid))
	}
	return refs
}

// FetchRaw fetches BODY[] for ref. The section is not peeked, so the server
// sets \Seen and later polls skip the message.
func (s *imapSession) FetchRaw(
	_ context.Context, ref source.MessageRef,
) ([]byte, error) {
	uidSet := imap.UIDSetNum(imap.UID(ref))

	bodySection := &imap.FetchItemBodySection{}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := s.client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, &source.FetchError{Ref: ref, Err: fmt.Errorf("message not found")}
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, &source.FetchError{Ref: ref, Err: err}
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, &source.FetchError{Ref: ref, Err: fmt.Errorf("empty body section")}
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, &source.FetchError{Ref: ref, Err: err}
	}

	return raw, nil
}

// Close logs out of the server.
func (s *imapSession) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		_ = s.client.Close()
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}
