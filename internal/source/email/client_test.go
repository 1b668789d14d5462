package email

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/support-desk/internal/source"
)

const (
	testUser     = "support@example.com"
	testPassword = "app-pass"
)

// newTestIMAP starts an in-memory IMAP server whose INBOX holds messages,
// and returns the address it listens on.
func newTestIMAP(t *testing.T, messages ...[]byte) (host, port string) {
	t.Helper()

	mem := imapmemserver.New()
	user := imapmemserver.NewUser(testUser, testPassword)
	require.NoError(t, user.Create("INBOX", nil))
	for _, raw := range messages {
		_, err := user.Append("INBOX", bytes.NewReader(raw), &imap.AppendOptions{})
		require.NoError(t, err)
	}
	mem.AddUser(user)

	server := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		InsecureAuth: true,
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
		},
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(func() { _ = server.Close() })

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

// newPlainIMAPClient returns a client that dials without TLS.
func newPlainIMAPClient(host, port, password, mailbox string) *IMAPClient {
	c := NewIMAPClient(IMAPConfig{
		Host:     host,
		Port:     port,
		Username: testUser,
		Password: password,
		Mailbox:  mailbox,
	}, nil)
	c.dial = func(addr string) (*imapclient.Client, error) {
		return imapclient.DialInsecure(addr, nil)
	}
	return c
}

func connect(t *testing.T, c *IMAPClient) source.Session {
	t.Helper()
	sess, err := c.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestIMAPClient_FetchMarksSeen(t *testing.T) {
	first := crlf("From: alice@example.com", "Subject: Help", "", "It's broken")
	second := crlf("From: bob@example.com", "Subject: Printer", "", "Jammed")
	host, port := newTestIMAP(t, first, second)
	client := newPlainIMAPClient(host, port, testPassword, "")
	ctx := context.Background()

	sess := connect(t, client)

	refs := sess.FetchUnseen(ctx)
	require.Len(t, refs, 2)

	raw, err := sess.FetchRaw(ctx, refs[0])
	require.NoError(t, err)
	got := ParseMessage(raw)
	assert.Equal(t, "alice@example.com", got.Sender)
	assert.Equal(t, "Help", got.Subject)
	assert.Equal(t, "It's broken", got.Body)

	assert.Equal(t, []source.MessageRef{refs[1]}, sess.FetchUnseen(ctx))

	raw, err = sess.FetchRaw(ctx, refs[1])
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", ParseMessage(raw).Sender)

	assert.Empty(t, sess.FetchUnseen(ctx))

	// Seen flags persist across sessions.
	assert.Empty(t, connect(t, client).FetchUnseen(ctx))
}

func TestIMAPClient_EmptyInbox(t *testing.T) {
	host, port := newTestIMAP(t)
	sess := connect(t, newPlainIMAPClient(host, port, testPassword, ""))

	assert.Empty(t, sess.FetchUnseen(context.Background()))
}

func TestIMAPClient_BadLogin(t *testing.T) {
	host, port := newTestIMAP(t)
	client := newPlainIMAPClient(host, port, "wrong", "")

	sess, err := client.Connect(context.Background())

	assert.Nil(t, sess)
	var authErr *source.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, testUser, authErr.Username)
}

func TestIMAPClient_MissingMailbox(t *testing.T) {
	host, port := newTestIMAP(t, crlf("Subject: x", "", "y"))
	sess := connect(t, newPlainIMAPClient(host, port, testPassword, "Archive"))

	assert.Nil(t, sess.FetchUnseen(context.Background()))
}

func TestIMAPClient_FetchUnknownUID(t *testing.T) {
	host, port := newTestIMAP(t, crlf("Subject: x", "", "y"))
	sess := connect(t, newPlainIMAPClient(host, port, testPassword, ""))
	ctx := context.Background()

	require.Len(t, sess.FetchUnseen(ctx), 1)

	_, err := sess.FetchRaw(ctx, source.MessageRef(999))
	assert.True(t, source.IsFetchError(err))
}

func TestIMAPClient_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	_, err = newPlainIMAPClient(host, port, testPassword, "").Connect(context.Background())

	require.Error(t, err)
	assert.False(t, source.IsAuthError(err))
}
