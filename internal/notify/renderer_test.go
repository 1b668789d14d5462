package notify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		c    Confirmation
		want string
	}{
		{
			name: "both tokens",
			tmpl: "<p>Hi [CLIENT_NAME], ticket #[TICKET_NUMBER]</p>",
			c:    Confirmation{ClientName: "alice@example.com", TicketNumber: 20261015100000},
			want: "<p>Hi alice@example.com, ticket #20261015100000</p>",
		},
		{
			name: "every occurrence",
			tmpl: "[TICKET_NUMBER] [TICKET_NUMBER] <!-- [CLIENT_NAME] -->",
			c:    Confirmation{ClientName: "bob", TicketNumber: 7},
			want: "7 7 <!-- bob -->",
		},
		{
			name: "client name replaced first",
			tmpl: "[CLIENT_NAME]",
			c:    Confirmation{ClientName: "x [TICKET_NUMBER]", TicketNumber: 9},
			want: "x 9",
		},
		{
			name: "no tokens",
			tmpl: "<p>static</p>",
			c:    Confirmation{ClientName: "a", TicketNumber: 1},
			want: "<p>static</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.tmpl, tt.c))
		})
	}
}

func TestFileRenderer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte("Dear [CLIENT_NAME]: [TICKET_NUMBER]"), 0o600))

	r := NewFileRenderer(path)

	got, err := r.Render(Confirmation{ClientName: "carol", TicketNumber: 42})
	require.NoError(t, err)
	assert.Equal(t, "Dear carol: 42", got)

	// The file is read at render time, so edits apply without a restart.
	require.NoError(t, os.WriteFile(path, []byte("v2 [TICKET_NUMBER]"), 0o600))
	got, err = r.Render(Confirmation{TicketNumber: 43})
	require.NoError(t, err)
	assert.Equal(t, "v2 43", got)
}

func TestFileRenderer_MissingFile(t *testing.T) {
	r := NewFileRenderer(filepath.Join(t.TempDir(), "missing.html"))

	_, err := r.Render(Confirmation{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
