// Package notify renders the confirmation email sent for new tickets.
package notify

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Placeholder tokens replaced in the confirmation template.
const (
	ClientNameToken   = "[CLIENT_NAME]"
	TicketNumberToken = "[TICKET_NUMBER]"
)

// Confirmation is the data a confirmation email is rendered from.
type Confirmation struct {
	ClientName   string
	TicketNumber int64
}

// Renderer produces the HTML body of a confirmation email.
type Renderer interface {
	Render(c Confirmation) (string, error)
}

// FileRenderer reads an HTML template from disk on every render and
// substitutes the placeholder tokens literally. Every occurrence is
// replaced, wherever it appears in the file.
type FileRenderer struct {
	Path string
}

// NewFileRenderer returns a renderer for the template at path.
func NewFileRenderer(path string) *FileRenderer {
	return &FileRenderer{Path: path}
}

// Render reads the template and fills in c.
func (r *FileRenderer) Render(c Confirmation) (string, error) {
	content, err := os.ReadFile(r.Path)
	if err != nil {
		return "", fmt.Errorf("reading template: %w", err)
	}
	return Substitute(string(content), c), nil
}

// Substitute replaces the client name token, then the ticket number token.
// The order matters: a client name containing the ticket number token is
// itself substituted.
func Substitute(tmpl string, c Confirmation) string {
	out := strings.ReplaceAll(tmpl, ClientNameToken, c.ClientName)
	return strings.ReplaceAll(out, TicketNumberToken, strconv.FormatInt(c.TicketNumber, 10))
}
