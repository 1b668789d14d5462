package email

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/support-desk/internal/model"
)

// ParseMessage extracts sender, subject and plain-text body from a raw
// RFC 5322 message. It never fails: anything it cannot read is left empty,
// except the subject which falls back to "No Subject".
func ParseMessage(raw []byte) ParsedMessage {
	parsed := ParsedMessage{Subject: model.NoSubject}

	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return parsed
	}

	header := mail.Header{Header: entity.Header}

	parsed.Sender = header.Get("From")

	if rawSubject := header.Get("Subject"); rawSubject != "" {
		subject, err := header.Subject()
		if err != nil || subject == "" {
			subject = rawSubject
		}
		parsed.Subject = subject
	}

	mediaType, _, _ := entity.Header.ContentType()
	if strings.HasPrefix(mediaType, "multipart/") {
		parsed.Body = firstPlainTextPart(entity)
	} else {
		body, _ := io.ReadAll(entity.Body)
		parsed.Body = string(body)
	}

	return parsed
}

// firstPlainTextPart walks the parts of a multipart entity in order,
// descending into nested multiparts, and returns the first text/plain part
// whose Content-Disposition does not mention "attachment".
func firstPlainTextPart(entity *message.Entity) string {
	mr := mail.NewReader(entity)
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return ""
		}
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return ""
		}
		if part == nil {
			continue
		}

		// The raw header is matched so a malformed disposition that still
		// says attachment is skipped.
		var h message.Header
		switch ph := part.Header.(type) {
		case *mail.InlineHeader:
			h = ph.Header
		case *mail.AttachmentHeader:
			h = ph.Header
		default:
			continue
		}

		contentType, _, _ := h.ContentType()
		if contentType != "text/plain" {
			continue
		}
		if isAttachment(h) {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return ""
		}
		return string(body)
	}
}

func isAttachment(h message.Header) bool {
	return strings.Contains(strings.ToLower(h.Get("Content-Disposition")), "attachment")
}
