package email

// ParsedMessage holds the fields a ticket is built from.
type ParsedMessage struct {
	// Sender is the raw From header, empty when absent.
	Sender string

	// Subject is the decoded subject, or "No Subject".
	Subject string

	// Body is the plain-text content, empty when none was found.
	Body string
}

// IMAPConfig holds the IMAP server settings for the support inbox.
type IMAPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	Mailbox  string
}

// SMTPConfig holds the SMTP server settings for sending confirmations.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// SenderName is used as the From header: verbatim when it is an
	// address, otherwise as the display name of Username.
	SenderName string

	Subject string
}
