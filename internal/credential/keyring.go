// Package credential keeps the mailbox app password in the system keyring,
// so it does not have to live in .env or the config file.
package credential

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/99designs/keyring"
)

const serviceName = "supportdesk"

// PasswordKey is the keyring entry consulted when APP_PASS is unset.
const PasswordKey = "app_pass"

// ErrNoPassword is returned when no app password is stored.
var ErrNoPassword = errors.New("no app password stored")

// Vault reads and writes secrets under the supportdesk keyring service.
type Vault struct {
	open func() (keyring.Keyring, error)
}

// New returns a Vault backed by the platform keyring.
func New() *Vault {
	return &Vault{open: openSystemKeyring}
}

// NewWithKeyring returns a Vault over an already opened keyring.
func NewWithKeyring(ring keyring.Keyring) *Vault {
	return &Vault{open: func() (keyring.Keyring, error) { return ring, nil }}
}

func openSystemKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/supportdesk/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("supportdesk-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// AppPassword returns the stored mailbox app password, or ErrNoPassword.
func (v *Vault) AppPassword() (string, error) {
	ring, err := v.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(PasswordKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNoPassword
	}
	if err != nil {
		return "", fmt.Errorf("reading app password: %w", err)
	}

	pass := NormalizeAppPassword(string(item.Data))
	if pass == "" {
		return "", ErrNoPassword
	}
	return pass, nil
}

// SetAppPassword normalises pass and stores it.
func (v *Vault) SetAppPassword(pass string) error {
	pass = NormalizeAppPassword(pass)
	if pass == "" {
		return errors.New("app password is empty")
	}

	ring, err := v.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         PasswordKey,
		Data:        []byte(pass),
		Label:       "supportdesk mailbox app password",
		Description: "IMAP/SMTP app password used when APP_PASS is unset",
	})
	if err != nil {
		return fmt.Errorf("storing app password: %w", err)
	}
	return nil
}

// DeleteAppPassword removes the stored app password. Deleting a password
// that was never stored is not an error.
func (v *Vault) DeleteAppPassword() error {
	ring, err := v.open()
	if err != nil {
		return err
	}

	if err := ring.Remove(PasswordKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting app password: %w", err)
	}
	return nil
}

// NormalizeAppPassword drops all whitespace. Providers display app
// passwords in space separated groups ("abcd efgh ijkl mnop") that are
// often pasted verbatim.
func NormalizeAppPassword(pass string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, pass)
}
