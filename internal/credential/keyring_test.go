package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) (*Vault, *keyring.ArrayKeyring) {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	return NewWithKeyring(ring), ring
}

func TestVault_SetAndGet(t *testing.T) {
	v, ring := newTestVault(t)

	require.NoError(t, v.SetAppPassword("abcd efgh ijkl mnop\n"))

	got, err := v.AppPassword()
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijklmnop", got)

	item, err := ring.Get(PasswordKey)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijklmnop", string(item.Data))
}

func TestVault_NoPassword(t *testing.T) {
	v, _ := newTestVault(t)

	_, err := v.AppPassword()
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestVault_RejectsBlankPassword(t *testing.T) {
	v, _ := newTestVault(t)

	assert.Error(t, v.SetAppPassword("   "))

	_, err := v.AppPassword()
	assert.ErrorIs(t, err, ErrNoPassword)
}

func TestVault_Delete(t *testing.T) {
	v, _ := newTestVault(t)
	require.NoError(t, v.SetAppPassword("secret"))

	require.NoError(t, v.DeleteAppPassword())
	_, err := v.AppPassword()
	assert.ErrorIs(t, err, ErrNoPassword)

	assert.NoError(t, v.DeleteAppPassword())
}

func TestVault_OpenError(t *testing.T) {
	locked := errors.New("keyring locked")
	v := &Vault{open: func() (keyring.Keyring, error) { return nil, locked }}

	_, err := v.AppPassword()
	assert.ErrorIs(t, err, locked)
	assert.ErrorIs(t, v.SetAppPassword("secret"), locked)
	assert.ErrorIs(t, v.DeleteAppPassword(), locked)
}

func TestNormalizeAppPassword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abcdefgh", "abcdefgh"},
		{"abcd efgh", "abcdefgh"},
		{" abcd\tefgh\r\n", "abcdefgh"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAppPassword(tt.in), "input %q", tt.in)
	}
}
