// Package credential keeps the IMAP password in the OS keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "imapdedup"

// ErrNotFound is returned when no password is stored for a username.
var ErrNotFound = errors.New("credential not found")

// open is replaced in tests with an in-memory keyring.
var open = openKeyring

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/imapdedup/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("imapdedup-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Key returns the keyring key for an IMAP account.
func Key(username string) string {
	return "imap-" + username
}

// Get retrieves the stored password for username.
func Get(username string) (string, error) {
	ring, err := open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(Key(username))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("password for %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting password for %q: %w", username, err)
	}

	return string(item.Data), nil
}

// Set stores the password for username.
func Set(username, password string) error {
	ring, err := open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         Key(username),
		Data:        []byte(password),
		Label:       "imapdedup " + username,
		Description: "IMAP password",
	})
	if err != nil {
		return fmt.Errorf("setting password for %q: %w", username, err)
	}

	return nil
}

// Delete removes the password for username. A missing entry is not an
// error.
func Delete(username string) error {
	ring, err := open()
	if err != nil {
		return err
	}

	err = ring.Remove(Key(username))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting password for %q: %w", username, err)
	}

	return nil
}

// Resolve returns password when set and the stored one otherwise.
func Resolve(username, password string) (string, error) {
	if password != "" {
		return password, nil
	}
	return Get(username)
}
