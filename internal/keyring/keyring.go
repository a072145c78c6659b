// Package keyring keeps the remote DSN in the OS credential store so it never
// lands in the config file.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "cadence"
	dsnUser = "remote-dsn"
)

var (
	// ErrNotFound is returned when no DSN is stored.
	ErrNotFound = errors.New("remote DSN not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be reached.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// GetDSN returns the stored remote connection string.
func GetDSN() (string, error) {
	dsn, err := keyring.Get(service, dsnUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return dsn, nil
}

func SetDSN(dsn string) error {
	if dsn == "" {
		return errors.New("remote DSN cannot be empty")
	}
	if err := keyring.Set(service, dsnUser, dsn); err != nil {
		return fmt.Errorf("storing remote DSN in keyring: %w", err)
	}
	return nil
}

func DeleteDSN() error {
	if err := keyring.Delete(service, dsnUser); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting remote DSN from keyring: %w", err)
	}
	return nil
}

// IsAvailable probes the keyring with a read. An empty keyring counts as
// available.
func IsAvailable() bool {
	_, err := keyring.Get(service, "availability-probe")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
