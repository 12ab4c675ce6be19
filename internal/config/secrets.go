package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service passwords are stored under.
const KeyringService = "gamesync"

// SSHAccount is the keyring account for a device's SSH password.
func SSHAccount(host string) string {
	return "ssh:" + host
}

// FTPAccount is the keyring account for a device's FTP password.
func FTPAccount(host string) string {
	return "ftp:" + host
}

// ResolveSecrets fills empty device passwords from the OS keyring. A missing
// entry is not an error; the connection then tries keys and the agent only.
func (cfg *Config) ResolveSecrets() error {
	if cfg.Location == nil || !cfg.Location.IsRemote {
		return nil
	}

	host := cfg.Location.Host

	if cfg.Password == "" {
		secret, err := lookup(SSHAccount(host))
		if err != nil {
			return err
		}

		cfg.Password = secret
	}

	if cfg.FTPPassword == "" && !cfg.NoFTP {
		secret, err := lookup(FTPAccount(host))
		if err != nil {
			return err
		}

		cfg.FTPPassword = secret
	}

	return nil
}

// SaveSecrets stores the passwords given on this run so later runs can omit them.
func (cfg *Config) SaveSecrets() error {
	if cfg.Location == nil || !cfg.Location.IsRemote {
		return nil
	}

	host := cfg.Location.Host

	if cfg.Password != "" {
		if err := StoreSecret(SSHAccount(host), cfg.Password); err != nil {
			return err
		}
	}

	if cfg.FTPPassword != "" {
		return StoreSecret(FTPAccount(host), cfg.FTPPassword)
	}

	return nil
}

// StoreSecret saves a password for account in the OS keyring.
func StoreSecret(account, secret string) error {
	if err := keyring.Set(KeyringService, account, secret); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", account, err)
	}

	return nil
}

func lookup(account string) (string, error) {
	secret, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to read %s from keyring: %w", account, err)
	}

	return secret, nil
}
