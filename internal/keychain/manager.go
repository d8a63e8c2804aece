// Copyright (c) 2025 Retsync
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for retsync.
// This module manages all interactions with the OS keychain/credential store,
// providing a unified interface for storing and retrieving sensitive data:
// the RETS account credentials, the connection state, and the target
// database DSN.
//
// The package supports macOS Keychain and Windows Credential Manager, with
// thread-safe operations and proper error handling.
package keychain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "retsync"

// Keys used for storing secrets in the OS keychain.
const (
	KeyUsername  = "rets_username"
	KeyPassword  = "rets_password"
	KeyConnState = "conn_state"
	KeyDBDSN     = "db_dsn"
)

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend()
		if err == nil {
			return &Manager{backend: backend}, nil
		}
		// Fall through to keyring library if security command fails
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}

	return &Manager{
		ring: ring,
	}, nil
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}

	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only.
// Forces use of macOS Keychain or Windows Credential Manager - no file fallback.
func openRing() (keyring.Keyring, error) {
	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		return nil, errors.New("secure storage not supported on this OS (macOS/Windows only)")
	}

	var allowedBackends []keyring.BackendType
	if runtime.GOOS == "darwin" {
		// Try macOS Keychain first, then pass (password store) as fallback.
		// Pass requires 'pass' utility installed: brew install pass
		allowedBackends = []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.PassBackend,
		}
	} else if runtime.GOOS == "windows" {
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowedBackends,
		PassPrefix:      ServiceName,
	}
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. On macOS 26.0+, install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}

	return ring, nil
}

// SaveCredentials stores the RETS username/password pair in the OS keychain.
// This method is thread-safe.
func (m *Manager) SaveCredentials(username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		if err := m.backend.Set(KeyUsername, username); err != nil {
			return err
		}
		return m.backend.Set(KeyPassword, password)
	}

	if err := m.ring.Set(keyring.Item{Key: KeyUsername, Data: []byte(username)}); err != nil {
		return err
	}
	return m.ring.Set(keyring.Item{Key: KeyPassword, Data: []byte(password)})
}

// LoadCredentials retrieves the RETS username/password pair from the keychain.
// This method is thread-safe.
func (m *Manager) LoadCredentials() (username, password string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		username, err = m.backend.Get(KeyUsername)
		if err != nil {
			return "", "", err
		}
		password, err = m.backend.Get(KeyPassword)
		if err != nil {
			return "", "", err
		}
		return username, password, nil
	}

	userItem, err := m.ring.Get(KeyUsername)
	if err != nil {
		return "", "", err
	}
	passItem, err := m.ring.Get(KeyPassword)
	if err != nil {
		return "", "", err
	}
	return string(userItem.Data), string(passItem.Data), nil
}

// ClearCredentials removes the RETS credentials from the keychain.
// This method is thread-safe.
func (m *Manager) ClearCredentials() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		_ = m.backend.Delete(KeyUsername)
		_ = m.backend.Delete(KeyPassword)
		_ = m.backend.Delete(KeyConnState)
		return nil
	}

	_ = m.ring.Remove(KeyUsername)
	_ = m.ring.Remove(KeyPassword)
	_ = m.ring.Remove(KeyConnState)
	return nil
}

// SaveConnState stores serialized connection state in the keychain.
// This method is thread-safe.
func (m *Manager) SaveConnState(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Set(KeyConnState, string(data))
	}

	return m.ring.Set(keyring.Item{Key: KeyConnState, Data: data})
}

// LoadConnState retrieves serialized connection state from the keychain.
// This method is thread-safe.
func (m *Manager) LoadConnState() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		data, err := m.backend.Get(KeyConnState)
		if err != nil {
			return nil, err
		}
		return []byte(data), nil
	}

	it, err := m.ring.Get(KeyConnState)
	if err != nil {
		return nil, err
	}
	return it.Data, nil
}

// ClearConnState removes the stored connection state from the keychain.
// This method is thread-safe.
func (m *Manager) ClearConnState() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		_ = m.backend.Delete(KeyConnState)
		return nil
	}

	_ = m.ring.Remove(KeyConnState)
	return nil
}

// SaveDBDSN stores the sync target database DSN in the keychain.
// This method is thread-safe.
func (m *Manager) SaveDBDSN(dsn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Set(KeyDBDSN, dsn)
	}

	return m.ring.Set(keyring.Item{Key: KeyDBDSN, Data: []byte(dsn)})
}

// LoadDBDSN retrieves the sync target database DSN from the keychain.
// This method is thread-safe.
func (m *Manager) LoadDBDSN() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		return m.backend.Get(KeyDBDSN)
	}

	it, err := m.ring.Get(KeyDBDSN)
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

// ClearDB removes DB-related secrets from the keychain.
// This method is thread-safe.
func (m *Manager) ClearDB() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		_ = m.backend.Delete(KeyDBDSN)
		return nil
	}

	_ = m.ring.Remove(KeyDBDSN)
	return nil
}

// ClearAll removes all secrets from the keychain.
// This method is thread-safe and should be used with caution.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		_ = m.backend.Delete(KeyUsername)
		_ = m.backend.Delete(KeyPassword)
		_ = m.backend.Delete(KeyConnState)
		_ = m.backend.Delete(KeyDBDSN)
		return nil
	}

	_ = m.ring.Remove(KeyUsername)
	_ = m.ring.Remove(KeyPassword)
	_ = m.ring.Remove(KeyConnState)
	_ = m.ring.Remove(KeyDBDSN)
	return nil
}
