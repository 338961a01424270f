package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ActiveAccount represents the wallet pairing persisted between runs
type ActiveAccount struct {
	Address     string    `json:"address"`
	PublicKey   string    `json:"public_key,omitempty"`
	Network     string    `json:"network"`
	PairingID   string    `json:"pairing_id,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

// AccountStore keeps one active-account file per network under a data directory
type AccountStore struct {
	dir string
}

// NewAccountStore creates the data directory if needed
func NewAccountStore(dir string) (*AccountStore, error) {
	if dir == "" {
		return nil, errors.New("data directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create app data directory: %w", err)
	}
	return &AccountStore{dir: dir}, nil
}

// Dir returns the data directory
func (s *AccountStore) Dir() string {
	return s.dir
}

// AccountFilePath returns the path to the active account file for a specific network
func (s *AccountStore) AccountFilePath(network string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_wallet.json", network))
}

// IsAccountFile reports whether path is the account file of network
func (s *AccountStore) IsAccountFile(path, network string) bool {
	return filepath.Clean(path) == filepath.Clean(s.AccountFilePath(network))
}

// SaveActiveAccount writes the account file through a temp file and rename
func (s *AccountStore) SaveActiveAccount(account ActiveAccount) error {
	if account.Network == "" || strings.ContainsAny(account.Network, `/\`) {
		return fmt.Errorf("invalid network name %q", account.Network)
	}

	jsonData, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal account data: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".wallet-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write account file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write account file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set account file mode: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.AccountFilePath(account.Network)); err != nil {
		return fmt.Errorf("failed to replace account file: %w", err)
	}

	return nil
}

// LoadActiveAccount gets the active account of network, or nil when none is stored
func (s *AccountStore) LoadActiveAccount(network string) (*ActiveAccount, error) {
	fileData, err := os.ReadFile(s.AccountFilePath(network))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account file: %w", err)
	}

	var account ActiveAccount
	if err := json.Unmarshal(fileData, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account data: %w", err)
	}
	if account.Address == "" {
		return nil, nil
	}

	return &account, nil
}

// ClearActiveAccount removes the account file; a missing file is not an error
func (s *AccountStore) ClearActiveAccount(network string) error {
	err := os.Remove(s.AccountFilePath(network))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove account file: %w", err)
	}
	return nil
}
