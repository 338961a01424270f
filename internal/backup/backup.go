package backup

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelsos/tezos-dapp/internal/logger"
	"github.com/kelsos/tezos-dapp/internal/storage"
	"github.com/kelsos/tezos-dapp/internal/tezos"
)

const accountFileSuffix = "_wallet.json"

// maxEntrySize bounds a restored account file
const maxEntrySize = 64 << 10

// GetDefaultBackupDir returns the default backup directory
func GetDefaultBackupDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	backupDir := filepath.Join(homeDir, "backups")
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	return backupDir, nil
}

// CreateBackup zips the paired wallet accounts of every network
func CreateBackup(store *storage.AccountStore, backupDir string) (string, error) {
	if backupDir == "" {
		var err error
		backupDir, err = GetDefaultBackupDir()
		if err != nil {
			return "", fmt.Errorf("failed to get default backup directory: %w", err)
		}
	} else if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	backupFile := filepath.Join(backupDir, fmt.Sprintf("tezos-dapp_backup_%s.zip", timestamp))

	zipFile, err := os.OpenFile(backupFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	dataDir := store.Dir()
	err = filepath.Walk(dataDir, func(path string, info os.FileInfo, err error) error {
		return AddToZip(path, info, err, dataDir, zipWriter)
	})
	if err != nil {
		zipWriter.Close()
		os.Remove(backupFile)
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	if err := zipWriter.Close(); err != nil {
		os.Remove(backupFile)
		return "", fmt.Errorf("failed to finish backup: %w", err)
	}

	logger.Info("Backup created successfully: %s", backupFile)
	return backupFile, nil
}

func AddToZip(path string, info os.FileInfo, err error, dataDir string, zipWriter *zip.Writer) error {
	if err != nil {
		return err
	}

	if path == dataDir {
		return nil
	}

	relPath, err := filepath.Rel(dataDir, path)
	if err != nil {
		return fmt.Errorf("failed to get relative path: %w", err)
	}

	if !ShouldIncludeInBackup(relPath, info.IsDir()) {
		if info.IsDir() {
			logger.Debug("Skipping directory: %s", relPath)
			return filepath.SkipDir
		}
		logger.Debug("Skipping file: %s", relPath)
		return nil
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create file header: %w", err)
	}

	header.Name = relPath
	header.Method = zip.Deflate

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create file in zip: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	if err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	logger.Debug("Added file to backup: %s", relPath)
	return nil
}

// ShouldIncludeInBackup keeps only top-level account files
func ShouldIncludeInBackup(relPath string, isDir bool) bool {
	if isDir || strings.ContainsRune(relPath, filepath.Separator) {
		return false
	}
	return strings.HasSuffix(relPath, accountFileSuffix) && !strings.HasPrefix(relPath, ".")
}

// RestoreBackup writes every valid account of a backup into store,
// replacing the pairing of the networks it contains.
func RestoreBackup(backupFile string, store *storage.AccountStore) ([]storage.ActiveAccount, error) {
	reader, err := zip.OpenReader(backupFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup: %w", err)
	}
	defer reader.Close()

	var restored []storage.ActiveAccount
	for _, f := range reader.File {
		if !ShouldIncludeInBackup(filepath.FromSlash(f.Name), f.FileInfo().IsDir()) {
			logger.Debug("Skipping backup entry: %s", f.Name)
			continue
		}

		account, err := readAccount(f)
		if err != nil {
			return restored, fmt.Errorf("invalid backup entry %s: %w", f.Name, err)
		}
		if want := strings.TrimSuffix(f.Name, accountFileSuffix); account.Network != want {
			return restored, fmt.Errorf("backup entry %s holds an account for %q", f.Name, account.Network)
		}

		if err := store.SaveActiveAccount(account); err != nil {
			return restored, err
		}
		logger.Info("Restored wallet %s on %s", account.Address, account.Network)
		restored = append(restored, account)
	}

	return restored, nil
}

func readAccount(f *zip.File) (storage.ActiveAccount, error) {
	rc, err := f.Open()
	if err != nil {
		return storage.ActiveAccount{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return storage.ActiveAccount{}, err
	}
	if len(data) > maxEntrySize {
		return storage.ActiveAccount{}, fmt.Errorf("entry larger than %d bytes", maxEntrySize)
	}

	var account storage.ActiveAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return storage.ActiveAccount{}, err
	}
	if _, err := tezos.ValidateAddress(account.Address); err != nil {
		return storage.ActiveAccount{}, err
	}
	if !tezos.IsImplicit(account.Address) {
		return storage.ActiveAccount{}, fmt.Errorf("%s is not a wallet address", account.Address)
	}
	return account, nil
}
