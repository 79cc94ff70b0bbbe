// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/aplane-algo/ethwallet/internal/legacy"
	"github.com/aplane-algo/ethwallet/internal/wallet"
)

// VerifyResult is the outcome for one backup file.
type VerifyResult struct {
	FileName string
	Address  string
	Size     int64
	Valid    bool
	Error    string
}

// VerifyReport covers a whole backup directory.
type VerifyReport struct {
	BackupDir   string
	TotalFiles  int
	ValidFiles  int
	FailedFiles int
	Results     []VerifyResult
}

// ScanBackupFiles lists backup file names in dir, sorted.
func ScanBackupFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_backup_*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names, nil
}

// VerifyBackup checks every backup file in dir. With an empty password only
// the format is checked; otherwise each file is also decrypted and the key
// must match the recorded address.
func VerifyBackup(dir, password string) (*VerifyReport, error) {
	names, err := ScanBackupFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no backup files found in %s", dir)
	}

	report := &VerifyReport{
		BackupDir: dir,
		Results:   make([]VerifyResult, 0, len(names)),
	}
	for _, name := range names {
		result := verifyFile(filepath.Join(dir, name), password)
		report.Results = append(report.Results, result)
		if result.Valid {
			report.ValidFiles++
		} else {
			report.FailedFiles++
		}
	}
	report.TotalFiles = len(report.Results)
	return report, nil
}

func verifyFile(path, password string) VerifyResult {
	result := VerifyResult{FileName: filepath.Base(path)}

	info, err := os.Stat(path)
	if err != nil {
		result.Error = fmt.Sprintf("cannot stat file: %v", err)
		return result
	}
	result.Size = info.Size()

	data, err := os.ReadFile(path)
	if err != nil {
		result.Error = fmt.Sprintf("cannot read file: %v", err)
		return result
	}

	var header struct {
		Address string          `json:"address"`
		Version int             `json:"version"`
		Crypto  json.RawMessage `json:"crypto"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		result.Error = fmt.Sprintf("invalid JSON: %v", err)
		return result
	}
	if header.Version != 3 || len(header.Crypto) == 0 {
		result.Error = "not a version 3 key file"
		return result
	}

	addr, err := wallet.ParseAddress(header.Address)
	if err != nil {
		result.Error = fmt.Sprintf("bad address field: %v", err)
		return result
	}
	result.Address = addr.Hex()

	if password != "" {
		key, err := legacy.Decrypt(data, password)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		priv, err := crypto.ToECDSA(key)
		if err != nil {
			result.Error = fmt.Sprintf("decrypted key is invalid: %v", err)
			return result
		}
		if got := crypto.PubkeyToAddress(priv.PublicKey); got != addr {
			result.Error = fmt.Sprintf("key belongs to %s", got.Hex())
			return result
		}
	}

	result.Valid = true
	return result
}

// FormatFileSize formats a file size in human-readable format
func FormatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	if bytes < KB {
		return fmt.Sprintf("%d B", bytes)
	} else if bytes < MB {
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
}
