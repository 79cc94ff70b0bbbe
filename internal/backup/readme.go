// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package backup

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReadmeContent is written next to copied backups.
const ReadmeContent = `# Wallet Key Backup

Each ` + "`<prefix>_backup_<address>.json`" + ` file in this directory holds one
private key, encrypted with the password chosen at export time.

## File Format

The files use the Web3 Secret Storage format, version 3, so any Ethereum
wallet that imports "keystore JSON" can read them:

- ` + "`crypto.kdf`" + `: scrypt, with ` + "`n`, `r`, `p`, `dklen` and `salt`" + ` in ` + "`kdfparams`" + `
- ` + "`crypto.cipher`" + `: aes-128-ctr, with the IV in ` + "`cipherparams.iv`" + `
- ` + "`crypto.mac`" + `: keccak256(derived key[16:32] || ciphertext)
- ` + "`address`" + `: the account, lowercase hex without 0x

Salt, IV and id are fresh for every export, so two backups of the same key
never look alike.

## Restoring

` + "```bash" + `
walletctl import-keystore <file>
` + "```" + `

You will be asked for the export password.

## Checking a backup

` + "```bash" + `
walletctl verify-backup <dir>          # format only
walletctl verify-backup <dir> --deep   # also decrypts, asks for the password
` + "```" + `
`

// WriteReadme writes README.md into destDir.
func WriteReadme(destDir string) error {
	readmePath := filepath.Join(destDir, "README.md")
	// #nosec G306 - README files are meant to be world-readable
	if err := os.WriteFile(readmePath, []byte(ReadmeContent), 0644); err != nil {
		return fmt.Errorf("failed to write README.md: %w", err)
	}
	return nil
}
