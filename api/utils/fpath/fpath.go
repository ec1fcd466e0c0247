// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fpath helper function for file path operations
package fpath

import (
	"os"
	"os/user"
	"path/filepath"
)

// HomeDir returns home dir of current user if have, or current working dir
func HomeDir() (string, error) {
	if home := os.Getenv("HOME"); home != "" {
		return home, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	if u.HomeDir != "" {
		return u.HomeDir, nil
	}
	return os.Getwd()
}

// DefaultDataDir returns the data dir used when none is configured.
func DefaultDataDir() string {
	home, err := HomeDir()
	if err != nil {
		return filepath.Join(".", ".feepool")
	}
	return filepath.Join(home, ".org.vechain.feepool")
}

// SizeOfDir calculate disk usage in bytes of a dir
func SizeOfDir(path string) (int64, error) {
	size := int64(0)
	if err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return size, nil
}

// PathExists to check if path exists
func PathExists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
