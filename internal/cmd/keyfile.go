package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Alia5/keybridge/internal/auth"
	"github.com/Alia5/keybridge/internal/configpaths"
)

const keyFileName = "keybridge.key.txt"

// keyFilePath is where the generated control API password lives.
func keyFilePath() (string, error) {
	dir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve key file path: %w", err)
	}
	return filepath.Join(dir, keyFileName), nil
}

// readKeyFile returns the stored password, or "" when there is none.
func readKeyFile() string {
	p, err := keyFilePath()
	if err != nil {
		return ""
	}
	pwd, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(pwd))
}

// loadOrCreateKey returns the stored password, generating and saving a new
// one on first use.
func loadOrCreateKey(logger *slog.Logger) (string, error) {
	if pwd := readKeyFile(); pwd != "" {
		return pwd, nil
	}
	p, err := keyFilePath()
	if err != nil {
		return "", err
	}
	newPwd, err := auth.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate new control password: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return "", fmt.Errorf("failed to create config dir for key file: %w", err)
	}
	if err := os.WriteFile(p, []byte(newPwd), 0o600); err != nil {
		return "", fmt.Errorf("failed to write control password to file: %w", err)
	}
	logger.Info("Generated control API password", "path", p)
	logger.Info("-------------------------------------")
	logger.Info("Your KeyBridge control password is:")
	logger.Info("-------------------------------------")
	logger.Info(newPwd)
	logger.Info("-------------------------------------")
	logger.Info("You can change this password at any time by editing the file")
	return newPwd, nil
}
