package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
)

type Install struct {
	Input string `help:"Keyboard source for the service: a hidraw node, or none" default:"none"`
}

// Run is called by Kong when the install command is executed.
func (i *Install) Run(logger *slog.Logger) error {
	return install(logger, i.Input)
}

type Uninstall struct{}

// Run is called by Kong when the uninstall command is executed.
func (u *Uninstall) Run(logger *slog.Logger) error {
	return uninstall(logger)
}

func currentExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(exe)
}
