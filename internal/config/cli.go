// Package config holds the root command line of the keybridge binary.
package config

import (
	"github.com/Alia5/keybridge/internal/cmd"
	"github.com/Alia5/keybridge/internal/log"
)

type CLI struct {
	ConfigFile string     `name:"config" help:"Load configuration from this file (JSON, YAML or TOML)" type:"path" env:"KEYBRIDGE_CONFIG"`
	Log        log.Config `embed:"" prefix:"log."`

	Run       cmd.Run           `cmd:"" help:"Run the bridge"`
	Peer      cmd.Peer          `cmd:"" help:"Act as the relay peer of a running bridge"`
	Ctl       cmd.Ctl           `cmd:"" help:"Talk to the control API of a running bridge"`
	Config    cmd.ConfigCommand `cmd:"" help:"Configuration helpers"`
	Install   cmd.Install       `cmd:"" help:"Install the bridge as a systemd service"`
	Uninstall cmd.Uninstall     `cmd:"" help:"Remove the systemd service"`
}
