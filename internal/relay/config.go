package relay

import "time"

// Config is the relay listener configuration.
type Config struct {
	Addr         string        `help:"Relay listen address for the peer (empty disables the relay)" default:":8080" env:"KEYBRIDGE_RELAY_ADDR"`
	Password     string        `help:"Pre-shared password; when set the peer must authenticate and traffic is encrypted" env:"KEYBRIDGE_RELAY_PASSWORD"`
	WriteTimeout time.Duration `help:"Deadline for mirroring a report to the peer" default:"200ms" env:"KEYBRIDGE_RELAY_WRITE_TIMEOUT"`
	AuthTimeout  time.Duration `help:"Time a peer has to complete the handshake" default:"5s" env:"KEYBRIDGE_RELAY_AUTH_TIMEOUT"`
}
