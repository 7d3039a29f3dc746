package control

import "time"

// Config is the control API configuration.
type Config struct {
	Addr           string        `help:"Control API listen address (empty disables the API)" default:"127.0.0.1:3242" env:"KEYBRIDGE_CONTROL_ADDR"`
	Password       string        `help:"Require clients to authenticate with this password; traffic is then encrypted" env:"KEYBRIDGE_CONTROL_PASSWORD"`
	RequestTimeout time.Duration `help:"Time a client has to send its request" default:"5s" env:"KEYBRIDGE_CONTROL_REQUEST_TIMEOUT"`
}
