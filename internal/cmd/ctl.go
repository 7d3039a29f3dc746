package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Alia5/keybridge/apiclient"
)

// Ctl groups the control API client subcommands.
type Ctl struct {
	Ping    CtlPing    `cmd:"" help:"Check that the bridge answers"`
	Status  CtlStatus  `cmd:"" help:"Show the bridge state"`
	Message CtlMessage `cmd:"" help:"Load a message for key-press playback"`
	Cancel  CtlCancel  `cmd:"" help:"Stop the current playback"`
	Clear   CtlClear   `cmd:"" help:"Drop the loaded message"`
	Charter CtlCharter `cmd:"" help:"Replace the charter buffer"`
	Command CtlCommand `cmd:"" help:"Run a bridge command (capture, send)"`
}

// CtlConn holds the flags every ctl subcommand needs.
type CtlConn struct {
	Addr     string        `help:"Control API address" default:"127.0.0.1:3242" env:"KEYBRIDGE_CTL_ADDR"`
	Password string        `help:"Control API password; defaults to the generated key file" env:"KEYBRIDGE_CTL_PASSWORD"`
	Timeout  time.Duration `help:"Response timeout" default:"30s" env:"KEYBRIDGE_CTL_TIMEOUT"`
}

func (c CtlConn) client() *apiclient.Client {
	pwd := c.Password
	if pwd == "" {
		pwd = readKeyFile()
	}
	return apiclient.NewWithConfig(c.Addr, &apiclient.Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  c.Timeout,
		WriteTimeout: 5 * time.Second,
		Password:     pwd,
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type CtlPing struct {
	CtlConn `embed:""`
}

func (c *CtlPing) Run() error {
	res, err := c.client().Ping()
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", res.Server, res.Version)
	return nil
}

type CtlStatus struct {
	CtlConn `embed:""`
}

func (c *CtlStatus) Run() error {
	res, err := c.client().Status()
	if err != nil {
		return err
	}
	return printJSON(res)
}

type CtlMessage struct {
	CtlConn `embed:""`
	Text    []string `arg:"" help:"Message text; escapes \\n \\t \\\\ \\\" are decoded on playback"`
}

func (c *CtlMessage) Run(logger *slog.Logger) error {
	res, err := c.client().SetMessage(strings.Join(c.Text, " "))
	if err != nil {
		return err
	}
	logger.Info("message loaded", "reports", res.Reports)
	return nil
}

type CtlCancel struct {
	CtlConn `embed:""`
}

func (c *CtlCancel) Run() error {
	res, err := c.client().CancelMessage()
	if err != nil {
		return err
	}
	return printJSON(res)
}

type CtlClear struct {
	CtlConn `embed:""`
}

func (c *CtlClear) Run() error {
	res, err := c.client().ClearMessage()
	if err != nil {
		return err
	}
	return printJSON(res)
}

type CtlCharter struct {
	CtlConn `embed:""`
	Text    string `arg:"" optional:"" help:"Charter text"`
	File    string `help:"Read the charter text from this file instead" type:"existingfile"`
}

func (c *CtlCharter) Run(logger *slog.Logger) error {
	text := c.Text
	if c.File != "" {
		b, err := os.ReadFile(c.File)
		if err != nil {
			return err
		}
		text = string(b)
	}
	res, err := c.client().SetCharter(text)
	if err != nil {
		return err
	}
	logger.Info("charter set", "chars", res.Chars)
	return nil
}

type CtlCommand struct {
	CtlConn `embed:""`
	Name    string `arg:"" help:"Command name"`
}

func (c *CtlCommand) Run() error {
	res, err := c.client().Command(c.Name)
	if err != nil {
		return err
	}
	return printJSON(res)
}
