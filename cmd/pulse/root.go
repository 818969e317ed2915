package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Clark-Hu/rating-pulse/internal/feed"
)

// Linker flags.
var (
	version = "dev"
	commit  = "none"
)

const (
	defaultServer   = "http://localhost:8080"
	defaultTimeout  = 10 * time.Second
	defaultWindow   = 60 * time.Second
	defaultInterval = time.Second
	defaultFPS      = 60
)

// app carries the resolved configuration shared by every subcommand.
type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "pulse",
		Short:         "Rate, inspect and watch the live ratings feed.",
		Version:       version + " (" + commit + ")",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", defaultServer, "Base URL of the ratings service")
	flags.Duration("timeout", defaultTimeout, "Timeout for request/response calls")
	flags.Duration("reconnect-delay", feed.DefaultReconnectDelay, "Wait between push feed reconnects")
	flags.String("log-file", "", "Write client logs to this file (watch logs are discarded otherwise)")
	flags.String("config", "", "Path to config file")

	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newRateCmd(a))
	root.AddCommand(newClearCmd(a))
	root.AddCommand(newShowCmd(a))
	return root
}

// initConfig merges defaults, an optional config file, PULSE_* environment
// variables and flags, in increasing priority.
func (a *app) initConfig(cmd *cobra.Command) error {
	v := a.v
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	if v.GetDuration("timeout") <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if v.GetDuration("reconnect-delay") <= 0 {
		return fmt.Errorf("reconnect-delay must be positive")
	}
	return nil
}

func (a *app) client(logger *log.Logger) (*feed.Client, error) {
	return feed.New(a.v.GetString("server"), a.v.GetDuration("timeout"),
		feed.WithReconnectDelay(a.v.GetDuration("reconnect-delay")),
		feed.WithLogger(logger))
}

// logger writes to --log-file when set, else to fallback.
func (a *app) logger(fallback io.Writer) (*log.Logger, func(), error) {
	path := a.v.GetString("log-file")
	if path == "" {
		return log.New(fallback, "[pulse] ", log.LstdFlags), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return log.New(f, "[pulse] ", log.LstdFlags|log.Lshortfile), func() { _ = f.Close() }, nil
}
