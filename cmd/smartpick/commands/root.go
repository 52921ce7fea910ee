// Package commands implements the smartpick command line.
package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/smartpick/config"
)

// rootOptions are the persistent flags plus the configuration they adjust.
type rootOptions struct {
	cfg *config.Config

	logLevel string
	source   string
	delay    time.Duration
	timeout  time.Duration
	proxy    string
}

// NewRootCmd builds the smartpick command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "smartpick",
		Short:         "SmartPick finds smartphones within a budget on a device-specification site.",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default from SMARTPICK_LOG_LEVEL)")
	pf.StringVar(&opts.source, "source", "", "site root URL (default from SMARTPICK_SOURCE_URL)")
	pf.DurationVar(&opts.delay, "delay", 0, "wait between two requests (default from SMARTPICK_FETCH_DELAY)")
	pf.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (default from SMARTPICK_FETCH_TIMEOUT)")
	pf.StringVar(&opts.proxy, "proxy", "", "proxy URL for both engines")

	root.AddCommand(
		newSearchCmd(opts),
		newDeviceCmd(opts),
		newExtractCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// load reads the environment, then applies the flags the user set. Every
// command but serve logs as text to stderr so stdout carries only results.
func (o *rootOptions) load(cmd *cobra.Command) {
	o.cfg = config.Load()

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		o.cfg.Log.Level = o.logLevel
	}
	if flags.Changed("source") {
		o.cfg.Source.BaseURL = strings.TrimRight(o.source, "/")
	}
	if flags.Changed("delay") {
		o.cfg.Fetch.Delay = o.delay
	}
	if flags.Changed("timeout") {
		o.cfg.Fetch.Timeout = o.timeout
	}
	if flags.Changed("proxy") {
		o.cfg.Fetch.Proxy = o.proxy
	}

	if cmd.Name() != "serve" {
		initLogger(cmd.ErrOrStderr(), o.cfg.Log.Level, "text")
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "smartpick:", err)
		return 1
	}
	return 0
}
