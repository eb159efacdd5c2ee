package main

import (
	"errors"
	"fmt"
	"io"
	"log/syslog"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/battmond/pkg/client"
	"github.com/charlie0129/battmond/pkg/config"
	"github.com/charlie0129/battmond/pkg/lifecycle"
)

var logLevel = "info"

var (
	newSyslogHook = lsyslog.NewSyslogHook
	// syslogError records startup failures that happen before any
	// logger is reachable by the operator.
	syslogError = func(msg string) error {
		w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_ERR, "battmond")
		if err != nil {
			return err
		}
		defer w.Close()
		return w.Err(msg)
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})

	// Once detached nobody reads stderr. Everything goes to syslog. The
	// monitor must keep running without it.
	if lifecycle.Detached() {
		hook, err := newSyslogHook("", "", syslog.LOG_DAEMON|syslog.LOG_INFO, "battmond")
		if err != nil {
			logrus.Warnf("logging to syslog is unavailable: %v", err)
			return nil
		}
		logrus.AddHook(hook)
		logrus.SetOutput(io.Discard)
		return nil
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	var running *lifecycle.AlreadyRunningError
	switch {
	case errors.As(err, &running):
		msg := fmt.Sprintf("battmond is already running (pid %d), remove %s if it is stale", running.PID, running.Path)
		logrus.Error(msg)
		if err := syslogError(msg); err != nil {
			logrus.Debugf("failed to report to syslog: %v", err)
		}
	case errors.Is(err, config.ErrInvalidConfig):
		fmt.Fprintln(os.Stderr, "Run 'battmond --help' for usage.")
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: battmond status server is not reachable")
		fmt.Fprintln(os.Stderr, "Is the daemon running with --status-socket? Try 'battmond status --local'.")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(exitCode(err))
	}
}

func NewCommand() *cobra.Command {
	opts := newDaemonOptions()

	cmd := &cobra.Command{
		Use:   "battmond",
		Short: "battmond watches battery charge and halts the system before it runs flat",
		Long: `battmond watches battery charge and halts the system before it runs flat.

Every interval the battery units are sampled. While the machine runs on
battery, an alert is sent once the combined charge falls to the warning
threshold, and the system is halted once it falls to the halt threshold.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDaemon(opts)
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	})

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	opts.addDeviceFlags(globalFlags)

	opts.addDaemonFlags(cmd.Flags())

	cmd.AddCommand(
		NewStatusCommand(opts),
		NewVersionCommand(),
	)

	return cmd
}
