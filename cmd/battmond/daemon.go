package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/charlie0129/battmond/pkg/alert"
	"github.com/charlie0129/battmond/pkg/config"
	"github.com/charlie0129/battmond/pkg/device"
	"github.com/charlie0129/battmond/pkg/halt"
	"github.com/charlie0129/battmond/pkg/lifecycle"
	"github.com/charlie0129/battmond/pkg/monitor"
	"github.com/charlie0129/battmond/pkg/version"
)

type daemonOptions struct {
	conf            config.Config
	intervalSeconds int
	haltCommand     string
}

func newDaemonOptions() *daemonOptions {
	conf := config.Default()
	return &daemonOptions{
		conf:            conf,
		intervalSeconds: int(conf.Interval / time.Second),
		haltCommand:     strings.Join(conf.HaltCommand, " "),
	}
}

// addDeviceFlags registers the flags shared with `status --local`.
func (o *daemonOptions) addDeviceFlags(f *pflag.FlagSet) {
	f.StringVarP(&o.conf.DevicePath, "device", "d", "", "battery device path (default depends on the backend)")
	f.StringVar(&o.conf.Backend, "backend", o.conf.Backend,
		fmt.Sprintf("battery backend (%s)", strings.Join(device.Backends(), ", ")))
	f.IntVarP(&o.conf.WarnPercent, "warn", "W", o.conf.WarnPercent, "warning threshold in percent")
	f.IntVarP(&o.conf.HaltPercent, "halt", "H", o.conf.HaltPercent, "halt threshold in percent")
}

func (o *daemonOptions) addDaemonFlags(f *pflag.FlagSet) {
	f.StringVarP(&o.conf.PIDFile, "pidfile", "p", o.conf.PIDFile, "pid file path")
	f.IntVarP(&o.intervalSeconds, "interval", "i", o.intervalSeconds, "polling interval in seconds")
	f.BoolVarP(&o.conf.Foreground, "foreground", "f", false, "do not detach from the terminal")
	f.StringVar(&o.conf.HaltMethod, "halt-method", o.conf.HaltMethod,
		fmt.Sprintf("how to halt the system (%s, %s)", config.HaltMethodExec, config.HaltMethodLogind))
	f.StringVar(&o.haltCommand, "halt-command", o.haltCommand, "command executed by the exec halt method")
	f.BoolVar(&o.conf.DryRun, "dry-run", false, "log the halt decision instead of halting")
	f.StringVar(&o.conf.StatusSocket, "status-socket", "",
		fmt.Sprintf("serve read-only status on this unix socket, e.g. %s", config.DefaultStatusSocket))
}

// config returns the effective configuration with the device path resolved
// for dev.
func (o *daemonOptions) config(dev device.Device) config.Config {
	conf := o.conf
	conf.Interval = time.Duration(o.intervalSeconds) * time.Second
	conf.HaltCommand = strings.Fields(o.haltCommand)
	if conf.DevicePath == "" {
		conf.DevicePath = dev.DefaultPath()
	}
	return conf
}

func (o *daemonOptions) device() (device.Device, error) {
	dev, err := device.New(o.conf.Backend)
	if err != nil {
		return nil, pkgerrors.Wrap(config.ErrInvalidConfig, err.Error())
	}
	return dev, nil
}

func newHalter(conf config.Config) halt.Halter {
	switch {
	case conf.DryRun:
		return &halt.Recorder{}
	case conf.HaltMethod == config.HaltMethodLogind:
		return halt.NewLogind()
	default:
		return halt.NewExec(conf.HaltCommand)
	}
}

var newSyslogNotifier = alert.NewSyslog

// newNotifier returns the alert channel and a func closing it. Alerts fall
// back to the console when syslog is unreachable.
func newNotifier() (alert.Notifier, func()) {
	s, err := newSyslogNotifier("battmond")
	if err != nil {
		logrus.Warnf("alerts will not reach syslog: %v", err)
		return alert.Console{}, func() {}
	}
	closeFn := func() {
		if err := s.Close(); err != nil {
			logrus.Debugf("failed to close syslog writer: %v", err)
		}
	}
	if lifecycle.Detached() {
		return s, closeFn
	}
	return alert.Tee{alert.Console{}, s}, closeFn
}

// startLifecycle locks the pid file and detaches. Only lock contention
// stops startup; other lock failures are logged.
func startLifecycle(lc lifecycle.Manager) error {
	if err := lc.AcquireLock(); err != nil {
		if errors.Is(err, lifecycle.ErrAlreadyRunning) {
			return err
		}
		logrus.Warnf("continuing without pid file lock: %v", err)
	}
	return lc.Detach()
}

func runDaemon(o *daemonOptions) error {
	dev, err := o.device()
	if err != nil {
		return err
	}
	conf := o.config(dev)
	if err := conf.Validate(); err != nil {
		return err
	}

	lc := lifecycle.New(conf.PIDFile, conf.Foreground)
	if err := startLifecycle(lc); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"version": version.Version,
		"commit":  version.GitCommit,
	}).Info("battmond starting")
	logrus.WithFields(conf.LogrusFields()).Info("monitor configuration")

	notifier, closeNotifier := newNotifier()
	m := monitor.New(conf, dev, notifier, newHalter(conf))

	var srv *http.Server
	if conf.StatusSocket != "" {
		srv, err = monitor.Serve(conf.StatusSocket, m, conf)
		if err != nil {
			logrus.Warnf("status server disabled: %v", err)
		}
	}

	shutdown := func() {
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logrus.Errorf("failed to shutdown status server: %v", err)
			}
			_ = os.Remove(conf.StatusSocket)
		}
		lc.Release()
		closeNotifier()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigc
		logrus.Infof("received signal %s, exiting", sig)
		shutdown()
		os.Exit(0)
	}()

	if err := m.Run(); err != nil {
		logrus.Errorf("monitor stopped: %v", err)
		shutdown()
		return err
	}

	shutdown()
	return nil
}
