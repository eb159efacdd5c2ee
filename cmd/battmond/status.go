package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battmond/pkg/client"
	"github.com/charlie0129/battmond/pkg/config"
	"github.com/charlie0129/battmond/pkg/monitor"
)

type statusData struct {
	snapshot *monitor.Snapshot
	config   *config.Config
	// local is set when the device was sampled by this process.
	local bool
}

func fetchStatusData(socketPath string) (*statusData, error) {
	c := client.NewClient(socketPath)

	snap, err := c.GetStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	conf, err := c.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return &statusData{snapshot: snap, config: conf}, nil
}

// sampleStatusData reads the device once and reports what the policy
// would decide from a fresh start.
func sampleStatusData(o *daemonOptions) (*statusData, error) {
	dev, err := o.device()
	if err != nil {
		return nil, err
	}
	conf := o.config(dev)

	readings, err := monitor.NewSampler(dev, conf.DevicePath).Sample()
	if err != nil {
		return nil, err
	}
	agg := monitor.Fold(readings)
	policy := monitor.Policy{WarnPercent: conf.WarnPercent, HaltPercent: conf.HaltPercent}
	state, action := policy.Next(monitor.StateNormal, agg)

	return &statusData{
		snapshot: &monitor.Snapshot{
			Time:       time.Now(),
			Readings:   readings,
			Aggregate:  agg,
			State:      state,
			LastAction: action,
		},
		config: &conf,
		local:  true,
	}, nil
}

func NewStatusCommand(opts *daemonOptions) *cobra.Command {
	var (
		local      bool
		socketPath string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show battery status and the monitor decision",
		Long: `Show battery status and the monitor decision.

By default the status is read from a daemon started with --status-socket.
With --local the battery is sampled directly, without a daemon.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				data *statusData
				err  error
			)
			if local {
				data, err = sampleStatusData(opts)
			} else {
				data, err = fetchStatusData(socketPath)
			}
			if err != nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), data)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&local, "local", false, "sample the battery directly instead of asking the daemon")
	f.StringVar(&socketPath, "socket", config.DefaultStatusSocket, "daemon status socket path")

	return cmd
}

func printStatus(w io.Writer, data *statusData) {
	snap := data.snapshot
	agg := snap.Aggregate

	fmt.Fprintln(w, bold("Battery units:"))
	if len(snap.Readings) == 0 {
		fmt.Fprintln(w, "  No battery units found.")
	}
	for _, r := range snap.Readings {
		capacity := "unknown"
		if r.CapacityValid() {
			capacity = fmt.Sprintf("%d%%", r.Capacity)
		}
		fmt.Fprintf(w, "  Unit %d: present %s, %s, %s\n", r.Unit, bool2Text(r.IsPresent()), r.State, bold("%s", capacity))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, bold("Aggregate:"))
	fmt.Fprintf(w, "  Total capacity: %s\n", bold("%d%%", agg.TotalCapacity))
	fmt.Fprintf(w, "  Discharging units: %d\n", agg.DischargingCount)
	fmt.Fprintf(w, "  Charging units: %d\n", agg.ChargingCount)
	fmt.Fprintf(w, "  On battery: %s\n", bool2Text(agg.Decidable()))
	fmt.Fprintln(w)

	fmt.Fprintln(w, bold("Monitor:"))
	if data.local {
		fmt.Fprintln(w, "  Sampled locally, no daemon state.")
	} else {
		fmt.Fprintf(w, "  Cycles: %d\n", snap.Cycles)
		fmt.Fprintf(w, "  Last cycle: %s\n", snap.Time.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  Alert state: %s\n", snap.State)
	fmt.Fprintf(w, "  Decision: %s\n", actionText(snap.LastAction))
	fmt.Fprintln(w)

	if data.config != nil {
		conf := data.config
		fmt.Fprintln(w, bold("Configuration:"))
		fmt.Fprintf(w, "  Warn at: %s\n", bold("%d%%", conf.WarnPercent))
		fmt.Fprintf(w, "  Halt at: %s\n", bold("%d%%", conf.HaltPercent))
		fmt.Fprintf(w, "  Interval: %s\n", conf.Interval)
		fmt.Fprintf(w, "  Backend: %s (%s)\n", conf.Backend, conf.DevicePath)
		fmt.Fprintf(w, "  Dry run: %s\n", bool2Text(conf.DryRun))
	}
}

func actionText(a monitor.Action) string {
	switch a {
	case monitor.ActionWarn:
		return color.New(color.Bold, color.FgYellow).Sprint(a)
	case monitor.ActionHalt:
		return color.New(color.Bold, color.FgRed).Sprint(a)
	default:
		return a.String()
	}
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
