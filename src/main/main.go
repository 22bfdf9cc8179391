package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"desk-bridge/src/config"
	"desk-bridge/src/eventloop"
	"desk-bridge/src/logutil"
	"desk-bridge/src/monitor"
	"desk-bridge/src/notification"
	"desk-bridge/src/runtimeinit"
	"desk-bridge/src/tray"
)

type mainOptions struct {
	envPath       string
	releaseHotkey string
	noTray        bool
	fileLogging   bool
}

var errAlreadyRunning = errors.New("resident already running")

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errAlreadyRunning) {
			fmt.Println(err)
			os.Exit(1)
		}
		notification.ShowBlockingError("Desk Bridge", fmt.Sprintf("Startup failed: %v", err))
		os.Exit(1)
	}
}

func run() error {
	args := normalizeLegacyArgs(os.Args)
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "desk-bridge",
		Short:         "Resident desktop automation bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(cmd.Context(), *opts, cmd.Flags().Changed("log-file"))
		},
	}

	cmd.Flags().StringVar(&opts.envPath, "env", "", "Path to .env file (highest precedence)")
	cmd.Flags().StringVar(&opts.releaseHotkey, "release-hotkey", "", "Global hotkey that releases every held key")
	cmd.Flags().BoolVar(&opts.noTray, "no-tray", false, "Run without the tray icon")
	cmd.Flags().BoolVar(&opts.fileLogging, "log-file", false, "Write the debug log file")

	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to their GNU form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"env", "release-hotkey", "no-tray", "log-file"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

func (o mainOptions) loadOptions(fileLoggingSet bool) config.LoadOptions {
	lo := config.LoadOptions{
		EnvPathOverride:       o.envPath,
		ReleaseHotkeyOverride: o.releaseHotkey,
	}
	if fileLoggingSet {
		enabled := o.fileLogging
		lo.FileLoggingOverride = &enabled
	}
	return lo
}

// preflight claims and releases the first port so a second resident exits early.
func preflight(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		log.Printf("Pre-flight: port %d busy, resident already exists", port)
		return fmt.Errorf("%w on port %d", errAlreadyRunning, port)
	}
	_ = listener.Close()
	log.Printf("Pre-flight: port %d free", port)
	return nil
}

func runResident(parent context.Context, opts mainOptions, fileLoggingSet bool) error {
	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  opts.loadOptions(fileLoggingSet),
		SetupLogging: logutil.Setup,
	})
	if err != nil {
		return err
	}

	// SINGLEINSTANCE_PORT_* may come from the .env loaded above.
	if err := preflight(cfg.PortStart); err != nil {
		return err
	}

	bridge := runtimeinit.NewBridge(cfg)
	logMonitorConfiguration(bridge.Monitors)

	log.Printf("Desk Bridge initialized")
	log.Printf("Release hotkey: %s", cfg.ReleaseHotkey)
	log.Printf("Capture deadline: %s", cfg.CaptureDeadline)
	log.Printf("Commands: %s", strings.Join(bridge.Dispatcher.Names(), ", "))

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	loop := eventloop.New(cfg, bridge.Dispatcher, bridge.Input.ReleaseAll)
	tooltip := fmt.Sprintf("Desk Bridge - Press %s to release all keys", cfg.ReleaseHotkey)
	loop.SetDefaultTooltip(tooltip)

	if cfg.ShowTray && !opts.noTray {
		trayIcon, err := tray.New(tray.Config{
			Title:        "Desk Bridge",
			Tooltip:      tooltip,
			OnReleaseAll: loop.RequestReleaseAll,
			OnExit:       cancel,
		})
		if err != nil {
			log.Printf("tray disabled: %v", err)
		} else {
			go trayIcon.Run()
			defer trayIcon.Destroy()
		}
	}

	if err := loop.StartHotkey(cfg.ReleaseHotkey); err != nil {
		log.Printf("release hotkey disabled: %v", err)
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	err = loop.Run(ctx)
	if rerr := bridge.Input.ReleaseAll(); rerr != nil {
		log.Printf("release on shutdown: %v", rerr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("event loop stopped: %w", err)
	}
	return nil
}

func logMonitorConfiguration(monitors *monitor.Registry) {
	list, err := monitors.List()
	if err != nil {
		log.Printf("MONITOR: enumeration failed: %v", err)
		return
	}
	log.Printf("MONITOR: Detected %d monitors", len(list))
	for _, m := range list {
		log.Printf("MONITOR: id=%s %q x:%d y:%d w:%d h:%d scale:%.2f primary:%v",
			m.ID, m.Name, m.X, m.Y, m.Width, m.Height, m.ScaleFactor, m.IsPrimary)
	}
}
