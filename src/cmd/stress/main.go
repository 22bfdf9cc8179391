package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"desk-bridge/src/command"
	"desk-bridge/src/errkind"
	"desk-bridge/src/monitor"
	"desk-bridge/src/singleinstance"
)

type stressOptions struct {
	n        int
	command  string
	args     string
	deadline time.Duration
}

type tally struct {
	ok, busy, notDelegated, err int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress",
		Short:         "Fire concurrent commands at the resident and count busy replies",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, singleinstance.NewClient(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of concurrent clients")
	cmd.Flags().StringVar(&opts.command, "command", "take_screenshot", "command each client sends")
	cmd.Flags().StringVar(&opts.args, "args", `{"resize_x":1280,"resize_y":800}`, "command arguments as JSON; monitor_id defaults to the primary monitor")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func runWithOptions(opts stressOptions, client singleinstance.Client, out io.Writer) error {
	var args map[string]any
	if err := json.Unmarshal([]byte(opts.args), &args); err != nil {
		return fmt.Errorf("invalid --args: %w", err)
	}
	if needsMonitor(opts.command) {
		if _, ok := args["monitor_id"]; !ok {
			id, err := primaryMonitor(client, opts.deadline)
			if err != nil {
				return err
			}
			args["monitor_id"] = id
		}
	}

	var wg sync.WaitGroup
	var t tally

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			req := singleinstance.Request{ID: fmt.Sprintf("stress-%d", i), Command: opts.command, Args: args}
			t.record(client.Invoke(ctx, req))
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)
	fmt.Fprintf(out, "launched=%d ok=%d busy=%d not_delegated=%d err=%d elapsed=%s\n",
		opts.n, t.ok, t.busy, t.notDelegated, t.err, elapsed)
	return nil
}

func needsMonitor(name string) bool {
	switch name {
	case command.TakeScreenshot, command.MoveMouse, command.MouseClick,
		command.MouseDoubleClick, command.MouseDrag, command.GetCursorPosition:
		return true
	}
	return false
}

// primaryMonitor asks the resident for its monitors and picks the primary,
// or the first one when none is flagged.
func primaryMonitor(client singleinstance.Client, deadline time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()
	delegated, raw, err := client.Invoke(ctx, singleinstance.Request{Command: command.GetMonitors})
	if err != nil {
		return "", fmt.Errorf("list monitors: %w", err)
	}
	if !delegated {
		return "", fmt.Errorf("no resident is running")
	}
	var monitors []monitor.Monitor
	if err := json.Unmarshal(raw, &monitors); err != nil {
		return "", fmt.Errorf("list monitors: %w", err)
	}
	if len(monitors) == 0 {
		return "", fmt.Errorf("resident reported no monitors")
	}
	for _, m := range monitors {
		if m.IsPrimary {
			return m.ID, nil
		}
	}
	return monitors[0].ID, nil
}

func (t *tally) record(delegated bool, _ json.RawMessage, err error) {
	switch {
	case errors.Is(err, errkind.ErrBusy):
		atomic.AddInt32(&t.busy, 1)
	case err != nil:
		atomic.AddInt32(&t.err, 1)
	case !delegated:
		atomic.AddInt32(&t.notDelegated, 1)
	default:
		atomic.AddInt32(&t.ok, 1)
	}
}
