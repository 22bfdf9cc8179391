package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"desk-bridge/src/command"
	"desk-bridge/src/config"
	"desk-bridge/src/errkind"
	"desk-bridge/src/monitor"
	"desk-bridge/src/runtimeinit"
	"desk-bridge/src/scaling"
	"desk-bridge/src/session"
	"desk-bridge/src/singleinstance"
)

type cliOptions struct {
	envPath    string
	standalone bool
	verbose    bool
	timeout    time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error (%s): %v\n", errkind.Of(err), err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(os.Args)
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"desk-bridge-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

// argFlag binds one command-line flag to one command argument.
type argFlag struct {
	flag     string
	key      string
	kind     string // string, int, float or bool
	usage    string
	def      string
	required bool
}

type commandDef struct {
	use     string
	command string
	short   string
	flags   []argFlag
}

var monitorFlag = argFlag{flag: "monitor", key: "monitor_id", kind: "string", usage: "Monitor id from the monitors command", required: true}

var commandDefs = []commandDef{
	{use: "monitors", command: command.GetMonitors, short: "List attached monitors"},
	{use: "screenshot", command: command.TakeScreenshot, short: "Capture a monitor as base64 PNG", flags: []argFlag{
		monitorFlag,
		{flag: "width", key: "resize_x", kind: "int", usage: "Output width in pixels"},
		{flag: "height", key: "resize_y", kind: "int", usage: "Output height in pixels"},
		{flag: "cut", key: "use_cut_mode", kind: "bool", usage: "Crop the top-left region before resizing"},
		{flag: "scale-factor", key: "scale_factor", kind: "float", usage: "Physical pixels per logical pixel in cut mode"},
	}},
	{use: "move", command: command.MoveMouse, short: "Move the cursor to monitor-relative coordinates", flags: []argFlag{
		monitorFlag,
		{flag: "x", key: "x", kind: "int", required: true},
		{flag: "y", key: "y", kind: "int", required: true},
	}},
	{use: "click", command: command.MouseClick, short: "Click a mouse button", flags: clickFlags()},
	{use: "double-click", command: command.MouseDoubleClick, short: "Double-click a mouse button", flags: clickFlags()},
	{use: "drag", command: command.MouseDrag, short: "Drag with the left button held", flags: []argFlag{
		monitorFlag,
		{flag: "x", key: "x", kind: "int", usage: "Drop x"},
		{flag: "y", key: "y", kind: "int", usage: "Drop y"},
	}},
	{use: "scroll", command: command.MouseScroll, short: "Scroll the wheel", flags: []argFlag{
		{flag: "direction", key: "direction", kind: "string", usage: "up, down, left or right", required: true},
		{flag: "monitor", key: "monitor_id", kind: "string", usage: "Monitor id"},
		{flag: "amount", key: "amount", kind: "int", usage: "Notches to scroll (default 1)"},
	}},
	{use: "mouse-down", command: command.MouseDown, short: "Press the left button"},
	{use: "mouse-up", command: command.MouseUp, short: "Release the left button"},
	{use: "cursor", command: command.GetCursorPosition, short: "Print the cursor position relative to a monitor", flags: []argFlag{monitorFlag}},
	{use: "type", command: command.TypeText, short: "Type text", flags: []argFlag{
		{flag: "text", key: "text", kind: "string", required: true},
	}},
	{use: "press", command: command.PressKey, short: "Press a key or modifier+key chord", flags: []argFlag{
		{flag: "key", key: "key", kind: "string", usage: "Key name, character or chord such as ctrl+s", required: true},
	}},
	{use: "hold", command: command.HoldKey, short: "Hold a key for a number of cycles", flags: []argFlag{
		{flag: "key", key: "key", kind: "string", required: true},
		{flag: "duration", key: "duration", kind: "int", usage: "Hold duration units (default 1)"},
	}},
	{use: "release-all", command: command.ReleaseAll, short: "Release every held key and button"},
	{use: "clipboard-read", command: command.ReadClipboard, short: "Print the clipboard text"},
	{use: "clipboard-write", command: command.WriteClipboard, short: "Replace the clipboard text", flags: []argFlag{
		{flag: "text", key: "text", kind: "string", required: true},
	}},
	{use: "scale", command: command.ScaleCoordinates, short: "Scale coordinates between screen and API space", flags: []argFlag{
		{flag: "source", key: "source", kind: "string", usage: "computer or api", required: true},
		{flag: "screen-width", key: "screen_width", kind: "int", required: true},
		{flag: "screen-height", key: "screen_height", kind: "int", required: true},
		{flag: "x", key: "x", kind: "int", required: true},
		{flag: "y", key: "y", kind: "int", required: true},
		{flag: "cut", key: "use_cut_mode", kind: "bool"},
	}},
}

func clickFlags() []argFlag {
	return []argFlag{
		monitorFlag,
		{flag: "side", key: "side", kind: "string", usage: "left or right", def: "left"},
		{flag: "x", key: "x", kind: "int", usage: "Move here first"},
		{flag: "y", key: "y", kind: "int", usage: "Move here first"},
	}
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "desk-bridge-cli",
		Short:         "Send one command to the desk-bridge resident, or run it standalone",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !opts.verbose {
				log.SetOutput(io.Discard)
			} else {
				log.SetOutput(os.Stderr)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.envPath, "env", "", "Path to .env file (highest precedence)")
	root.PersistentFlags().BoolVar(&opts.standalone, "standalone", false, "Do not delegate to a running resident")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall command timeout")

	for _, def := range commandDefs {
		root.AddCommand(newDefCmd(opts, def))
	}
	root.AddCommand(newInvokeCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	return root
}

func newStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a resident is listening",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = config.LoadWithOptions(config.LoadOptions{EnvPathOverride: opts.envPath})
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if port, ok := singleinstance.DetectResidentPort(ctx); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "resident listening on 127.0.0.1:%d\n", port)
				return nil
			}
			start, end := config.PortRange()
			fmt.Fprintf(cmd.OutOrStdout(), "no resident in ports %d-%d\n", start, end)
			return nil
		},
	}
}

func newDefCmd(opts *cliOptions, def commandDef) *cobra.Command {
	cmd, argsOf := bindDefFlags(def)

	var out string
	var fit bool
	if def.command == command.TakeScreenshot {
		cmd.Flags().StringVar(&out, "out", "", "Write the decoded PNG here instead of printing base64")
		cmd.Flags().BoolVar(&fit, "fit", false, "Resize to the scaling target of the monitor (overrides --width/--height)")
	}

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		args := argsOf()
		if fit {
			if err := fitToMonitor(cmd.Context(), *opts, args); err != nil {
				return err
			}
		}
		var target session.ResultTarget = session.StdoutTarget{Writer: cmd.OutOrStdout()}
		if out != "" {
			target = fileTarget{path: out}
		}
		return execute(cmd.Context(), *opts, singleinstance.Request{Command: def.command, Args: args}, target)
	}
	return cmd
}

// bindDefFlags creates the command and its flags. argsOf reads the parsed
// flags back as command arguments.
func bindDefFlags(def commandDef) (cmd *cobra.Command, argsOf func() map[string]any) {
	cmd = &cobra.Command{
		Use:   def.use,
		Short: def.short,
		Args:  cobra.NoArgs,
	}
	getters := registerArgFlags(cmd, def.flags)
	return cmd, func() map[string]any { return buildArgs(cmd, def.flags, getters) }
}

func newInvokeCmd(opts *cliOptions) *cobra.Command {
	var rawArgs string
	cmd := &cobra.Command{
		Use:   "invoke <command>",
		Short: "Run any command with JSON arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decoded, err := parseArgsJSON(rawArgs)
			if err != nil {
				return err
			}
			req := singleinstance.Request{Command: args[0], Args: decoded}
			return execute(cmd.Context(), *opts, req, session.StdoutTarget{Writer: cmd.OutOrStdout()})
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "{}", "Command arguments as a JSON object")
	return cmd
}

func registerArgFlags(cmd *cobra.Command, flags []argFlag) map[string]func() any {
	getters := make(map[string]func() any, len(flags))
	for _, f := range flags {
		switch f.kind {
		case "int":
			p := cmd.Flags().Int(f.flag, 0, f.usage)
			getters[f.flag] = func() any { return *p }
		case "float":
			p := cmd.Flags().Float64(f.flag, 0, f.usage)
			getters[f.flag] = func() any { return *p }
		case "bool":
			p := cmd.Flags().Bool(f.flag, false, f.usage)
			getters[f.flag] = func() any { return *p }
		default:
			p := cmd.Flags().String(f.flag, f.def, f.usage)
			getters[f.flag] = func() any { return *p }
		}
		if f.required {
			_ = cmd.MarkFlagRequired(f.flag)
		}
	}
	return getters
}

// buildArgs includes a flag only when it was set or carries a default.
func buildArgs(cmd *cobra.Command, flags []argFlag, getters map[string]func() any) map[string]any {
	args := map[string]any{}
	for _, f := range flags {
		if cmd.Flags().Changed(f.flag) || f.def != "" {
			args[f.key] = getters[f.flag]()
		}
	}
	return args
}

func parseArgsJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: --args must be a JSON object: %v", errkind.ErrInvalidArgument, err)
	}
	return args, nil
}

func execute(parent context.Context, opts cliOptions, req singleinstance.Request, target session.ResultTarget) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx := parent
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, opts.timeout)
		defer cancel()
	}

	// Port overrides may live in the .env file.
	_, _ = config.LoadWithOptions(config.LoadOptions{EnvPathOverride: opts.envPath})

	standalone := func(ctx context.Context, req singleinstance.Request, target session.ResultTarget) error {
		return runStandalone(ctx, opts, req, target)
	}
	if opts.standalone {
		return standalone(ctx, req, target)
	}
	return invokeWithDelegation(ctx, singleinstance.NewClient(), req, target, standalone)
}

type fallbackFunc func(ctx context.Context, req singleinstance.Request, target session.ResultTarget) error

// invokeWithDelegation prefers the resident. Errors the resident reports are
// final; only an absent or unreachable resident falls back.
func invokeWithDelegation(ctx context.Context, client singleinstance.Client, req singleinstance.Request, target session.ResultTarget, fallback fallbackFunc) error {
	delegated, result, err := client.Invoke(ctx, req)
	if delegated {
		if err != nil {
			return err
		}
		log.Printf("Delegated %s to resident", req.Command)
		return target.OnSuccess(result)
	}
	if err != nil {
		log.Printf("Delegation error: %v; falling back to standalone", err)
	} else {
		log.Printf("No resident detected, running %s standalone", req.Command)
	}
	return fallback(ctx, req, target)
}

func runStandalone(ctx context.Context, opts cliOptions, req singleinstance.Request, target session.ResultTarget) error {
	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{EnvPathOverride: opts.envPath},
	})
	if err != nil {
		return err
	}
	bridge := runtimeinit.NewBridge(cfg)
	defer func() {
		if err := bridge.Input.ReleaseAll(); err != nil {
			log.Printf("release on exit: %v", err)
		}
	}()

	var deadline time.Duration
	if command.LongRunning(req.Command) {
		deadline = cfg.CaptureDeadline
	}
	_, err = session.Execute(ctx, session.Options{
		Deadline: deadline,
		Run: func(runCtx context.Context) (any, error) {
			return bridge.Dispatcher.Dispatch(runCtx, req.Command, command.Args(req.Args))
		},
		Target: target,
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out", errkind.ErrPlatform, req.Command)
	}
	return err
}

// captureTarget keeps the result for a follow-up command.
type captureTarget struct {
	value any
}

func (t *captureTarget) OnSuccess(result any) error {
	t.value = result
	return nil
}

func (t *captureTarget) OnFailure(err error) error { return nil }

// fitToMonitor looks up the screenshot's monitor and sets resize_x and
// resize_y to its scaling target.
func fitToMonitor(ctx context.Context, opts cliOptions, args map[string]any) error {
	var got captureTarget
	if err := execute(ctx, opts, singleinstance.Request{Command: command.GetMonitors}, &got); err != nil {
		return err
	}
	raw, err := json.Marshal(got.value)
	if err != nil {
		return fmt.Errorf("%w: %v", errkind.ErrEncode, err)
	}
	var monitors []monitor.Monitor
	if err := json.Unmarshal(raw, &monitors); err != nil {
		return fmt.Errorf("%w: unexpected monitor list: %v", errkind.ErrEncode, err)
	}
	return fitArgs(args, monitors)
}

func fitArgs(args map[string]any, monitors []monitor.Monitor) error {
	id, _ := args["monitor_id"].(string)
	cut, _ := args["use_cut_mode"].(bool)
	for _, m := range monitors {
		if m.ID != id {
			continue
		}
		target, err := scaling.Target(scaling.Resolution{Width: int(m.Width), Height: int(m.Height)}, cut)
		if err != nil {
			return err
		}
		args["resize_x"] = target.Width
		args["resize_y"] = target.Height
		log.Printf("Fit monitor %s (%dx%d) to %dx%d", id, m.Width, m.Height, target.Width, target.Height)
		return nil
	}
	return fmt.Errorf("%w: monitor %q", errkind.ErrNotFound, id)
}

// fileTarget decodes a base64 PNG result into a file.
type fileTarget struct {
	path string
}

func (t fileTarget) OnSuccess(result any) error {
	encoded, err := resultString(result)
	if err != nil {
		return err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: screenshot is not base64: %v", errkind.ErrEncode, err)
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", t.path, err)
	}
	log.Printf("Wrote %d bytes to %s", len(data), t.path)
	return nil
}

func (t fileTarget) OnFailure(err error) error { return nil }

func resultString(result any) (string, error) {
	switch v := result.(type) {
	case string:
		return v, nil
	case json.RawMessage:
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", fmt.Errorf("%w: expected a string result: %v", errkind.ErrEncode, err)
		}
		return s, nil
	default:
		return "", fmt.Errorf("%w: expected a string result, got %T", errkind.ErrEncode, result)
	}
}
