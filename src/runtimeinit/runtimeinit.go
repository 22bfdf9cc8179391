package runtimeinit

import (
	"fmt"
	"log"

	"desk-bridge/src/clipboard"
	"desk-bridge/src/command"
	"desk-bridge/src/config"
	"desk-bridge/src/input"
	"desk-bridge/src/keys"
	"desk-bridge/src/monitor"
	"desk-bridge/src/screenshot"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
}

func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	// Before any monitor geometry is read, so bounds are device pixels.
	enableDPIAwareness()

	// Clipboard commands report their own error when this fails.
	if err := clipboard.Init(); err != nil {
		log.Printf("clipboard unavailable: %v", err)
	}

	return cfg, nil
}

// Bridge is the set of collaborators every entry point dispatches through.
type Bridge struct {
	Monitors   *monitor.Registry
	Input      *input.Synthesizer
	Capture    *screenshot.Pipeline
	Dispatcher *command.Dispatcher
}

// NewBridge wires the system implementations using the delays in cfg.
func NewBridge(cfg *config.Config) *Bridge {
	timing := input.DefaultTiming()
	if cfg != nil {
		timing = input.Timing{
			ClickSettle:    cfg.ClickSettle,
			DoubleClickGap: cfg.DoubleClickGap,
			DragStep:       cfg.DragStep,
		}
	}

	registry := monitor.NewRegistry(monitor.SystemSource())
	resolver := keys.NewResolver(keys.DefaultTable())
	syn := input.New(input.RobotgoFactory, registry, resolver, input.WithTiming(timing))
	pipeline := screenshot.NewPipeline(registry, screenshot.SystemGrabber())

	log.Printf("Key table: %s (named alphanumerics: %v)", resolver.Table().Platform(), resolver.Table().NamedAlphanumerics())

	return &Bridge{
		Monitors: registry,
		Input:    syn,
		Capture:  pipeline,
		Dispatcher: command.New(command.Deps{
			Monitors:  registry,
			Input:     syn,
			Capture:   pipeline,
			Clipboard: clipboard.System{},
		}),
	}
}
