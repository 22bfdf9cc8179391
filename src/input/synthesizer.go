// Package input synthesizes mouse and keyboard events in monitor-relative coordinates.
package input

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"desk-bridge/src/errkind"
	"desk-bridge/src/keys"
	"desk-bridge/src/logutil"
	"desk-bridge/src/monitor"
)

const (
	DefaultClickSettle    = 500 * time.Millisecond
	DefaultDoubleClickGap = 30 * time.Millisecond
	DefaultDragStep       = 30 * time.Millisecond

	// HoldCyclesPerUnit is how many press_key cycles one unit of hold duration issues.
	HoldCyclesPerUnit = 50
)

// Timing holds the fixed waits between synthetic events.
type Timing struct {
	// ClickSettle separates a move from the click that follows it.
	ClickSettle time.Duration
	// DoubleClickGap separates the two clicks of a double click.
	DoubleClickGap time.Duration
	// DragStep is waited after the press and again after the move of a drag.
	DragStep time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		ClickSettle:    DefaultClickSettle,
		DoubleClickGap: DefaultDoubleClickGap,
		DragStep:       DefaultDragStep,
	}
}

// Monitors resolves a monitor id to its geometry.
type Monitors interface {
	Resolve(id string) (monitor.Monitor, error)
}

type Synthesizer struct {
	newBackend Factory
	monitors   Monitors
	resolver   *keys.Resolver
	timing     Timing
	sleep      func(time.Duration)
}

type Option func(*Synthesizer)

func WithTiming(t Timing) Option { return func(s *Synthesizer) { s.timing = t } }

// WithSleep replaces time.Sleep, mainly for tests.
func WithSleep(sleep func(time.Duration)) Option { return func(s *Synthesizer) { s.sleep = sleep } }

func New(factory Factory, monitors Monitors, resolver *keys.Resolver, opts ...Option) *Synthesizer {
	if factory == nil {
		factory = RobotgoFactory
	}
	if resolver == nil {
		resolver = keys.NewResolver(nil)
	}
	s := &Synthesizer{
		newBackend: factory,
		monitors:   monitors,
		resolver:   resolver,
		timing:     DefaultTiming(),
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthesizer) Resolver() *keys.Resolver { return s.resolver }

func (s *Synthesizer) backend() (Backend, error) {
	b, err := s.newBackend()
	if err != nil {
		return nil, fmt.Errorf("%w: open input backend: %v", errkind.ErrPlatform, err)
	}
	return b, nil
}

func platformErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", errkind.ErrPlatform, op, err)
}

func (s *Synthesizer) absolute(monitorID string, at image.Point) (image.Point, error) {
	m, err := s.monitors.Resolve(monitorID)
	if err != nil {
		return image.Point{}, err
	}
	return m.Origin().Add(at), nil
}

// MoveTo places the cursor at (x, y) relative to the monitor's top-left corner.
func (s *Synthesizer) MoveTo(monitorID string, x, y int) error {
	abs, err := s.absolute(monitorID, image.Pt(x, y))
	if err != nil {
		return err
	}
	b, err := s.backend()
	if err != nil {
		return err
	}
	log.Printf("move_mouse monitor=%s rel=(%d,%d) abs=%v", monitorID, x, y, abs)
	return platformErr("move", b.MoveTo(abs.X, abs.Y))
}

// Click optionally moves to at, waits for the cursor to settle and clicks once.
func (s *Synthesizer) Click(monitorID string, side Button, at *image.Point) error {
	side, err := ParseSide(string(side))
	if err != nil {
		return err
	}
	b, err := s.moveFirst(monitorID, at)
	if err != nil {
		return err
	}
	if at != nil {
		s.sleep(s.timing.ClickSettle)
	}
	return platformErr("click", b.Button(side, Click))
}

// DoubleClick clicks twice with a short gap. There is no settle wait after the move.
func (s *Synthesizer) DoubleClick(monitorID string, side Button, at *image.Point) error {
	side, err := ParseSide(string(side))
	if err != nil {
		return err
	}
	b, err := s.moveFirst(monitorID, at)
	if err != nil {
		return err
	}
	if err := b.Button(side, Click); err != nil {
		return platformErr("double click", err)
	}
	s.sleep(s.timing.DoubleClickGap)
	return platformErr("double click", b.Button(side, Click))
}

// moveFirst resolves the monitor and, when at is set, moves there.
// The monitor is resolved even without coordinates so a bad id always fails.
func (s *Synthesizer) moveFirst(monitorID string, at *image.Point) (Backend, error) {
	var rel image.Point
	if at != nil {
		rel = *at
	}
	abs, err := s.absolute(monitorID, rel)
	if err != nil {
		return nil, err
	}
	b, err := s.backend()
	if err != nil {
		return nil, err
	}
	if at != nil {
		if err := b.MoveTo(abs.X, abs.Y); err != nil {
			return nil, platformErr("move", err)
		}
	}
	return b, nil
}

// Drag presses the left button, optionally moves, and releases. Once the press
// has gone out the release is issued on every path.
func (s *Synthesizer) Drag(monitorID string, at *image.Point) (err error) {
	var rel image.Point
	if at != nil {
		rel = *at
	}
	abs, err := s.absolute(monitorID, rel)
	if err != nil {
		return err
	}
	b, err := s.backend()
	if err != nil {
		return err
	}

	if err := b.Button(Left, Press); err != nil {
		return platformErr("drag press", err)
	}
	defer func() {
		if rerr := b.Button(Left, Release); rerr != nil && err == nil {
			err = platformErr("drag release", rerr)
		}
	}()

	s.sleep(s.timing.DragStep)
	if at != nil {
		if err := b.MoveTo(abs.X, abs.Y); err != nil {
			return platformErr("drag move", err)
		}
	}
	s.sleep(s.timing.DragStep)
	return nil
}

// Scroll ticks amount times in direction. The monitor id is optional and only validated.
func (s *Synthesizer) Scroll(monitorID string, amount int, dir Direction) error {
	if _, err := ParseDirection(string(dir)); err != nil {
		return err
	}
	if monitorID != "" {
		if _, err := s.monitors.Resolve(monitorID); err != nil {
			return err
		}
	}
	b, err := s.backend()
	if err != nil {
		return err
	}
	axis, sign := dir.axisAndSign()
	return platformErr("scroll", b.Scroll(sign*amount, axis))
}

func (s *Synthesizer) ButtonDown() error {
	b, err := s.backend()
	if err != nil {
		return err
	}
	return platformErr("button down", b.Button(Left, Press))
}

func (s *Synthesizer) ButtonUp() error {
	b, err := s.backend()
	if err != nil {
		return err
	}
	return platformErr("button up", b.Button(Left, Release))
}

// CursorPosition returns the cursor relative to the monitor's origin.
func (s *Synthesizer) CursorPosition(monitorID string) (image.Point, error) {
	m, err := s.monitors.Resolve(monitorID)
	if err != nil {
		return image.Point{}, err
	}
	b, err := s.backend()
	if err != nil {
		return image.Point{}, err
	}
	x, y, err := b.Location()
	if err != nil {
		return image.Point{}, platformErr("cursor location", err)
	}
	return image.Pt(x, y).Sub(m.Origin()), nil
}

// TypeText injects text as one event rather than per-key presses.
func (s *Synthesizer) TypeText(text string) error {
	b, err := s.backend()
	if err != nil {
		return err
	}
	log.Printf("type_text: %s", logutil.Sanitize(text))
	return platformErr("type text", b.Text(text))
}

// PressKey clicks a key, holding the chord's modifier around it.
func (s *Synthesizer) PressKey(chord string) error {
	resolved, err := s.resolver.ResolveChord(chord)
	if err != nil {
		return err
	}
	b, err := s.backend()
	if err != nil {
		return err
	}
	return pressResolved(b, resolved)
}

// HoldKey repeats PressKey duration*50 times back to back.
func (s *Synthesizer) HoldKey(chord string, duration int) error {
	return s.HoldKeyContext(context.Background(), chord, duration)
}

// HoldKeyContext is HoldKey that stops between cycles once ctx is done.
// A cycle in progress always completes, so its modifier is released.
func (s *Synthesizer) HoldKeyContext(ctx context.Context, chord string, duration int) error {
	if duration < 0 {
		return fmt.Errorf("%w: negative hold duration %d", errkind.ErrInvalidArgument, duration)
	}
	resolved, err := s.resolver.ResolveChord(chord)
	if err != nil {
		return err
	}
	b, err := s.backend()
	if err != nil {
		return err
	}
	cycles := duration * HoldCyclesPerUnit
	log.Printf("hold_key %s for %d cycles", logutil.Sanitize(chord), cycles)
	for i := 0; i < cycles; i++ {
		if err := ctx.Err(); err != nil {
			log.Printf("hold_key interrupted after %d of %d cycles", i, cycles)
			return fmt.Errorf("hold_key interrupted: %w", err)
		}
		if err := pressResolved(b, resolved); err != nil {
			return err
		}
	}
	return nil
}

func pressResolved(b Backend, chord keys.Resolved) (err error) {
	if chord.Modifier != nil {
		if err := b.Key(*chord.Modifier, Press); err != nil {
			return platformErr("press modifier "+chord.Modifier.String(), err)
		}
		defer func() {
			if rerr := b.Key(*chord.Modifier, Release); rerr != nil && err == nil {
				err = platformErr("release modifier "+chord.Modifier.String(), rerr)
			}
		}()
	}
	return platformErr("click key "+chord.Key.String(), b.Key(chord.Key, Click))
}

// ReleaseAll lifts every modifier and the left button. Every release is attempted.
func (s *Synthesizer) ReleaseAll() error {
	b, err := s.backend()
	if err != nil {
		return err
	}
	var errs []error
	for _, m := range keys.Modifiers {
		if err := b.Key(keys.Key{Name: m}, Release); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m, err))
		}
	}
	if err := b.Button(Left, Release); err != nil {
		errs = append(errs, fmt.Errorf("left button: %w", err))
	}
	if len(errs) > 0 {
		return platformErr("release all", errors.Join(errs...))
	}
	log.Printf("release_all: modifiers and left button released")
	return nil
}
