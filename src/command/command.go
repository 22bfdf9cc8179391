// Package command is the dispatch table callers reach the bridge through.
package command

import (
	"context"
	"fmt"
	"image"
	"log"
	"sort"

	"desk-bridge/src/errkind"
	"desk-bridge/src/input"
	"desk-bridge/src/monitor"
	"desk-bridge/src/scaling"
	"desk-bridge/src/screenshot"
)

const (
	GetMonitors       = "get_monitors"
	TakeScreenshot    = "take_screenshot"
	MoveMouse         = "move_mouse"
	MouseClick        = "mouse_click"
	MouseDoubleClick  = "mouse_double_click"
	MouseDrag         = "mouse_drag"
	MouseScroll       = "mouse_scroll"
	MouseDown         = "mouse_down"
	MouseUp           = "mouse_up"
	GetCursorPosition = "get_cursor_position"
	TypeText          = "type_text"
	PressKey          = "press_key"
	HoldKey           = "hold_key"
	ReleaseAll        = "release_all"
	ReadClipboard     = "read_clipboard"
	WriteClipboard    = "write_clipboard"
	ScaleCoordinates  = "scale_coordinates"
)

// Position is a monitor-relative or scaled coordinate pair.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Lister interface {
	List() ([]monitor.Monitor, error)
}

type Capturer interface {
	Capture(req screenshot.Request) (screenshot.Result, error)
}

type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// Deps are the collaborators commands run against. Nil members disable the
// commands that need them.
type Deps struct {
	Monitors  Lister
	Input     *input.Synthesizer
	Capture   Capturer
	Clipboard Clipboard
}

// Handler runs one command. Only commands that can run for a long time
// watch ctx.
type Handler func(ctx context.Context, args Args) (any, error)

type Dispatcher struct {
	deps     Deps
	handlers map[string]Handler
}

func New(deps Deps) *Dispatcher {
	d := &Dispatcher{deps: deps, handlers: map[string]Handler{}}
	if deps.Monitors != nil {
		d.handlers[GetMonitors] = plain(d.getMonitors)
	}
	if deps.Capture != nil {
		d.handlers[TakeScreenshot] = plain(d.takeScreenshot)
	}
	if deps.Input != nil {
		d.handlers[MoveMouse] = plain(d.moveMouse)
		d.handlers[MouseClick] = plain(d.click(false))
		d.handlers[MouseDoubleClick] = plain(d.click(true))
		d.handlers[MouseDrag] = plain(d.drag)
		d.handlers[MouseScroll] = plain(d.scroll)
		d.handlers[MouseDown] = plain(noResult(func(Args) error { return deps.Input.ButtonDown() }))
		d.handlers[MouseUp] = plain(noResult(func(Args) error { return deps.Input.ButtonUp() }))
		d.handlers[GetCursorPosition] = plain(d.cursorPosition)
		d.handlers[TypeText] = plain(d.typeText)
		d.handlers[PressKey] = plain(d.pressKey)
		d.handlers[HoldKey] = d.holdKey
		d.handlers[ReleaseAll] = plain(noResult(func(Args) error { return deps.Input.ReleaseAll() }))
	}
	if deps.Clipboard != nil {
		d.handlers[ReadClipboard] = plain(func(Args) (any, error) { return deps.Clipboard.Read() })
		d.handlers[WriteClipboard] = plain(d.writeClipboard)
	}
	d.handlers[ScaleCoordinates] = plain(scaleCoordinates)
	return d
}

// Names lists the registered commands in sorted order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.handlers))
	for n := range d.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LongRunning reports whether a command should run off the coordinating goroutine.
func LongRunning(name string) bool { return name == TakeScreenshot }

// Dispatch runs one command. A nil result means the command has no value.
// Cancelling ctx interrupts hold_key between press cycles.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args Args) (any, error) {
	h, ok := d.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command %q", errkind.ErrInvalidArgument, name)
	}
	if args == nil {
		args = Args{}
	}
	res, err := h(ctx, args)
	if err != nil {
		log.Printf("command %s failed: %v", name, err)
		return nil, err
	}
	return res, nil
}

func plain(f func(Args) (any, error)) Handler {
	return func(_ context.Context, a Args) (any, error) { return f(a) }
}

func noResult(f func(Args) error) func(Args) (any, error) {
	return func(a Args) (any, error) { return nil, f(a) }
}

func (d *Dispatcher) getMonitors(Args) (any, error) {
	return d.deps.Monitors.List()
}

func (d *Dispatcher) takeScreenshot(a Args) (any, error) {
	req, err := ScreenshotRequest(a)
	if err != nil {
		return nil, err
	}
	res, err := d.deps.Capture.Capture(req)
	if err != nil {
		return nil, err
	}
	return res.Base64, nil
}

// ScreenshotRequest decodes take_screenshot arguments. scale_factor defaults to 1.
func ScreenshotRequest(a Args) (screenshot.Request, error) {
	id, err := a.String("monitor_id")
	if err != nil {
		return screenshot.Request{}, err
	}
	w, err := a.Uint("resize_x")
	if err != nil {
		return screenshot.Request{}, err
	}
	h, err := a.Uint("resize_y")
	if err != nil {
		return screenshot.Request{}, err
	}
	cut, _, err := a.OptBool("use_cut_mode")
	if err != nil {
		return screenshot.Request{}, err
	}
	sf, ok, err := a.OptFloat("scale_factor")
	if err != nil {
		return screenshot.Request{}, err
	}
	if !ok {
		sf = 1
	}
	return screenshot.Request{MonitorID: id, TargetWidth: w, TargetHeight: h, CropMode: cut, ScaleFactor: sf}, nil
}

// optPoint reads x and y. Both or neither must be present.
func optPoint(a Args) (*image.Point, error) {
	x, hasX, err := a.OptInt("x")
	if err != nil {
		return nil, err
	}
	y, hasY, err := a.OptInt("y")
	if err != nil {
		return nil, err
	}
	if hasX != hasY {
		return nil, fmt.Errorf("%w: x and y must be given together", errkind.ErrInvalidArgument)
	}
	if !hasX {
		return nil, nil
	}
	p := image.Pt(x, y)
	return &p, nil
}

func (d *Dispatcher) moveMouse(a Args) (any, error) {
	id, err := a.String("monitor_id")
	if err != nil {
		return nil, err
	}
	x, err := a.Int("x")
	if err != nil {
		return nil, err
	}
	y, err := a.Int("y")
	if err != nil {
		return nil, err
	}
	return nil, d.deps.Input.MoveTo(id, x, y)
}

func (d *Dispatcher) click(double bool) func(Args) (any, error) {
	return func(a Args) (any, error) {
		id, err := a.String("monitor_id")
		if err != nil {
			return nil, err
		}
		sideArg, err := a.String("side")
		if err != nil {
			return nil, err
		}
		side, err := input.ParseSide(sideArg)
		if err != nil {
			return nil, err
		}
		at, err := optPoint(a)
		if err != nil {
			return nil, err
		}
		if double {
			return nil, d.deps.Input.DoubleClick(id, side, at)
		}
		return nil, d.deps.Input.Click(id, side, at)
	}
}

func (d *Dispatcher) drag(a Args) (any, error) {
	id, err := a.String("monitor_id")
	if err != nil {
		return nil, err
	}
	at, err := optPoint(a)
	if err != nil {
		return nil, err
	}
	return nil, d.deps.Input.Drag(id, at)
}

func (d *Dispatcher) scroll(a Args) (any, error) {
	dirArg, err := a.String("direction")
	if err != nil {
		return nil, err
	}
	dir, err := input.ParseDirection(dirArg)
	if err != nil {
		return nil, err
	}
	id, _, err := a.OptString("monitor_id")
	if err != nil {
		return nil, err
	}
	amount, ok, err := a.OptInt("amount")
	if err != nil {
		return nil, err
	}
	if !ok {
		amount = 1
	}
	return nil, d.deps.Input.Scroll(id, amount, dir)
}

func (d *Dispatcher) cursorPosition(a Args) (any, error) {
	id, err := a.String("monitor_id")
	if err != nil {
		return nil, err
	}
	p, err := d.deps.Input.CursorPosition(id)
	if err != nil {
		return nil, err
	}
	return Position{X: p.X, Y: p.Y}, nil
}

func (d *Dispatcher) typeText(a Args) (any, error) {
	text, err := a.String("text")
	if err != nil {
		return nil, err
	}
	return nil, d.deps.Input.TypeText(text)
}

func (d *Dispatcher) pressKey(a Args) (any, error) {
	key, err := a.String("key")
	if err != nil {
		return nil, err
	}
	return nil, d.deps.Input.PressKey(key)
}

func (d *Dispatcher) holdKey(ctx context.Context, a Args) (any, error) {
	key, err := a.String("key")
	if err != nil {
		return nil, err
	}
	duration, ok, err := a.OptInt("duration")
	if err != nil {
		return nil, err
	}
	if !ok {
		duration = 1
	}
	return nil, d.deps.Input.HoldKeyContext(ctx, key, duration)
}

func (d *Dispatcher) writeClipboard(a Args) (any, error) {
	text, err := a.String("text")
	if err != nil {
		return nil, err
	}
	return nil, d.deps.Clipboard.Write(text)
}

func scaleCoordinates(a Args) (any, error) {
	srcArg, err := a.String("source")
	if err != nil {
		return nil, err
	}
	src, err := scaling.ParseSource(srcArg)
	if err != nil {
		return nil, err
	}
	var screen scaling.Resolution
	if screen.Width, err = a.Int("screen_width"); err != nil {
		return nil, err
	}
	if screen.Height, err = a.Int("screen_height"); err != nil {
		return nil, err
	}
	x, err := a.Int("x")
	if err != nil {
		return nil, err
	}
	y, err := a.Int("y")
	if err != nil {
		return nil, err
	}
	cut, _, err := a.OptBool("use_cut_mode")
	if err != nil {
		return nil, err
	}
	sx, sy, err := scaling.Scale(src, screen, x, y, cut)
	if err != nil {
		return nil, err
	}
	return Position{X: sx, Y: sy}, nil
}
