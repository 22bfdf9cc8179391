package command

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desk-bridge/src/errkind"
	"desk-bridge/src/input"
	"desk-bridge/src/keys"
	"desk-bridge/src/monitor"
	"desk-bridge/src/screenshot"
)

type recorder struct{ events []string }

func (r *recorder) MoveTo(x, y int) error {
	r.events = append(r.events, fmt.Sprintf("move %d,%d", x, y))
	return nil
}

func (r *recorder) Button(b input.Button, a input.Action) error {
	r.events = append(r.events, fmt.Sprintf("%s %s", b, a))
	return nil
}

func (r *recorder) Scroll(amount int, axis input.Axis) error {
	r.events = append(r.events, fmt.Sprintf("scroll %d %s", amount, axis))
	return nil
}

func (r *recorder) Location() (int, int, error) { return 2000, 50, nil }

func (r *recorder) Text(s string) error {
	r.events = append(r.events, "text "+s)
	return nil
}

func (r *recorder) Key(k keys.Key, a input.Action) error {
	r.events = append(r.events, fmt.Sprintf("key %s %s", k, a))
	return nil
}

var testDisplays = []monitor.Display{
	{ID: "0", Bounds: image.Rect(0, 0, 1920, 1080), ScaleFactor: 1},
	{ID: "1", Bounds: image.Rect(1920, 0, 3200, 1024), ScaleFactor: 1},
}

type fakeCapturer struct{ last screenshot.Request }

func (f *fakeCapturer) Capture(req screenshot.Request) (screenshot.Result, error) {
	f.last = req
	return screenshot.Result{Base64: "iVBORw0KGgo=", Width: int(req.TargetWidth), Height: int(req.TargetHeight)}, nil
}

type memClipboard struct{ text string }

func (m *memClipboard) Read() (string, error) { return m.text, nil }

func (m *memClipboard) Write(text string) error {
	m.text = text
	return nil
}

type fixture struct {
	rec  *recorder
	cap  *fakeCapturer
	clip *memClipboard
	d    *Dispatcher
}

func newFixture() *fixture {
	f := &fixture{rec: &recorder{}, cap: &fakeCapturer{}, clip: &memClipboard{}}
	reg := monitor.NewRegistry(monitor.SourceFunc(func() ([]monitor.Display, error) { return testDisplays, nil }))
	syn := input.New(func() (input.Backend, error) { return f.rec, nil }, reg,
		keys.NewResolver(keys.TableFor("linux")), input.WithSleep(func(time.Duration) {}))
	f.d = New(Deps{Monitors: reg, Input: syn, Capture: f.cap, Clipboard: f.clip})
	return f
}

// jsonArgs decodes like the IPC layer does, so numbers arrive as float64.
func jsonArgs(t *testing.T, s string) Args {
	t.Helper()
	var a Args
	require.NoError(t, json.Unmarshal([]byte(s), &a))
	return a
}

func TestDispatchGetMonitors(t *testing.T) {
	f := newFixture()
	res, err := f.d.Dispatch(ctx, GetMonitors, nil)
	require.NoError(t, err)
	monitors, ok := res.([]monitor.Monitor)
	require.True(t, ok)
	assert.Len(t, monitors, 2)
	assert.True(t, monitors[0].IsPrimary)
}

func TestDispatchTakeScreenshot(t *testing.T) {
	f := newFixture()
	res, err := f.d.Dispatch(ctx, TakeScreenshot, jsonArgs(t, `{"monitor_id":"0","resize_x":1280,"resize_y":800,"use_cut_mode":true,"scale_factor":1.5}`))
	require.NoError(t, err)
	assert.Equal(t, "iVBORw0KGgo=", res)
	assert.Equal(t, screenshot.Request{MonitorID: "0", TargetWidth: 1280, TargetHeight: 800, CropMode: true, ScaleFactor: 1.5}, f.cap.last)

	_, err = f.d.Dispatch(ctx, TakeScreenshot, jsonArgs(t, `{"monitor_id":"0","resize_x":-1,"resize_y":800}`))
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)
}

func TestScreenshotRequestDefaults(t *testing.T) {
	req, err := ScreenshotRequest(Args{"monitor_id": "1", "resize_x": 100, "resize_y": 50})
	require.NoError(t, err)
	assert.Equal(t, 1.0, req.ScaleFactor)
	assert.False(t, req.CropMode)
}

func TestDispatchMouseCommands(t *testing.T) {
	f := newFixture()

	_, err := f.d.Dispatch(ctx, MoveMouse, jsonArgs(t, `{"monitor_id":"1","x":10,"y":20}`))
	require.NoError(t, err)
	_, err = f.d.Dispatch(ctx, MouseClick, jsonArgs(t, `{"monitor_id":"1","side":"left"}`))
	require.NoError(t, err)
	_, err = f.d.Dispatch(ctx, MouseDoubleClick, jsonArgs(t, `{"monitor_id":"0","side":"right","x":1,"y":2}`))
	require.NoError(t, err)
	_, err = f.d.Dispatch(ctx, MouseDrag, jsonArgs(t, `{"monitor_id":"0","x":5,"y":6}`))
	require.NoError(t, err)
	_, err = f.d.Dispatch(ctx, MouseScroll, jsonArgs(t, `{"direction":"up"}`))
	require.NoError(t, err)
	_, err = f.d.Dispatch(ctx, MouseDown, nil)
	require.NoError(t, err)
	_, err = f.d.Dispatch(ctx, MouseUp, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"move 1930,20",
		"left click",
		"move 1,2", "right click", "right click",
		"left press", "move 5,6", "left release",
		"scroll -1 vertical",
		"left press",
		"left release",
	}, f.rec.events)
}

func TestDispatchCursorPosition(t *testing.T) {
	f := newFixture()
	res, err := f.d.Dispatch(ctx, GetCursorPosition, Args{"monitor_id": "1"})
	require.NoError(t, err)
	assert.Equal(t, Position{X: 80, Y: 50}, res)
}

func TestDispatchKeyboard(t *testing.T) {
	f := newFixture()

	_, err := f.d.Dispatch(ctx, TypeText, Args{"text": "hi"})
	require.NoError(t, err)
	_, err = f.d.Dispatch(ctx, PressKey, Args{"key": "ctrl+s"})
	require.NoError(t, err)
	_, err = f.d.Dispatch(ctx, HoldKey, Args{"key": "Return"})
	require.NoError(t, err)

	assert.Len(t, f.rec.events, 1+3+50)
	assert.Equal(t, "key return click", f.rec.events[len(f.rec.events)-1])
}

func TestDispatchHoldKeyHonorsCancellation(t *testing.T) {
	f := newFixture()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.d.Dispatch(cancelled, HoldKey, Args{"key": "a", "duration": 3})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.rec.events)
}

func TestDispatchClipboard(t *testing.T) {
	f := newFixture()

	_, err := f.d.Dispatch(ctx, WriteClipboard, Args{"text": "copied"})
	require.NoError(t, err)
	res, err := f.d.Dispatch(ctx, ReadClipboard, nil)
	require.NoError(t, err)
	assert.Equal(t, "copied", res)
}

func TestDispatchScaleCoordinates(t *testing.T) {
	f := newFixture()
	res, err := f.d.Dispatch(ctx, ScaleCoordinates, jsonArgs(t, `{"source":"api","screen_width":2560,"screen_height":1600,"x":640,"y":400}`))
	require.NoError(t, err)
	assert.Equal(t, Position{X: 1280, Y: 800}, res)
}

func TestDispatchValidation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name    string
		command string
		args    string
		kind    error
	}{
		{"unknown command", "reboot", `{}`, errkind.ErrInvalidArgument},
		{"middle button", MouseClick, `{"monitor_id":"0","side":"middle"}`, errkind.ErrInvalidArgument},
		{"bad direction", MouseScroll, `{"monitor_id":"0","direction":"diagonal"}`, errkind.ErrInvalidArgument},
		{"missing monitor", MoveMouse, `{"x":1,"y":1}`, errkind.ErrInvalidArgument},
		{"string coordinate", MoveMouse, `{"monitor_id":"0","x":"1","y":1}`, errkind.ErrInvalidArgument},
		{"fractional coordinate", MoveMouse, `{"monitor_id":"0","x":1.5,"y":1}`, errkind.ErrInvalidArgument},
		{"lone x", MouseClick, `{"monitor_id":"0","side":"left","x":4}`, errkind.ErrInvalidArgument},
		{"unknown monitor", MoveMouse, `{"monitor_id":"42","x":1,"y":1}`, errkind.ErrNotFound},
		{"unknown key", PressKey, `{"key":"zzz_not_a_key"}`, errkind.ErrInvalidArgument},
		{"numeric key", PressKey, `{"key":5}`, errkind.ErrInvalidArgument},
		{"bad cut flag", TakeScreenshot, `{"monitor_id":"0","resize_x":1,"resize_y":1,"use_cut_mode":"yes"}`, errkind.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.d.Dispatch(ctx, tt.command, jsonArgs(t, tt.args))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Empty(t, f.rec.events, "rejected commands issue no input")
}

func TestDispatcherNamesDependOnDeps(t *testing.T) {
	full := newFixture().d.Names()
	assert.Contains(t, full, TakeScreenshot)
	assert.Contains(t, full, ReleaseAll)
	assert.Len(t, full, 17)

	bare := New(Deps{}).Names()
	assert.Equal(t, []string{ScaleCoordinates}, bare)
}

func TestLongRunning(t *testing.T) {
	assert.True(t, LongRunning(TakeScreenshot))
	assert.False(t, LongRunning(MoveMouse))
}

var ctx = context.Background()
