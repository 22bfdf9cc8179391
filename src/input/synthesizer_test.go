package input

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desk-bridge/src/errkind"
	"desk-bridge/src/keys"
	"desk-bridge/src/monitor"
)

// recorder is a Backend that logs every event as a string.
type recorder struct {
	events   []string
	failOn   map[string]error
	cursorAt image.Point
}

func (r *recorder) do(ev string) error {
	r.events = append(r.events, ev)
	return r.failOn[ev]
}

func (r *recorder) MoveTo(x, y int) error { return r.do(fmt.Sprintf("move %d,%d", x, y)) }

func (r *recorder) Button(b Button, a Action) error { return r.do(fmt.Sprintf("%s %s", b, a)) }

func (r *recorder) Scroll(amount int, axis Axis) error {
	return r.do(fmt.Sprintf("scroll %d %s", amount, axis))
}

func (r *recorder) Location() (int, int, error) { return r.cursorAt.X, r.cursorAt.Y, nil }

func (r *recorder) Text(s string) error { return r.do("text " + s) }

func (r *recorder) Key(k keys.Key, a Action) error { return r.do(fmt.Sprintf("key %s %s", k, a)) }

type fakeMonitors map[string]monitor.Monitor

func (f fakeMonitors) Resolve(id string) (monitor.Monitor, error) {
	if m, ok := f[id]; ok {
		return m, nil
	}
	return monitor.Monitor{}, fmt.Errorf("%w: monitor %q", errkind.ErrNotFound, id)
}

var testMonitors = fakeMonitors{
	"0": {ID: "0", IsPrimary: true, Width: 1920, Height: 1080},
	"1": {ID: "1", Width: 1280, Height: 1024, X: -1280, Y: 200},
}

type harness struct {
	rec      *recorder
	sleeps   []time.Duration
	backends int
	syn      *Synthesizer
}

func newHarness(t *testing.T, goos string) *harness {
	t.Helper()
	h := &harness{rec: &recorder{failOn: map[string]error{}}}
	factory := func() (Backend, error) {
		h.backends++
		return h.rec, nil
	}
	h.syn = New(factory, testMonitors, keys.NewResolver(keys.TableFor(goos)),
		WithSleep(func(d time.Duration) { h.sleeps = append(h.sleeps, d) }))
	return h
}

func pt(x, y int) *image.Point { p := image.Pt(x, y); return &p }

func TestMoveToAddsMonitorOrigin(t *testing.T) {
	h := newHarness(t, "linux")

	require.NoError(t, h.syn.MoveTo("1", 10, 20))
	require.NoError(t, h.syn.MoveTo("0", 5, 5))

	assert.Equal(t, []string{"move -1270,220", "move 5,5"}, h.rec.events)
	assert.Equal(t, 2, h.backends, "each operation opens its own backend")
}

func TestMoveToUnknownMonitor(t *testing.T) {
	h := newHarness(t, "linux")

	err := h.syn.MoveTo("9", 1, 1)
	require.ErrorIs(t, err, errkind.ErrNotFound)
	assert.Empty(t, h.rec.events)
}

func TestClick(t *testing.T) {
	h := newHarness(t, "linux")

	require.NoError(t, h.syn.Click("1", Right, pt(100, 50)))
	assert.Equal(t, []string{"move -1180,250", "right click"}, h.rec.events)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, h.sleeps)
}

func TestClickWithoutCoordinatesSkipsSettle(t *testing.T) {
	h := newHarness(t, "linux")

	require.NoError(t, h.syn.Click("0", Left, nil))
	assert.Equal(t, []string{"left click"}, h.rec.events)
	assert.Empty(t, h.sleeps)
}

func TestClickNormalizesSide(t *testing.T) {
	h := newHarness(t, "linux")

	require.NoError(t, h.syn.Click("0", Button(" LEFT "), nil))
	require.NoError(t, h.syn.DoubleClick("0", Button("Right"), nil))
	assert.Equal(t, []string{"left click", "right click", "right click"}, h.rec.events)
}

func TestClickRejectsMiddle(t *testing.T) {
	h := newHarness(t, "linux")

	_, err := ParseSide("middle")
	require.ErrorIs(t, err, errkind.ErrInvalidArgument)

	err = h.syn.Click("0", Button("middle"), pt(1, 1))
	require.ErrorIs(t, err, errkind.ErrInvalidArgument)
	assert.Empty(t, h.rec.events, "no event before validation")
}

func TestDoubleClick(t *testing.T) {
	h := newHarness(t, "linux")

	require.NoError(t, h.syn.DoubleClick("0", Left, pt(3, 4)))
	assert.Equal(t, []string{"move 3,4", "left click", "left click"}, h.rec.events)
	assert.Equal(t, []time.Duration{30 * time.Millisecond}, h.sleeps)
}

func TestDrag(t *testing.T) {
	h := newHarness(t, "linux")

	require.NoError(t, h.syn.Drag("1", pt(0, 0)))
	assert.Equal(t, []string{"left press", "move -1280,200", "left release"}, h.rec.events)
	assert.Equal(t, []time.Duration{30 * time.Millisecond, 30 * time.Millisecond}, h.sleeps)
}

func TestDragReleasesWhenMoveFails(t *testing.T) {
	h := newHarness(t, "linux")
	h.rec.failOn["move 10,10"] = errors.New("input queue closed")

	err := h.syn.Drag("0", pt(10, 10))
	require.ErrorIs(t, err, errkind.ErrPlatform)
	assert.Equal(t, []string{"left press", "move 10,10", "left release"}, h.rec.events)
}

func TestScroll(t *testing.T) {
	tests := []struct {
		dir    Direction
		amount int
		want   string
	}{
		{Up, 3, "scroll -3 vertical"},
		{Down, 1, "scroll 1 vertical"},
		{LeftDir, 2, "scroll -2 horizontal"},
		{RightDir, 5, "scroll 5 horizontal"},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			h := newHarness(t, "linux")
			require.NoError(t, h.syn.Scroll("0", tt.amount, tt.dir))
			assert.Equal(t, []string{tt.want}, h.rec.events)
		})
	}
}

func TestScrollValidation(t *testing.T) {
	h := newHarness(t, "linux")

	_, err := ParseDirection("sideways")
	require.ErrorIs(t, err, errkind.ErrInvalidArgument)
	require.ErrorIs(t, h.syn.Scroll("0", 1, Direction("sideways")), errkind.ErrInvalidArgument)
	require.ErrorIs(t, h.syn.Scroll("7", 1, Up), errkind.ErrNotFound)
	require.NoError(t, h.syn.Scroll("", 1, Up), "monitor id is optional")
	assert.Equal(t, []string{"scroll -1 vertical"}, h.rec.events)
}

func TestButtonDownUp(t *testing.T) {
	h := newHarness(t, "linux")

	require.NoError(t, h.syn.ButtonDown())
	require.NoError(t, h.syn.ButtonUp())
	assert.Equal(t, []string{"left press", "left release"}, h.rec.events)
}

func TestCursorPositionIsMonitorRelative(t *testing.T) {
	h := newHarness(t, "linux")
	h.rec.cursorAt = image.Pt(-1000, 300)

	p, err := h.syn.CursorPosition("1")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(280, 100), p)

	_, err = h.syn.CursorPosition("nope")
	require.ErrorIs(t, err, errkind.ErrNotFound)
}

func TestTypeText(t *testing.T) {
	h := newHarness(t, "linux")

	require.NoError(t, h.syn.TypeText("héllo wörld"))
	assert.Equal(t, []string{"text héllo wörld"}, h.rec.events)
}

func TestPressKeyChordOrder(t *testing.T) {
	h := newHarness(t, "linux")

	require.NoError(t, h.syn.PressKey("ctrl+s"))
	assert.Equal(t, []string{"key control press", "key 's' click", "key control release"}, h.rec.events)
}

func TestPressKeyUnknownIssuesNothing(t *testing.T) {
	h := newHarness(t, "linux")

	err := h.syn.PressKey("ctrl+zzz_not_a_key")
	require.Error(t, err)
	assert.True(t, keys.IsUnknownKey(err))
	assert.Empty(t, h.rec.events)
	assert.Zero(t, h.backends)
}

func TestPressKeyReleasesModifierOnFailure(t *testing.T) {
	h := newHarness(t, "windows")
	h.rec.failOn["key s click"] = errors.New("injection blocked")

	err := h.syn.PressKey("shift+s")
	require.ErrorIs(t, err, errkind.ErrPlatform)
	assert.Equal(t, []string{"key shift press", "key s click", "key shift release"}, h.rec.events)
}

func TestHoldKey(t *testing.T) {
	h := newHarness(t, "windows")

	require.NoError(t, h.syn.HoldKey("a", 2))
	require.Len(t, h.rec.events, 100)
	for _, ev := range h.rec.events {
		assert.Equal(t, "key a click", ev)
	}
	assert.Empty(t, h.sleeps)
}

func TestHoldKeyWithModifier(t *testing.T) {
	h := newHarness(t, "linux")

	require.NoError(t, h.syn.HoldKey("shift+tab", 1))
	assert.Len(t, h.rec.events, 150)
	assert.Equal(t, "key shift press", h.rec.events[0])
	assert.Equal(t, "key tab click", h.rec.events[1])
	assert.Equal(t, "key shift release", h.rec.events[149])
}

// cancelAfter cancels once the recorder has seen n events.
type cancelAfter struct {
	*recorder
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Key(k keys.Key, a Action) error {
	err := c.recorder.Key(k, a)
	if len(c.events) == c.n {
		c.cancel()
	}
	return err
}

func TestHoldKeyContextStopsBetweenCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &cancelAfter{recorder: &recorder{}, n: 4, cancel: cancel}
	syn := New(func() (Backend, error) { return rec, nil }, testMonitors,
		keys.NewResolver(keys.TableFor("linux")))

	err := syn.HoldKeyContext(ctx, "shift+tab", 1)
	require.ErrorIs(t, err, context.Canceled)
	// The second cycle finishes and releases shift before the hold stops.
	assert.Equal(t, []string{
		"key shift press", "key tab click", "key shift release",
		"key shift press", "key tab click", "key shift release",
	}, rec.events)
}

func TestHoldKeyNegativeDuration(t *testing.T) {
	h := newHarness(t, "linux")
	require.ErrorIs(t, h.syn.HoldKey("a", -1), errkind.ErrInvalidArgument)
}

func TestReleaseAll(t *testing.T) {
	h := newHarness(t, "linux")
	h.rec.failOn["key alt release"] = errors.New("no such key")

	err := h.syn.ReleaseAll()
	require.ErrorIs(t, err, errkind.ErrPlatform)
	assert.Equal(t, []string{
		"key shift release",
		"key control release",
		"key alt release",
		"key option release",
		"key meta release",
		"left release",
	}, h.rec.events, "every release is attempted")
}

func TestBackendFactoryFailure(t *testing.T) {
	syn := New(func() (Backend, error) { return nil, errors.New("no display") }, testMonitors, nil)
	require.ErrorIs(t, syn.ButtonDown(), errkind.ErrPlatform)
}
