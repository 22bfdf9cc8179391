package input

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"desk-bridge/src/keys"
)

// robotgo names for the named keys that differ from our own.
var robotgoNames = map[keys.Named]string{
	keys.Control:    "ctrl",
	keys.DownArrow:  "down",
	keys.Escape:     "esc",
	keys.LeftArrow:  "left",
	keys.Meta:       "cmd",
	keys.Option:     "alt",
	keys.Return:     "enter",
	keys.RightArrow: "right",
	keys.UpArrow:    "up",
}

type robotgoBackend struct{}

// RobotgoFactory opens a robotgo-backed handle. robotgo keeps no per-handle
// state so every call gets a new zero-size value.
func RobotgoFactory() (Backend, error) { return robotgoBackend{}, nil }

// MoveTo and Location go through setCursor/cursorPos, which bypass robotgo's
// DPI rescaling on Windows so coordinates stay in physical pixels.
func (robotgoBackend) MoveTo(x, y int) error { return setCursor(x, y) }

func (robotgoBackend) Button(b Button, action Action) error {
	switch action {
	case Press:
		return robotgo.Toggle(string(b))
	case Release:
		return robotgo.Toggle(string(b), "up")
	default:
		robotgo.Click(string(b))
		return nil
	}
}

func (robotgoBackend) Scroll(amount int, axis Axis) error {
	if amount == 0 {
		return nil
	}
	dir := "down"
	switch {
	case axis == Vertical && amount < 0:
		dir = "up"
	case axis == Horizontal && amount < 0:
		dir = "left"
	case axis == Horizontal:
		dir = "right"
	}
	if amount < 0 {
		amount = -amount
	}
	robotgo.ScrollDir(amount, dir)
	return nil
}

func (robotgoBackend) Location() (int, int, error) { return cursorPos() }

func (robotgoBackend) Text(s string) error {
	robotgo.TypeStr(s)
	return nil
}

func (robotgoBackend) Key(k keys.Key, action Action) error {
	name, ok := robotgoKeyName(k)
	if !ok {
		// Characters outside ASCII have no keycode; they are injected as text on
		// press/click and there is nothing to release.
		if action == Release {
			return nil
		}
		robotgo.UnicodeType(uint32(k.Char))
		return nil
	}

	var err error
	switch action {
	case Press:
		err = robotgo.KeyToggle(name, "down")
	case Release:
		err = robotgo.KeyToggle(name, "up")
	default:
		err = robotgo.KeyTap(name)
	}
	if err != nil {
		return fmt.Errorf("key %s %s: %w", name, action, err)
	}
	return nil
}

func robotgoKeyName(k keys.Key) (string, bool) {
	if k.IsNamed() {
		if name, ok := robotgoNames[k.Name]; ok {
			return name, true
		}
		return string(k.Name), true
	}
	if k.Char > 0 && k.Char < 128 {
		return string(k.Char), true
	}
	return "", false
}
