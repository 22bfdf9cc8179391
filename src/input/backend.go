package input

import (
	"fmt"
	"strings"

	"desk-bridge/src/errkind"
	"desk-bridge/src/keys"
)

type Button string

const (
	Left  Button = "left"
	Right Button = "right"
)

// ParseSide accepts only "left" and "right". There is no middle button.
func ParseSide(s string) (Button, error) {
	switch b := Button(strings.ToLower(strings.TrimSpace(s))); b {
	case Left, Right:
		return b, nil
	default:
		return "", fmt.Errorf("%w: invalid button side %q", errkind.ErrInvalidArgument, s)
	}
}

type Direction string

const (
	Up       Direction = "up"
	Down     Direction = "down"
	LeftDir  Direction = "left"
	RightDir Direction = "right"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down, LeftDir, RightDir:
		return d, nil
	default:
		return "", fmt.Errorf("%w: invalid scroll direction %q", errkind.ErrInvalidArgument, s)
	}
}

type Axis int

const (
	Vertical Axis = iota
	Horizontal
)

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// axisAndSign maps a direction onto an axis. Up and left are negative.
func (d Direction) axisAndSign() (Axis, int) {
	switch d {
	case Up:
		return Vertical, -1
	case LeftDir:
		return Horizontal, -1
	case RightDir:
		return Horizontal, 1
	default:
		return Vertical, 1
	}
}

type Action int

const (
	Press Action = iota
	Release
	Click
)

func (a Action) String() string {
	switch a {
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return "click"
	}
}

// Backend is one handle onto the OS input subsystem. Coordinates are absolute desktop pixels.
type Backend interface {
	MoveTo(x, y int) error
	Button(b Button, action Action) error
	// Scroll moves amount ticks along axis; negative is up or left.
	Scroll(amount int, axis Axis) error
	Location() (x, y int, err error)
	Text(s string) error
	Key(k keys.Key, action Action) error
}

// Factory opens a fresh Backend for a single operation.
type Factory func() (Backend, error)
