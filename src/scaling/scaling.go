// Package scaling maps coordinates between a real screen and the reduced
// resolution screenshots are sent at.
package scaling

import (
	"fmt"
	"math"
	"strings"

	"desk-bridge/src/errkind"
)

type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var (
	XGA   = Resolution{Width: 1024, Height: 768}
	WXGA  = Resolution{Width: 1280, Height: 800}
	FWXGA = Resolution{Width: 1366, Height: 768}
)

// Targets in preference order. On an aspect-ratio tie the earlier one wins.
var Targets = []Resolution{XGA, WXGA, FWXGA}

// CutTarget is the region kept when screenshots are cropped instead of scaled.
var CutTarget = WXGA

type Source string

const (
	// Computer coordinates come from the real screen and are scaled down.
	Computer Source = "computer"
	// API coordinates come from a scaled screenshot and are scaled up.
	API Source = "api"
)

func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case Computer, API:
		return src, nil
	default:
		return "", fmt.Errorf("%w: invalid scaling source %q", errkind.ErrInvalidArgument, s)
	}
}

// Closest returns the target whose aspect ratio is nearest the screen's.
func Closest(screen Resolution) Resolution {
	ratio := float64(screen.Width) / float64(screen.Height)
	best := Targets[0]
	bestDiff := math.Abs(ratio - aspect(best))
	for _, t := range Targets[1:] {
		if d := math.Abs(aspect(t) - ratio); d < bestDiff {
			best, bestDiff = t, d
		}
	}
	return best
}

// Scale converts (x, y) from source space into the other space.
// In cut mode no scaling happens: Computer yields the cut size and API passes through.
func Scale(source Source, screen Resolution, x, y int, cutMode bool) (int, int, error) {
	if _, err := ParseSource(string(source)); err != nil {
		return 0, 0, err
	}
	if cutMode {
		if source == Computer {
			return CutTarget.Width, CutTarget.Height, nil
		}
		return x, y, nil
	}
	if screen.Width <= 0 || screen.Height <= 0 {
		return 0, 0, fmt.Errorf("%w: screen size %dx%d", errkind.ErrInvalidArgument, screen.Width, screen.Height)
	}

	target := Closest(screen)
	xf := float64(target.Width) / float64(screen.Width)
	yf := float64(target.Height) / float64(screen.Height)

	if source == API {
		return round(float64(x) / xf), round(float64(y) / yf), nil
	}
	return round(float64(x) * xf), round(float64(y) * yf), nil
}

// Target is the size a screenshot of screen should be resized to.
func Target(screen Resolution, cutMode bool) (Resolution, error) {
	w, h, err := Scale(Computer, screen, screen.Width, screen.Height, cutMode)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Width: w, Height: h}, nil
}

func aspect(r Resolution) float64 { return float64(r.Width) / float64(r.Height) }

// round halves toward positive infinity.
func round(v float64) int { return int(math.Floor(v + 0.5)) }
