//go:build !windows

package input

import "github.com/go-vgo/robotgo"

func setCursor(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func cursorPos() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}
