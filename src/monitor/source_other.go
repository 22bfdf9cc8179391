//go:build !windows

package monitor

import (
	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
)

// SystemSource enumerates the real displays. Bounds come from kbinani/screenshot
// and the per-display scale factor from robotgo. Ids are derived from geometry.
func SystemSource() Source {
	return SourceFunc(func() ([]Display, error) {
		n := screenshot.NumActiveDisplays()
		displays := make([]Display, 0, n)
		for i := 0; i < n; i++ {
			displays = append(displays, Display{
				Bounds:      screenshot.GetDisplayBounds(i),
				ScaleFactor: robotgo.ScaleF(i),
			})
		}
		return displays, nil
	})
}
