//go:build !windows

package tray

// systray accepts PNG data outside Windows.
func iconBytes() ([]byte, error) { return iconPNG() }
