//go:build windows

package monitor

import (
	"fmt"
	"image"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	shcore                  = windows.NewLazySystemDLL("shcore.dll")
	procEnumDisplayMonitors = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW     = user32.NewProc("GetMonitorInfoW")
	procGetDpiForMonitor    = shcore.NewProc("GetDpiForMonitor")
)

const (
	monitorInfoPrimary = 1 // MONITORINFOF_PRIMARY
	mdtEffectiveDPI    = 0
	defaultDPI         = 96
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type monitorInfoExW struct {
	Size    uint32
	Monitor rect
	Work    rect
	Flags   uint32
	Device  [32]uint16
}

// SystemSource enumerates monitors with EnumDisplayMonitors. The id is the GDI
// device name (\\.\DISPLAY1), which survives other displays being unplugged.
func SystemSource() Source {
	return SourceFunc(func() ([]Display, error) {
		var displays []Display
		cb := windows.NewCallback(func(hMonitor, hdc, lprc, data uintptr) uintptr {
			var mi monitorInfoExW
			mi.Size = uint32(unsafe.Sizeof(mi))
			if ret, _, _ := procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&mi))); ret == 0 {
				return 1
			}
			device := windows.UTF16ToString(mi.Device[:])
			displays = append(displays, Display{
				ID:          device,
				Name:        device,
				Bounds:      image.Rect(int(mi.Monitor.Left), int(mi.Monitor.Top), int(mi.Monitor.Right), int(mi.Monitor.Bottom)),
				ScaleFactor: monitorScale(hMonitor),
				Primary:     mi.Flags&monitorInfoPrimary != 0,
			})
			return 1
		})
		if ret, _, err := procEnumDisplayMonitors.Call(0, 0, cb, 0); ret == 0 {
			return nil, fmt.Errorf("EnumDisplayMonitors: %v", err)
		}
		return displays, nil
	})
}

// monitorScale reads the effective DPI of one monitor. 0 means unknown.
func monitorScale(hMonitor uintptr) float64 {
	if procGetDpiForMonitor.Find() != nil {
		return 0
	}
	var dpiX, dpiY uint32
	hr, _, _ := procGetDpiForMonitor.Call(hMonitor, mdtEffectiveDPI,
		uintptr(unsafe.Pointer(&dpiX)), uintptr(unsafe.Pointer(&dpiY)))
	if hr != 0 || dpiX == 0 {
		return 0
	}
	return float64(dpiX) / defaultDPI
}
