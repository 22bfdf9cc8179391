// Package monitor enumerates the physical displays attached to the machine.
package monitor

import (
	"fmt"
	"image"
	"log"

	"desk-bridge/src/errkind"
)

// Monitor describes one display in global desktop coordinates.
// Width and Height are device pixels.
type Monitor struct {
	ID          string  `json:"id"`
	IsPrimary   bool    `json:"is_primary"`
	Name        string  `json:"name"`
	Width       uint32  `json:"width"`
	Height      uint32  `json:"height"`
	X           int32   `json:"x"`
	Y           int32   `json:"y"`
	ScaleFactor float64 `json:"scale_factor"`
}

// Origin returns the top-left corner of the monitor on the virtual desktop.
func (m Monitor) Origin() image.Point {
	return image.Point{X: int(m.X), Y: int(m.Y)}
}

// Bounds returns the monitor rectangle on the virtual desktop.
func (m Monitor) Bounds() image.Rectangle {
	return image.Rect(int(m.X), int(m.Y), int(m.X)+int(m.Width), int(m.Y)+int(m.Height))
}

// Display is what a Source reports for a single attached screen.
type Display struct {
	// ID is a stable identifier such as the OS device name. When empty the
	// registry derives one from the geometry.
	ID          string
	Name        string
	Bounds      image.Rectangle
	ScaleFactor float64
	// Primary is set by sources that know which display the OS treats as primary.
	Primary bool
}

// GeometryID identifies a display by size and origin in X11 geometry form,
// e.g. "1920x1080+0+0" or "1280x1024-1280+200".
func GeometryID(bounds image.Rectangle) string {
	return fmt.Sprintf("%dx%d%+d%+d", bounds.Dx(), bounds.Dy(), bounds.Min.X, bounds.Min.Y)
}

// Source reports the displays currently attached, in enumeration order.
type Source interface {
	Displays() ([]Display, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func() ([]Display, error)

func (f SourceFunc) Displays() ([]Display, error) { return f() }

// Registry re-enumerates on every call. Nothing is cached.
type Registry struct {
	source Source
}

func NewRegistry(source Source) *Registry {
	if source == nil {
		source = SystemSource()
	}
	return &Registry{source: source}
}

// List returns every attached display.
func (r *Registry) List() ([]Monitor, error) {
	displays, err := r.source.Displays()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate displays: %v", errkind.ErrPlatform, err)
	}
	if len(displays) == 0 {
		return nil, fmt.Errorf("%w: no active displays found", errkind.ErrPlatform)
	}

	primary := -1
	for i, d := range displays {
		if d.Primary {
			primary = i
			break
		}
	}
	if primary < 0 {
		for i, d := range displays {
			if d.Bounds.Min.X == 0 && d.Bounds.Min.Y == 0 {
				primary = i
				break
			}
		}
	}

	seen := make(map[string]int, len(displays))
	monitors := make([]Monitor, 0, len(displays))
	for i, d := range displays {
		scale := d.ScaleFactor
		if scale <= 0 {
			scale = 1
		}
		id := d.ID
		if id == "" {
			id = GeometryID(d.Bounds)
		}
		// Mirrored outputs share a geometry.
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id = fmt.Sprintf("%s#%d", id, n+1)
		} else {
			seen[id] = 1
		}
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("Display %d", i+1)
		}
		monitors = append(monitors, Monitor{
			ID:          id,
			IsPrimary:   i == primary,
			Name:        name,
			Width:       uint32(max(d.Bounds.Dx(), 0)),
			Height:      uint32(max(d.Bounds.Dy(), 0)),
			X:           int32(d.Bounds.Min.X),
			Y:           int32(d.Bounds.Min.Y),
			ScaleFactor: scale,
		})
	}
	return monitors, nil
}

// Resolve finds the monitor with the given id. There is no fallback to the primary display.
func (r *Registry) Resolve(id string) (Monitor, error) {
	monitors, err := r.List()
	if err != nil {
		return Monitor{}, err
	}
	for _, m := range monitors {
		if m.ID == id {
			return m, nil
		}
	}
	log.Printf("monitor %q not found among %d displays", id, len(monitors))
	return Monitor{}, fmt.Errorf("%w: monitor %q", errkind.ErrNotFound, id)
}
