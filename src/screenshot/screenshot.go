// Package screenshot grabs a display, crops and resizes the frame and returns it as base64 PNG.
package screenshot

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"log"
	"math"

	"github.com/kbinani/screenshot"
	"github.com/nfnt/resize"

	"desk-bridge/src/errkind"
	"desk-bridge/src/monitor"
)

// Request is one capture call. ScaleFactor only matters in crop mode.
type Request struct {
	MonitorID    string
	TargetWidth  uint
	TargetHeight uint
	CropMode     bool
	ScaleFactor  float64
}

type Result struct {
	Base64 string
	Width  int
	Height int
}

// Grabber captures a rectangle of the virtual desktop.
type Grabber interface {
	Grab(bounds image.Rectangle) (*image.RGBA, error)
}

type GrabberFunc func(bounds image.Rectangle) (*image.RGBA, error)

func (f GrabberFunc) Grab(bounds image.Rectangle) (*image.RGBA, error) { return f(bounds) }

// SystemGrabber captures through kbinani/screenshot.
func SystemGrabber() Grabber {
	return GrabberFunc(func(bounds image.Rectangle) (*image.RGBA, error) {
		if screenshot.NumActiveDisplays() == 0 {
			return nil, fmt.Errorf("no active displays found")
		}
		return screenshot.CaptureRect(bounds)
	})
}

// Monitors resolves a monitor id to its geometry.
type Monitors interface {
	Resolve(id string) (monitor.Monitor, error)
}

type Pipeline struct {
	monitors Monitors
	grabber  Grabber
}

func NewPipeline(monitors Monitors, grabber Grabber) *Pipeline {
	if grabber == nil {
		grabber = SystemGrabber()
	}
	return &Pipeline{monitors: monitors, grabber: grabber}
}

// Capture grabs the monitor, crops the top-left region in crop mode, resizes
// with Lanczos3 to exactly the target size and encodes the result.
func (p *Pipeline) Capture(req Request) (Result, error) {
	if req.TargetWidth == 0 || req.TargetHeight == 0 {
		return Result{}, fmt.Errorf("%w: invalid target size %dx%d", errkind.ErrInvalidArgument, req.TargetWidth, req.TargetHeight)
	}
	if req.CropMode && !(req.ScaleFactor > 0) {
		return Result{}, fmt.Errorf("%w: scale factor must be positive in crop mode, got %v", errkind.ErrInvalidArgument, req.ScaleFactor)
	}

	m, err := p.monitors.Resolve(req.MonitorID)
	if err != nil {
		return Result{}, err
	}

	frame, err := p.grabber.Grab(m.Bounds())
	if err != nil {
		return Result{}, fmt.Errorf("%w: capture monitor %s: %v", errkind.ErrPlatform, m.ID, err)
	}
	if frame == nil || frame.Bounds().Empty() {
		return Result{}, fmt.Errorf("%w: capture monitor %s returned an empty frame", errkind.ErrPlatform, m.ID)
	}

	var src image.Image = frame
	if req.CropMode {
		src = cropTopLeft(frame, req.TargetWidth, req.TargetHeight, req.ScaleFactor)
	}
	log.Printf("Capture: monitor=%s frame=%v source=%v target=%dx%d crop=%v",
		m.ID, frame.Bounds().Size(), src.Bounds().Size(), req.TargetWidth, req.TargetHeight, req.CropMode)

	img := resize.Resize(req.TargetWidth, req.TargetHeight, src, resize.Lanczos3)

	encoded, err := EncodePNGBase64(img)
	if err != nil {
		return Result{}, err
	}
	b := img.Bounds()
	return Result{Base64: encoded, Width: b.Dx(), Height: b.Dy()}, nil
}

// cropTopLeft keeps the round(w*sf) x round(h*sf) region anchored at the frame
// origin, clamped to the frame.
func cropTopLeft(frame *image.RGBA, w, h uint, sf float64) image.Image {
	b := frame.Bounds()
	cw := min(int(math.Round(float64(w)*sf)), b.Dx())
	ch := min(int(math.Round(float64(h)*sf)), b.Dy())
	cw, ch = max(cw, 1), max(ch, 1)
	return frame.SubImage(image.Rect(b.Min.X, b.Min.Y, b.Min.X+cw, b.Min.Y+ch))
}

// EncodePNGBase64 encodes img as PNG in memory and returns standard base64.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: failed to encode image as PNG: %v", errkind.ErrEncode, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
