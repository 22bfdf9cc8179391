package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

const iconSize = 16

// iconPNG draws a monitor outline with a cursor dot.
func iconPNG() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	frame := color.NRGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	screen := color.NRGBA{R: 0xe8, G: 0xf1, B: 0xfb, A: 0xff}
	cursor := color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}

	for y := 2; y <= 11; y++ {
		for x := 1; x <= 14; x++ {
			if x == 1 || x == 14 || y == 2 || y == 11 {
				img.SetNRGBA(x, y, frame)
			} else {
				img.SetNRGBA(x, y, screen)
			}
		}
	}
	// stand
	for x := 6; x <= 9; x++ {
		img.SetNRGBA(x, 13, frame)
	}
	img.SetNRGBA(7, 12, frame)
	img.SetNRGBA(8, 12, frame)
	for y := 5; y <= 7; y++ {
		for x := 9; x <= 10; x++ {
			img.SetNRGBA(x, y, cursor)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
