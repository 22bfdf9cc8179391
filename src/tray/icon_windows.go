//go:build windows

package tray

import "encoding/binary"

// iconBytes wraps the PNG in a single-image ICO container, which the Windows
// tray requires. PNG payloads inside ICO are supported since Vista.
func iconBytes() ([]byte, error) {
	p, err := iconPNG()
	if err != nil {
		return nil, err
	}
	return wrapICO(p, iconSize), nil
}

func wrapICO(pngData []byte, size int) []byte {
	const headerLen = 6 + 16
	out := make([]byte, headerLen, headerLen+len(pngData))
	binary.LittleEndian.PutUint16(out[2:], 1) // type: icon
	binary.LittleEndian.PutUint16(out[4:], 1) // one image
	out[6] = byte(size)
	out[7] = byte(size)
	binary.LittleEndian.PutUint16(out[10:], 1)  // planes
	binary.LittleEndian.PutUint16(out[12:], 32) // bpp
	binary.LittleEndian.PutUint32(out[14:], uint32(len(pngData)))
	binary.LittleEndian.PutUint32(out[18:], headerLen)
	return append(out, pngData...)
}
