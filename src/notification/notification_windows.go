//go:build windows

package notification

import (
	"log"

	"golang.org/x/sys/windows"
)

const (
	mbOK              = 0x00000000
	mbIconError       = 0x00000010
	mbIconInformation = 0x00000040
	mbSetForeground   = 0x00010000
	mbTopmost         = 0x00040000
)

func showDialog(title, message string, isError bool) {
	titlePtr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return
	}
	messagePtr, err := windows.UTF16PtrFromString(message)
	if err != nil {
		return
	}
	style := uint32(mbOK | mbSetForeground | mbTopmost | mbIconInformation)
	if isError {
		style = mbOK | mbSetForeground | mbTopmost | mbIconError
	}
	if _, err := windows.MessageBox(0, messagePtr, titlePtr, style); err != nil {
		log.Printf("MessageBox failed: %v", err)
	}
}
