// Package notification shows dialogs that must not be missed, such as startup failures.
package notification

import "log"

// ShowInfo shows an informational dialog and blocks until it is dismissed.
func ShowInfo(title, message string) {
	log.Printf("%s: %s", title, message)
	showDialog(title, message, false)
}

// ShowBlockingError shows an error dialog and blocks until it is dismissed.
func ShowBlockingError(title, message string) {
	log.Printf("ERROR %s: %s", title, message)
	showDialog(title, message, true)
}
