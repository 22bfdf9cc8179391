//go:build !windows

package notification

// showDialog has no native surface outside Windows; the log line is the notification.
func showDialog(title, message string, isError bool) {}
