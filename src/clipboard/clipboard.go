package clipboard

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"

	"desk-bridge/src/errkind"
)

var (
	writeMu  sync.Mutex
	initOnce sync.Once
	initErr  error
)

// Init prepares the platform clipboard. It is safe to call more than once.
func Init() error {
	initOnce.Do(func() {
		if err := clipboard.Init(); err != nil {
			initErr = fmt.Errorf("%w: clipboard unavailable: %v", errkind.ErrPlatform, err)
		}
	})
	return initErr
}

// Read returns the current text content of the clipboard.
func Read() (string, error) {
	if err := Init(); err != nil {
		return "", err
	}
	return string(clipboard.Read(clipboard.FmtText)), nil
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	if err := Init(); err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// System is the process clipboard as a value, for callers that take an interface.
type System struct{}

func (System) Read() (string, error)   { return Read() }
func (System) Write(text string) error { return Write(text) }
