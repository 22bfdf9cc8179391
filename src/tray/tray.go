// Package tray shows the resident's status icon using getlantern/systray.
package tray

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"desk-bridge/src/notification"
)

type Config struct {
	Title   string
	Tooltip string
	// OnReleaseAll is bound to the "Release all keys" menu item.
	OnReleaseAll func()
	OnExit       func()
}

type Tray struct {
	cfg  Config
	quit chan struct{}
	once sync.Once
}

var (
	mu         sync.Mutex
	ready      bool
	tooltip    string
	aboutLines []string
)

func New(cfg Config) (*Tray, error) {
	if cfg.Title == "" {
		return nil, fmt.Errorf("tray title is required")
	}
	mu.Lock()
	tooltip = cfg.Tooltip
	mu.Unlock()
	return &Tray{cfg: cfg, quit: make(chan struct{})}, nil
}

// Run blocks in the systray event loop until Destroy or the Quit item.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	icon, err := iconBytes()
	if err != nil {
		log.Printf("tray: icon unavailable: %v", err)
	} else {
		systray.SetIcon(icon)
	}
	systray.SetTitle(t.cfg.Title)

	mu.Lock()
	ready = true
	systray.SetTooltip(tooltip)
	mu.Unlock()

	mRelease := systray.AddMenuItem("Release all keys", "Release every modifier and the left mouse button")
	mAbout := systray.AddMenuItem("About", "About "+t.cfg.Title)
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Stop the resident bridge")

	go func() {
		for {
			select {
			case <-mRelease.ClickedCh:
				if t.cfg.OnReleaseAll != nil {
					t.cfg.OnReleaseAll()
				}
			case <-mAbout.ClickedCh:
				go notification.ShowInfo("About "+t.cfg.Title, aboutText(t.cfg.Title))
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			case <-t.quit:
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	mu.Lock()
	ready = false
	mu.Unlock()
	t.once.Do(func() { close(t.quit) })
	if t.cfg.OnExit != nil {
		t.cfg.OnExit()
	}
}

// Destroy removes the icon and ends Run.
func (t *Tray) Destroy() {
	systray.Quit()
}

// UpdateTooltip replaces the tooltip, or stores it until the tray is ready.
func UpdateTooltip(text string) {
	mu.Lock()
	defer mu.Unlock()
	tooltip = text
	if ready {
		systray.SetTooltip(text)
	}
}

// SetAboutExtra appends a line to the About dialog, such as the bound IPC port.
func SetAboutExtra(line string) {
	mu.Lock()
	defer mu.Unlock()
	aboutLines = append(aboutLines, line)
}

func aboutText(title string) string {
	mu.Lock()
	defer mu.Unlock()
	lines := append([]string{title, "Desktop automation bridge"}, aboutLines...)
	return strings.Join(lines, "\n")
}
