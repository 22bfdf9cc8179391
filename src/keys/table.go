package keys

import (
	"runtime"
	"strings"
	"unicode/utf8"
)

// Named is a symbolic key the platform can synthesize directly.
type Named string

const (
	Alt        Named = "alt"
	Backspace  Named = "backspace"
	CapsLock   Named = "capslock"
	Control    Named = "control"
	Delete     Named = "delete"
	DownArrow  Named = "downarrow"
	End        Named = "end"
	Escape     Named = "escape"
	F1         Named = "f1"
	F2         Named = "f2"
	F3         Named = "f3"
	F4         Named = "f4"
	F5         Named = "f5"
	F6         Named = "f6"
	F7         Named = "f7"
	F8         Named = "f8"
	F9         Named = "f9"
	F10        Named = "f10"
	F11        Named = "f11"
	F12        Named = "f12"
	Home       Named = "home"
	LeftArrow  Named = "leftarrow"
	Meta       Named = "meta"
	Option     Named = "option"
	PageDown   Named = "pagedown"
	PageUp     Named = "pageup"
	Return     Named = "return"
	RightArrow Named = "rightarrow"
	Shift      Named = "shift"
	Space      Named = "space"
	Tab        Named = "tab"
	UpArrow    Named = "uparrow"
)

// Modifiers are the keys released by a release-all request.
var Modifiers = []Named{Shift, Control, Alt, Option, Meta}

var commonNames = map[string]Named{
	"alt":        Alt,
	"backspace":  Backspace,
	"capslock":   CapsLock,
	"control":    Control,
	"ctrl":       Control,
	"delete":     Delete,
	"downarrow":  DownArrow,
	"down":       DownArrow,
	"end":        End,
	"escape":     Escape,
	"esc":        Escape,
	"f1":         F1,
	"f2":         F2,
	"f3":         F3,
	"f4":         F4,
	"f5":         F5,
	"f6":         F6,
	"f7":         F7,
	"f8":         F8,
	"f9":         F9,
	"f10":        F10,
	"f11":        F11,
	"f12":        F12,
	"home":       Home,
	"leftarrow":  LeftArrow,
	"left":       LeftArrow,
	"meta":       Meta,
	"command":    Meta,
	"windows":    Meta,
	"super":      Meta,
	"option":     Option,
	"pagedown":   PageDown,
	"pageup":     PageUp,
	"return":     Return,
	"enter":      Return,
	"rightarrow": RightArrow,
	"right":      RightArrow,
	"shift":      Shift,
	"space":      Space,
	"tab":        Tab,
	"uparrow":    UpArrow,
	"up":         UpArrow,
}

// Table is the named-key space of one platform family.
type Table struct {
	platform string
	names    map[string]Named
	alnum    bool
}

// TableFor returns the table for a GOOS value. Only the windows table carries
// named codes for a-z and 0-9; elsewhere those characters take the Unicode path.
func TableFor(goos string) *Table {
	names := make(map[string]Named, len(commonNames)+36)
	for k, v := range commonNames {
		names[k] = v
	}
	alnum := goos == "windows"
	if alnum {
		for c := 'a'; c <= 'z'; c++ {
			names[string(c)] = Named(string(c))
		}
		for c := '0'; c <= '9'; c++ {
			names[string(c)] = Named(string(c))
		}
	}
	return &Table{platform: goos, names: names, alnum: alnum}
}

// DefaultTable is the table for the running platform.
func DefaultTable() *Table { return TableFor(runtime.GOOS) }

func (t *Table) Platform() string { return t.platform }

// NamedAlphanumerics reports whether letters and digits resolve to named codes.
func (t *Table) NamedAlphanumerics() bool { return t.alnum }

// Lookup matches multi-character names case-insensitively. Single characters
// match exactly, so "A" is left to the Unicode fallback and keeps its case.
func (t *Table) Lookup(name string) (Named, bool) {
	if utf8.RuneCountInString(name) == 1 {
		n, ok := t.names[name]
		return n, ok
	}
	n, ok := t.names[strings.ToLower(name)]
	return n, ok
}
