// Package keys turns human-readable key names and "modifier+key" chords into
// keys the input backend can synthesize.
package keys

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"desk-bridge/src/errkind"
)

// ErrUnknownKey is returned for a token that is neither a named key nor a single character.
var ErrUnknownKey = fmt.Errorf("unknown key: %w", errkind.ErrInvalidArgument)

// Key is one resolved key. Exactly one of Name and Char is set.
type Key struct {
	Name Named
	Char rune
}

func (k Key) IsNamed() bool { return k.Name != "" }

func (k Key) String() string {
	if k.IsNamed() {
		return string(k.Name)
	}
	return fmt.Sprintf("%q", k.Char)
}

// Chord is the textual split of "modifier+key".
type Chord struct {
	Modifier    string
	HasModifier bool
	Key         string
}

// ParseChord splits on "+". Only the first two segments are used, so
// "ctrl+alt+del" becomes modifier "ctrl" and key "alt".
func ParseChord(input string) Chord {
	if !strings.Contains(input, "+") {
		return Chord{Key: input}
	}
	parts := strings.Split(input, "+")
	return Chord{Modifier: parts[0], HasModifier: true, Key: parts[1]}
}

// Resolved is a chord whose tokens have all been resolved.
type Resolved struct {
	Modifier *Key
	Key      Key
}

type Resolver struct {
	table *Table
}

func NewResolver(table *Table) *Resolver {
	if table == nil {
		table = DefaultTable()
	}
	return &Resolver{table: table}
}

func (r *Resolver) Table() *Table { return r.table }

// ResolveToken looks name up in the named table, then falls back to a single
// Unicode code point. The fallback keeps the caller's character unchanged.
func (r *Resolver) ResolveToken(name string) (Key, error) {
	if named, ok := r.table.Lookup(name); ok {
		return Key{Name: named}, nil
	}
	if utf8.RuneCountInString(name) == 1 {
		c, _ := utf8.DecodeRuneInString(name)
		if c != utf8.RuneError {
			return Key{Char: c}, nil
		}
	}
	return Key{}, fmt.Errorf("%w %q", ErrUnknownKey, name)
}

// ResolveChord resolves both tokens before anything is synthesized.
func (r *Resolver) ResolveChord(input string) (Resolved, error) {
	chord := ParseChord(input)
	var out Resolved
	if chord.HasModifier {
		mod, err := r.ResolveToken(chord.Modifier)
		if err != nil {
			return Resolved{}, fmt.Errorf("modifier: %w", err)
		}
		out.Modifier = &mod
	}
	key, err := r.ResolveToken(chord.Key)
	if err != nil {
		return Resolved{}, err
	}
	out.Key = key
	return out, nil
}

// IsUnknownKey reports whether err came from an unresolvable token.
func IsUnknownKey(err error) bool { return errors.Is(err, ErrUnknownKey) }
