package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultPlayerName = "Player"
	MaxNameLength     = 24
	hostDisplayName   = "Host"
)

type Player struct {
	ID        ConnID
	Name      string
	Score     int
	JoinedSeq uint64
}

func (p Player) Key() PlayerKey { return KeyOf(p.Name) }

// reclaimEntry is what a disconnected player leaves behind.
type reclaimEntry struct {
	Name  string
	Score int
}

// SanitizeName trims, defaults and truncates a display name.
func SanitizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return DefaultPlayerName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	return name
}

// uniqueName decorates base with " (n)" until its key collides with nothing
// in taken.
func uniqueName(base string, taken map[PlayerKey]struct{}) string {
	if _, ok := taken[KeyOf(base)]; !ok {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if _, ok := taken[KeyOf(candidate)]; !ok {
			return candidate
		}
	}
}
