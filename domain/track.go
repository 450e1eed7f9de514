package domain

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

type Track struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	PreviewURL string `json:"previewUrl,omitempty"`
	URI        string `json:"uri,omitempty"`
}

// Playable reports whether the track carries audio a recognition round can use.
func (t Track) Playable() bool {
	return t.PreviewURL != ""
}

// TrackSource hands a room the tracks to play. Seeded tracks win over any
// fallback list the source owns.
type TrackSource interface {
	ListFor(code RoomCode, seeded []Track) []Track
}

// TrackSourceFunc adapts a function to TrackSource.
type TrackSourceFunc func(code RoomCode, seeded []Track) []Track

func (f TrackSourceFunc) ListFor(code RoomCode, seeded []Track) []Track {
	return f(code, seeded)
}

// NormalizeTracks trims every field, drops tracks without title or artist and
// keeps the first occurrence of each id. Tracks without id get a positional one.
func NormalizeTracks(in []Track) []Track {
	out := make([]Track, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, t := range in {
		t.ID = strings.TrimSpace(t.ID)
		t.Title = strings.TrimSpace(t.Title)
		t.Artist = strings.TrimSpace(t.Artist)
		t.PreviewURL = strings.TrimSpace(t.PreviewURL)
		t.URI = strings.TrimSpace(t.URI)
		if t.Title == "" || t.Artist == "" {
			continue
		}
		if t.ID == "" {
			t.ID = "seed-" + strconv.Itoa(i)
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Rand is the randomness a room needs. Tests inject a deterministic one.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand is backed by the runtime seeded generator and is safe for
// concurrent use.
func DefaultRand() Rand { return globalRand{} }

// Shuffle permutes s in place (Fisher-Yates).
func Shuffle[T any](r Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
