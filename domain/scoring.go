package domain

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var bracketed = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)

// NormalizeTitle lower-cases a title, drops parenthesized and bracketed
// parts, turns every non alphanumeric rune into a space and collapses runs
// of spaces.
func NormalizeTitle(s string) string {
	s = bracketed.ReplaceAllString(strings.ToLower(s), " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Answer holds either a choice index or free text, depending on the question.
type Answer struct {
	Choice int
	Text   string
}

// IsCorrect scores a single answer against the question and its track.
func IsCorrect(q Question, t Track, a Answer) bool {
	switch body := q.Body.(type) {
	case MultipleChoice:
		return a.Choice == body.CorrectIndex
	case Recognition:
		got := NormalizeTitle(a.Text)
		return got != "" && got == NormalizeTitle(t.Title)
	default:
		return false
	}
}

// Leaderboard orders players by score, then name.
func Leaderboard(players []Player) []Player {
	out := append([]Player(nil), players...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}
