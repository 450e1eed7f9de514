package domain

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"mixmatch/domain/event"
	"mixmatch/errors"

	"github.com/stretchr/testify/require"
)

func TestNewMultipleChoice_DedupesAndPads(t *testing.T) {
	req := require.New(t)

	q, err := NewMultipleChoice("Who?", "ABBA", []string{"abba", "Drake", " ", "drake"}, identity)

	req.NoError(err)
	req.Equal([]string{"ABBA", "Drake", "I don't know", "None of these"}, q.Choices())
	req.Equal(0, q.Body.(MultipleChoice).CorrectIndex)
	req.NotEmpty(q.ID)
}

func TestNewMultipleChoice_TracksCorrectIndexWhenShuffled(t *testing.T) {
	req := require.New(t)

	q, err := NewMultipleChoice("Who?", "Nirvana", []string{"A", "B", "C"}, stubRand{v: 0})

	req.NoError(err)
	mc := q.Body.(MultipleChoice)
	req.Len(mc.Options, OptionCount)
	req.Equal("Nirvana", mc.Options[mc.CorrectIndex])
}

func TestMultipleChoiceFromOptions(t *testing.T) {
	testCases := []struct {
		description  string
		prompt       string
		options      []string
		correctIndex int
		expectedErr  error
	}{
		{description: "valid", prompt: "Which year?", options: []string{"1982", "1983", "1984", "1985"}, correctIndex: 2},
		{description: "index out of range", prompt: "Which year?", options: []string{"1982", "1983"}, correctIndex: 4, expectedErr: errors.ErrMalformedQuestion},
		{description: "negative index", prompt: "Which year?", options: []string{"1982", "1983"}, correctIndex: -1, expectedErr: errors.ErrMalformedQuestion},
		{description: "blank prompt", prompt: " ", options: []string{"1982", "1983"}, correctIndex: 0, expectedErr: errors.ErrMalformedQuestion},
		{description: "single option", prompt: "Which year?", options: []string{"1982"}, correctIndex: 0, expectedErr: errors.ErrMalformedQuestion},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			req := require.New(t)
			q, err := MultipleChoiceFromOptions(tc.prompt, tc.options, tc.correctIndex, identity)
			if tc.expectedErr != nil {
				req.ErrorIs(err, tc.expectedErr)
				return
			}
			req.NoError(err)
			mc := q.Body.(MultipleChoice)
			req.Equal(tc.options[tc.correctIndex], mc.Options[mc.CorrectIndex])
		})
	}
}

func TestFallbackQuestion_ArtistAlreadyADistractor(t *testing.T) {
	req := require.New(t)

	q := FallbackQuestion(Track{ID: "t6", Title: "Shake It Off", Artist: "Taylor Swift"}, identity)

	req.Equal(`Who is the artist of "Shake It Off"?`, q.Prompt)
	req.Equal([]string{"Taylor Swift", "Drake", "ABBA", "I don't know"}, q.Choices())
}

func TestNormalizeTitle(t *testing.T) {
	testCases := []struct {
		description string
		input       string
		expected    string
	}{
		{description: "lower case", input: "Billie Jean", expected: "billie jean"},
		{description: "parentheses", input: "Take On Me (Remastered 2015)", expected: "take on me"},
		{description: "brackets", input: "HUMBLE. [Explicit]", expected: "humble"},
		{description: "punctuation", input: "Hey Ya!", expected: "hey ya"},
		{description: "inner punctuation", input: "Don't-Stop", expected: "don t stop"},
		{description: "accents are letters", input: "Café del Mar", expected: "café del mar"},
		{description: "blank", input: "  ()  ", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			require.Equal(t, tc.expected, NormalizeTitle(tc.input))
		})
	}
}

func TestIsCorrect_RecognitionRejectsBlank(t *testing.T) {
	req := require.New(t)
	q := RecognitionQuestion(Track{Title: "(Intro)", PreviewURL: "x"})

	req.False(IsCorrect(q, Track{Title: "(Intro)"}, Answer{Text: "  "}))
}

func TestLeaderboard_TieBreakOnName(t *testing.T) {
	req := require.New(t)

	board := Leaderboard([]Player{
		{ID: "1", Name: "zoe", Score: 2},
		{ID: "2", Name: "adam", Score: 2},
		{ID: "3", Name: "max", Score: 5},
	})

	req.Equal([]string{"max", "adam", "zoe"}, []string{board[0].Name, board[1].Name, board[2].Name})
}

func TestSanitizeName(t *testing.T) {
	req := require.New(t)

	req.Equal("Player", SanitizeName(""))
	req.Equal("Big Fan", SanitizeName("  Big   Fan "))
	req.Equal(MaxNameLength, len([]rune(SanitizeName(strings.Repeat("é", 40)))))
}

func pngDataURL(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return pngDataPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestValidateEmote(t *testing.T) {
	valid := pngDataURL(t)
	testCases := []struct {
		description string
		image       string
		expected    error
	}{
		{description: "valid png", image: valid, expected: nil},
		{description: "wrong prefix", image: "data:image/gif;base64,R0lGOD", expected: errors.ErrBadImage},
		{description: "not base64", image: pngDataPrefix + "%%%", expected: errors.ErrBadImage},
		{description: "not a png", image: pngDataPrefix + base64.StdEncoding.EncodeToString([]byte("hello")), expected: errors.ErrBadImage},
		{description: "too large", image: pngDataPrefix + strings.Repeat("A", MaxEmoteLength), expected: errors.ErrImageTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			err := ValidateEmote(tc.image)
			if tc.expected == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestRoom_SendEmote_Cooldown(t *testing.T) {
	req := require.New(t)
	room := newTestRoom(testTracks, identity)
	joinAll(t, room, "alice")
	room.DrainEvents()
	img := pngDataURL(t)

	// Strangers cannot send
	req.ErrorIs(room.SendEmote("nobody", img, t0), errors.ErrNotInRoom)

	// First emote goes through
	req.NoError(room.SendEmote("alice", img, t0))
	evts := room.DrainEvents()
	req.Len(evts, 1)
	req.Equal(event.EmoteNew, evts[0].Type)
	req.Equal("alice", evts[0].Payload.(event.Emote).Name)

	// Second one within the window is refused with the wait
	err := room.SendEmote("alice", img, t0.Add(1500*time.Millisecond))
	var cooldown *errors.CooldownError
	req.True(errors.As(err, &cooldown))
	req.Equal(4, cooldown.Wait)

	// The host has its own window
	req.NoError(room.SendEmote("host", img, t0.Add(time.Second)))

	// After the window it works again
	req.NoError(room.SendEmote("alice", img, t0.Add(EmoteCooldown)))
}
