package domain

import (
	"fmt"
	"strings"

	"mixmatch/errors"

	"github.com/google/uuid"
)

const OptionCount = 4

var (
	fallbackDistractors = []string{"Drake", "Taylor Swift", "ABBA"}
	paddingOptions      = []string{"I don't know", "None of these", "Someone else"}
)

type Question struct {
	ID     string
	Prompt string
	Body   Body
	Media  *Media
}

type Media struct {
	AudioURL string
	URI      string
}

// Body is either MultipleChoice or Recognition.
type Body interface {
	kind() string
}

type MultipleChoice struct {
	Options      []string
	CorrectIndex int
}

func (MultipleChoice) kind() string { return "mcq" }

// Recognition asks for the title of the track being played.
type Recognition struct{}

func (Recognition) kind() string { return "recognition" }

// Kind is the wire name of the question type.
func (q Question) Kind() string {
	if q.Body == nil {
		return ""
	}
	return q.Body.kind()
}

// Validate rejects a question that cannot be played to the end: a missing
// body, or a multiple choice without two options and an answer among them.
func (q Question) Validate() error {
	switch body := q.Body.(type) {
	case MultipleChoice:
		if len(body.Options) < 2 || body.CorrectIndex < 0 || body.CorrectIndex >= len(body.Options) {
			return errors.ErrMalformedQuestion
		}
	case Recognition:
	default:
		return errors.ErrMalformedQuestion
	}
	if strings.TrimSpace(q.ID) == "" {
		return errors.ErrMalformedQuestion
	}
	return nil
}

// Choices returns the options of a multiple choice question, nil otherwise.
func (q Question) Choices() []string {
	if mc, ok := q.Body.(MultipleChoice); ok {
		return mc.Options
	}
	return nil
}

// NewMultipleChoice builds a shuffled four option question out of the correct
// answer and its distractors. Options are de-duplicated case-insensitively and
// padded when fewer than four remain.
func NewMultipleChoice(prompt, correct string, distractors []string, r Rand) (Question, error) {
	correct = strings.TrimSpace(correct)
	if strings.TrimSpace(prompt) == "" || correct == "" {
		return Question{}, errors.ErrMalformedQuestion
	}
	options := []string{correct}
	seen := map[string]struct{}{strings.ToLower(correct): {}}
	add := func(candidates []string) {
		for _, c := range candidates {
			if len(options) == OptionCount {
				return
			}
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if _, dup := seen[strings.ToLower(c)]; dup {
				continue
			}
			seen[strings.ToLower(c)] = struct{}{}
			options = append(options, c)
		}
	}
	add(distractors)
	add(paddingOptions)
	return shuffled(prompt, options, 0, r), nil
}

// MultipleChoiceFromOptions accepts a provider supplied option list and
// shuffles it while tracking the correct option.
func MultipleChoiceFromOptions(prompt string, options []string, correctIndex int, r Rand) (Question, error) {
	if strings.TrimSpace(prompt) == "" || len(options) < 2 || correctIndex < 0 || correctIndex >= len(options) {
		return Question{}, errors.ErrMalformedQuestion
	}
	distractors := make([]string, 0, len(options)-1)
	for i, o := range options {
		if i != correctIndex {
			distractors = append(distractors, o)
		}
	}
	return NewMultipleChoice(prompt, options[correctIndex], distractors, r)
}

// FallbackQuestion is served whenever the provider fails or times out.
func FallbackQuestion(t Track, r Rand) Question {
	q, err := NewMultipleChoice(fmt.Sprintf("Who is the artist of \"%s\"?", t.Title), t.Artist, fallbackDistractors, r)
	if err != nil {
		// Tracks are normalized before play, so the artist is never blank.
		q = shuffled("Who is the artist?", append([]string{"Unknown"}, fallbackDistractors...), 0, r)
	}
	return q
}

// RecognitionQuestion asks players to type the title of a playable track.
func RecognitionQuestion(t Track) Question {
	return Question{
		ID:     uuid.NewString(),
		Prompt: "Name this track!",
		Body:   Recognition{},
		Media:  &Media{AudioURL: t.PreviewURL, URI: t.URI},
	}
}

func shuffled(prompt string, options []string, correct int, r Rand) Question {
	idx := make([]int, len(options))
	for i := range idx {
		idx[i] = i
	}
	Shuffle(r, idx)
	out := make([]string, len(options))
	correctIndex := 0
	for pos, from := range idx {
		out[pos] = options[from]
		if from == correct {
			correctIndex = pos
		}
	}
	return Question{
		ID:     uuid.NewString(),
		Prompt: prompt,
		Body:   MultipleChoice{Options: out, CorrectIndex: correctIndex},
	}
}
