// Package question talks to the external question generation service.
package question

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"mixmatch/domain"
	"mixmatch/errors"
)

// maxResponseSize bounds what is read from the service.
const maxResponseSize = 64 << 10

type Client struct {
	httpClient *http.Client
	url        string
	log        *slog.Logger
	rand       domain.Rand
}

// NewClient builds a provider posting tracks to url. The caller bounds every
// call through ctx, so the http client carries no timeout of its own.
func NewClient(url string, log *slog.Logger, rand domain.Rand) *Client {
	if rand == nil {
		rand = domain.DefaultRand()
	}
	return &Client{httpClient: &http.Client{}, url: url, log: log, rand: rand}
}

type generateRequest struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// generateResponse accepts both shapes served by the generator: a correct
// answer with distractors, or a ready-made option list.
type generateResponse struct {
	Prompt        string   `json:"prompt"`
	CorrectAnswer string   `json:"correctAnswer"`
	Distractors   []string `json:"distractors"`
	Options       []string `json:"options"`
	CorrectIndex  *int     `json:"correctIndex"`
}

func (c *Client) Generate(ctx context.Context, track domain.Track) (domain.Question, error) {
	body, err := json.Marshal(generateRequest{Title: track.Title, Artist: track.Artist})
	if err != nil {
		return domain.Question{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Question{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: %w", errors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: failed to read response: %w", errors.ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Question{}, fmt.Errorf("%w: status %d: %s", errors.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var generated generateResponse
	if err := json.Unmarshal(raw, &generated); err != nil {
		return domain.Question{}, fmt.Errorf("%w: %w", errors.ErrMalformedQuestion, err)
	}
	q, err := c.toQuestion(generated)
	if err != nil {
		return domain.Question{}, err
	}
	c.log.Debug("Question generated", "track", track.ID, "question", q.ID)
	return q, nil
}

func (c *Client) toQuestion(g generateResponse) (domain.Question, error) {
	if len(g.Options) > 0 {
		if g.CorrectIndex == nil {
			return domain.Question{}, errors.ErrMalformedQuestion
		}
		return domain.MultipleChoiceFromOptions(g.Prompt, g.Options, *g.CorrectIndex, c.rand)
	}
	return domain.NewMultipleChoice(g.Prompt, g.CorrectAnswer, g.Distractors, c.rand)
}
