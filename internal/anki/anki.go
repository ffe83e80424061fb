// Package anki speaks the AnkiConnect add-on protocol over HTTP.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sagaskoyere/ankikeys/internal/config"
)

// DefaultURL is where a stock AnkiConnect install listens.
const DefaultURL = "http://127.0.0.1:8765"

// protocolVersion is the AnkiConnect API version this client targets.
const protocolVersion = 6

// ErrNotReviewing reports that the host is not showing a card.
var ErrNotReviewing = errors.New("no review in progress")

// Rating is an answer ease as the scheduler counts them.
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

func (r Rating) String() string {
	switch r {
	case Again:
		return "Again"
	case Hard:
		return "Hard"
	case Good:
		return "Good"
	case Easy:
		return "Easy"
	default:
		return fmt.Sprintf("Rating(%d)", int(r))
	}
}

// Reviewer is the host surface the rest of the application consumes.
type Reviewer interface {
	// AnswerCurrent scores the card the reviewer is showing. Returns
	// ErrNotReviewing when there is none.
	AnswerCurrent(ctx context.Context, r Rating) error
	// ReviewActive reports whether the reviewer is showing a card.
	ReviewActive(ctx context.Context) (bool, error)
}

// Client talks to a single AnkiConnect endpoint.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
	log    zerolog.Logger
}

// New creates a Client for the configured endpoint.
func New(cfg config.AnkiConfig, log zerolog.Logger) *Client {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		url:    url,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: timeout},
		log:    log,
	}
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
	Key     string `json:"key,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// invoke posts one action and decodes the result into out when out is
// non-nil.
func (c *Client) invoke(ctx context.Context, action string, params any, out any) error {
	body, err := json.Marshal(request{Action: action, Version: protocolVersion, Params: params, Key: c.apiKey})
	if err != nil {
		return fmt.Errorf("encode %s: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", action, resp.Status)
	}

	var envelope response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	if envelope.Error != nil && *envelope.Error != "" {
		// guiCurrentCard words it "Gui review is not currently active"
		if strings.Contains(strings.ToLower(*envelope.Error), "not currently active") {
			return ErrNotReviewing
		}
		return fmt.Errorf("%s: %s", action, *envelope.Error)
	}

	if out != nil && len(envelope.Result) > 0 && string(envelope.Result) != "null" {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", action, err)
		}
	}
	return nil
}

// Version returns the protocol version the host reports. Used as a
// startup connectivity probe.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	if err := c.invoke(ctx, "version", nil, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// Card is the subset of guiCurrentCard fields the application reads.
type Card struct {
	CardID   int64  `json:"cardId"`
	DeckName string `json:"deckName"`
	Question string `json:"question"`
}

// CurrentCard returns the card the reviewer is showing, or
// ErrNotReviewing.
func (c *Client) CurrentCard(ctx context.Context) (*Card, error) {
	var card Card
	if err := c.invoke(ctx, "guiCurrentCard", nil, &card); err != nil {
		return nil, err
	}
	if card.CardID == 0 {
		return nil, ErrNotReviewing
	}
	return &card, nil
}

// ReviewActive reports whether the reviewer is showing a card. An
// idle host is not an error.
func (c *Client) ReviewActive(ctx context.Context) (bool, error) {
	_, err := c.CurrentCard(ctx)
	if errors.Is(err, ErrNotReviewing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ShowAnswer flips the current card to its answer side.
func (c *Client) ShowAnswer(ctx context.Context) error {
	var ok bool
	if err := c.invoke(ctx, "guiShowAnswer", nil, &ok); err != nil {
		return err
	}
	if !ok {
		return ErrNotReviewing
	}
	return nil
}

// AnswerCurrent reveals the answer side and scores the card. The
// scheduler only accepts an ease while the answer is showing, so the
// reveal always comes first.
func (c *Client) AnswerCurrent(ctx context.Context, r Rating) error {
	if err := c.ShowAnswer(ctx); err != nil {
		return err
	}

	var ok bool
	if err := c.invoke(ctx, "guiAnswerCard", map[string]any{"ease": int(r)}, &ok); err != nil {
		return err
	}
	if !ok {
		return ErrNotReviewing
	}

	c.log.Debug().Stringer("rating", r).Msg("Answered current card")
	return nil
}
