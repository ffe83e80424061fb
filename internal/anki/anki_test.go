package anki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagaskoyere/ankikeys/internal/config"
)

type hostCall struct {
	Action  string         `json:"action"`
	Version int            `json:"version"`
	Params  map[string]any `json:"params"`
	Key     string         `json:"key"`
}

// fakeHost plays the AnkiConnect endpoint: one action, one canned
// result or error string.
type fakeHost struct {
	t      *testing.T
	server *httptest.Server

	mu      sync.Mutex
	calls   []hostCall
	results map[string]any
	errs    map[string]string
}

func newFakeHost(t *testing.T) *fakeHost {
	h := &fakeHost{t: t, results: map[string]any{}, errs: map[string]string{}}
	h.server = httptest.NewServer(http.HandlerFunc(h.handle))
	t.Cleanup(h.server.Close)
	return h
}

func (h *fakeHost) handle(w http.ResponseWriter, r *http.Request) {
	var call hostCall
	if !assert.NoError(h.t, json.NewDecoder(r.Body).Decode(&call)) {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.calls = append(h.calls, call)
	result, errStr := h.results[call.Action], h.errs[call.Action]
	h.mu.Unlock()

	resp := map[string]any{"result": result, "error": nil}
	if errStr != "" {
		resp["result"] = nil
		resp["error"] = errStr
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *fakeHost) set(action string, result any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results[action] = result
}

func (h *fakeHost) fail(action, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs[action] = msg
}

func (h *fakeHost) recorded() []hostCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]hostCall, len(h.calls))
	copy(out, h.calls)
	return out
}

func (h *fakeHost) client(apiKey string) *Client {
	cfg := config.AnkiConfig{URL: h.server.URL, APIKey: apiKey, Timeout: 2 * time.Second}
	return New(cfg, zerolog.Nop())
}

func TestAnswerCurrentScoresInOrder(t *testing.T) {
	host := newFakeHost(t)
	host.set("guiShowAnswer", true)
	host.set("guiAnswerCard", true)

	require.NoError(t, host.client("").AnswerCurrent(context.Background(), Good))

	calls := host.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "guiShowAnswer", calls[0].Action)
	assert.Equal(t, "guiAnswerCard", calls[1].Action)
	assert.Equal(t, 6, calls[0].Version)
	assert.EqualValues(t, 3, calls[1].Params["ease"])
}

func TestAnswerCurrentWithoutReviewer(t *testing.T) {
	host := newFakeHost(t)
	host.set("guiShowAnswer", false)

	err := host.client("").AnswerCurrent(context.Background(), Again)
	require.ErrorIs(t, err, ErrNotReviewing)
	assert.Len(t, host.recorded(), 1, "guiAnswerCard should never be reached")
}

func TestCurrentCard(t *testing.T) {
	host := newFakeHost(t)
	host.set("guiCurrentCard", map[string]any{
		"cardId":   1496198395707,
		"deckName": "Default",
		"question": "2+2?",
	})

	card, err := host.client("").CurrentCard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1496198395707, card.CardID)
	assert.Equal(t, "Default", card.DeckName)
}

func TestCurrentCardMapsProtocolError(t *testing.T) {
	host := newFakeHost(t)
	host.fail("guiCurrentCard", "Gui review is not currently active.")

	_, err := host.client("").CurrentCard(context.Background())
	assert.ErrorIs(t, err, ErrNotReviewing)
}

func TestReviewActive(t *testing.T) {
	host := newFakeHost(t)
	host.set("guiCurrentCard", map[string]any{"cardId": 42, "deckName": "Default"})

	active, err := host.client("").ReviewActive(context.Background())
	require.NoError(t, err)
	assert.True(t, active)
}

func TestReviewActiveIdleHost(t *testing.T) {
	host := newFakeHost(t)
	host.fail("guiCurrentCard", "Gui review is not currently active.")

	active, err := host.client("").ReviewActive(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestVersionProbe(t *testing.T) {
	host := newFakeHost(t)
	host.set("version", 6)

	v, err := host.client("").Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestAPIKeyTravels(t *testing.T) {
	host := newFakeHost(t)
	host.set("version", 6)

	_, err := host.client("sekrit").Version(context.Background())
	require.NoError(t, err)

	calls := host.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "sekrit", calls[0].Key)
}

func TestHostErrorPropagates(t *testing.T) {
	host := newFakeHost(t)
	host.fail("guiShowAnswer", "collection is not available")

	err := host.client("").AnswerCurrent(context.Background(), Good)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotReviewing)
	assert.Contains(t, err.Error(), "collection is not available")
}

func TestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(config.AnkiConfig{URL: srv.URL}, zerolog.Nop())
	_, err := client.Version(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestCancelledContext(t *testing.T) {
	host := newFakeHost(t)
	host.set("version", 6)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := host.client("").Version(ctx)
	assert.Error(t, err)
}
