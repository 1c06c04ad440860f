package completer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/cozmogo/cozmogo/internal/errors"
	"github.com/cozmogo/cozmogo/internal/schema"
)

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *Anthropic {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := NewAnthropic("test-key", "test-model", 512)
	require.NoError(t, err)
	a.url = srv.URL
	a.retry = RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Jitter: 0.01}
	return a
}

func TestNewAnthropicValidation(t *testing.T) {
	_, err := NewAnthropic("", "model", 100)
	assert.Error(t, err)

	_, err = NewAnthropic("key", "", 100)
	assert.Error(t, err)
}

func TestCompleteTextReply(t *testing.T) {
	var gotReq wireRequest
	a := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotReq))

		json.NewEncoder(w).Encode(wireResponse{
			StopReason: "end_turn",
			Content:    []wireContent{{Type: "text", Text: `cozmo_says(text="hi")`}},
		})
	})

	reply, err := a.Complete(context.Background(), Request{
		System:  "You control a robot.",
		Context: "User says: hello\n",
	})
	require.NoError(t, err)
	assert.Equal(t, `cozmo_says(text="hi")`, reply.Text)
	assert.Empty(t, reply.ToolCalls)

	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, "You control a robot.", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestCompleteToolCalls(t *testing.T) {
	a := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{
			StopReason: "tool_use",
			Content: []wireContent{
				{Type: "text", Text: "On my way."},
				{Type: "tool_use", ID: "call_1", Name: "cozmo_drives", Input: json.RawMessage(`{"distance":50,"speed":25}`)},
			},
		})
	})

	reply, err := a.Complete(context.Background(), Request{
		Context: "User says: come here\n",
		Tools: []schema.ToolDecl{{
			Name:        "cozmo_drives",
			Description: "drive",
			InputSchema: json.RawMessage(`{"type":"object"}`),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "On my way.", reply.Text)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "cozmo_drives", reply.ToolCalls[0].Name)
	assert.Equal(t, float64(50), reply.ToolCalls[0].Args["distance"])
}

func TestCompleteImageAttached(t *testing.T) {
	var gotReq wireRequest
	a := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotReq))
		json.NewEncoder(w).Encode(wireResponse{StopReason: "end_turn"})
	})

	_, err := a.Complete(context.Background(), Request{
		Context: "describe the scene",
		Image:   []byte("jpegbytes"),
	})
	require.NoError(t, err)

	require.Len(t, gotReq.Messages, 1)
	require.Len(t, gotReq.Messages[0].Content, 2)
	assert.Equal(t, "image", gotReq.Messages[0].Content[0].Type)
	assert.Equal(t, "base64", gotReq.Messages[0].Content[0].Source.Type)
	assert.Equal(t, "text", gotReq.Messages[0].Content[1].Type)
}

func TestCompleteRefusalIsBlocked(t *testing.T) {
	a := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{StopReason: "refusal"})
	})

	_, err := a.Complete(context.Background(), Request{Context: "x"})
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestCompleteServerErrorIsTransient(t *testing.T) {
	a := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := a.Complete(context.Background(), Request{Context: "x"})
	require.Error(t, err)

	var terr *ierr.TransientError
	assert.True(t, errors.As(err, &terr), "want *TransientError, got %T", err)
}

func TestCompleteClientErrorIsPermanent(t *testing.T) {
	a := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := a.Complete(context.Background(), Request{Context: "x"})
	require.Error(t, err)

	var terr *ierr.TransientError
	assert.False(t, errors.As(err, &terr), "client errors must not retry")
}

func TestCompleteRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	a := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(wireResponse{
			StopReason: "end_turn",
			Content:    []wireContent{{Type: "text", Text: "ok"}},
		})
	})

	reply, err := a.Complete(context.Background(), Request{Context: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Text)
	assert.Equal(t, 3, attempts)
}
