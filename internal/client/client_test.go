package client

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func streamOf(chunks ...ResponseChunk) *StreamingResponse {
	ch := make(chan ResponseChunk, len(chunks))
	done := make(chan struct{})
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	close(done)
	return &StreamingResponse{Chunks: ch, Done: done}
}

func TestCollectFoldsChunksInOrder(t *testing.T) {
	sr := streamOf(
		ResponseChunk{Text: "Hello, "},
		ResponseChunk{Text: "world", FunctionCalls: []*genai.FunctionCall{{Name: "open_files"}}},
		ResponseChunk{Done: true, FinishReason: genai.FinishReasonStop},
	)

	resp, err := sr.Collect()
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", resp.Text)
	require.Len(t, resp.FunctionCalls, 1)
	assert.Equal(t, "open_files", resp.FunctionCalls[0].Name)
	assert.Equal(t, genai.FinishReasonStop, resp.FinishReason)
}

func TestCollectReturnsChunkError(t *testing.T) {
	sr := streamOf(
		ResponseChunk{Text: "partial"},
		ResponseChunk{Error: errors.New("boom"), Done: true},
	)

	resp, err := sr.Collect()
	assert.Nil(t, resp)
	assert.EqualError(t, err, "boom")
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(errors.New("googleapi: Error 429: rate limited")))
	assert.True(t, IsRetryableError(errors.New("Error 503: service unavailable")))
	assert.True(t, IsRetryableError(errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryableError(errors.New("RESOURCE_EXHAUSTED")))
	assert.False(t, IsRetryableError(errors.New("Error 400: invalid request")))
	assert.False(t, IsRetryableError(errors.New("invalid API key")))
}

func TestCalculateBackoffGrowsAndCaps(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	d0 := CalculateBackoff(base, 0, max)
	assert.GreaterOrEqual(t, d0, time.Second)
	assert.Less(t, d0, 2*time.Second)

	d5 := CalculateBackoff(base, 10, max)
	assert.LessOrEqual(t, d5, max+max/4)
}

func TestSanitizeContentsDropsEmptyParts(t *testing.T) {
	contents := sanitizeContents([]*genai.Content{
		nil,
		{Role: genai.RoleUser, Parts: []*genai.Part{nil, {Text: ""}, {Text: "hi"}}},
		{Role: genai.RoleModel, Parts: nil},
	})

	require.Len(t, contents, 2)
	require.Len(t, contents[0].Parts, 1)
	assert.Equal(t, "hi", contents[0].Parts[0].Text)
	// Empty content gets a placeholder part.
	require.Len(t, contents[1].Parts, 1)
	assert.Equal(t, " ", contents[1].Parts[0].Text)
}
