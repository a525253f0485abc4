package claude

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/screenshotai/internal/imaging"
)

func testImage() *imaging.ProcessedImage {
	return &imaging.ProcessedImage{
		Base64Data: base64.StdEncoding.EncodeToString(make([]byte, 2048)),
		MediaType:  "image/png",
		SizeBytes:  2048,
	}
}

func answerWith(t *testing.T, text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		assert.Equal(t, "text", req.Messages[0].Content[0].Type)
		assert.Equal(t, "image", req.Messages[0].Content[1].Type)
		assert.Equal(t, "base64", req.Messages[0].Content[1].Source.Type)

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		})
	}
}

func TestBriefSummary(t *testing.T) {
	srv := httptest.NewServer(answerWith(t, "A terminal with passing tests."))
	defer srv.Close()

	c := NewClient("secret", zaptest.NewLogger(t), WithBaseURL(srv.URL))
	summary, err := c.BriefSummary(context.Background(), testImage(), "iOS")
	require.NoError(t, err)
	assert.Equal(t, "A terminal with passing tests.", summary)
}

func TestBriefSummaryUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("secret", zaptest.NewLogger(t), WithBaseURL(srv.URL))
	_, err := c.BriefSummary(context.Background(), testImage(), "iOS")

	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, http.StatusServiceUnavailable, uerr.Status)
}

func TestBriefSummaryMissingAnswerField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": []any{}})
	}))
	defer srv.Close()

	c := NewClient("secret", zaptest.NewLogger(t), WithBaseURL(srv.URL))
	_, err := c.BriefSummary(context.Background(), testImage(), "iOS")

	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
}

func TestAnalyzeContentParsesLabels(t *testing.T) {
	srv := httptest.NewServer(answerWith(t, "CONTENT_TYPE: app\nUSER_INTENT: debugging"))
	defer srv.Close()

	c := NewClient("secret", zaptest.NewLogger(t), WithBaseURL(srv.URL))
	got := c.AnalyzeContent(context.Background(), testImage())
	assert.Equal(t, "app", got.ContentType)
	assert.Equal(t, "debugging", got.UserIntent)
}

func TestAnalyzeContentDegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("secret", zaptest.NewLogger(t), WithBaseURL(srv.URL))
	got := c.AnalyzeContent(context.Background(), testImage())
	assert.Equal(t, DefaultContentAnalysis(), got)
}
