package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/screenshotai/internal/claude"
	"github.com/example/screenshotai/internal/models"
)

func sampleRecord(url string) *models.AnalysisRecord {
	content := claude.DefaultContentAnalysis()
	content.WebpageURL = url
	return &models.AnalysisRecord{
		ID:           "abc-123",
		BriefSummary: "A code editor with failing tests.",
		Content:      content,
		CreatedAt:    time.Now().UTC(),
		Source:       "desktop_auto",
	}
}

// fakeTelegram answers getMe so the client can be constructed, and lets the
// test decide how sendMessage responds.
func fakeTelegram(t *testing.T, sendStatus int, captured *map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			json.NewEncoder(w).Encode(map[string]any{
				"ok":     true,
				"result": map[string]any{"id": 1, "is_bot": true, "first_name": "test", "username": "testbot"},
			})
			return
		}
		require.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"))
		require.NoError(t, r.ParseForm())
		if captured != nil {
			vals := map[string]string{}
			for k := range r.Form {
				vals[k] = r.Form.Get(k)
			}
			*captured = vals
		}
		if sendStatus != http.StatusOK {
			w.WriteHeader(sendStatus)
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": sendStatus, "description": "Bad Request: chat not found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"message_id": 7}})
	}))
}

func TestSendComposesMessage(t *testing.T) {
	var captured map[string]string
	srv := fakeTelegram(t, http.StatusOK, &captured)
	defer srv.Close()

	n, err := NewWithEndpoint("token", "42", srv.URL+"/bot%s/%s", zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, n.Send(sampleRecord("https://example.com")))

	assert.Equal(t, "42", captured["chat_id"])
	assert.Equal(t, "HTML", captured["parse_mode"])
	assert.Contains(t, captured["text"], "Desktop Screenshot")
	assert.Contains(t, captured["text"], "AI Analysis")
	assert.Contains(t, captured["text"], "A code editor with failing tests.")
	assert.Contains(t, captured["reply_markup"], "arxiv_research_abc-123")
	assert.Contains(t, captured["reply_markup"], "deep_research_abc-123")
	assert.Contains(t, captured["reply_markup"], "full_webpage_abc-123")
}

func TestSendOmitsWebpageActionWithoutURL(t *testing.T) {
	var captured map[string]string
	srv := fakeTelegram(t, http.StatusOK, &captured)
	defer srv.Close()

	n, err := NewWithEndpoint("token", "42", srv.URL+"/bot%s/%s", zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, n.Send(sampleRecord("")))
	assert.NotContains(t, captured["reply_markup"], "full_webpage_")
}

func TestSendReturnsDeliveryError(t *testing.T) {
	srv := fakeTelegram(t, http.StatusBadRequest, nil)
	defer srv.Close()

	n, err := NewWithEndpoint("token", "42", srv.URL+"/bot%s/%s", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Error(t, n.Send(sampleRecord("")))
}

func TestNewRejectsNonNumericChatID(t *testing.T) {
	_, err := NewWithEndpoint("token", "not-a-number", "http://127.0.0.1/bot%s/%s", zaptest.NewLogger(t))
	assert.Error(t, err)
}
