package gen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smatact/go_backend/internal/domain/quotation"
)

func chatReply(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

const goodDraft = `{"items":[{"description":"Planning and design","quantity":1,"unit_price":1000000},{"description":"Development","quantity":2,"unit_price":1500000}],"terms":"Half up front."}`

func newClient(url string) *Client {
	return &Client{
		BaseURL: url,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		HTTP:    http.DefaultClient,
		Retries: 2,
		Backoff: time.Millisecond,
		Timeout: time.Second,
		Log:     zap.NewNop(),
	}
}

func testBrief() quotation.Brief {
	return quotation.Brief{
		ClientName:  "Kim Minji",
		ProjectType: "web",
		Budget:      "4000000 KRW",
		Description: "A booking site for a hair salon.",
	}
}

func TestDraftParsesValidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Kim Minji")

		w.Write([]byte(chatReply(goodDraft)))
	}))
	defer srv.Close()

	draft, err := newClient(srv.URL).Draft(context.Background(), testBrief(), quotation.RateCatalog{Guideline: "senior dev 1.5M/week"})
	require.NoError(t, err)
	require.Len(t, draft.Items, 2)
	assert.Equal(t, "Planning and design", draft.Items[0].Description)
	assert.Equal(t, int64(1500000), draft.Items[1].UnitPrice)
	assert.Equal(t, 2, draft.Items[1].Qty)
	assert.Equal(t, "Half up front.", draft.Terms)
}

func TestDraftStripsCodeFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(chatReply("```json\n" + goodDraft + "\n```")))
	}))
	defer srv.Close()

	draft, err := newClient(srv.URL).Draft(context.Background(), testBrief(), quotation.RateCatalog{})
	require.NoError(t, err)
	assert.Len(t, draft.Items, 2)
}

func TestDraftRecoversWithinRetryBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(chatReply(goodDraft)))
	}))
	defer srv.Close()

	draft, err := newClient(srv.URL).Draft(context.Background(), testBrief(), quotation.RateCatalog{})
	require.NoError(t, err)
	assert.Len(t, draft.Items, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDraftUnavailableAfterBudgetSpent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Draft(context.Background(), testBrief(), quotation.RateCatalog{})
	var unavail *quotation.GenerationUnavailableError
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, 3, unavail.Attempts)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDraftRejectsMalformedPayloads(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"not json", "Sure! Here is a quote for your project."},
		{"no items", `{"items":[],"terms":"ok"}`},
		{"zero quantity", `{"items":[{"description":"Dev","quantity":0,"unit_price":100}],"terms":""}`},
		{"negative price", `{"items":[{"description":"Dev","quantity":1,"unit_price":-5}],"terms":""}`},
		{"blank description", `{"items":[{"description":"  ","quantity":1,"unit_price":100}],"terms":""}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(chatReply(tc.content)))
			}))
			defer srv.Close()

			_, err := newClient(srv.URL).Draft(context.Background(), testBrief(), quotation.RateCatalog{})
			var unavail *quotation.GenerationUnavailableError
			require.ErrorAs(t, err, &unavail, "bad payloads are retried, never patched up")
		})
	}
}

func TestDraftStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	c.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := c.Draft(ctx, testBrief(), quotation.RateCatalog{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmailCopy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "Q-20260829-001")

		w.Write([]byte(chatReply(`{"subject":"Your quotation from Smatact","body":"Hello Minji, the quote is attached."}`)))
	}))
	defer srv.Close()

	subject, body, err := newClient(srv.URL).EmailCopy(context.Background(), "Q-20260829-001", "Kim Minji", "Smatact")
	require.NoError(t, err)
	assert.Equal(t, "Your quotation from Smatact", subject)
	assert.Equal(t, "Hello Minji, the quote is attached.", body)
}

func TestEmailCopyDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, _, err := newClient(srv.URL).EmailCopy(context.Background(), "Q-1", "Kim", "Smatact")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "email copy is one attempt, delivery falls back")
}

func TestEmailCopyRejectsEmptyFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(chatReply(`{"subject":"","body":"hi"}`)))
	}))
	defer srv.Close()

	_, _, err := newClient(srv.URL).EmailCopy(context.Background(), "Q-1", "Kim", "Smatact")
	assert.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
}
