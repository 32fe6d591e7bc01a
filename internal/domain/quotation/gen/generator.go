package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"smatact/go_backend/internal/domain/quotation"
)

// Client drafts quotations through an OpenAI-compatible chat completions
// endpoint. Each attempt runs under its own timeout; timeouts and malformed
// responses are retried with exponential backoff up to Retries, after which
// the caller gets GenerationUnavailable and falls back to manual entry. The
// client never substitutes guessed data.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client

	Retries int
	Backoff time.Duration
	Timeout time.Duration

	Log *zap.Logger
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_completion_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type draftPayload struct {
	Items []struct {
		Description string `json:"description"`
		Quantity    int    `json:"quantity"`
		UnitPrice   int64  `json:"unit_price"`
	} `json:"items"`
	Terms string `json:"terms"`
}

const systemPrompt = "You are a quotation specialist for a software agency. " +
	"Using the customer brief and the rate guideline, produce a realistic itemized quote. " +
	"Respond with JSON only, no commentary. Format: " +
	`{"items":[{"description":"...","quantity":1,"unit_price":1000000}],"terms":"..."}. ` +
	"Prices are integer minor currency units with no separators. " +
	"Keep the total within 80-120% of the stated budget when one is given."

func (c *Client) Draft(ctx context.Context, brief quotation.Brief, catalog quotation.RateCatalog) (quotation.GeneratedDraft, error) {
	retries := c.Retries
	if retries < 0 {
		retries = 0
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= retries+1; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return quotation.GeneratedDraft{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		draft, err := c.call(ctx, brief, catalog)
		if err == nil {
			return draft, nil
		}
		if ctx.Err() != nil {
			return quotation.GeneratedDraft{}, ctx.Err()
		}
		lastErr = err
		c.Log.Warn("draft generation attempt failed",
			zap.Int("attempt", attempt), zap.Error(err))
	}
	return quotation.GeneratedDraft{}, &quotation.GenerationUnavailableError{
		Attempts: retries + 1,
		LastErr:  lastErr,
	}
}

func (c *Client) call(ctx context.Context, brief quotation.Brief, catalog quotation.RateCatalog) (quotation.GeneratedDraft, error) {
	content, err := c.chat(ctx, systemPrompt, buildPrompt(brief, catalog))
	if err != nil {
		return quotation.GeneratedDraft{}, err
	}

	var parsed draftPayload
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return quotation.GeneratedDraft{}, fmt.Errorf("malformed draft json: %w", err)
	}
	if len(parsed.Items) == 0 {
		return quotation.GeneratedDraft{}, errors.New("draft has no line items")
	}

	draft := quotation.GeneratedDraft{Terms: strings.TrimSpace(parsed.Terms)}
	for _, it := range parsed.Items {
		if it.Quantity <= 0 || it.UnitPrice < 0 || strings.TrimSpace(it.Description) == "" {
			return quotation.GeneratedDraft{}, fmt.Errorf("malformed draft item %q", it.Description)
		}
		draft.Items = append(draft.Items, quotation.LineItem{
			Description: strings.TrimSpace(it.Description),
			Qty:         it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return draft, nil
}

// chat runs one completion under the per-attempt timeout and returns the
// fenced-stripped message content.
func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	payload := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:      2048,
		Temperature:    0.3,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	urlStr := strings.TrimRight(c.BaseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("generation status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("empty generation response")
	}
	return stripCodeFences(out.Choices[0].Message.Content), nil
}

type emailPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

const emailPrompt = "You write short, professional delivery emails for a software agency " +
	"sending a quotation PDF as an attachment. Respond with JSON only: " +
	`{"subject":"...","body":"..."}. Plain text body, no markdown, no placeholders.`

// EmailCopy drafts the delivery subject and body for a quotation. One attempt
// only: callers fall back to their own template on error, so sending never
// waits on the AI.
func (c *Client) EmailCopy(ctx context.Context, number, customerName, companyName string) (subject, body string, err error) {
	user := fmt.Sprintf("Quotation number: %s\nCustomer: %s\nSender company: %s",
		number, dash(customerName), dash(companyName))
	content, err := c.chat(ctx, emailPrompt, user)
	if err != nil {
		return "", "", err
	}
	var parsed emailPayload
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", "", fmt.Errorf("malformed email json: %w", err)
	}
	subject = strings.TrimSpace(parsed.Subject)
	body = strings.TrimSpace(parsed.Body)
	if subject == "" || body == "" {
		return "", "", errors.New("empty email copy")
	}
	return subject, body, nil
}

func buildPrompt(brief quotation.Brief, catalog quotation.RateCatalog) string {
	var b strings.Builder
	b.WriteString("Customer brief:\n")
	fmt.Fprintf(&b, "- Name: %s\n", dash(brief.ClientName))
	fmt.Fprintf(&b, "- Email: %s\n", dash(brief.ClientEmail))
	fmt.Fprintf(&b, "- Project type: %s\n", dash(brief.ProjectType))
	fmt.Fprintf(&b, "- Budget: %s\n", dash(brief.Budget))
	fmt.Fprintf(&b, "- Desired duration: %s\n", dash(brief.Duration))
	b.WriteString("- Details:\n")
	b.WriteString(dash(brief.Description))
	b.WriteString("\n\nRate guideline:\n")
	b.WriteString(dash(catalog.Guideline))
	return b.String()
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "json") {
		s = strings.TrimSpace(s[4:])
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
