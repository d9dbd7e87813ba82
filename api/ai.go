package main

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
)

const (
	geminiBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel    = "gemini-1.5-flash"
	suggestionTokenBudget = 256
)

// geminiClient asks a Gemini model how to approach a task.
type geminiClient struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// newGeminiClient returns nil when no key is configured.
func newGeminiClient(apiKey, baseURL, model string, timeout time.Duration) *geminiClient {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	if model == "" {
		model = geminiDefaultModel
	}
	return &geminiClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func suggestionPrompt(title, body string) string {
	var b strings.Builder
	b.WriteString("You are a concise productivity assistant. ")
	b.WriteString("In at most four sentences, suggest a practical way to approach the task below. ")
	b.WriteString("Answer in plain text without headings or lists.\n\n")
	b.WriteString("Task: ")
	b.WriteString(title)
	if body != "" {
		b.WriteString("\nDetails: ")
		b.WriteString(body)
	}
	return b.String()
}

func (c *geminiClient) suggest(ctx context.Context, title, body string) (string, error) {
	var req geminiRequest
	req.Contents = []geminiContent{{Parts: []geminiPart{{Text: suggestionPrompt(title, body)}}}}
	req.GenerationConfig.MaxOutputTokens = suggestionTokenBudget
	req.GenerationConfig.Temperature = 0.7

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr geminiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("AI provider error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("AI provider error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out geminiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	var text strings.Builder
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			text.WriteString(p.Text)
		}
		if text.Len() > 0 {
			break
		}
	}
	suggestion := strings.TrimSpace(text.String())
	if suggestion == "" {
		return "", errors.New("AI provider returned no text")
	}
	return suggestion, nil
}

func (app *application) aiSuggestHandler(w http.ResponseWriter, r *http.Request) {
	if app.ai == nil {
		writeError(w, errors.New("AI suggestions are not configured"), http.StatusServiceUnavailable)
		return
	}

	var input struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, errors.New("request body must be a JSON object"), http.StatusBadRequest)
		return
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Body = strings.TrimSpace(input.Body)
	if input.Title == "" {
		writeError(w, errors.New("title is required"), http.StatusBadRequest)
		return
	}

	recommendation, err := app.ai.suggest(r.Context(), input.Title, input.Body)
	if err != nil {
		app.logger.Error("ai suggestion failed", "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"recommendation": recommendation})
}
