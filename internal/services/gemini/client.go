package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mlevan/watchshelf/internal/config"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotConfigured is returned by every call when no API key was
	// provided at construction. No network I/O is attempted.
	ErrNotConfigured = errors.New("gemini API key is not configured")

	// ErrRateLimited is returned when the retry budget is exhausted
	// by consecutive 429 responses or transient network failures.
	ErrRateLimited = errors.New("gemini API retries exhausted")
)

// Client handles structured-generation calls to the Gemini API.
// It is constructed once at startup and passed to call sites; there is
// no package-level instance.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxAttempts int
	baseDelay   time.Duration
	httpClient  *http.Client
	sleep       func(time.Duration) // injectable for tests
	logger      *logrus.Logger
	warnOnce    sync.Once
}

// NewClient creates a new Gemini client. A missing API key is not an
// error: the client is built disabled and every call returns
// ErrNotConfigured without touching the network.
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	return &Client{
		apiKey:      cfg.GeminiAPIKey,
		baseURL:     cfg.GeminiBaseURL,
		model:       cfg.GeminiModel,
		maxAttempts: cfg.AIMaxAttempts,
		baseDelay:   time.Duration(cfg.AIRetryBaseMillis) * time.Millisecond,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		sleep:       time.Sleep,
		logger:      logger,
	}
}

// Enabled reports whether the client has a credential and can make calls
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Request/response wire types for the generateContent endpoint

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	ResponseSchema   *Schema `json:"responseSchema"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate sends one prompt with a declared output shape and returns the
// generated text payload. Retries 429 and network failures in an explicit
// loop with a doubling delay; all other HTTP errors are terminal.
func (c *Client) generate(ctx context.Context, prompt string, schema *Schema) (string, error) {
	if !c.Enabled() {
		c.warnOnce.Do(func() {
			c.logger.Warn("GEMINI_API_KEY not set, AI features are disabled")
		})
		return "", ErrNotConfigured
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   schema,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			c.logger.WithFields(logrus.Fields{
				"attempt":  attempt + 1,
				"delay_ms": delay.Milliseconds(),
			}).Debug("Retrying Gemini request")
			c.sleep(delay)
		}

		text, retryable, err := c.doGenerate(ctx, url, body)
		if err == nil {
			return text, nil
		}
		if !retryable {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w: %v", ErrRateLimited, lastErr)
}

// doGenerate performs a single request. The second return value reports
// whether the failure is retryable (429 or transport error).
func (c *Client) doGenerate(ctx context.Context, url string, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Context cancellation is terminal, transport errors are not
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		c.logger.WithError(err).Debug("Gemini request failed")
		return "", true, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", true, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Debug("Gemini API rate limited")
		return "", true, fmt.Errorf("gemini API returned status 429")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        string(respBody),
		}).Error("Gemini API returned non-OK status")
		return "", false, fmt.Errorf("gemini API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		c.logger.WithFields(logrus.Fields{
			"body": string(respBody),
		}).Error("Failed to parse Gemini response envelope")
		return "", false, fmt.Errorf("failed to parse response: %w", err)
	}

	// Generated text lives at candidates[0].content.parts[0].text
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", false, fmt.Errorf("gemini response contains no candidates")
	}

	return genResp.Candidates[0].Content.Parts[0].Text, false, nil
}
