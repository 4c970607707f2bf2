// Package answer calls the external HR question-answering service.
package answer

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
)

// DefaultCategory is used when the service does not classify a question
const DefaultCategory = "Others"

var (
	ErrEmptyAnswer = errors.New("answer service returned no reply text")
	ErrBadStatus   = errors.New("answer service returned an error status")
)

// Answer is the reply extracted from the service response
type Answer struct {
	Content  string
	Category string
}

// Asker is what the conversation service needs from the answer service
type Asker interface {
	Ask(ctx context.Context, empID, question string) (*Answer, error)
}

type Config struct {
	URL string
	// Timeout bounds a whole Ask call, retries and backoff included
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type askRequest struct {
	EmpID    string `json:"emp_id"`
	Question string `json:"question"`
}

// askResponse accepts both {"answer":{"content":..,"category":..}} and {"answer":"..."}
type askResponse struct {
	Answer json.RawMessage `json:"answer"`
}

type structuredAnswer struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

// Ask sends the question and retries up to MaxRetries times with doubling
// backoff, all within one Timeout.
func (c *Client) Ask(ctx context.Context, empID, question string) (*Answer, error) {
	body, err := json.Marshal(askRequest{EmpID: empID, Question: question})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	backoff := c.cfg.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying answer service",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
			backoff *= 2
		}

		ans, err := c.do(ctx, body)
		if err == nil {
			return ans, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, ErrEmptyAnswer) {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, body []byte) (*Answer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	return parse(raw)
}

func parse(raw []byte) (*Answer, error) {
	var resp askResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}

	ans := &Answer{Category: DefaultCategory}

	var structured structuredAnswer
	var plain string
	switch {
	case json.Unmarshal(resp.Answer, &structured) == nil:
		ans.Content = strings.TrimSpace(structured.Content)
		if c := strings.TrimSpace(structured.Category); c != "" {
			ans.Category = c
		}
	case json.Unmarshal(resp.Answer, &plain) == nil:
		ans.Content = strings.TrimSpace(plain)
	}

	if ans.Content == "" {
		return nil, ErrEmptyAnswer
	}
	return ans, nil
}
