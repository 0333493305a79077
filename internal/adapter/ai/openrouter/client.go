// Package openrouter implements the LLM completion client against the
// OpenRouter chat completions API (OpenAI-compatible).
package openrouter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/enempro/enem-pro-api/internal/adapter/observability"
	"github.com/enempro/enem-pro-api/internal/config"
	"github.com/enempro/enem-pro-api/internal/domain"
	obsctx "github.com/enempro/enem-pro-api/internal/observability"
)

// Client implements domain.ChatClient. Transient upstream failures (429,
// 5xx) are retried with exponential backoff inside the configured window;
// everything else surfaces as ErrModelUnavailable for the usecases to absorb
// into their fallbacks.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a client with the configured generation timeout.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   cfg.LLMTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) backoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetLLMBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// Complete sends a single-message chat completion and returns the raw text
// of the first choice.
func (c *Client) Complete(ctx domain.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	lg := obsctx.LoggerFromContext(ctx)
	if c.cfg.OpenRouterAPIKey == "" {
		lg.Error("OpenRouter API key missing", slog.String("provider", "openrouter"))
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrModelUnavailable)
	}

	body := map[string]any{
		"model":       c.cfg.OpenRouterModel,
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	b, _ := json.Marshal(body)

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	endpoint := c.cfg.OpenRouterBaseURL + "/chat/completions"
	op := func() error {
		start := time.Now()
		// Recreate the request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
		r.Header.Set("X-Title", c.cfg.OpenRouterTitle)
		resp, err := c.hc.Do(r)
		observability.AIRequestsTotal.WithLabelValues("chat").Inc()
		observability.AIRequestDuration.WithLabelValues("chat").Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			lg.Error("failed to read response body", slog.String("provider", "openrouter"), slog.Any("error", err))
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			// Retryable: let backoff handle retries
			lg.Warn("ai provider rate limited",
				slog.String("provider", "openrouter"),
				slog.Int("status", resp.StatusCode),
				slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client error: non-retryable
			snippet := string(bodyBytes)
			if len(snippet) > 512 {
				snippet = snippet[:512]
			}
			lg.Warn("ai provider 4xx",
				slog.String("provider", "openrouter"),
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.OpenRouterModel),
				slog.String("body", snippet))
			return backoff.Permanent(fmt.Errorf("chat status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet := string(bodyBytes)
			if len(snippet) > 512 {
				snippet = snippet[:512]
			}
			lg.Error("ai provider non-2xx",
				slog.String("provider", "openrouter"),
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.cfg.OpenRouterModel),
				slog.String("body", snippet))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			lg.Error("ai provider decode error",
				slog.String("provider", "openrouter"),
				slog.String("model", c.cfg.OpenRouterModel),
				slog.Any("error", err))
			return err
		}
		return nil
	}

	expo := c.backoffConfig()
	bo := backoff.WithContext(expo, ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrModelUnavailable)
	}
	return out.Choices[0].Message.Content, nil
}
