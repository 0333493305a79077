// Package enem implements the upstream exam-question repository client.
//
// The repository (api.enem.dev) keys questions by exam year and pages them
// with limit/offset. Content for the "linguagens" discipline is partitioned
// by language; the client owns the rule for when the language parameter may
// be attached at all.
package enem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/enempro/enem-pro-api/internal/adapter/observability"
	"github.com/enempro/enem-pro-api/internal/config"
	"github.com/enempro/enem-pro-api/internal/domain"
	obsctx "github.com/enempro/enem-pro-api/internal/observability"
)

// MaxPageLimit is the hard page-size ceiling enforced by the upstream API.
const MaxPageLimit = 50

// Client implements domain.QuestionSource over HTTP. Single attempt per
// request; retrying is the caller's decision.
type Client struct {
	baseURL   string
	userAgent string
	hc        *http.Client
}

// New constructs a client bound by the configured question timeout.
func New(cfg config.Config) *Client {
	return &Client{
		baseURL:   cfg.EnemAPIBaseURL,
		userAgent: cfg.EnemUserAgent,
		hc: &http.Client{
			Timeout:   cfg.EnemAPITimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ValidLanguage reports whether s is a language the upstream partition
// understands.
func ValidLanguage(s string) bool {
	return s == domain.LanguageEnglish || s == domain.LanguageSpanish
}

// EffectiveLanguage resolves the language parameter for a page query.
// It returns ("", false) for every discipline except linguagens; for
// linguagens it returns the requested language when valid, defaulting to
// inglês otherwise.
func EffectiveLanguage(discipline, language string) (string, bool) {
	if discipline != domain.DisciplineLanguages {
		return "", false
	}
	if ValidLanguage(language) {
		return language, true
	}
	return domain.LanguageEnglish, true
}

// ClampLimit bounds a requested page size to what the upstream accepts.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// FetchPage fetches one page of questions for an exam year. The language
// parameter is attached only when the query's discipline is linguagens.
func (c *Client) FetchPage(ctx domain.Context, q domain.PageQuery) (domain.UpstreamPage, error) {
	lang, _ := EffectiveLanguage(q.Discipline, q.Language)
	return c.fetchQuestions(ctx, "fetch_page", q.Year, ClampLimit(q.Limit), q.Offset, lang)
}

// FindByIndex resolves a single question by index. The first request omits
// the language parameter; when the index is missing from that result set and
// a valid language was supplied, the request is reissued under that language
// partition before ErrNotFound is returned.
func (c *Client) FindByIndex(ctx domain.Context, year, index int, language string) (domain.UpstreamQuestion, error) {
	page, err := c.fetchQuestions(ctx, "find_by_index", year, MaxPageLimit, 0, "")
	if err != nil {
		return domain.UpstreamQuestion{}, err
	}
	if q, ok := findIndex(page.Questions, index); ok {
		return q, nil
	}
	if ValidLanguage(language) {
		obsctx.LoggerFromContext(ctx).Debug("question not in default partition, retrying with language",
			slog.Int("index", index), slog.String("language", language))
		page, err = c.fetchQuestions(ctx, "find_by_index", year, MaxPageLimit, 0, language)
		if err != nil {
			return domain.UpstreamQuestion{}, err
		}
		if q, ok := findIndex(page.Questions, index); ok {
			return q, nil
		}
	}
	return domain.UpstreamQuestion{}, fmt.Errorf("%w: question %d of exam %d", domain.ErrNotFound, index, year)
}

func findIndex(qs []domain.UpstreamQuestion, index int) (domain.UpstreamQuestion, bool) {
	for _, q := range qs {
		if q.Index == index {
			return q, true
		}
	}
	return domain.UpstreamQuestion{}, false
}

func (c *Client) fetchQuestions(ctx domain.Context, op string, year, limit, offset int, language string) (domain.UpstreamPage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if language != "" {
		params.Set("language", language)
	}
	endpoint := fmt.Sprintf("%s/exams/%d/questions?%s", c.baseURL, year, params.Encode())

	body, err := c.get(ctx, op, endpoint)
	if err != nil {
		return domain.UpstreamPage{}, err
	}
	var page domain.UpstreamPage
	if err := json.Unmarshal(body, &page); err != nil {
		return domain.UpstreamPage{}, fmt.Errorf("%w: decoding questions payload: %v", domain.ErrUpstream, err)
	}
	return page, nil
}

// Exams forwards the upstream exams listing verbatim.
func (c *Client) Exams(ctx domain.Context) ([]byte, error) {
	return c.get(ctx, "exams", c.baseURL+"/exams")
}

// Exam forwards one exam's detail verbatim.
func (c *Client) Exam(ctx domain.Context, year int) ([]byte, error) {
	return c.get(ctx, "exam", fmt.Sprintf("%s/exams/%d", c.baseURL, year))
}

// get performs a single GET attempt and maps transport/status failures onto
// the retrieval error taxonomy.
func (c *Client) get(ctx domain.Context, op, endpoint string) ([]byte, error) {
	lg := obsctx.LoggerFromContext(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", domain.ErrInternal, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	observability.UpstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "error"
		mapped := domain.ErrUpstream
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
			mapped = domain.ErrUpstreamTimeout
		}
		observability.UpstreamRequestsTotal.WithLabelValues(op, outcome).Inc()
		lg.Error("upstream request failed",
			slog.String("op", op),
			slog.String("endpoint", endpoint),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", mapped, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.UpstreamRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
		snippet := string(body)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		lg.Warn("upstream non-2xx",
			slog.String("op", op),
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("body", snippet))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrUpstream, resp.StatusCode, snippet)
	}
	observability.UpstreamRequestsTotal.WithLabelValues(op, "ok").Inc()
	lg.Debug("upstream request ok",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))
	return body, nil
}
