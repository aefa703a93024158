// Package ollama implements the generation oracle on top of the Ollama HTTP API.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/infrastructure/resilience"
)

const OperationGenerateInsight = "ollama_generate_insight"

type Config struct {
	BaseURL string
	Model   string
	// RequestsPerSecond caps outbound calls; zero or less means unlimited.
	RequestsPerSecond float64
	Burst             int
	HTTPTimeout       time.Duration
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		executor:   executor,
	}
}

// GenerateInsight asks the model for a summary and themes of docs. The result is
// only parsed here; callers validate it before storing.
func (c *Client) GenerateInsight(ctx context.Context, docs []domain.Document) (domain.Insight, error) {
	if len(docs) == 0 {
		return domain.Insight{}, domain.WrapError(domain.ErrInvalidInput, "generate insight", fmt.Errorf("no documents"))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Insight{}, fmt.Errorf("ollama rate limit: %w", err)
	}

	prompt := buildInsightPrompt(docs)
	raw, err := resilience.Do(ctx, c.executor, OperationGenerateInsight, func(callCtx context.Context) (string, error) {
		return c.generateJSON(callCtx, prompt)
	}, classifyOllamaError)
	if err != nil {
		return domain.Insight{}, wrapTemporaryIfNeeded(OperationGenerateInsight, err)
	}
	return parseInsight(raw)
}

func parseInsight(raw string) (domain.Insight, error) {
	var result domain.Insight
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return domain.Insight{}, fmt.Errorf("parse insight json: %w", err)
	}
	result.Summary = strings.TrimSpace(result.Summary)
	result.Themes = normalizeThemes(result.Themes)
	return result, nil
}

func normalizeThemes(themes []string) []string {
	out := make([]string, 0, len(themes))
	seen := make(map[string]struct{}, len(themes))
	for _, theme := range themes {
		theme = strings.ToLower(strings.TrimSpace(theme))
		if theme == "" {
			continue
		}
		if _, ok := seen[theme]; ok {
			continue
		}
		seen[theme] = struct{}{}
		out = append(out, theme)
	}
	return out
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	req := generateRequest{Model: c.model, Prompt: prompt, Format: "json"}
	if err := c.postJSON(ctx, "/api/generate", req, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
