package engine

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pokebim/pricewatch/models"
)

// Condition decides whether a step runs, given the error of the step
// before it.
type Condition func(prevErr error) bool

// Step is one strategy of a Chain.
type Step struct {
	Strategy Strategy

	// When gates the step on the previous failure. Nil always runs.
	When Condition
}

// Chain tries its steps in order and returns the first extraction that
// succeeds. Steps run one after another, never concurrently, so a cheap
// strategy that works never pays for an expensive one.
type Chain struct {
	steps  []Step
	memory *StrategyMemory
}

// NewChain creates a Chain. memory may be nil.
func NewChain(memory *StrategyMemory, steps ...Step) *Chain {
	return &Chain{steps: steps, memory: memory}
}

// DefaultChain builds the standard escalation: direct, then proxy when the
// direct fetch was refused (403) or came back empty, then browser when the
// step before it failed for any reason other than a bad URL.
func DefaultChain(memory *StrategyMemory, direct, proxy, browser Strategy) *Chain {
	return NewChain(memory,
		Step{Strategy: direct},
		Step{Strategy: proxy, When: EscalateOnBlock},
		Step{Strategy: browser, When: EscalateOnFailure},
	)
}

// EscalateOnBlock matches a 403 or an empty/truncated response.
func EscalateOnBlock(prevErr error) bool {
	switch models.CodeOf(prevErr) {
	case models.ErrCodeEmptyResponse:
		return true
	case models.ErrCodeUpstreamHTTP:
		return models.UpstreamStatus(prevErr) == http.StatusForbidden
	}
	return false
}

// EscalateOnFailure matches every failure except an invalid URL.
func EscalateOnFailure(prevErr error) bool {
	return prevErr != nil && models.CodeOf(prevErr) != models.ErrCodeInvalidURL
}

func (c *Chain) Name() string { return models.StrategyAuto }

// Scrape runs the chain and drops the attempt log.
func (c *Chain) Scrape(ctx context.Context, rawURL string) (*models.Extraction, error) {
	ext, _, err := c.Run(ctx, rawURL)
	return ext, err
}

// Run executes the chain. It returns the winning extraction and the list of
// attempts made, or the error of the last step that ran.
func (c *Chain) Run(ctx context.Context, rawURL string) (*models.Extraction, []models.Attempt, error) {
	var (
		attempts []models.Attempt
		lastErr  error
		tried    string
	)

	// ── 1. Remembered strategy first ───────────────────────────────
	if remembered := c.remembered(rawURL); remembered != nil {
		ext, err := c.attempt(ctx, remembered, rawURL, &attempts)
		if err == nil {
			return ext, attempts, nil
		}
		if models.CodeOf(err) == models.ErrCodeInvalidURL {
			return nil, attempts, err
		}
		slog.Info("remembered strategy failed, running full chain",
			"url", rawURL, "strategy", remembered.Name(), "error", err)
		c.memory.Delete(rawURL)
		tried = remembered.Name()
		lastErr = err
	}

	// ── 2. Ordered escalation ──────────────────────────────────────
	for i, step := range c.steps {
		if ctx.Err() != nil {
			lastErr = models.NewScrapeError(models.ErrCodeTimeout,
				"request deadline reached before "+step.Strategy.Name()+" could run", ctx.Err())
			break
		}
		if i > 0 && step.When != nil && !step.When(lastErr) {
			slog.Debug("chain step skipped", "strategy", step.Strategy.Name(), "url", rawURL)
			continue
		}
		if step.Strategy.Name() == tried {
			continue
		}

		ext, err := c.attempt(ctx, step.Strategy, rawURL, &attempts)
		if err == nil {
			if c.memory != nil {
				c.memory.Set(rawURL, step.Strategy.Name())
			}
			return ext, attempts, nil
		}
		lastErr = err
		if models.CodeOf(err) == models.ErrCodeInvalidURL {
			break
		}
	}

	if lastErr == nil {
		if ctx.Err() != nil {
			lastErr = models.NewScrapeError(models.ErrCodeTimeout, "request deadline reached before any strategy ran", ctx.Err())
		} else {
			lastErr = models.NewScrapeError(models.ErrCodeScrapeFailed, "no strategy was eligible to run", nil)
		}
	}
	return nil, attempts, lastErr
}

func (c *Chain) remembered(rawURL string) Strategy {
	if c.memory == nil {
		return nil
	}
	name := c.memory.Get(rawURL)
	if name == "" {
		return nil
	}
	for _, step := range c.steps {
		if step.Strategy.Name() == name {
			return step.Strategy
		}
	}
	return nil
}

func (c *Chain) attempt(ctx context.Context, s Strategy, rawURL string, attempts *[]models.Attempt) (*models.Extraction, error) {
	start := time.Now()
	ext, err := s.Scrape(ctx, rawURL)
	a := models.Attempt{
		Strategy:   s.Name(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		se := models.AsScrapeError(err)
		a.Code = se.Code
		a.Message = se.Message
		slog.Debug("strategy failed", "strategy", s.Name(), "url", rawURL, "error", err)
	} else {
		slog.Info("strategy succeeded", "strategy", s.Name(), "url", rawURL, "samples", len(ext.Samples))
	}
	*attempts = append(*attempts, a)
	return ext, err
}
