package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Blynx-ai/blynx-backend/internal/config"
	"github.com/Blynx-ai/blynx-backend/internal/model"
	"github.com/Blynx-ai/blynx-backend/internal/resilience"
	"github.com/Blynx-ai/blynx-backend/pkg/firecrawl"
	"github.com/Blynx-ai/blynx-backend/pkg/jina"
)

// maxPosts caps how many content blocks are kept per source.
const maxPosts = 12

// ReaderScraper fetches a source through the Jina reader with an optional
// Firecrawl fallback. Requests against the same platform are spaced by a rate
// limiter, retried with exponential backoff, and guarded by a circuit breaker
// so a platform that keeps blocking fails fast.
type ReaderScraper struct {
	platform string
	reader   jina.Client
	fallback firecrawl.Client // nil disables the fallback
	limiter  *rate.Limiter
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
	timeout  time.Duration
}

// NewReaderScraper builds a scraper for one platform.
func NewReaderScraper(platform string, reader jina.Client, fallback firecrawl.Client, cfg config.ScrapeConfig) *ReaderScraper {
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 0.5
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if !cfg.EnableFallback {
		fallback = nil
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	retry.OnRetry = resilience.RetryLogger("scrape", platform)

	return &ReaderScraper{
		platform: platform,
		reader:   reader,
		fallback: fallback,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 4,
			ResetTimeout:     2 * time.Minute,
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("scrape: circuit state change",
					zap.String("platform", platform),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		retry:   retry,
		timeout: timeout,
	}
}

// Platform returns the platform this scraper serves.
func (s *ReaderScraper) Platform() string { return s.platform }

// Scrape fetches the URL and converts any failure into the result's error
// field. The caller never sees a raised error.
func (s *ReaderScraper) Scrape(ctx context.Context, url string) model.ScrapeResult {
	result := model.ScrapeResult{Platform: s.platform, URL: url}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		result.Error = eris.Wrap(err, "scrape: rate limit wait").Error()
		return result
	}

	title, content, err := s.fetch(ctx, url)
	if err != nil {
		zap.L().Warn("scrape: source failed",
			zap.String("platform", s.platform),
			zap.String("url", url),
			zap.Error(err),
		)
		result.Error = err.Error()
		return result
	}

	content = cleanContent(content)
	result.Success = true
	result.ProfileData = model.Payload{
		"title":   title,
		"url":     url,
		"content": content,
	}
	for _, post := range splitPosts(content, maxPosts) {
		result.PostsData = append(result.PostsData, model.Payload{"text": post})
	}
	return result
}

// fetch runs the reader with retries inside the circuit breaker, then the
// Firecrawl fallback when the reader path is exhausted.
func (s *ReaderScraper) fetch(ctx context.Context, url string) (title, content string, err error) {
	type page struct{ title, content string }

	p, err := resilience.ExecuteVal(ctx, s.breaker, func(ctx context.Context) (page, error) {
		resp, readErr := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*jina.ReadResponse, error) {
			return s.reader.Read(ctx, url)
		})
		if readErr != nil {
			return page{}, readErr
		}
		if resp.Data.Content == "" {
			return page{}, eris.Errorf("scrape: empty content for %s", url)
		}
		return page{title: resp.Data.Title, content: resp.Data.Content}, nil
	})
	if err == nil {
		return p.title, p.content, nil
	}

	if s.fallback == nil {
		return "", "", err
	}

	zap.L().Debug("scrape: reader failed, trying firecrawl fallback",
		zap.String("platform", s.platform),
		zap.String("url", url),
		zap.Error(err),
	)

	resp, fbErr := s.fallback.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     url,
		Formats: []string{"markdown"},
	})
	if fbErr != nil {
		return "", "", eris.Wrap(fbErr, "scrape: fallback failed after reader error")
	}
	if !resp.Success || resp.Data.Markdown == "" {
		return "", "", eris.Errorf("scrape: fallback returned no content for %s", url)
	}
	return resp.Data.Title, resp.Data.Markdown, nil
}

// NewRegistryFromConfig wires one reader scraper per supported platform.
func NewRegistryFromConfig(reader jina.Client, fallback firecrawl.Client, cfg config.ScrapeConfig) *Registry {
	return NewRegistry(
		NewReaderScraper(PlatformLandingPage, reader, fallback, cfg),
		NewReaderScraper(PlatformInstagram, reader, fallback, cfg),
		NewReaderScraper(PlatformX, reader, fallback, cfg),
		NewReaderScraper(PlatformLinkedIn, reader, fallback, cfg),
	)
}
