package scrape

import (
	"context"

	"github.com/Blynx-ai/blynx-backend/internal/model"
)

// Scraper fetches one source URL for a single platform. Failures are reported
// through the result's Success/Error fields rather than a Go error: the
// orchestrator treats the returned outcome as definitive.
type Scraper interface {
	Platform() string
	Scrape(ctx context.Context, url string) model.ScrapeResult
}

// Registry resolves the scraper for a source URL by platform detection.
type Registry struct {
	byPlatform map[string]Scraper
}

// NewRegistry builds a registry from the given scrapers. Later scrapers for
// the same platform replace earlier ones.
func NewRegistry(scrapers ...Scraper) *Registry {
	r := &Registry{byPlatform: make(map[string]Scraper, len(scrapers))}
	for _, s := range scrapers {
		r.byPlatform[s.Platform()] = s
	}
	return r
}

// ForURL returns the scraper responsible for the URL's platform, or nil when
// no scraper is registered for it.
func (r *Registry) ForURL(url string) Scraper {
	return r.byPlatform[DetectPlatform(url)]
}
