// Package scrape detects source platforms and fetches their content.
package scrape

import "strings"

// Platform names keyed into the ingestion map.
const (
	PlatformInstagram   = "instagram"
	PlatformX           = "x"
	PlatformLinkedIn    = "linkedin"
	PlatformLandingPage = "landing_page"
)

// DetectPlatform maps a raw source URL to its platform name. Matching is
// case-sensitive substring containment, checked in a fixed priority order:
// instagram.com, then x.com/twitter.com, then linkedin.com; anything else is
// treated as a landing page.
func DetectPlatform(url string) string {
	switch {
	case strings.Contains(url, "instagram.com"):
		return PlatformInstagram
	case strings.Contains(url, "x.com"), strings.Contains(url, "twitter.com"):
		return PlatformX
	case strings.Contains(url, "linkedin.com"):
		return PlatformLinkedIn
	default:
		return PlatformLandingPage
	}
}
