package model

// ScrapeResult is the outcome of scraping one source URL. A scraper reports
// failure through Success/Error instead of returning a Go error so that the
// orchestrator can treat the final outcome as definitive.
type ScrapeResult struct {
	Success     bool      `json:"success"`
	Platform    string    `json:"platform"`
	URL         string    `json:"url"`
	ProfileData Payload   `json:"profile_data,omitempty"`
	PostsData   []Payload `json:"posts_data,omitempty"`
	Screenshots []string  `json:"screenshots,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// AsPayload flattens the result into phase context form.
func (r ScrapeResult) AsPayload() Payload {
	p := Payload{
		"success":  r.Success,
		"platform": r.Platform,
		"url":      r.URL,
	}
	if r.ProfileData != nil {
		p["profile_data"] = r.ProfileData
	}
	if len(r.PostsData) > 0 {
		p["posts_data"] = r.PostsData
	}
	if len(r.Screenshots) > 0 {
		p["screenshots"] = r.Screenshots
	}
	if r.Error != "" {
		p["error"] = r.Error
	}
	return p
}
