package model

// Business is the profile fed into context analysis and used to derive source
// URLs when the caller does not supply any. Profile CRUD lives outside this
// service; only the fields the flow consumes are modeled.
type Business struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	IndustryType   string `json:"industry_type"`
	CustomerType   string `json:"customer_type"`
	AboutUs        string `json:"about_us"`
	LandingPageURL string `json:"landing_page_url"`
	InstagramURL   string `json:"instagram_url"`
	LinkedInURL    string `json:"linkedin_url"`
	XURL           string `json:"x_url"`
}

// SourceURLs returns the platform URLs present on the profile, in the order
// they are scraped.
func (b Business) SourceURLs() []string {
	var urls []string
	for _, u := range []string{b.LandingPageURL, b.InstagramURL, b.LinkedInURL, b.XURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
