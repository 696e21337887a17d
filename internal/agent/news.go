package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Blynx-ai/blynx-backend/internal/model"
	"github.com/Blynx-ai/blynx-backend/pkg/jina"
)

const maxNewsArticles = 20

// ResearchNews searches the web for recent news coverage of the
// business and returns the deduplicated articles as a payload suitable
// for sentiment analysis. A business without a name cannot be searched
// and yields an error payload rather than an error.
func ResearchNews(ctx context.Context, searcher jina.Client, business model.Business) model.Payload {
	if business.Name == "" {
		return model.ErrorPayload(fmt.Errorf("news research requires a business name"))
	}

	queries := newsQueries(business)
	var articles []model.Payload
	seen := make(map[string]bool)

	for _, query := range queries {
		resp, err := searcher.Search(ctx, query)
		if err != nil {
			zap.L().Warn("news search query failed",
				zap.String("query", query),
				zap.Error(err))
			continue
		}
		for _, r := range resp.Data {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			articles = append(articles, model.Payload{
				"title":       r.Title,
				"url":         r.URL,
				"description": r.Description,
				"content":     r.Content,
			})
			if len(articles) >= maxNewsArticles {
				break
			}
		}
		if len(articles) >= maxNewsArticles {
			break
		}
	}

	if len(articles) == 0 {
		return model.ErrorPayload(fmt.Errorf("no news articles found for %q", business.Name))
	}

	return model.Payload{
		"company_name":   business.Name,
		"search_queries": queries,
		"total_articles": len(articles),
		"articles":       articles,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
}

func newsQueries(business model.Business) []string {
	queries := []string{
		fmt.Sprintf("%q news", business.Name),
		fmt.Sprintf("%q announcement", business.Name),
		fmt.Sprintf("%q press release", business.Name),
	}
	if business.IndustryType != "" {
		queries = append(queries,
			fmt.Sprintf("%q %s", business.Name, business.IndustryType),
			fmt.Sprintf("%q %s news", business.Name, business.IndustryType))
	}
	return queries
}
