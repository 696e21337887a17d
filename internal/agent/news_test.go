package agent

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Blynx-ai/blynx-backend/internal/model"
	"github.com/Blynx-ai/blynx-backend/pkg/jina"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

func (m *mockSearcher) Search(ctx context.Context, query string) (*jina.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.SearchResponse), args.Error(1)
}

func TestResearchNews(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("Search", mock.Anything, `"Acme Corp" news`).Return(&jina.SearchResponse{
		Data: []jina.SearchResult{
			{Title: "Acme expands", URL: "https://news.example.com/1", Description: "expansion"},
			{Title: "Acme expands", URL: "https://news.example.com/1", Description: "duplicate"},
		},
	}, nil)
	searcher.On("Search", mock.Anything, mock.Anything).Return(&jina.SearchResponse{
		Data: []jina.SearchResult{
			{Title: "Acme press day", URL: "https://news.example.com/2"},
		},
	}, nil)

	out := ResearchNews(context.Background(), searcher, model.Business{Name: "Acme Corp", IndustryType: "logistics"})
	require.False(t, out.IsError())

	assert.Equal(t, "Acme Corp", out["company_name"])
	assert.Equal(t, 2, out["total_articles"])
	articles := out["articles"].([]model.Payload)
	assert.Len(t, articles, 2)
	assert.Equal(t, "https://news.example.com/1", articles[0]["url"])

	queries := out["search_queries"].([]string)
	assert.Len(t, queries, 5)
	assert.Contains(t, queries, `"Acme Corp" logistics news`)
}

func TestResearchNews_NoName(t *testing.T) {
	out := ResearchNews(context.Background(), new(mockSearcher), model.Business{})
	assert.True(t, out.IsError())
}

func TestResearchNews_NoResults(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything).Return(&jina.SearchResponse{}, nil)

	out := ResearchNews(context.Background(), searcher, model.Business{Name: "Ghost Co"})
	assert.True(t, out.IsError())
	assert.Contains(t, out.ErrorMessage(), "no news articles")
}

func TestResearchNews_QueryFailureSkipped(t *testing.T) {
	searcher := new(mockSearcher)
	searcher.On("Search", mock.Anything, `"Acme Corp" news`).
		Return(nil, eris.New("search unavailable"))
	searcher.On("Search", mock.Anything, mock.Anything).Return(&jina.SearchResponse{
		Data: []jina.SearchResult{{Title: "Acme wins award", URL: "https://news.example.com/3"}},
	}, nil)

	out := ResearchNews(context.Background(), searcher, model.Business{Name: "Acme Corp"})
	require.False(t, out.IsError())
	assert.Equal(t, 1, out["total_articles"])
}
