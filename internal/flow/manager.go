package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Blynx-ai/blynx-backend/internal/agent"
	"github.com/Blynx-ai/blynx-backend/internal/config"
	"github.com/Blynx-ai/blynx-backend/internal/model"
	"github.com/Blynx-ai/blynx-backend/internal/scrape"
	"github.com/Blynx-ai/blynx-backend/pkg/jina"
)

// Manager runs evaluation flows. Each started flow executes its phase
// sequence on a supervised goroutine; state queries and stop requests
// go through the shared State.
type Manager struct {
	state    *State
	registry *scrape.Registry
	gen      agent.Generator
	searcher jina.Client
	cfg      config.FlowConfig

	wg sync.WaitGroup
}

// NewManager creates a flow manager. The searcher may be nil, which
// disables the news research step regardless of configuration.
func NewManager(state *State, registry *scrape.Registry, gen agent.Generator, searcher jina.Client, cfg config.FlowConfig) *Manager {
	return &Manager{
		state:    state,
		registry: registry,
		gen:      gen,
		searcher: searcher,
		cfg:      cfg,
	}
}

// State exposes the underlying flow state for observers.
func (m *Manager) State() *State {
	return m.state
}

// Start registers a flow for the business and launches its phase
// sequence in the background. It returns the flow ID immediately;
// progress is observable through Status, Logs, and the publisher.
// Explicit URLs override the ones derived from the business profile.
func (m *Manager) Start(ctx context.Context, userID int64, business model.Business, urls ...string) (string, error) {
	sourceURLs := urls
	if len(sourceURLs) == 0 {
		sourceURLs = business.SourceURLs()
	}
	if len(sourceURLs) == 0 {
		return "", eris.New("flow: business has no source URLs")
	}

	now := time.Now().UTC()
	flow := model.Flow{
		ID:         uuid.New().String(),
		UserID:     userID,
		BusinessID: business.ID,
		SourceURLs: sourceURLs,
		Status:     model.FlowStatusPending,
		Stats:      model.FlowStats{TotalSources: len(sourceURLs)},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.state.Create(flow); err != nil {
		return "", err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.execute(flow, business)
	}()

	return flow.ID, nil
}

// Stop requests cancellation of a running flow on behalf of a user.
func (m *Manager) Stop(flowID string, userID int64) error {
	err := m.state.RequestStop(flowID, userID)
	if err == nil {
		m.state.AppendLog(flowID, "SYSTEM", "Flow stopped by user", nil)
	}
	return err
}

// Close waits for all running flows to finish their phase sequences.
func (m *Manager) Close() {
	m.wg.Wait()
}

// execute runs the six-phase sequence. It owns the flow's status from
// RUNNING to a terminal state and always releases the user's active
// slot, whatever path it exits through.
func (m *Manager) execute(flow model.Flow, business model.Business) {
	// The flow outlives the triggering request, so phases run under a
	// fresh context rather than the request's.
	ctx := context.Background()
	log := zap.L().With(zap.String("flow_id", flow.ID), zap.Int64("user_id", flow.UserID))

	defer m.state.ReleaseSlot(flow.UserID, flow.ID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("flow: panic in phase sequence", zap.Any("panic", r))
			msg := fmt.Sprintf("internal error: %v", r)
			m.state.SetStatus(flow.ID, model.FlowStatusFailed, msg)
			m.state.AppendLog(flow.ID, "SYSTEM", "Agent flow failed: "+msg, nil)
		}
	}()

	m.state.SetStatus(flow.ID, model.FlowStatusRunning, "")
	m.state.AppendLog(flow.ID, "SYSTEM",
		fmt.Sprintf("Starting agent flow for %d URLs", len(flow.SourceURLs)), nil)

	// Phase 1: business context analysis.
	if m.state.StopRequested(flow.ID) {
		return
	}
	m.state.AppendLog(flow.ID, "CONTEXT", "Analyzing business context", nil)
	businessContext, err := agent.AnalyzeBusinessContext(ctx, m.gen, business)
	if err != nil {
		log.Warn("flow: context analysis degraded", zap.Error(err))
		businessContext = model.ErrorPayload(err)
	}

	// Optional news research, feeding the sentiment analyzer.
	var news model.Payload
	newsRan := false
	if m.cfg.EnableNews && m.searcher != nil {
		if m.state.StopRequested(flow.ID) {
			return
		}
		m.state.AppendLog(flow.ID, "NEWS", fmt.Sprintf("Starting news research for %s", business.Name), nil)
		news = agent.ResearchNews(ctx, m.searcher, business)
		newsRan = true
		if news.IsError() {
			m.state.AppendLog(flow.ID, "NEWS", "News research failed: "+news.ErrorMessage(), nil)
		} else {
			m.state.AppendLog(flow.ID, "NEWS", "News research completed", nil)
		}
	}

	// Phase 2: sequential multi-source ingestion.
	if m.state.StopRequested(flow.ID) {
		return
	}
	m.state.AppendLog(flow.ID, "INGESTOR", "Starting multi-source data ingestion", nil)

	scraped := make(model.Payload)
	stats := flow.Stats
	for i, url := range flow.SourceURLs {
		if m.state.StopRequested(flow.ID) {
			return
		}
		m.state.AppendLog(flow.ID, "INGESTOR",
			fmt.Sprintf("Scraping source %d/%d: %s", i+1, len(flow.SourceURLs), url), nil)

		result := m.scrapeSource(ctx, url)
		if result.Success {
			scraped[result.Platform] = result.AsPayload()
			stats.CompletedSources++
			m.state.AppendLog(flow.ID, "INGESTOR", "Successfully scraped "+result.Platform, nil)
		} else {
			stats.FailedSources++
			m.state.AppendLog(flow.ID, "INGESTOR", "Failed to scrape "+url,
				model.Payload{"error": result.Error})
		}
		m.state.SetStats(flow.ID, stats)
	}

	if stats.CompletedSources == 0 {
		msg := "no data could be scraped from any source"
		log.Error("flow: ingestion produced no data")
		m.state.SetStatus(flow.ID, model.FlowStatusFailed, msg)
		m.state.AppendLog(flow.ID, "SYSTEM", "Agent flow failed: "+msg, nil)
		return
	}
	m.state.AppendLog(flow.ID, "INGESTOR",
		fmt.Sprintf("Data ingestion completed for %d sources", stats.CompletedSources), nil)

	// Phase 3: parallel analyzers.
	if m.state.StopRequested(flow.ID) {
		return
	}
	m.state.AppendLog(flow.ID, "SYSTEM", "Starting parallel analysis phase", nil)

	combined := model.Payload{
		"business_context": businessContext,
		"scraped_data":     scraped,
	}
	if newsRan && !news.IsError() {
		combined["news_research"] = news
	}

	analyzerTasks := []Task{
		{Name: "content_classification", Run: m.step(flow.ID, "CLASSIFIER", "Analyzing content type and tone", agent.ClassifyContent, combined)},
		{Name: "data_extraction", Run: m.step(flow.ID, "EXTRACTOR", "Extracting key entities and sections", agent.ExtractData, combined)},
		{Name: "red_flags", Run: m.step(flow.ID, "RED_FLAGS", "Detecting potential risks", agent.DetectRedFlags, combined)},
	}
	if newsRan {
		analyzerTasks = append(analyzerTasks,
			Task{Name: "news_sentiment", Run: m.step(flow.ID, "NEWS", "Analyzing news sentiment", agent.AnalyzeNewsSentiment, news)})
	}

	analyzerResults := Gather(ctx, analyzerTasks)
	analysis := make(map[string]model.Payload, len(analyzerTasks))
	for i, task := range analyzerTasks {
		if analyzerResults[i].IsError() {
			m.state.AppendLog(flow.ID, "ANALYZER",
				fmt.Sprintf("Analyzer %d failed: %s", i+1, analyzerResults[i].ErrorMessage()), nil)
		}
		analysis[task.Name] = analyzerResults[i]
	}

	// Phase 4: parallel evaluators.
	if m.state.StopRequested(flow.ID) {
		return
	}
	m.state.AppendLog(flow.ID, "SYSTEM", "Starting parallel evaluation phase", nil)

	contextData := combined.Clone()
	for name, payload := range analysis {
		contextData[name] = payload
	}

	evaluatorTasks := []Task{
		{Name: "accuracy", Run: m.step(flow.ID, "ACCURACY", "Evaluating factual accuracy", agent.EvaluateAccuracy, contextData)},
		{Name: "impact", Run: m.step(flow.ID, "IMPACT", "Evaluating content impact", agent.EvaluateImpact, contextData)},
		{Name: "language", Run: m.step(flow.ID, "LANGUAGE", "Evaluating language and clarity", agent.EvaluateLanguage, contextData)},
		{Name: "brand", Run: m.step(flow.ID, "BRAND", "Evaluating brand consistency", agent.EvaluateBrand, contextData)},
		{Name: "reputation", Run: m.step(flow.ID, "REPUTATION", "Evaluating public reputation", agent.EvaluateReputation, contextData)},
	}

	evaluatorResults := Gather(ctx, evaluatorTasks)
	evaluations := make(map[string]model.Payload, len(evaluatorTasks))
	for i, task := range evaluatorTasks {
		if evaluatorResults[i].IsError() {
			m.state.AppendLog(flow.ID, "EVALUATOR",
				fmt.Sprintf("Evaluator %d failed: %s", i+1, evaluatorResults[i].ErrorMessage()), nil)
		}
		evaluations[task.Name] = evaluatorResults[i]
	}

	// Phase 5: composite score. Computed locally, so degraded evaluator
	// slots lower the score's coverage instead of failing the flow.
	if m.state.StopRequested(flow.ID) {
		return
	}
	m.state.AppendLog(flow.ID, "SCORER", "Computing Blynx Score", nil)
	score := agent.ComputeScore(analysis, evaluations)
	m.state.AppendLog(flow.ID, "SCORER",
		fmt.Sprintf("Blynx Score computed: %.1f (%s)", score.Final, score.Grade), nil)

	// Phase 6: feedback. A generator failure here is fatal: there is no
	// downstream phase left to degrade into.
	if m.state.StopRequested(flow.ID) {
		return
	}
	m.state.AppendLog(flow.ID, "FEEDBACK", "Generating comprehensive feedback", nil)

	finalData := contextData.Clone()
	for name, payload := range evaluations {
		finalData[name+"_evaluation"] = payload
	}
	finalData["blynx_score"] = score

	feedback, err := agent.GenerateFeedback(ctx, m.gen, finalData)
	if err != nil {
		msg := "feedback generation failed: " + err.Error()
		log.Error("flow: feedback generation failed", zap.Error(err))
		m.state.SetStatus(flow.ID, model.FlowStatusFailed, msg)
		m.state.AppendLog(flow.ID, "SYSTEM", "Agent flow failed: "+msg, nil)
		return
	}

	if m.state.StopRequested(flow.ID) {
		return
	}

	analysisDetails := make(model.Payload, len(analysis)+len(evaluations))
	for name, payload := range analysis {
		analysisDetails[name] = payload
	}
	for name, payload := range evaluations {
		analysisDetails[name+"_evaluation"] = payload
	}

	report := &model.Report{
		FlowID:          flow.ID,
		SourceURLs:      flow.SourceURLs,
		BusinessContext: businessContext,
		Score:           score,
		Feedback:        feedback,
		Analysis:        analysisDetails,
		Stats:           stats,
		CompletedAt:     time.Now().UTC(),
	}

	m.state.SetReport(flow.ID, report)
	if m.state.SetStatus(flow.ID, model.FlowStatusCompleted, "") {
		m.state.AppendLog(flow.ID, "SYSTEM", "Agent flow completed successfully", nil)
	}
}

// step adapts an agent step into a fan-out task with start/finish logs.
func (m *Manager) step(flowID, label, message string, fn func(context.Context, agent.Generator, model.Payload) (model.Payload, error), data model.Payload) func(ctx context.Context) (model.Payload, error) {
	return func(ctx context.Context) (model.Payload, error) {
		m.state.AppendLog(flowID, label, message, nil)
		out, err := fn(ctx, m.gen, data)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

// scrapeSource resolves the scraper for a URL and runs it. A URL with
// no registered scraper is a captured failure, not a crash.
func (m *Manager) scrapeSource(ctx context.Context, url string) model.ScrapeResult {
	scraper := m.registry.ForURL(url)
	if scraper == nil {
		return model.ScrapeResult{
			Platform: scrape.DetectPlatform(url),
			URL:      url,
			Error:    "no scraper registered for platform",
		}
	}
	return scraper.Scrape(ctx, url)
}
