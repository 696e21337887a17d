package agent

import (
	"context"
	"fmt"

	"github.com/Blynx-ai/blynx-backend/internal/model"
)

const businessContextPrompt = `Analyze the following business profile and provide context for content evaluation:

Business Name: %s
Industry: %s
Customer Type: %s
About Us: %s
Website: %s

Provide a JSON response with:
1. business_category: (detailed business category)
2. target_market: (analysis of target market)
3. brand_voice_expectations: (expected brand voice/tone)
4. industry_standards: (relevant industry standards)
5. competitive_landscape: (general competitive context)
6. key_success_metrics: (what success looks like for this business)`

// AnalyzeBusinessContext enriches the business profile into an analytical
// context object used by every later step.
func AnalyzeBusinessContext(ctx context.Context, gen Generator, business model.Business) (model.Payload, error) {
	prompt := fmt.Sprintf(businessContextPrompt,
		business.Name,
		business.IndustryType,
		business.CustomerType,
		business.AboutUs,
		business.LandingPageURL,
	)
	return gen.GenerateStructured(ctx, prompt)
}

const classifyPrompt = `Analyze the following content and classify it:

Content Data: %s

Provide a JSON response with:
1. content_type: (website, social_media, blog, news, etc.)
2. tone: (professional, casual, promotional, informative, etc.)
3. domain: (business, technology, health, education, etc.)
4. target_audience: (general, professionals, students, etc.)
5. content_style: (formal, informal, technical, creative, etc.)
6. confidence_score: (0-100)`

// ClassifyContent classifies the combined scraped content by type and tone.
func ClassifyContent(ctx context.Context, gen Generator, data model.Payload) (model.Payload, error) {
	return gen.GenerateStructured(ctx, fmt.Sprintf(classifyPrompt, contextJSON(data)))
}

const extractPrompt = `Extract key information from the following content:

Content Data: %s

Provide a JSON response with:
1. key_entities: [list of important people, organizations, products mentioned]
2. main_sections: [list of main content sections/topics]
3. summary: (brief summary of the content)
4. keywords: [list of important keywords]
5. call_to_actions: [list of any CTAs found]
6. contact_info: (any contact information found)
7. social_links: [social media links found]`

// ExtractData pulls key entities, keywords, and sections out of the content.
func ExtractData(ctx context.Context, gen Generator, data model.Payload) (model.Payload, error) {
	return gen.GenerateStructured(ctx, fmt.Sprintf(extractPrompt, contextJSON(data)))
}

const redFlagsPrompt = `Analyze the following content for potential red flags:

Content Data: %s

Check for and provide a JSON response with:
1. bias_indicators: [any signs of bias]
2. misinformation_risk: (low/medium/high) with explanation
3. toxicity_level: (low/medium/high) with explanation
4. spam_indicators: [any spam-like characteristics]
5. misleading_claims: [any potentially misleading statements]
6. overall_risk_score: (0-100)
7. recommendations: [suggestions to address any issues]`

// DetectRedFlags scans the content for risk signals.
func DetectRedFlags(ctx context.Context, gen Generator, data model.Payload) (model.Payload, error) {
	return gen.GenerateStructured(ctx, fmt.Sprintf(redFlagsPrompt, contextJSON(data)))
}

const newsSentimentPrompt = `Analyze the sentiment of recent news coverage about this business:

News Data: %s

Provide a JSON response with:
1. overall_sentiment: (positive/neutral/negative)
2. sentiment_score: (0-100, where 100 is most positive)
3. notable_mentions: [key stories and their tone]
4. coverage_volume: (none/low/medium/high)
5. reputation_signals: [signals relevant to brand reputation]`

// AnalyzeNewsSentiment summarizes the tone of recent news coverage. Only runs
// when the news research step produced data.
func AnalyzeNewsSentiment(ctx context.Context, gen Generator, news model.Payload) (model.Payload, error) {
	return gen.GenerateStructured(ctx, fmt.Sprintf(newsSentimentPrompt, contextJSON(news)))
}

const accuracyPrompt = `Evaluate the factual accuracy and logical consistency of this content:

Context Data: %s

Provide a JSON response with:
1. factual_accuracy_score: (0-100)
2. logical_consistency_score: (0-100)
3. evidence_quality: (poor/fair/good/excellent)
4. source_credibility: (low/medium/high)
5. fact_check_issues: [list of any questionable facts]
6. logic_gaps: [any logical inconsistencies found]
7. overall_accuracy_score: (0-100)`

// EvaluateAccuracy scores factual accuracy and logical consistency.
func EvaluateAccuracy(ctx context.Context, gen Generator, data model.Payload) (model.Payload, error) {
	return gen.GenerateStructured(ctx, fmt.Sprintf(accuracyPrompt, contextJSON(data)))
}

const impactPrompt = `Evaluate the impact and value of this content:

Context Data: %s

Provide a JSON response with:
1. usefulness_score: (0-100)
2. originality_score: (0-100)
3. influence_potential: (low/medium/high)
4. audience_engagement: (poor/fair/good/excellent)
5. actionability: (low/medium/high)
6. value_proposition: (description of main value)
7. overall_impact_score: (0-100)`

// EvaluateImpact scores usefulness and influence.
func EvaluateImpact(ctx context.Context, gen Generator, data model.Payload) (model.Payload, error) {
	return gen.GenerateStructured(ctx, fmt.Sprintf(impactPrompt, contextJSON(data)))
}

const languagePrompt = `Evaluate the language quality and clarity of this content:

Context Data: %s

Provide a JSON response with:
1. readability_score: (0-100)
2. clarity_score: (0-100)
3. grammar_quality: (poor/fair/good/excellent)
4. vocabulary_appropriateness: (poor/fair/good/excellent)
5. structure_organization: (poor/fair/good/excellent)
6. communication_effectiveness: (low/medium/high)
7. overall_language_score: (0-100)`

// EvaluateLanguage scores readability and clarity.
func EvaluateLanguage(ctx context.Context, gen Generator, data model.Payload) (model.Payload, error) {
	return gen.GenerateStructured(ctx, fmt.Sprintf(languagePrompt, contextJSON(data)))
}

const brandPrompt = `Evaluate brand consistency across all platforms and content:

Context Data: %s

Provide a JSON response with:
1. cross_platform_consistency: (0-100)
2. brand_voice_alignment: (0-100)
3. visual_consistency: (0-100)
4. message_coherence: (0-100)
5. brand_identity_strength: (poor/fair/good/excellent)
6. inconsistencies_found: [list of brand inconsistencies]
7. brand_opportunities: [opportunities to strengthen brand]
8. overall_brand_score: (0-100)`

// EvaluateBrand scores cross-platform brand consistency.
func EvaluateBrand(ctx context.Context, gen Generator, data model.Payload) (model.Payload, error) {
	return gen.GenerateStructured(ctx, fmt.Sprintf(brandPrompt, contextJSON(data)))
}

const reputationPrompt = `Evaluate the public reputation signals of this business:

Context Data: %s

Consider scraped content, detected risks, and news sentiment when present.
Provide a JSON response with:
1. reputation_strength: (0-100)
2. trust_signals: [indicators that build trust]
3. risk_exposure: (low/medium/high)
4. public_perception: (description of likely public perception)
5. overall_reputation_score: (0-100)`

// EvaluateReputation scores overall reputation using all accumulated context,
// including news sentiment when the news research step ran.
func EvaluateReputation(ctx context.Context, gen Generator, data model.Payload) (model.Payload, error) {
	return gen.GenerateStructured(ctx, fmt.Sprintf(reputationPrompt, contextJSON(data)))
}

const feedbackPrompt = `Generate comprehensive feedback based on all analysis results:

Final Data: %s

Provide a JSON response with:
1. strengths: [list of content strengths]
2. areas_for_improvement: [list of improvement areas]
3. actionable_recommendations: [specific suggestions]
4. key_insights: [important findings]
5. priority_actions: [most important next steps]
6. overall_assessment: (summary paragraph)
7. next_steps: [recommended actions to improve score]`

// GenerateFeedback produces structured recommendations from the complete
// context, including the composite score.
func GenerateFeedback(ctx context.Context, gen Generator, data model.Payload) (model.Payload, error) {
	return gen.GenerateStructured(ctx, fmt.Sprintf(feedbackPrompt, contextJSON(data)))
}
