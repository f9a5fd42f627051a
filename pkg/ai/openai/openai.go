package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"github.com/chogerlate/NovelVizAI/pkg/ai"
)

// AnalysisOpenAIClient is an ai.CompletionClient backed by an
// OpenAI-compatible chat completion endpoint, generating
// schema-constrained facet extractions.
//
// An AnalysisOpenAIClient should be created using NewAnalysisOpenAIClient.
type AnalysisOpenAIClient struct {
	extractionModel string

	chatURL string
	chatKey string

	limiter *rate.Limiter

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewAnalysisOpenAIClientParams defines the configuration parameters for
// creating a new AnalysisOpenAIClient.
//
// ExtractionModel is the model used for structured output. ChatURL and
// ChatKey configure the API endpoint; an empty ChatURL means the
// official OpenAI endpoint. RequestsPerMinute bounds outgoing calls;
// zero disables rate limiting.
type NewAnalysisOpenAIClientParams struct {
	ExtractionModel string

	ChatURL string
	ChatKey string

	RequestsPerMinute int
}

// NewAnalysisOpenAIClient creates and returns a new AnalysisOpenAIClient
// configured with the provided parameters.
//
// Example:
//
//	params := openai.NewAnalysisOpenAIClientParams{
//		ExtractionModel:   "gpt-4o-mini",
//		ChatURL:           "https://api.openai.com/v1",
//		ChatKey:           os.Getenv("OPENAI_API_KEY"),
//		RequestsPerMinute: 60,
//	}
//	client := openai.NewAnalysisOpenAIClient(params)
func NewAnalysisOpenAIClient(
	params NewAnalysisOpenAIClientParams,
) *AnalysisOpenAIClient {
	chatClient := newOpenaiClient(params.ChatURL, params.ChatKey)

	var limiter *rate.Limiter
	if params.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(
			rate.Limit(float64(params.RequestsPerMinute)/60.0),
			params.RequestsPerMinute,
		)
	}

	return &AnalysisOpenAIClient{
		extractionModel: params.ExtractionModel,

		chatURL: params.ChatURL,
		chatKey: params.ChatKey,

		limiter: limiter,

		metricsLock: sync.Mutex{},
		metrics: ai.ModelMetrics{
			InputTokens:  0,
			OutputTokens: 0,
			TotalTokens:  0,
			DurationMs:   0,
		},

		ChatClient: chatClient,
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
