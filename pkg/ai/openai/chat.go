package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/chogerlate/NovelVizAI/pkg/ai"
)

// classify sorts a provider failure into the error taxonomy: rate limits,
// timeouts, 5xx responses and connection-level failures are transient;
// everything else is returned unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ai.TransientError{Op: op, Err: err}
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests,
			apierr.StatusCode == http.StatusRequestTimeout,
			apierr.StatusCode >= http.StatusInternalServerError:
			return &ai.TransientError{Op: op, Err: err}
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ai.TransientError{Op: op, Err: err}
	}

	return err
}

func (c *AnalysisOpenAIClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// GenerateStructured sends a prompt to the chat model with a JSON schema
// enforcing structure and returns the decoded response as a generic map.
//
// The schema constrains sampling but is no conformance guarantee:
// callers still validate the decoded value. A response that cannot be
// decoded at all yields a MalformedResponseError.
//
// Example:
//
//	raw, err := client.GenerateStructured(ctx, "summary", "Chapter summary", prompt, schema)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("%+v\n", raw)
func (c *AnalysisOpenAIClient) GenerateStructured(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	schema any,
	opts ...ai.GenerateOption,
) (map[string]any, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String(description),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	options := ai.GenerateOptions{
		Model:       c.extractionModel,
		Temperature: 0.1,
		Thinking:    "",
	}
	for _, o := range opts {
		o(&options)
	}

	msgs := []openai.ChatCompletionMessageParamUnion{}
	if len(options.SystemPrompts) > 0 {
		for _, sp := range options.SystemPrompts {
			msgs = append(msgs, openai.SystemMessage(sp))
		}
	}

	msgs = append(msgs, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(options.Model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}

	if options.Thinking != "" {
		// Needed fix for gpt-5 models as they dont support temperature other than 1.0 when reasoning is enabled
		if c.chatURL == "" {
			body.Temperature = openai.Float(1.0)
		}
		body.ReasoningEffort = shared.ReasoningEffort(options.Thinking)
	}

	if err := c.wait(ctx); err != nil {
		return nil, classify(name, err)
	}

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return nil, classify(name, err)
	}
	duration := time.Since(start).Milliseconds()

	metrics := ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
	}
	c.modifyMetrics(metrics)

	if len(response.Choices) == 0 {
		return nil, &ai.MalformedResponseError{
			Op:  name,
			Err: fmt.Errorf("no choices in response from model"),
		}
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return nil, &ai.MalformedResponseError{
			Op:  name,
			Err: fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason),
		}
	}
	raw := map[string]any{}
	if err := ai.UnmarshalFlexible(message, &raw); err != nil {
		return nil, &ai.MalformedResponseError{Op: name, Raw: message, Err: err}
	}
	return raw, nil
}
