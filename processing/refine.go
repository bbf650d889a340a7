// Package processing holds the optional LLM-backed prompt refinement
// step. The tagger-derived prompts work on their own; when an OpenAI key
// is configured the pipeline asks for richer scene descriptions before
// image generation.
package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/aal51282/ai-video-generator/models"
)

// RefinedPrompts is the structured output: one image prompt per segment,
// in segment order.
type RefinedPrompts struct {
	Prompts []string `json:"prompts" jsonschema_description:"One vivid text-to-image prompt per input sentence, in the same order as the sentences."`
}

var refinedPromptsSchema = GenerateSchema[RefinedPrompts]()

// Enabled reports whether prompt refinement is configured.
func Enabled() bool {
	return os.Getenv("OPENAI_API_KEY") != ""
}

// RefinePrompts asks the LLM for one improved image prompt per segment.
// The returned slice always has exactly len(segments) entries; any
// mismatch from the model is an error so the caller can fall back to the
// tagger-derived prompts.
func RefinePrompts(ctx context.Context, segments []models.Segment) ([]string, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	var sentences []string
	for i, seg := range segments {
		sentences = append(sentences, fmt.Sprintf("%d. %s", i+1, seg.DisplayText))
	}

	prompt := fmt.Sprintf(`You are writing text-to-image prompts for a narrated slideshow.
For each numbered sentence below, write one vivid, concrete prompt describing a single illustrative image for that sentence.
Keep subjects and actions from the sentence; add setting, lighting and mood. One prompt per sentence, same order, no numbering in the output.

Sentences:
%s`, strings.Join(sentences, "\n"))

	refined, err := getStructuredResponse[RefinedPrompts](ctx, client, prompt, refinedPromptsSchema)
	if err != nil {
		return nil, err
	}
	if len(refined.Prompts) != len(segments) {
		return nil, fmt.Errorf("expected %d refined prompts, got %d", len(segments), len(refined.Prompts))
	}
	for i, p := range refined.Prompts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("refined prompt %d is empty", i)
		}
	}
	return refined.Prompts, nil
}

// getStructuredResponse is a helper function to call the OpenAI API with JSON schema enforcement
func getStructuredResponse[T any](ctx context.Context, client openai.Client, prompt string, schema interface{}) (*T, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "structured_response",
		Description: openai.String("Structured data response"),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	chatCompletion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModelGPT4oMini,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	rawResponse := chatCompletion.Choices[0].Message.Content

	var structuredResponse T
	if err := json.Unmarshal([]byte(rawResponse), &structuredResponse); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI JSON response: %w\nRaw content: %s", err, rawResponse)
	}

	return &structuredResponse, nil
}
