// Package segmenter splits input text into sentence-level segments and
// derives an image generation prompt for each one from its content words.
package segmenter

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/aal51282/ai-video-generator/models"
)

// PromptSuffix is appended to every generation prompt.
const PromptSuffix = "detailed, high quality, cinematic, 4K"

var (
	errNoText = errors.New("input text is empty")

	whitespacePattern = regexp.MustCompile(`\s+`)
	allowListPattern  = regexp.MustCompile(`[^a-zA-Z0-9\s.,!?-]`)
)

// Segment splits text into ordered sentence segments. It returns at least
// one segment for any non-blank input and fails only when sentence
// detection or tagging itself cannot run.
func Segment(text string) ([]models.Segment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &models.SegmentationError{Err: errNoText}
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, &models.SegmentationError{Err: err}
	}

	sentences := doc.Sentences()
	if len(sentences) == 0 {
		// The detector found no boundaries; treat the whole input as one
		// sentence so non-empty input always yields a segment.
		sentences = []prose.Sentence{{Text: text}}
	}

	segments := make([]models.Segment, 0, len(sentences))
	for _, sentence := range sentences {
		display := Clean(sentence.Text)
		prompt, err := buildPrompt(display)
		if err != nil {
			return nil, &models.SegmentationError{Err: err}
		}
		segments = append(segments, models.Segment{
			OriginalText:     sentence.Text,
			DisplayText:      display,
			GenerationPrompt: prompt,
		})
	}
	return segments, nil
}

// Clean normalizes whitespace and strips characters outside a conservative
// alphanumeric and punctuation allow-list.
func Clean(text string) string {
	text = allowListPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// buildPrompt tags the cleaned sentence and keeps nouns, verbs and
// adjectives (coarse tag families NN, VB, JJ) in original order, then
// appends the fixed quality suffix. A sentence with no retained tokens
// yields just the suffix.
func buildPrompt(display string) (string, error) {
	if display == "" {
		return PromptSuffix, nil
	}

	doc, err := prose.NewDocument(display,
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return "", err
	}

	var keywords []string
	for _, tok := range doc.Tokens() {
		if isContentTag(tok.Tag) {
			keywords = append(keywords, tok.Text)
		}
	}
	if len(keywords) == 0 {
		return PromptSuffix, nil
	}
	return strings.Join(keywords, " ") + ", " + PromptSuffix, nil
}

func isContentTag(tag string) bool {
	return strings.HasPrefix(tag, "NN") ||
		strings.HasPrefix(tag, "VB") ||
		strings.HasPrefix(tag, "JJ")
}
