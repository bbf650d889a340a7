package models

// Segment is one sentence-scoped unit of the input text. Order is
// significant: segment index N pairs with image N and clip N, and the
// narration reads segments in the same order.
type Segment struct {
	OriginalText     string `json:"original_text"`
	DisplayText      string `json:"display_text"`
	GenerationPrompt string `json:"generation_prompt"`
}
