package models

import "fmt"

// The pipeline surfaces exactly one of these four error kinds per failed
// job. Each wraps the underlying cause so the orchestrator can log detail
// while the handler maps the kind to a client-facing status.

// SegmentationError means sentence boundary detection or tagging could
// not run at all. An input that yields thin prompts is not an error.
type SegmentationError struct {
	Err error
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("text segmentation failed: %v", e.Err)
}

func (e *SegmentationError) Unwrap() error { return e.Err }

// GenerationError means the image provider failed or returned no usable
// artifact for a segment. SegmentIndex is -1 when the failure is not
// attributable to a single segment.
type GenerationError struct {
	SegmentIndex int
	Err          error
}

func (e *GenerationError) Error() string {
	if e.SegmentIndex >= 0 {
		return fmt.Sprintf("image generation failed for segment %d: %v", e.SegmentIndex, e.Err)
	}
	return fmt.Sprintf("image generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SynthesisError means the voice provider failed.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("voice synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// CompositionError means local media processing (captioning, encoding,
// concatenation, muxing) failed. Op names the step that broke.
type CompositionError struct {
	Op  string
	Err error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("video composition failed (%s): %v", e.Op, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }
