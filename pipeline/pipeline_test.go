package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aal51282/ai-video-generator/models"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test png: %v", err)
	}
	return buf.Bytes()
}

// fakeImages maps a prompt keyword to an image width so ordering is
// observable downstream, and can fail on a chosen keyword.
type fakeImages struct {
	t        *testing.T
	mu       sync.Mutex
	calls    []string
	widths   map[string]int
	failWord string
}

func (f *fakeImages) Generate(ctx context.Context, prompt, styleKey string) (models.RasterImage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()

	if f.failWord != "" && strings.Contains(prompt, f.failWord) {
		return models.RasterImage{}, &models.GenerationError{SegmentIndex: -1, Err: errors.New("no artifacts")}
	}

	width := 320
	for word, w := range f.widths {
		if strings.Contains(prompt, word) {
			width = w
		}
	}
	return models.RasterImage{Data: testPNG(f.t, width, 200), Width: width, Height: 200}, nil
}

func (f *fakeImages) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNarrator struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeNarrator) Synthesize(ctx context.Context, text, voiceStyleKey string) (models.AudioTrack, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.err != nil {
		return models.AudioTrack{}, f.err
	}
	return models.AudioTrack{Data: []byte("mp3-bytes")}, nil
}

type fakeAssembler struct {
	gotImages int
	gotAudio  bool
}

func (f *fakeAssembler) Assemble(ctx context.Context, job *models.VideoJob) (string, error) {
	f.gotImages = len(job.Images)
	f.gotAudio = len(job.Audio.Data) > 0
	out := filepath.Join(job.Dir, "generated_video.mp4")
	if err := os.WriteFile(out, []byte("mp4"), 0o644); err != nil {
		return "", &models.CompositionError{Op: "write", Err: err}
	}
	job.OutputPath = out
	return out, nil
}

func newTestPipeline(t *testing.T, images ImageGenerator, narrator Narrator, asm VideoAssembler) *Pipeline {
	return &Pipeline{
		Images:           images,
		Narrator:         narrator,
		Assembler:        asm,
		WorkDir:          t.TempDir(),
		DurationPerImage: 5,
		ImageConcurrency: 2,
	}
}

func TestRunEndToEnd(t *testing.T) {
	images := &fakeImages{t: t, widths: map[string]int{"cat": 330, "happy": 340}}
	narrator := &fakeNarrator{}
	asm := &fakeAssembler{}
	p := newTestPipeline(t, images, narrator, asm)

	text := "A cat sits on a mat. It looks happy."
	job, err := p.Run(context.Background(), text, "natural", "digital art")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	defer job.Cleanup()

	if len(job.Segments) != 2 {
		t.Errorf("Expected 2 segments, got %d", len(job.Segments))
	}
	if got := images.callCount(); got != 2 {
		t.Errorf("Expected 2 image calls, got %d", got)
	}
	if len(narrator.calls) != 1 {
		t.Fatalf("Expected exactly 1 narration call, got %d", len(narrator.calls))
	}
	if narrator.calls[0] != text {
		t.Errorf("Narrator must receive the full text, got %q", narrator.calls[0])
	}
	if asm.gotImages != 2 || !asm.gotAudio {
		t.Errorf("Assembler received %d images, audio=%v", asm.gotImages, asm.gotAudio)
	}

	info, err := os.Stat(job.OutputPath)
	if err != nil || info.Size() == 0 {
		t.Errorf("Output file missing or empty: %v", err)
	}
}

func TestRunPreservesSegmentOrder(t *testing.T) {
	// Distinct nouns let the fake stamp each image with a per-segment
	// width; the assembler must see them in segment order even though
	// generation runs concurrently.
	images := &fakeImages{t: t, widths: map[string]int{"cat": 300, "ship": 302, "robot": 304}}

	var gotWidths []int
	asm := assembleFunc(func(ctx context.Context, job *models.VideoJob) (string, error) {
		for _, img := range job.Images {
			gotWidths = append(gotWidths, img.Width)
		}
		out := filepath.Join(job.Dir, "generated_video.mp4")
		os.WriteFile(out, []byte("mp4"), 0o644)
		job.OutputPath = out
		return out, nil
	})

	p := newTestPipeline(t, images, &fakeNarrator{}, asm)
	job, err := p.Run(context.Background(), "A cat sleeps. A ship sails. A robot sings.", "natural", "anime")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	defer job.Cleanup()

	want := []int{300, 302, 304}
	if fmt.Sprint(gotWidths) != fmt.Sprint(want) {
		t.Errorf("Assembler saw widths %v, want segment order %v", gotWidths, want)
	}
}

type assembleFunc func(ctx context.Context, job *models.VideoJob) (string, error)

func (f assembleFunc) Assemble(ctx context.Context, job *models.VideoJob) (string, error) {
	return f(ctx, job)
}

func TestRunFailedSegmentAbortsJob(t *testing.T) {
	images := &fakeImages{t: t, failWord: "ship"}
	p := newTestPipeline(t, images, &fakeNarrator{}, &fakeAssembler{})

	workDir := p.WorkDir
	_, err := p.Run(context.Background(), "A cat sleeps. A ship sails. A robot sings.", "natural", "anime")

	var genErr *models.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected GenerationError, got %v", err)
	}
	if genErr.SegmentIndex != 1 {
		t.Errorf("Expected failure attributed to segment 1, got %d", genErr.SegmentIndex)
	}

	entries, readErr := os.ReadDir(workDir)
	if readErr != nil {
		t.Fatalf("Failed to read work dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("Job workspace not cleaned up after failure: %v", entries)
	}
}

func TestRunNarratorFailure(t *testing.T) {
	narrator := &fakeNarrator{err: &models.SynthesisError{Err: errors.New("quota exceeded")}}
	p := newTestPipeline(t, &fakeImages{t: t}, narrator, &fakeAssembler{})

	_, err := p.Run(context.Background(), "A cat sleeps.", "natural", "anime")
	var synErr *models.SynthesisError
	if !errors.As(err, &synErr) {
		t.Fatalf("Expected SynthesisError, got %v", err)
	}
	if entries, _ := os.ReadDir(p.WorkDir); len(entries) != 0 {
		t.Errorf("Job workspace not cleaned up after failure: %v", entries)
	}
}

func TestRunEmptyTextIsSegmentationError(t *testing.T) {
	p := newTestPipeline(t, &fakeImages{t: t}, &fakeNarrator{}, &fakeAssembler{})
	_, err := p.Run(context.Background(), "   ", "natural", "anime")
	var segErr *models.SegmentationError
	if !errors.As(err, &segErr) {
		t.Fatalf("Expected SegmentationError, got %v", err)
	}
}

func TestRunRefinementFailureFallsBack(t *testing.T) {
	images := &fakeImages{t: t}
	p := newTestPipeline(t, images, &fakeNarrator{}, &fakeAssembler{})
	p.Refine = func(ctx context.Context, segments []models.Segment) ([]string, error) {
		return nil, errors.New("llm unavailable")
	}

	job, err := p.Run(context.Background(), "A cat sleeps.", "natural", "anime")
	if err != nil {
		t.Fatalf("Refinement failure must not fail the job: %v", err)
	}
	defer job.Cleanup()

	if got := images.calls[0]; got != job.Segments[0].GenerationPrompt {
		t.Errorf("Expected tagger prompt %q, got %q", job.Segments[0].GenerationPrompt, got)
	}
}

func TestRunRefinedPromptsReachGenerator(t *testing.T) {
	images := &fakeImages{t: t}
	p := newTestPipeline(t, images, &fakeNarrator{}, &fakeAssembler{})
	p.Refine = func(ctx context.Context, segments []models.Segment) ([]string, error) {
		return []string{"a sleepy tabby cat curled on a windowsill at dusk"}, nil
	}

	job, err := p.Run(context.Background(), "A cat sleeps.", "natural", "anime")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	defer job.Cleanup()

	if images.calls[0] != "a sleepy tabby cat curled on a windowsill at dusk" {
		t.Errorf("Generator did not receive the refined prompt: %q", images.calls[0])
	}
}
