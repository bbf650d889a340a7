// Package pipeline orchestrates one generation request end to end:
// segmentation, per-segment image acquisition, narration synthesis,
// caption compositing and final video assembly.
package pipeline

import (
	"context"
	"errors"
	"log"
	"os"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aal51282/ai-video-generator/captions"
	"github.com/aal51282/ai-video-generator/models"
	"github.com/aal51282/ai-video-generator/segmenter"
)

// ImageGenerator produces one illustrative image for a segment prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, styleKey string) (models.RasterImage, error)
}

// Narrator synthesizes one audio track for the entire input text.
type Narrator interface {
	Synthesize(ctx context.Context, text, voiceStyleKey string) (models.AudioTrack, error)
}

// VideoAssembler encodes the captioned image sequence plus audio into
// the final file.
type VideoAssembler interface {
	Assemble(ctx context.Context, job *models.VideoJob) (string, error)
}

// Pipeline owns the adapters and per-request policy for one deployment.
// It holds no per-request state; every Run gets its own VideoJob.
type Pipeline struct {
	Images    ImageGenerator
	Narrator  Narrator
	Assembler VideoAssembler

	// Refine optionally rewrites segment prompts before image generation.
	// A refinement failure falls back to the tagger-derived prompts; it
	// never fails the job.
	Refine func(ctx context.Context, segments []models.Segment) ([]string, error)

	WorkDir          string
	DurationPerImage float64
	ImageConcurrency int
}

// New builds a pipeline, filling unset policy fields from the environment:
// WORK_DIR, SECONDS_PER_IMAGE and IMAGE_CONCURRENCY.
func New(images ImageGenerator, narrator Narrator, asm VideoAssembler) *Pipeline {
	workDir := os.Getenv("WORK_DIR")
	if workDir == "" {
		workDir = os.TempDir()
	}

	duration := 5.0
	if raw := os.Getenv("SECONDS_PER_IMAGE"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			duration = parsed
		} else {
			log.Printf("Ignoring invalid SECONDS_PER_IMAGE %q", raw)
		}
	}

	concurrency := 3
	if raw := os.Getenv("IMAGE_CONCURRENCY"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			concurrency = parsed
		} else {
			log.Printf("Ignoring invalid IMAGE_CONCURRENCY %q", raw)
		}
	}

	return &Pipeline{
		Images:           images,
		Narrator:         narrator,
		Assembler:        asm,
		WorkDir:          workDir,
		DurationPerImage: duration,
		ImageConcurrency: concurrency,
	}
}

// Run executes the whole pipeline for one request. On success the
// returned job's OutputPath points at the encoded MP4 inside the job
// workspace; the caller serves it and then calls job.Cleanup. On failure
// the workspace is already removed and the error is one of the four
// taxonomy kinds.
func (p *Pipeline) Run(ctx context.Context, text, voiceStyle, imageStyle string) (*models.VideoJob, error) {
	segments, err := segmenter.Segment(text)
	if err != nil {
		logFailure("", err)
		return nil, err
	}

	job, err := models.NewVideoJob(uuid.NewString(), p.WorkDir, p.DurationPerImage)
	if err != nil {
		compErr := &models.CompositionError{Op: "workspace", Err: err}
		logFailure("", compErr)
		return nil, compErr
	}
	job.Segments = segments
	log.Printf("Job %s: %d segments", job.ID, len(segments))

	out, err := p.run(ctx, job, text, voiceStyle, imageStyle)
	if err != nil {
		job.Cleanup()
		logFailure(job.ID, err)
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, job *models.VideoJob, text, voiceStyle, imageStyle string) (*models.VideoJob, error) {
	prompts := make([]string, len(job.Segments))
	for i, seg := range job.Segments {
		prompts[i] = seg.GenerationPrompt
	}
	if p.Refine != nil {
		if refined, err := p.Refine(ctx, job.Segments); err != nil {
			log.Printf("Job %s: prompt refinement failed, using tagger prompts: %v", job.ID, err)
		} else {
			prompts = refined
		}
	}

	// Image calls fan out per segment, bounded to respect provider rate
	// limits; narration is a single independent call that runs alongside
	// them. Results rejoin by segment index.
	images := make([]models.RasterImage, len(job.Segments))
	var audio models.AudioTrack

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		track, err := p.Narrator.Synthesize(gctx, text, voiceStyle)
		if err != nil {
			return asSynthesisError(err)
		}
		audio = track
		return nil
	})
	g.Go(func() error {
		ig, ictx := errgroup.WithContext(gctx)
		ig.SetLimit(p.ImageConcurrency)
		for i := range job.Segments {
			i := i
			ig.Go(func() error {
				img, err := p.Images.Generate(ictx, prompts[i], imageStyle)
				if err != nil {
					return asGenerationError(i, err)
				}
				images[i] = img
				return nil
			})
		}
		return ig.Wait()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	job.Audio = audio

	// Captioning is pure CPU work; parallelize it, then hand the ordered
	// result to the strictly sequential assembler.
	captioned := make([]models.RasterImage, len(images))
	cg, _ := errgroup.WithContext(ctx)
	cg.SetLimit(runtime.NumCPU())
	for i := range images {
		i := i
		cg.Go(func() error {
			out, err := captions.Apply(images[i], job.Segments[i].DisplayText)
			if err != nil {
				return err
			}
			captioned[i] = out
			return nil
		})
	}
	if err := cg.Wait(); err != nil {
		return nil, err
	}
	job.Images = captioned

	if _, err := p.Assembler.Assemble(ctx, job); err != nil {
		return nil, err
	}
	log.Printf("Job %s: output ready at %s", job.ID, job.OutputPath)
	return job, nil
}

// asGenerationError stamps the segment index onto the adapter's error,
// wrapping untyped causes so the caller always sees the taxonomy kind.
func asGenerationError(index int, err error) error {
	var genErr *models.GenerationError
	if errors.As(err, &genErr) {
		genErr.SegmentIndex = index
		return err
	}
	return &models.GenerationError{SegmentIndex: index, Err: err}
}

func asSynthesisError(err error) error {
	var synErr *models.SynthesisError
	if errors.As(err, &synErr) {
		return err
	}
	return &models.SynthesisError{Err: err}
}

// logFailure records which stage broke, and for image generation which
// segment, before the handler collapses the error into a client message.
func logFailure(jobID string, err error) {
	prefix := "Job"
	if jobID != "" {
		prefix = "Job " + jobID
	}

	var segErr *models.SegmentationError
	var genErr *models.GenerationError
	var synErr *models.SynthesisError
	var compErr *models.CompositionError
	switch {
	case errors.As(err, &segErr):
		log.Printf("%s failed during segmentation: %v", prefix, segErr.Err)
	case errors.As(err, &genErr):
		log.Printf("%s failed during image generation (segment %d): %v", prefix, genErr.SegmentIndex, genErr.Err)
	case errors.As(err, &synErr):
		log.Printf("%s failed during narration synthesis: %v", prefix, synErr.Err)
	case errors.As(err, &compErr):
		log.Printf("%s failed during composition (%s): %v", prefix, compErr.Op, compErr.Err)
	default:
		log.Printf("%s failed: %v", prefix, err)
	}
}
