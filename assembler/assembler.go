// Package assembler turns an ordered captioned image sequence and one
// audio track into a single MP4. Each image becomes a fixed-duration
// clip; clips are concatenated with hard cuts and the narration is muxed
// onto the result. All encoding is delegated to ffmpeg.
package assembler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aal51282/ai-video-generator/models"
)

const (
	frameRate = 24

	// OutputName is the fixed name of the encoded file inside the job
	// workspace.
	OutputName = "generated_video.mp4"
)

// Assembler shells out to ffmpeg/ffprobe for clip encoding, concatenation
// and audio muxing.
type Assembler struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFromEnv builds an assembler honoring FFMPEG_PATH and FFPROBE_PATH
// overrides.
func NewFromEnv() *Assembler {
	ffmpeg := os.Getenv("FFMPEG_PATH")
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	ffprobe := os.Getenv("FFPROBE_PATH")
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &Assembler{FFmpegPath: ffmpeg, FFprobePath: ffprobe}
}

// Assemble encodes job.Images plus job.Audio into a single MP4 inside
// the job workspace and records its path on the job. Intermediate
// artifacts are removed before returning; on failure no output file
// survives.
func (a *Assembler) Assemble(ctx context.Context, job *models.VideoJob) (string, error) {
	if len(job.Images) == 0 {
		return "", &models.CompositionError{Op: "assemble", Err: errors.New("no images to assemble")}
	}
	if len(job.Audio.Data) == 0 {
		return "", &models.CompositionError{Op: "assemble", Err: errors.New("no audio track")}
	}

	outputPath := filepath.Join(job.Dir, OutputName)
	var intermediates []string
	defer func() {
		for _, path := range intermediates {
			os.Remove(path)
		}
	}()

	fail := func(op string, err error) (string, error) {
		os.Remove(outputPath)
		return "", &models.CompositionError{Op: op, Err: err}
	}

	// Persist the audio track and measure it; the real narration length
	// drives the pad policy below.
	audioPath := filepath.Join(job.Dir, "audio.mp3")
	if err := os.WriteFile(audioPath, job.Audio.Data, 0o644); err != nil {
		return fail("write audio", err)
	}
	intermediates = append(intermediates, audioPath)

	audioDuration, err := a.probeDuration(ctx, audioPath)
	if err != nil {
		return fail("probe audio", err)
	}

	durations := ClipDurations(len(job.Images), job.DurationPerImage, audioDuration)

	// One clip per image, in segment order.
	clipPaths := make([]string, len(job.Images))
	for i, img := range job.Images {
		imagePath := filepath.Join(job.Dir, fmt.Sprintf("image_%03d.png", i))
		if err := os.WriteFile(imagePath, img.Data, 0o644); err != nil {
			return fail("write image", err)
		}
		intermediates = append(intermediates, imagePath)

		clipPath := filepath.Join(job.Dir, fmt.Sprintf("clip_%03d.mp4", i))
		if err := a.runFFmpeg(ctx, clipArgs(imagePath, clipPath, durations[i])); err != nil {
			return fail(fmt.Sprintf("encode clip %d", i), err)
		}
		intermediates = append(intermediates, clipPath)
		clipPaths[i] = clipPath
	}

	// Hard-cut concatenation via the concat demuxer, then mux narration.
	listPath := filepath.Join(job.Dir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(ConcatList(clipPaths)), 0o644); err != nil {
		return fail("write concat list", err)
	}
	intermediates = append(intermediates, listPath)

	concatPath := filepath.Join(job.Dir, "timeline.mp4")
	if err := a.runFFmpeg(ctx, concatArgs(listPath, concatPath)); err != nil {
		return fail("concat clips", err)
	}
	intermediates = append(intermediates, concatPath)

	if err := a.runFFmpeg(ctx, muxArgs(concatPath, audioPath, outputPath)); err != nil {
		return fail("mux audio", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		return fail("verify output", fmt.Errorf("output missing or empty: %v", err))
	}

	job.OutputPath = outputPath
	return outputPath, nil
}

// ClipDurations returns the planned duration of each clip. Every clip
// holds its image for perImage seconds; when the narration runs past
// count*perImage the final clip is extended so the video covers the
// audio (pad policy). A narration shorter than the timeline leaves the
// clip plan untouched and simply ends early.
func ClipDurations(count int, perImage, audioDuration float64) []float64 {
	durations := make([]float64, count)
	for i := range durations {
		durations[i] = perImage
	}
	total := float64(count) * perImage
	if audioDuration > total && count > 0 {
		durations[count-1] += audioDuration - total
	}
	return durations
}

// ConcatList renders the concat demuxer input for the given clips in
// sequence order.
func ConcatList(clipPaths []string) string {
	var b strings.Builder
	for _, p := range clipPaths {
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	return b.String()
}

func clipArgs(imagePath, clipPath string, duration float64) []string {
	return []string{
		"-y", "-loop", "1", "-i", imagePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-r", fmt.Sprintf("%d", frameRate),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		clipPath,
	}
}

func concatArgs(listPath, concatPath string) []string {
	return []string{
		"-y", "-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy",
		concatPath,
	}
}

func muxArgs(videoPath, audioPath, outputPath string) []string {
	return []string{
		"-y", "-i", videoPath, "-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy", "-c:a", "aac",
		outputPath,
	}
}

func (a *Assembler) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, a.FFmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", args[len(args)-1], err, tail(string(output)))
	}
	return nil
}

// probeDuration returns the container duration of the file in seconds.
func (a *Assembler) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.FFprobePath,
		"-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w: %s", err, tail(string(output)))
	}
	return ParseDuration(output)
}

// ParseDuration extracts format.duration from ffprobe JSON output.
func ParseDuration(probeJSON []byte) (float64, error) {
	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(probeJSON, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	raw := strings.TrimSpace(result.Format.Duration)
	if raw == "" {
		return 0, errors.New("ffprobe reported no duration")
	}
	var seconds float64
	if _, err := fmt.Sscanf(raw, "%f", &seconds); err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", raw, err)
	}
	return seconds, nil
}

// tail keeps the last few lines of tool output for error messages.
func tail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, " | ")
}
