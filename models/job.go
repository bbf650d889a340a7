package models

import (
	"os"
	"path/filepath"
)

// VideoJob is the working state for one end-to-end generation request.
// Everything in it is scoped to this job's workspace directory and must
// not leak between concurrent requests.
type VideoJob struct {
	ID               string
	Dir              string
	Segments         []Segment
	Images           []RasterImage
	Audio            AudioTrack
	DurationPerImage float64
	OutputPath       string
}

// NewVideoJob creates the job workspace under baseDir.
func NewVideoJob(id, baseDir string, durationPerImage float64) (*VideoJob, error) {
	dir := filepath.Join(baseDir, "job_"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &VideoJob{
		ID:               id,
		Dir:              dir,
		DurationPerImage: durationPerImage,
	}, nil
}

// Cleanup removes the job workspace, output included. The handler serves
// the encoded file before calling this, so the output survives exactly
// until it has been returned to the caller.
func (j *VideoJob) Cleanup() error {
	j.OutputPath = ""
	return os.RemoveAll(j.Dir)
}
