package videos

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aal51282/ai-video-generator/models"
	"github.com/aal51282/ai-video-generator/presets"
)

// Runner executes one generation request end to end.
type Runner interface {
	Run(ctx context.Context, text, voiceStyle, imageStyle string) (*models.VideoJob, error)
}

type Handler struct {
	Pipeline Runner
}

func NewHandler(p Runner) *Handler {
	return &Handler{Pipeline: p}
}

type GenerateVideoRequest struct {
	Text       string `json:"text" binding:"required"`
	VoiceStyle string `json:"voice_style"`
	ImageStyle string `json:"image_style"`
}

// GenerateVideo runs the whole pipeline and streams the MP4 back. The
// job workspace (output included) is removed once the response is
// written; nothing outlives the request.
func (h *Handler) GenerateVideo(c *gin.Context) {
	var req GenerateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.VoiceStyle == "" {
		req.VoiceStyle = presets.DefaultVoiceStyle
	}
	if req.ImageStyle == "" {
		req.ImageStyle = presets.DefaultImageStyle
	}

	job, err := h.Pipeline.Run(c.Request.Context(), req.Text, req.VoiceStyle, req.ImageStyle)
	if err != nil {
		status, message := clientError(err)
		c.JSON(status, gin.H{"error": message})
		return
	}
	defer func() {
		if err := job.Cleanup(); err != nil {
			log.Printf("Job %s cleanup failed: %v", job.ID, err)
		}
	}()

	c.FileAttachment(job.OutputPath, "generated_video.mp4")
}

// GetStyles returns the static style registries. No provider calls.
func (h *Handler) GetStyles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"voice_styles": presets.VoiceStyles(),
		"image_styles": presets.ImageStyles(),
	})
}

// clientError collapses a pipeline failure into a status code and a
// human-readable message. Detail stays in the server log.
func clientError(err error) (int, string) {
	var segErr *models.SegmentationError
	var genErr *models.GenerationError
	var synErr *models.SynthesisError
	var compErr *models.CompositionError
	switch {
	case errors.As(err, &segErr):
		return http.StatusUnprocessableEntity, "Could not process the input text"
	case errors.As(err, &genErr):
		return http.StatusBadGateway, "Image generation failed"
	case errors.As(err, &synErr):
		return http.StatusBadGateway, "Voice synthesis failed"
	case errors.As(err, &compErr):
		return http.StatusInternalServerError, "Video composition failed"
	default:
		return http.StatusInternalServerError, "Video generation failed"
	}
}
