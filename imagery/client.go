// Package imagery wraps the text-to-image provider. It augments prompts
// with a style fragment, calls the provider with fixed generation
// parameters and normalizes whatever comes back to PNG.
package imagery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	_ "image/jpeg"

	"github.com/aal51282/ai-video-generator/models"
	"github.com/aal51282/ai-video-generator/presets"
)

// Fixed generation parameters for the single supported output profile.
const (
	imageWidth  = 1024
	imageHeight = 576 // 16:9
	steps       = 30
	cfgScale    = 7.0
	samples     = 1

	maxAttempts = 3
)

// Client calls a Stability-style text-to-image REST API.
type Client struct {
	BaseURL    string
	APIKey     string
	Engine     string
	Seed       int
	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from STABILITY_* environment
// variables. IMAGE_SEED selects the generation seed; 0 lets the provider
// randomize. The default seed is fixed so identical prompts reproduce.
func NewClientFromEnv() *Client {
	baseURL := os.Getenv("STABILITY_API_URL")
	if baseURL == "" {
		baseURL = "https://api.stability.ai"
	}
	engine := os.Getenv("STABILITY_ENGINE")
	if engine == "" {
		engine = "stable-diffusion-xl-1024-v1-0"
	}
	seed := 42
	if raw := os.Getenv("IMAGE_SEED"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			seed = parsed
		} else {
			log.Printf("Ignoring invalid IMAGE_SEED %q", raw)
		}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     os.Getenv("STABILITY_API_KEY"),
		Engine:     engine,
		Seed:       seed,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type textPrompt struct {
	Text string `json:"text"`
}

type generateRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CfgScale    float64      `json:"cfg_scale"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	Steps       int          `json:"steps"`
	Samples     int          `json:"samples"`
	Seed        int          `json:"seed"`
}

type generateResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

// Generate produces one image for the prompt. An unknown styleKey falls
// back to the default style; a provider response with zero artifacts is
// an error, never silently skipped, since a missing image would
// desynchronize the segment sequence.
func (c *Client) Generate(ctx context.Context, prompt, styleKey string) (models.RasterImage, error) {
	style := presets.ImageStyleFor(styleKey)
	fullPrompt := style.Fragment
	if prompt != "" {
		fullPrompt = prompt + ", " + style.Fragment
	}

	body, err := json.Marshal(generateRequest{
		TextPrompts: []textPrompt{{Text: fullPrompt}},
		CfgScale:    cfgScale,
		Width:       imageWidth,
		Height:      imageHeight,
		Steps:       steps,
		Samples:     samples,
		Seed:        c.Seed,
	})
	if err != nil {
		return models.RasterImage{}, &models.GenerationError{SegmentIndex: -1, Err: err}
	}

	raw, err := c.request(ctx, body)
	if err != nil {
		return models.RasterImage{}, &models.GenerationError{SegmentIndex: -1, Err: err}
	}

	img, err := normalize(raw)
	if err != nil {
		return models.RasterImage{}, &models.GenerationError{SegmentIndex: -1, Err: err}
	}
	return img, nil
}

// request performs the provider call with bounded retries. Transport
// errors and 5xx responses retry; 4xx is deterministic and returns
// immediately.
func (c *Client) request(ctx context.Context, body []byte) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/generation/%s/text-to-image", c.BaseURL, c.Engine)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * 2 * time.Second
			log.Printf("Image API retry %d/%d after %v", attempt, maxAttempts, wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		raw, retryable, err := c.doRequest(ctx, url, body)
		if err == nil {
			return raw, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		log.Printf("Image API attempt %d/%d failed: %v", attempt, maxAttempts, err)
	}
	return nil, fmt.Errorf("image provider failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string, body []byte) (raw []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("image provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
		return nil, resp.StatusCode >= 500, err
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false, fmt.Errorf("decode image response: %w", err)
	}
	if len(parsed.Artifacts) == 0 {
		return nil, false, errors.New("image provider returned no artifacts")
	}

	data, err := base64.StdEncoding.DecodeString(parsed.Artifacts[0].Base64)
	if err != nil {
		return nil, false, fmt.Errorf("decode image artifact: %w", err)
	}
	return data, false, nil
}

// normalize re-encodes the provider's image as PNG so downstream steps
// never see the provider's native format.
func normalize(raw []byte) (models.RasterImage, error) {
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return models.RasterImage{}, fmt.Errorf("decode provider image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return models.RasterImage{}, fmt.Errorf("encode png: %w", err)
	}

	bounds := decoded.Bounds()
	return models.RasterImage{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
