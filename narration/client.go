// Package narration wraps the text-to-speech provider. One synthesis
// call covers the entire input text so the narration flows across
// segment boundaries.
package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aal51282/ai-video-generator/models"
	"github.com/aal51282/ai-video-generator/presets"
)

const (
	modelID     = "eleven_monolingual_v1"
	maxAttempts = 3
)

// Client calls an ElevenLabs-style text-to-speech REST API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from ELEVENLABS_* environment variables.
func NewClientFromEnv() *Client {
	baseURL := os.Getenv("ELEVENLABS_API_URL")
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     os.Getenv("ELEVENLABS_API_KEY"),
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// StyleKeys lists the available voice style keys in a stable order. This
// reads only the static registry; no provider call is made.
func (c *Client) StyleKeys() []string {
	styles := presets.VoiceStyles()
	keys := make([]string, 0, len(styles))
	for k := range styles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Synthesize produces narration audio for the entire text with the named
// voice style. An unknown style falls back to the default preset.
func (c *Client) Synthesize(ctx context.Context, text, voiceStyleKey string) (models.AudioTrack, error) {
	voice := presets.VoiceStyleFor(voiceStyleKey)

	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: modelID,
		VoiceSettings: voiceSettings{
			Stability:       voice.Stability,
			SimilarityBoost: voice.Similarity,
		},
	})
	if err != nil {
		return models.AudioTrack{}, &models.SynthesisError{Err: err}
	}

	audio, err := c.request(ctx, voice.VoiceID, body)
	if err != nil {
		return models.AudioTrack{}, &models.SynthesisError{Err: err}
	}
	return models.AudioTrack{Data: audio}, nil
}

func (c *Client) request(ctx context.Context, voiceID string, body []byte) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.BaseURL, voiceID)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * 2 * time.Second
			log.Printf("Voice API retry %d/%d after %v", attempt, maxAttempts, wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		audio, retryable, err := c.doRequest(ctx, url, body)
		if err == nil {
			return audio, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		log.Printf("Voice API attempt %d/%d failed: %v", attempt, maxAttempts, err)
	}
	return nil, fmt.Errorf("voice provider failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string, body []byte) (audio []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("xi-api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("voice provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
		return nil, resp.StatusCode >= 500, err
	}

	audio, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read audio body: %w", err)
	}
	if len(audio) == 0 {
		return nil, false, fmt.Errorf("voice provider returned empty audio")
	}
	return audio, false, nil
}
