package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aal51282/ai-video-generator/models"
	"github.com/aal51282/ai-video-generator/presets"
)

func newTestClient(url string) *Client {
	return &Client{BaseURL: url, APIKey: "test-key", HTTPClient: http.DefaultClient}
}

func TestSynthesizeSendsFullTextAndPresetParams(t *testing.T) {
	fakeAudio := []byte("ID3fake-mp3-bytes")
	var gotPath string
	var gotReq synthesizeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(fakeAudio)
	}))
	defer server.Close()

	text := "A cat sits on a mat. It looks happy."
	track, err := newTestClient(server.URL).Synthesize(context.Background(), text, "calm")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if !bytes.Equal(track.Data, fakeAudio) {
		t.Error("Audio bytes do not match provider response")
	}
	if gotReq.Text != text {
		t.Errorf("Provider must receive the entire text, got %q", gotReq.Text)
	}

	calm := presets.VoiceStyleFor("calm")
	if !strings.HasSuffix(gotPath, "/v1/text-to-speech/"+calm.VoiceID) {
		t.Errorf("Unexpected request path: %s", gotPath)
	}
	if gotReq.VoiceSettings.Stability != calm.Stability || gotReq.VoiceSettings.SimilarityBoost != calm.Similarity {
		t.Errorf("Voice settings do not match preset: %+v", gotReq.VoiceSettings)
	}
}

func TestSynthesizeUnknownVoiceFallsBack(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Synthesize(context.Background(), "hello", "robot-overlord"); err != nil {
		t.Fatalf("Unknown voice should fall back silently, got %v", err)
	}
	def := presets.VoiceStyleFor(presets.DefaultVoiceStyle)
	if !strings.HasSuffix(gotPath, def.VoiceID) {
		t.Errorf("Expected default voice %s, got path %s", def.VoiceID, gotPath)
	}
}

func TestSynthesizeProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Synthesize(context.Background(), "hello", "natural")
	var synErr *models.SynthesisError
	if !errors.As(err, &synErr) {
		t.Fatalf("Expected SynthesisError, got %v", err)
	}
}

func TestStyleKeysMatchesRegistry(t *testing.T) {
	keys := newTestClient("http://unused").StyleKeys()
	if len(keys) != len(presets.VoiceStyles()) {
		t.Fatalf("Expected %d keys, got %d", len(presets.VoiceStyles()), len(keys))
	}
	for _, k := range keys {
		if presets.VoiceStyleFor(k).Key != k {
			t.Errorf("StyleKeys returned unknown key %q", k)
		}
	}
}
