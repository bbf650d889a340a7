// Package presets holds the static style registries consumed by the
// image and narration adapters and by the style discovery endpoint.
// Both maps are built once at init and never mutated at runtime.
package presets

// ImageStyle augments an image generation prompt with a named style
// fragment.
type ImageStyle struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Fragment    string `json:"-"`
	Description string `json:"description"`
}

// VoiceStyle maps a named key to a synthesis voice and its parameters.
type VoiceStyle struct {
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	VoiceID     string  `json:"-"`
	Stability   float64 `json:"-"`
	Similarity  float64 `json:"-"`
	Description string  `json:"description"`
}

const (
	// DefaultImageStyle is used when a request names an unknown style.
	DefaultImageStyle = "digital art"

	// DefaultVoiceStyle is used when a request names an unknown voice.
	DefaultVoiceStyle = "natural"
)

var imageStyles = map[string]ImageStyle{
	"digital art": {
		Key:         "digital art",
		Label:       "Digital Art",
		Fragment:    "digital art, highly detailed, vibrant colors",
		Description: "Polished digital illustration with vivid color",
	},
	"photorealistic": {
		Key:         "photorealistic",
		Label:       "Photorealistic",
		Fragment:    "photorealistic, sharp focus, natural lighting, 85mm lens",
		Description: "Looks like a photograph",
	},
	"anime": {
		Key:         "anime",
		Label:       "Anime",
		Fragment:    "anime style, cel shading, clean line art",
		Description: "Japanese animation style",
	},
	"watercolor": {
		Key:         "watercolor",
		Label:       "Watercolor",
		Fragment:    "watercolor painting, soft edges, paper texture",
		Description: "Loose watercolor painting",
	},
	"oil painting": {
		Key:         "oil painting",
		Label:       "Oil Painting",
		Fragment:    "oil painting, impasto brushwork, gallery lighting",
		Description: "Classical oil on canvas",
	},
	"cinematic": {
		Key:         "cinematic",
		Label:       "Cinematic",
		Fragment:    "cinematic still, dramatic lighting, anamorphic, film grain",
		Description: "Movie-frame look with dramatic light",
	},
}

var voiceStyles = map[string]VoiceStyle{
	"natural": {
		Key:         "natural",
		Label:       "Natural",
		VoiceID:     "21m00Tcm4TlvDq8ikWAM",
		Stability:   0.5,
		Similarity:  0.75,
		Description: "Neutral conversational narration",
	},
	"calm": {
		Key:         "calm",
		Label:       "Calm",
		VoiceID:     "EXAVITQu4vr4xnSDxMaL",
		Stability:   0.8,
		Similarity:  0.7,
		Description: "Slow, soothing delivery",
	},
	"energetic": {
		Key:         "energetic",
		Label:       "Energetic",
		VoiceID:     "ErXwobaYiN019PkySvjV",
		Stability:   0.3,
		Similarity:  0.8,
		Description: "Upbeat, expressive delivery",
	},
	"deep": {
		Key:         "deep",
		Label:       "Deep",
		VoiceID:     "VR6AewLTigWG4xSOukaG",
		Stability:   0.6,
		Similarity:  0.75,
		Description: "Low, authoritative narration",
	},
}

// ImageStyleFor returns the named style, falling back to the default
// rather than failing on an unknown key.
func ImageStyleFor(key string) ImageStyle {
	if s, ok := imageStyles[key]; ok {
		return s
	}
	return imageStyles[DefaultImageStyle]
}

// VoiceStyleFor returns the named voice preset, falling back to the
// default rather than failing on an unknown key.
func VoiceStyleFor(key string) VoiceStyle {
	if s, ok := voiceStyles[key]; ok {
		return s
	}
	return voiceStyles[DefaultVoiceStyle]
}

// ImageStyles returns a copy of the image style registry for discovery.
func ImageStyles() map[string]ImageStyle {
	out := make(map[string]ImageStyle, len(imageStyles))
	for k, v := range imageStyles {
		out[k] = v
	}
	return out
}

// VoiceStyles returns a copy of the voice style registry for discovery.
func VoiceStyles() map[string]VoiceStyle {
	out := make(map[string]VoiceStyle, len(voiceStyles))
	for k, v := range voiceStyles {
		out[k] = v
	}
	return out
}
